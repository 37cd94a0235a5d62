package fx

import (
	"cstats-bot/internal/api"
	"cstats-bot/internal/command"
	"cstats-bot/internal/config"
	"cstats-bot/internal/llm"
	"cstats-bot/internal/logger"
	"cstats-bot/internal/repository"
	"cstats-bot/internal/retry"
	"cstats-bot/internal/server"
	"cstats-bot/internal/service"
	"cstats-bot/internal/telegram"

	"go.uber.org/fx"
)

// ProvideCommentator hides a disabled LLM client behind a nil interface, so
// the query flow sees no Commentator at all.
func ProvideCommentator(client *llm.Client) service.Commentator {
	if client == nil {
		return nil
	}
	return client
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	// stores
	fx.Provide(repository.New),
	// api clients
	fx.Provide(api.NewFiveEClient),
	fx.Provide(func(c *api.FiveEClient) service.Platform { return c }),
	fx.Provide(llm.New),
	fx.Provide(ProvideCommentator),
	fx.Provide(retry.NewPolicy),
	// svc
	fx.Provide(service.NewIdentityResolver),
	fx.Provide(service.NewMatchService),
	fx.Provide(service.NewFormatter),
	fx.Provide(service.NewStatsService),
	fx.Provide(command.NewDispatcher),
	// chat surfaces
	fx.Provide(server.NewCommandServer),
	fx.Provide(telegram.New),
)
