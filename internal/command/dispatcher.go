package command

import (
	"context"

	"cstats-bot/internal/config"
	"cstats-bot/internal/domain"
	"cstats-bot/internal/service"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Invocation is one chat message addressed to the bot. MentionedID is the chat
// user id of a mentioned member, if the runtime resolved one.
type Invocation struct {
	Text        string
	SenderID    string
	SenderName  string
	MentionedID string
}

type Reply struct {
	InvocationID string
	Kind         Kind
	Text         string
}

// Handled is false for messages that are not bot commands.
func (r Reply) Handled() bool {
	return r.Kind != KindUnknown
}

type Dispatcher struct {
	stats  *service.StatsService
	prefix string
	logger zerolog.Logger
}

func NewDispatcher(stats *service.StatsService, cfg *config.Config, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		stats:  stats,
		prefix: cfg.CommandPrefix,
		logger: logger,
	}
}

// Handle runs one invocation. Every call builds its own ResolutionRequest, so
// concurrent calls never share state.
func (d *Dispatcher) Handle(ctx context.Context, inv Invocation) Reply {
	kind, arg := Classify(inv.Text, d.prefix)
	if kind == KindUnknown {
		return Reply{Kind: kind}
	}

	id, err := gonanoid.New()
	if err != nil {
		d.logger.Warn().Err(err).Msg("failed to generate invocation id")
	}

	// Keep fields the runtime already attached, such as request_id or chat_id.
	base := d.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		base = *l
	}
	log := base.With().
		Str("invocation_id", id).
		Str("command", kind.String()).
		Str("sender_id", inv.SenderID).
		Logger()
	ctx = log.WithContext(ctx)
	log.Info().Str("text", inv.Text).Msg("command received")

	reply := Reply{InvocationID: id, Kind: kind}
	switch kind {
	case KindBind:
		reply.Text = d.bind(ctx, inv, arg)
	case KindMatch:
		reply.Text = d.match(ctx, inv, arg)
	case KindHelp:
		reply.Text = HelpText(d.prefix)
	}

	log.Info().Msg("command handled")
	return reply
}

func (d *Dispatcher) bind(ctx context.Context, inv Invocation, arg string) string {
	req := &domain.ResolutionRequest{
		MessageText: inv.Text,
		ChatUserID:  inv.SenderID,
		DisplayName: inv.SenderName,
		PlayerName:  arg,
	}
	if arg == "" {
		req.Fail("玩家名称未成功识别，请检查命令输入")
	}
	return d.stats.Bind(ctx, req)
}

func (d *Dispatcher) match(ctx context.Context, inv Invocation, arg string) string {
	target := inv.SenderID
	if inv.MentionedID != "" {
		target = inv.MentionedID
	}

	req := &domain.ResolutionRequest{
		MessageText: inv.Text,
		ChatUserID:  target,
		DisplayName: inv.SenderName,
	}

	roundsBack, err := ParseRoundsBack(arg)
	if err != nil {
		req.Fail("比赛场次必须是正整数")
	}
	return d.stats.Query(ctx, req, roundsBack)
}
