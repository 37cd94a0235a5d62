package service

import (
	"context"
	"fmt"

	"cstats-bot/internal/api"
	"cstats-bot/internal/retry"

	"github.com/rs/zerolog"
)

// Platform is the subset of the 5E API the pipeline talks to.
type Platform interface {
	SearchPlayers(ctx context.Context, keywords string) (*api.SearchResponse, error)
	TransferID(ctx context.Context, domain string) (*api.TransferResponse, error)
	PlayerMatches(ctx context.Context, uuid string) (*api.PlayerMatchResponse, error)
	MatchDetail(ctx context.Context, matchID string) (*api.MatchDetailResponse, error)
}

// IdentityResolver turns a free-text player name into the platform's durable uuid.
type IdentityResolver struct {
	platform Platform
	policy   *retry.Policy
	logger   zerolog.Logger
}

func NewIdentityResolver(platform Platform, policy *retry.Policy, logger zerolog.Logger) *IdentityResolver {
	return &IdentityResolver{platform: platform, policy: policy, logger: logger}
}

// ResolveDomain searches for playerName and returns the domain token of the
// candidate whose username matches exactly (case-sensitive).
func (r *IdentityResolver) ResolveDomain(ctx context.Context, playerName string) (string, error) {
	var domain string
	err := r.policy.Do(ctx, "resolve_domain", func(ctx context.Context) error {
		resp, err := r.platform.SearchPlayers(ctx, playerName)
		if err != nil {
			return remoteErr("search player", err)
		}

		for _, u := range resp.Data.User.List {
			if u.Username != playerName {
				continue
			}
			if u.Domain == "" {
				return retry.Retryable(fmt.Errorf("search player %q: %w: empty domain", playerName, ErrData))
			}
			domain = u.Domain
			return nil
		}
		return fmt.Errorf("search player %q: %w", playerName, ErrNotFound)
	})
	if err != nil {
		r.logger.Error().Err(err).Str("player_name", playerName).Msg("failed to resolve domain")
		return "", err
	}

	r.logger.Debug().Str("player_name", playerName).Str("domain", domain).Msg("domain resolved")
	return domain, nil
}

// ResolveInternalID exchanges a domain token for the platform uuid.
func (r *IdentityResolver) ResolveInternalID(ctx context.Context, domain string) (string, error) {
	var uuid string
	err := r.policy.Do(ctx, "resolve_uuid", func(ctx context.Context) error {
		resp, err := r.platform.TransferID(ctx, domain)
		if err != nil {
			return remoteErr("transfer id", err)
		}
		if resp.Data.UUID == "" {
			return retry.Retryable(fmt.Errorf("transfer id %q: %w: missing uuid", domain, ErrData))
		}
		uuid = resp.Data.UUID
		return nil
	})
	if err != nil {
		r.logger.Error().Err(err).Str("domain", domain).Msg("failed to resolve uuid")
		return "", err
	}

	r.logger.Debug().Str("domain", domain).Str("uuid", uuid).Msg("uuid resolved")
	return uuid, nil
}
