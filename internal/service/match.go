package service

import (
	"context"
	"fmt"

	"cstats-bot/internal/retry"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

// MatchService finds a player's matches and fetches their details, retrying platform calls.
type MatchService struct {
	platform Platform
	policy   *retry.Policy
	logger   zerolog.Logger
}

// NewMatchService returns a MatchService backed by platform and policy.
func NewMatchService(platform Platform, policy *retry.Policy, logger zerolog.Logger) *MatchService {
	return &MatchService{platform: platform, policy: policy, logger: logger}
}

// LocateMatch picks the match roundsBack games ago from the player's history,
// 1 being the most recent.
func (s *MatchService) LocateMatch(ctx context.Context, uuid string, roundsBack int) (string, error) {
	if roundsBack < 1 {
		return "", fmt.Errorf("rounds back %d: %w", roundsBack, ErrPrecheck)
	}

	var matchID string
	err := s.policy.Do(ctx, "locate_match", func(ctx context.Context) error {
		resp, err := s.platform.PlayerMatches(ctx, uuid)
		if err != nil {
			return remoteErr("player matches", err)
		}

		history := resp.Data.MatchData
		if roundsBack > len(history) {
			return fmt.Errorf("match %d back of %d: %w", roundsBack, len(history), ErrNotFound)
		}

		id := history[roundsBack-1].MatchID
		if id == "" {
			return retry.Retryable(fmt.Errorf("match %d back: %w: missing match_id", roundsBack, ErrData))
		}
		matchID = id
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("uuid", uuid).Int("rounds_back", roundsBack).Msg("failed to locate match")
		return "", err
	}

	s.logger.Debug().Str("uuid", uuid).Int("rounds_back", roundsBack).Str("match_id", matchID).Msg("match located")
	return matchID, nil
}

// FetchMatchDetail returns the raw data object of a match.
func (s *MatchService) FetchMatchDetail(ctx context.Context, matchID string) (jsoniter.RawMessage, error) {
	var payload jsoniter.RawMessage
	err := s.policy.Do(ctx, "fetch_match_detail", func(ctx context.Context) error {
		resp, err := s.platform.MatchDetail(ctx, matchID)
		if err != nil {
			return remoteErr("match detail", err)
		}
		payload = resp.Data
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("match_id", matchID).Msg("failed to fetch match detail")
		return nil, err
	}

	s.logger.Debug().Str("match_id", matchID).Int("bytes", len(payload)).Msg("match detail fetched")
	return payload, nil
}
