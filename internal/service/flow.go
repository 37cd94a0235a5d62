package service

import (
	"context"
	"errors"
	"fmt"

	"cstats-bot/internal/domain"
	"cstats-bot/internal/repository"

	"github.com/rs/zerolog"
)

// Commentator writes a short remark about a rendered stats text.
type Commentator interface {
	Comment(ctx context.Context, statsText string) (string, error)
}

// StatsService runs the bind and query flows. It holds no per-user state; all
// of it lives in the ResolutionRequest owned by the caller.
type StatsService struct {
	resolver    *IdentityResolver
	matches     *MatchService
	formatter   *Formatter
	bindings    repository.BindingRepository
	commentator Commentator
	logger      zerolog.Logger
}

func NewStatsService(
	resolver *IdentityResolver,
	matches *MatchService,
	formatter *Formatter,
	bindings repository.BindingRepository,
	commentator Commentator,
	logger zerolog.Logger,
) *StatsService {
	return &StatsService{
		resolver:    resolver,
		matches:     matches,
		formatter:   formatter,
		bindings:    bindings,
		commentator: commentator,
		logger:      logger,
	}
}

// Bind resolves req.PlayerName and stores it for req.ChatUserID. The returned
// text is the reply for the chat, successful or not.
func (s *StatsService) Bind(ctx context.Context, req *domain.ResolutionRequest) string {
	log := s.loggerFrom(ctx).With().Str("chat_user_id", req.ChatUserID).Str("player_name", req.PlayerName).Logger()
	if req.Failed() {
		return req.ErrorMessage
	}

	existing, err := s.bindings.Get(ctx, req.ChatUserID)
	switch {
	case err == nil && existing.PlayerName == req.PlayerName:
		req.Fail(fmt.Sprintf("用户 %s 已添加玩家 %s 的数据。", req.DisplayName, req.PlayerName))
	case err != nil && !errors.Is(err, repository.ErrBindingNotFound):
		log.Error().Err(err).Msg("failed to read binding")
		req.Fail("读取绑定数据失败，请稍后重试")
	}
	if req.Failed() {
		return req.ErrorMessage
	}

	domainToken, err := s.resolver.ResolveDomain(ctx, req.PlayerName)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			req.Fail(fmt.Sprintf("未找到玩家 %s，请检查5E账号名是否正确", req.PlayerName))
		case errors.Is(err, ErrData):
			req.Fail("获取domain失败，服务器返回数据错误")
		default:
			req.Fail(fmt.Sprintf("获取domain失败：%v", err))
		}
		return req.ErrorMessage
	}
	req.Domain = domainToken

	uuid, err := s.resolver.ResolveInternalID(ctx, req.Domain)
	if err != nil {
		req.Fail(fmt.Sprintf("获取玩家 %s 的 uuid 信息失败，请稍后重试", req.PlayerName))
		return req.ErrorMessage
	}
	req.InternalUserID = uuid

	if err := s.bindings.Put(ctx, req.Record()); err != nil {
		log.Error().Err(err).Msg("failed to store binding")
		req.Fail("保存绑定数据失败，请稍后重试")
		return req.ErrorMessage
	}

	log.Info().Str("domain", req.Domain).Str("uuid", req.InternalUserID).Msg("player bound")
	return fmt.Sprintf("成功添加用户 %s 对应玩家 %s 。", req.DisplayName, req.PlayerName)
}

// Query loads the binding of req.ChatUserID and reports the match roundsBack
// games ago, followed by a comment when a Commentator is configured.
func (s *StatsService) Query(ctx context.Context, req *domain.ResolutionRequest, roundsBack int) string {
	log := s.loggerFrom(ctx).With().Str("chat_user_id", req.ChatUserID).Int("rounds_back", roundsBack).Logger()
	if req.Failed() {
		return req.ErrorMessage
	}
	if roundsBack < 1 {
		req.Fail("比赛场次必须是正整数")
		return req.ErrorMessage
	}

	record, err := s.bindings.Get(ctx, req.ChatUserID)
	if err != nil {
		if errors.Is(err, repository.ErrBindingNotFound) {
			req.Fail(fmt.Sprintf("用户 %s 未添加数据，请先添加游戏ID", req.ChatUserID))
		} else {
			log.Error().Err(err).Msg("failed to read binding")
			req.Fail("读取绑定数据失败，请稍后重试")
		}
		return req.ErrorMessage
	}
	req.PlayerName = record.PlayerName
	req.Domain = record.Domain
	req.InternalUserID = record.InternalUserID
	log = log.With().Str("player_name", req.PlayerName).Logger()

	prefix := RoundsBackPrefix(roundsBack)

	matchID, err := s.matches.LocateMatch(ctx, req.InternalUserID, roundsBack)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			req.Fail(fmt.Sprintf("玩家 %s 的比赛记录不足 %d 场，无法查询%s把比赛", req.PlayerName, roundsBack, prefix))
		} else {
			req.Fail(fmt.Sprintf("获取玩家 %s 的%s把比赛的数据失败，请稍后重试", req.PlayerName, prefix))
		}
		return req.ErrorMessage
	}
	log = log.With().Str("match_id", matchID).Logger()

	payload, err := s.matches.FetchMatchDetail(ctx, matchID)
	if err != nil {
		req.Fail(fmt.Sprintf("获取%s把比赛的详细数据失败 (match_id=%s) ", prefix, matchID))
		return req.ErrorMessage
	}

	summary, skipped, err := ExtractMatchSummary(payload, roundsBack, req.PlayerName, s.targets(ctx, req.PlayerName))
	if err != nil {
		log.Error().Err(err).Msg("failed to extract match summary")
		req.Fail(fmt.Sprintf("解析比赛数据失败 (match_id=%s) ", matchID))
		return req.ErrorMessage
	}
	for name, e := range skipped {
		log.Warn().Err(e).Str("teammate", name).Msg("skipping malformed teammate record")
	}

	statsText, err := s.formatter.FormatStatsText(summary, req.PlayerName)
	if err != nil {
		log.Warn().Err(err).Msg("player missing from match")
		req.Fail(fmt.Sprintf("比赛 %s 中未找到玩家 %s 的数据", matchID, req.PlayerName))
		return req.ErrorMessage
	}
	log.Info().Msg("match stats rendered")

	reply := statsText
	if teammates := s.formatter.FormatTeammates(summary, req.PlayerName); teammates != "" {
		reply += "\n" + teammates
	}

	if s.commentator == nil {
		return reply
	}
	comment, err := s.commentator.Comment(ctx, statsText)
	if err != nil {
		log.Warn().Err(err).Msg("commentary unavailable")
		return reply
	}
	return reply + "\n" + comment
}

// targets is the query player plus every other bound player, so teammates
// who also bound an account show up in the same summary.
func (s *StatsService) targets(ctx context.Context, playerName string) map[string]struct{} {
	set := map[string]struct{}{playerName: {}}

	records, err := s.bindings.List(ctx)
	if err != nil {
		s.loggerFrom(ctx).Warn().Err(err).Msg("failed to list bindings, skipping teammates")
		return set
	}
	for _, r := range records {
		set[r.PlayerName] = struct{}{}
	}
	return set
}

func (s *StatsService) loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}
