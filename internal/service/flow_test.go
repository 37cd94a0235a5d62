package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"cstats-bot/internal/api"
	"cstats-bot/internal/domain"
	"cstats-bot/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCommentator struct {
	comment string
	err     error
	got     string
}

func (s *stubCommentator) Comment(ctx context.Context, statsText string) (string, error) {
	s.got = statsText
	return s.comment, s.err
}

func newTestStatsService(t *testing.T, p Platform, c Commentator) (*StatsService, repository.BindingRepository) {
	t.Helper()
	repo, err := repository.NewJSONFileRepository(filepath.Join(t.TempDir(), "user_data.json"), zerolog.Nop())
	require.NoError(t, err)

	policy := testPolicy()
	svc := NewStatsService(
		NewIdentityResolver(p, policy, zerolog.Nop()),
		NewMatchService(p, policy, zerolog.Nop()),
		utc8Formatter(),
		repo,
		c,
		zerolog.Nop(),
	)
	return svc, repo
}

func bindRequest(chatUserID, displayName, playerName string) *domain.ResolutionRequest {
	return &domain.ResolutionRequest{ChatUserID: chatUserID, DisplayName: displayName, PlayerName: playerName}
}

func TestBind(t *testing.T) {
	svc, repo := newTestStatsService(t, happyPlatform(t), nil)

	reply := svc.Bind(context.Background(), bindRequest("100", "alice", "Foo"))
	assert.Equal(t, "成功添加用户 alice 对应玩家 Foo 。", reply)

	rec, err := repo.Get(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, domain.PlayerRecord{ChatUserID: "100", PlayerName: "Foo", Domain: "d1", InternalUserID: "u1"}, *rec)
}

func TestBind_AlreadyBound(t *testing.T) {
	p := happyPlatform(t)
	svc, _ := newTestStatsService(t, p, nil)
	ctx := context.Background()

	svc.Bind(ctx, bindRequest("100", "alice", "Foo"))
	reply := svc.Bind(ctx, bindRequest("100", "alice", "Foo"))

	assert.Equal(t, "用户 alice 已添加玩家 Foo 的数据。", reply)
	assert.Equal(t, 1, p.Calls("search"), "second bind stops before any remote call")
}

func TestBind_RebindOverwrites(t *testing.T) {
	p := &fakePlatform{
		search: func(name string) (*api.SearchResponse, error) {
			return decode[api.SearchResponse](t, fmt.Sprintf(`{"data":{"user":{"list":[{"username":%q,"domain":"d-%s"}]}}}`, name, name)), nil
		},
		transfer: func(domain string) (*api.TransferResponse, error) {
			resp := &api.TransferResponse{}
			resp.Data.UUID = "u-" + domain
			return resp, nil
		},
	}
	svc, repo := newTestStatsService(t, p, nil)
	ctx := context.Background()

	svc.Bind(ctx, bindRequest("100", "alice", "Foo"))
	reply := svc.Bind(ctx, bindRequest("100", "alice", "Bar"))
	assert.Equal(t, "成功添加用户 alice 对应玩家 Bar 。", reply)

	rec, err := repo.Get(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, domain.PlayerRecord{ChatUserID: "100", PlayerName: "Bar", Domain: "d-Bar", InternalUserID: "u-d-Bar"}, *rec)
}

func TestBind_Failures(t *testing.T) {
	tests := []struct {
		name     string
		platform func(t *testing.T) *fakePlatform
		want     string
	}{
		{
			name:     "unknown player",
			platform: func(t *testing.T) *fakePlatform { return &fakePlatform{} },
			want:     "未找到玩家 Foo，请检查5E账号名是否正确",
		},
		{
			name: "search keeps failing",
			platform: func(t *testing.T) *fakePlatform {
				return &fakePlatform{search: func(string) (*api.SearchResponse, error) {
					return nil, &api.StatusError{Code: 503}
				}}
			},
			want: "获取domain失败：",
		},
		{
			name: "uuid missing",
			platform: func(t *testing.T) *fakePlatform {
				p := happyPlatform(t)
				p.transfer = nil
				return p
			},
			want: "获取玩家 Foo 的 uuid 信息失败，请稍后重试",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestStatsService(t, tt.platform(t), nil)

			reply := svc.Bind(context.Background(), bindRequest("100", "alice", "Foo"))
			assert.Contains(t, reply, tt.want)

			_, err := repo.Get(context.Background(), "100")
			assert.ErrorIs(t, err, repository.ErrBindingNotFound, "nothing is stored on failure")
		})
	}
}

func TestBind_PrefailedRequestIsReturnedVerbatim(t *testing.T) {
	p := happyPlatform(t)
	svc, _ := newTestStatsService(t, p, nil)

	req := bindRequest("100", "alice", "")
	req.Fail("玩家名称未成功识别，请检查命令输入")

	assert.Equal(t, "玩家名称未成功识别，请检查命令输入", svc.Bind(context.Background(), req))
	assert.Zero(t, p.Calls("search"))
}

func TestQuery_EndToEnd(t *testing.T) {
	commentator := &stubCommentator{comment: "稳定发挥"}
	svc, repo := newTestStatsService(t, happyPlatform(t), commentator)
	ctx := context.Background()

	require.Equal(t, "成功添加用户 alice 对应玩家 Foo 。", svc.Bind(ctx, bindRequest("100", "alice", "Foo")))
	require.NoError(t, repo.Put(ctx, domain.PlayerRecord{ChatUserID: "200", PlayerName: "Bar", Domain: "d2", InternalUserID: "u2"}))

	req := &domain.ResolutionRequest{ChatUserID: "100", DisplayName: "alice"}
	reply := svc.Query(ctx, req, 2)

	assert.Equal(t, fooStatsOnM2+"\n"+barTeammateM2+"\n稳定发挥", reply)
	assert.Equal(t, fooStatsOnM2, commentator.got, "only the stats text is sent for commentary")
	assert.False(t, req.Failed())
	assert.Equal(t, "u1", req.InternalUserID)
}

func TestQuery_CommentatorFailureKeepsStats(t *testing.T) {
	svc, repo := newTestStatsService(t, happyPlatform(t), &stubCommentator{err: errors.New("quota")})
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, domain.PlayerRecord{ChatUserID: "100", PlayerName: "Foo", Domain: "d1", InternalUserID: "u1"}))

	assert.Equal(t, fooStatsOnM2, svc.Query(ctx, &domain.ResolutionRequest{ChatUserID: "100"}, 2))
}

func TestQuery_MalformedTeammateRecordKeepsPlayerStats(t *testing.T) {
	p := happyPlatform(t)
	brokenBar := strings.Replace(detailM2, `,"rws":"0.2"`, "", 1)
	require.NotEqual(t, detailM2, brokenBar)
	p.detail = func(string) (*api.MatchDetailResponse, error) {
		return decode[api.MatchDetailResponse](t, brokenBar), nil
	}

	svc, repo := newTestStatsService(t, p, nil)
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, domain.PlayerRecord{ChatUserID: "100", PlayerName: "Foo", Domain: "d1", InternalUserID: "u1"}))
	require.NoError(t, repo.Put(ctx, domain.PlayerRecord{ChatUserID: "200", PlayerName: "Bar", Domain: "d2", InternalUserID: "u2"}))

	req := &domain.ResolutionRequest{ChatUserID: "100"}
	assert.Equal(t, fooStatsOnM2, svc.Query(ctx, req, 2))
	assert.False(t, req.Failed())
}

func TestQuery_Failures(t *testing.T) {
	tests := []struct {
		name       string
		platform   func(t *testing.T) *fakePlatform
		bound      bool
		roundsBack int
		want       string
	}{
		{
			name:       "not bound",
			platform:   happyPlatform,
			roundsBack: 1,
			want:       "用户 100 未添加数据，请先添加游戏ID",
		},
		{
			name:       "non-positive rounds",
			platform:   happyPlatform,
			bound:      true,
			roundsBack: 0,
			want:       "比赛场次必须是正整数",
		},
		{
			name:       "history too short",
			platform:   happyPlatform,
			bound:      true,
			roundsBack: 5,
			want:       "玩家 Foo 的比赛记录不足 5 场，无法查询上上上上上把比赛",
		},
		{
			name: "detail unavailable",
			platform: func(t *testing.T) *fakePlatform {
				p := happyPlatform(t)
				p.detail = func(string) (*api.MatchDetailResponse, error) { return nil, &api.StatusError{Code: 500} }
				return p
			},
			bound:      true,
			roundsBack: 1,
			want:       "获取上把比赛的详细数据失败 (match_id=m1) ",
		},
		{
			name: "player missing from match",
			platform: func(t *testing.T) *fakePlatform {
				p := happyPlatform(t)
				p.detail = func(string) (*api.MatchDetailResponse, error) {
					return decode[api.MatchDetailResponse](t, `{"data":{"main":{},"group_1":[],"group_2":[]}}`), nil
				}
				return p
			},
			bound:      true,
			roundsBack: 1,
			want:       "比赛 m1 中未找到玩家 Foo 的数据",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestStatsService(t, tt.platform(t), nil)
			ctx := context.Background()
			if tt.bound {
				require.NoError(t, repo.Put(ctx, domain.PlayerRecord{ChatUserID: "100", PlayerName: "Foo", Domain: "d1", InternalUserID: "u1"}))
			}

			req := &domain.ResolutionRequest{ChatUserID: "100"}
			assert.Equal(t, tt.want, svc.Query(ctx, req, tt.roundsBack))
			assert.True(t, req.Failed())
		})
	}
}
