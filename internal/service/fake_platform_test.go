package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"cstats-bot/internal/api"
	"cstats-bot/internal/config"
	"cstats-bot/internal/retry"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

// fakePlatform answers from canned values. A nil response with a nil error
// is replaced by an empty response.
type fakePlatform struct {
	mu    sync.Mutex
	calls map[string]int

	search   func(keywords string) (*api.SearchResponse, error)
	transfer func(domain string) (*api.TransferResponse, error)
	matches  func(uuid string) (*api.PlayerMatchResponse, error)
	detail   func(matchID string) (*api.MatchDetailResponse, error)
}

func (f *fakePlatform) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
}

func (f *fakePlatform) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakePlatform) SearchPlayers(ctx context.Context, keywords string) (*api.SearchResponse, error) {
	f.count("search")
	if f.search == nil {
		return &api.SearchResponse{}, nil
	}
	return f.search(keywords)
}

func (f *fakePlatform) TransferID(ctx context.Context, domain string) (*api.TransferResponse, error) {
	f.count("transfer")
	if f.transfer == nil {
		return &api.TransferResponse{}, nil
	}
	return f.transfer(domain)
}

func (f *fakePlatform) PlayerMatches(ctx context.Context, uuid string) (*api.PlayerMatchResponse, error) {
	f.count("matches")
	if f.matches == nil {
		return &api.PlayerMatchResponse{}, nil
	}
	return f.matches(uuid)
}

func (f *fakePlatform) MatchDetail(ctx context.Context, matchID string) (*api.MatchDetailResponse, error) {
	f.count("detail")
	if f.detail == nil {
		return &api.MatchDetailResponse{}, nil
	}
	return f.detail(matchID)
}

func testPolicy() *retry.Policy {
	return retry.NewPolicy(&config.Config{
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		APITimeout:    time.Second,
	}, zerolog.Nop())
}

func decode[T any](t *testing.T, body string) *T {
	t.Helper()
	var v T
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(body), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return &v
}

const (
	searchFoo     = `{"data":{"user":{"list":[{"username":"Foo","domain":"d1"}]}}}`
	transferU1    = `{"data":{"uuid":"u1"}}`
	historyM1M2   = `{"data":{"match_data":[{"match_id":"m1"},{"match_id":"m2"}]}}`
	detailM2      = `{"data":{"main":{"map_desc":"炙热沙城2","start_time":1761376186,"end_time":1761378586,"mvp_uid":"9"},"group_1":[{"user_info":{"user_data":{"username":"Foo","uuid":"u1"}},"fight":{"is_win":1,"rating2":1.3,"adr":90.5,"kill":20,"death":10,"headshot":5,"rws":0.4},"sts":{"change_elo":15.2}},{"user_info":{"user_data":{"username":"Bar"}},"fight":{"is_win":"1","rating2":"0.95","adr":"70","kill":"12","death":"15","headshot":"3","rws":"0.2"},"sts":{"change_elo":"15"}}],"group_2":[{"user_info":{"user_data":{"username":"Stranger"}},"fight":{"is_win":0}}]}}`
	fooStatsOnM2  = "5eplayer Foo 的上上把比赛战绩:\n比赛时间: 2025-10-25 15:09:46   比赛时长: 40min\nMap: 炙热沙城2 比赛结果: 胜利 \nElo变化: 15.2\nkd: 20-10\nrating: 1.3\nadr: 90.5\n爆头率: 25.00% "
	barTeammateM2 = "同场已绑定玩家: Bar(rating 0.95)"
)

// happyPlatform serves the Foo -> d1 -> u1 -> [m1, m2] chain.
func happyPlatform(t *testing.T) *fakePlatform {
	return &fakePlatform{
		search: func(string) (*api.SearchResponse, error) {
			return decode[api.SearchResponse](t, searchFoo), nil
		},
		transfer: func(string) (*api.TransferResponse, error) {
			return decode[api.TransferResponse](t, transferU1), nil
		},
		matches: func(string) (*api.PlayerMatchResponse, error) {
			return decode[api.PlayerMatchResponse](t, historyM1M2), nil
		},
		detail: func(string) (*api.MatchDetailResponse, error) {
			return decode[api.MatchDetailResponse](t, detailM2), nil
		},
	}
}

func utc8Formatter() *Formatter {
	return &Formatter{loc: time.FixedZone("CST", 8*3600)}
}
