package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targetSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

const fooOnlyDetail = `{"main":{"map_desc":"de_dust2","start_time":100,"end_time":200},"group_1":[{"user_info":{"user_data":{"username":"Foo"}},"fight":{"is_win":1,"rating2":1.3,"adr":90.5,"kill":20,"death":10,"headshot":5,"rws":0.4},"sts":{"change_elo":15.2}}],"group_2":[]}`

func TestExtractMatchSummary(t *testing.T) {
	summary, _, err := ExtractMatchSummary([]byte(fooOnlyDetail), 2, "Foo", targetSet("Foo"))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.MatchRound)
	assert.Equal(t, "de_dust2", summary.MapName)
	assert.EqualValues(t, 100, summary.StartTime)
	assert.EqualValues(t, 200, summary.EndTime)
	assert.Equal(t, "unknown", summary.MVPUserID)

	stats, ok := summary.Stats("Foo")
	require.True(t, ok)
	assert.True(t, stats.Won)
	assert.InDelta(t, 0.25, stats.HeadshotRate, 1e-9)
	assert.InDelta(t, 15.2, stats.EloChange, 1e-9)
	assert.InDelta(t, 1.3, stats.Rating, 1e-9)
	assert.InDelta(t, 90.5, stats.ADR, 1e-9)
	assert.InDelta(t, 0.4, stats.RWS, 1e-9)
	assert.Equal(t, 20, stats.Kills)
	assert.Equal(t, 10, stats.Deaths)
}

func TestExtractMatchSummary_Defaults(t *testing.T) {
	summary, _, err := ExtractMatchSummary([]byte(`{}`), 1, "Foo", targetSet("Foo"))
	require.NoError(t, err)
	assert.Equal(t, "unknown map", summary.MapName)
	assert.Zero(t, summary.StartTime)
	assert.Zero(t, summary.EndTime)
	assert.Equal(t, "unknown", summary.MVPUserID)
	assert.Empty(t, summary.PlayerStats)
}

func TestExtractMatchSummary_ZeroKillsGuardsHeadshotRate(t *testing.T) {
	raw := `{"group_1":[{"user_info":{"user_data":{"username":"Foo"}},"fight":{"is_win":0,"rating2":0.1,"adr":3,"kill":0,"death":16,"headshot":7,"rws":0}}]}`

	summary, _, err := ExtractMatchSummary([]byte(raw), 1, "Foo", targetSet("Foo"))
	require.NoError(t, err)

	stats, ok := summary.Stats("Foo")
	require.True(t, ok)
	assert.Zero(t, stats.HeadshotRate)
	assert.False(t, stats.Won)
	assert.Zero(t, stats.EloChange, "change_elo defaults to 0")
}

func TestExtractMatchSummary_CoercesStrings(t *testing.T) {
	raw := `{"group_2":[{"user_info":{"user_data":{"username":"Foo"}},"fight":{"is_win":"1","rating2":"1.05","adr":"80","kill":"8","death":"9","headshot":"2","rws":"0.3"},"sts":{"change_elo":"-12.5"}}]}`

	summary, _, err := ExtractMatchSummary([]byte(raw), 1, "Foo", targetSet("Foo"))
	require.NoError(t, err)

	stats, ok := summary.Stats("Foo")
	require.True(t, ok)
	assert.True(t, stats.Won)
	assert.InDelta(t, 1.05, stats.Rating, 1e-9)
	assert.InDelta(t, -12.5, stats.EloChange, 1e-9)
	assert.Equal(t, 8, stats.Kills)
	assert.InDelta(t, 0.25, stats.HeadshotRate, 1e-9)
}

func TestExtractMatchSummary_AbsentTargetIsSkipped(t *testing.T) {
	summary, _, err := ExtractMatchSummary([]byte(fooOnlyDetail), 1, "Foo", targetSet("Foo", "Ghost"))
	require.NoError(t, err)

	_, ok := summary.Stats("Ghost")
	assert.False(t, ok)
	assert.Len(t, summary.PlayerStats, 1)
}

func TestExtractMatchSummary_MissingRequiredField(t *testing.T) {
	raw := `{"group_1":[{"user_info":{"user_data":{"username":"Foo"}},"fight":{"is_win":1,"adr":90,"kill":1,"death":1,"headshot":1,"rws":1}}]}`

	_, _, err := ExtractMatchSummary([]byte(raw), 1, "Foo", targetSet("Foo"))
	assert.ErrorIs(t, err, ErrData)
	assert.ErrorContains(t, err, "rating2")
}

func TestExtractMatchSummary_MalformedTeammateIsSkipped(t *testing.T) {
	raw := `{"group_1":[` +
		`{"user_info":{"user_data":{"username":"Foo"}},"fight":{"is_win":1,"rating2":1.3,"adr":90.5,"kill":20,"death":10,"headshot":5,"rws":0.4}},` +
		`{"user_info":{"user_data":{"username":"Bar"}},"fight":{"is_win":1,"rating2":0.95,"adr":70,"kill":12,"death":12,"headshot":3}}]}`

	summary, skipped, err := ExtractMatchSummary([]byte(raw), 1, "Foo", targetSet("Foo", "Bar"))
	require.NoError(t, err)
	assert.Contains(t, summary.PlayerStats, "Foo")
	assert.NotContains(t, summary.PlayerStats, "Bar")
	require.Contains(t, skipped, "Bar")
	assert.ErrorIs(t, skipped["Bar"], ErrData)
	assert.ErrorContains(t, skipped["Bar"], "rws")

	_, _, err = ExtractMatchSummary([]byte(raw), 1, "Bar", targetSet("Foo", "Bar"))
	assert.ErrorIs(t, err, ErrData, "the requesting player's own record must be complete")
}

func TestExtractMatchSummary_UntargetedGarbageIgnored(t *testing.T) {
	raw := `{"group_1":[{"user_info":{"user_data":{"username":"Other"}},"fight":"garbage"},{"user_info":null},{}]}`

	summary, _, err := ExtractMatchSummary([]byte(raw), 1, "Foo", targetSet("Foo"))
	require.NoError(t, err)
	assert.Empty(t, summary.PlayerStats)
}

func TestExtractMatchSummary_MalformedPayload(t *testing.T) {
	assert.NotPanics(t, func() {
		summary, _, err := ExtractMatchSummary([]byte(`not json`), 1, "Foo", targetSet("Foo"))
		if err == nil {
			assert.Empty(t, summary.PlayerStats)
		}
	})
}
