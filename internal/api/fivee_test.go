package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cstats-bot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *FiveEClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewFiveEClient(&config.Config{
		ArenaBaseURL: srv.URL,
		GateBaseURL:  srv.URL,
		APITimeout:   2 * time.Second,
	})
	t.Cleanup(c.Close)
	return c
}

func TestSearchPlayers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/search/player/1/16", r.URL.Path)
		assert.Equal(t, "薛定谔 的猫", r.URL.Query().Get("keywords"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, `{"data":{"user":{"list":[{"username":"薛定谔 的猫","domain":"d1"},{"username":"other","domain":"d2"}]}}}`)
	})

	resp, err := c.SearchPlayers(context.Background(), "薛定谔 的猫")
	require.NoError(t, err)
	require.Len(t, resp.Data.User.List, 2)
	assert.Equal(t, "d1", resp.Data.User.List[0].Domain)
}

func TestTransferID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/userinterface/http/v1/userinterface/idTransfer", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"trans":{"domain":"d1"}}`, string(body))
		_, _ = io.WriteString(w, `{"data":{"uuid":"u1"}}`)
	})

	resp, err := c.TransferID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.Data.UUID)
}

func TestPlayerMatches(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crane/http/api/data/player_match", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("uuid"))
		_, _ = io.WriteString(w, `{"data":{"match_data":[{"match_id":"m1"},{"match_id":"m2"}]}}`)
	})

	resp, err := c.PlayerMatches(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, resp.Data.MatchData, 2)
	assert.Equal(t, "m2", resp.Data.MatchData[1].MatchID)
}

func TestMatchDetailKeepsRawData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crane/http/api/data/match/m1", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":{"main":{"map_desc":"de_dust2"},"group_1":[],"group_2":[]}}`)
	})

	resp, err := c.MatchDetail(context.Background(), "m1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"main":{"map_desc":"de_dust2"},"group_1":[],"group_2":[]}`, string(resp.Data))
}

func TestNonOKStatusReturnsStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.PlayerMatches(context.Background(), "u1")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestMalformedBodyIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":`)
	})

	_, err := c.TransferID(context.Background(), "d1")
	assert.ErrorIs(t, err, ErrDecode)
}
