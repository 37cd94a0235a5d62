package domain

import (
	"time"
)

// PlayerRecord binds one chat user to one 5E account.
type PlayerRecord struct {
	ChatUserID     string
	PlayerName     string
	Domain         string
	InternalUserID string // "uuid" on the platform
}

// ResolutionRequest is owned by a single command invocation. Stages fill it in
// order and stop as soon as ErrorMessage is set.
type ResolutionRequest struct {
	MessageText    string
	ChatUserID     string
	DisplayName    string
	Domain         string
	InternalUserID string
	PlayerName     string
	ErrorMessage   string
}

func (r *ResolutionRequest) Failed() bool {
	return r.ErrorMessage != ""
}

func (r *ResolutionRequest) Fail(msg string) {
	if r.ErrorMessage == "" {
		r.ErrorMessage = msg
	}
}

func (r *ResolutionRequest) Record() PlayerRecord {
	return PlayerRecord{
		ChatUserID:     r.ChatUserID,
		PlayerName:     r.PlayerName,
		Domain:         r.Domain,
		InternalUserID: r.InternalUserID,
	}
}

type MatchSummary struct {
	MatchRound  int
	MapName     string
	StartTime   int64 // unix seconds
	EndTime     int64
	MVPUserID   string
	PlayerStats map[string]PlayerStats
}

func (m *MatchSummary) DurationMinutes() int64 {
	d := m.EndTime - m.StartTime
	if d < 0 {
		// floor division, matches (end-start)//60 for negative spans
		return -((-d + 59) / 60)
	}
	return d / 60
}

func (m *MatchSummary) StartDateTime(loc *time.Location) time.Time {
	return time.Unix(m.StartTime, 0).In(loc)
}

func (m *MatchSummary) EndDateTime(loc *time.Location) time.Time {
	return time.Unix(m.EndTime, 0).In(loc)
}

func (m *MatchSummary) Stats(playerName string) (PlayerStats, bool) {
	s, ok := m.PlayerStats[playerName]
	return s, ok
}

type PlayerStats struct {
	PlayerName     string
	InternalUserID string
	MatchUserID    string // "uid", only present in match payloads
	Won            bool
	EloChange      float64
	Rating         float64
	ADR            float64
	RWS            float64 // rounds won share
	Kills          int
	Deaths         int
	HeadshotRate   float64
}
