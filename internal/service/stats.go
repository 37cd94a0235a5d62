package service

import (
	"fmt"
	"strconv"
	"strings"

	"cstats-bot/internal/domain"

	jsoniter "github.com/json-iterator/go"
)

const (
	unknownMap = "unknown map"
	unknownMVP = "unknown"
)

// ExtractMatchSummary pulls the basic match info and the stats of primary and
// every player in targets out of a match detail payload. Targets absent from the
// match are left out of the result. Only a malformed record for primary is an
// ErrData; other malformed records are left out and returned in skipped.
func ExtractMatchSummary(raw []byte, roundsBack int, primary string, targets map[string]struct{}) (summary *domain.MatchSummary, skipped map[string]error, err error) {
	root := jsoniter.Get(raw)
	main := root.Get("main")

	summary = &domain.MatchSummary{
		MatchRound:  roundsBack,
		MapName:     unknownMap,
		MVPUserID:   unknownMVP,
		PlayerStats: make(map[string]domain.PlayerStats),
	}
	if v := main.Get("map_desc"); v.ValueType() == jsoniter.StringValue {
		summary.MapName = v.ToString()
	}
	if v, ok := intField(main.Get("start_time")); ok {
		summary.StartTime = v
	}
	if v, ok := intField(main.Get("end_time")); ok {
		summary.EndTime = v
	}
	if v, ok := stringField(main.Get("mvp_uid")); ok {
		summary.MVPUserID = v
	}

	for _, group := range []string{"group_1", "group_2"} {
		records := root.Get(group)
		if records.ValueType() != jsoniter.ArrayValue {
			continue
		}
		for i := 0; i < records.Size(); i++ {
			record := records.Get(i)
			name, ok := stringField(record.Get("user_info", "user_data", "username"))
			if !ok {
				continue
			}
			if _, wanted := targets[name]; !wanted && name != primary {
				continue
			}
			stats, err := extractPlayerStats(record, name)
			if err != nil {
				if name == primary {
					return nil, nil, err
				}
				if skipped == nil {
					skipped = make(map[string]error)
				}
				skipped[name] = err
				continue
			}
			summary.PlayerStats[name] = stats
		}
	}

	return summary, skipped, nil
}

func extractPlayerStats(record jsoniter.Any, name string) (domain.PlayerStats, error) {
	userData := record.Get("user_info", "user_data")
	fight := record.Get("fight")

	stats := domain.PlayerStats{PlayerName: name}
	stats.InternalUserID, _ = stringField(userData.Get("uuid"))
	stats.MatchUserID, _ = stringField(userData.Get("uid"))

	missing := func(field string) error {
		return fmt.Errorf("player %q: %w: missing or invalid %s", name, ErrData, field)
	}

	isWin, ok := intField(fight.Get("is_win"))
	if !ok {
		return stats, missing("fight.is_win")
	}
	stats.Won = isWin == 1

	if v := record.Get("sts", "change_elo"); v.ValueType() != jsoniter.InvalidValue && v.ValueType() != jsoniter.NilValue {
		if stats.EloChange, ok = floatField(v); !ok {
			return stats, missing("sts.change_elo")
		}
	}

	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"rating2", &stats.Rating},
		{"adr", &stats.ADR},
		{"rws", &stats.RWS},
	} {
		if *f.dst, ok = floatField(fight.Get(f.key)); !ok {
			return stats, missing("fight." + f.key)
		}
	}

	kills, ok := intField(fight.Get("kill"))
	if !ok {
		return stats, missing("fight.kill")
	}
	deaths, ok := intField(fight.Get("death"))
	if !ok {
		return stats, missing("fight.death")
	}
	stats.Kills = int(kills)
	stats.Deaths = int(deaths)

	if kills != 0 {
		headshots, ok := intField(fight.Get("headshot"))
		if !ok {
			return stats, missing("fight.headshot")
		}
		stats.HeadshotRate = float64(headshots) / float64(kills)
	}

	return stats, nil
}

// floatField accepts JSON numbers, numeric strings and booleans.
func floatField(v jsoniter.Any) (float64, bool) {
	switch v.ValueType() {
	case jsoniter.NumberValue:
		return v.ToFloat64(), true
	case jsoniter.StringValue:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.ToString()), 64)
		return f, err == nil
	case jsoniter.BoolValue:
		if v.ToBool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// intField truncates JSON numbers toward zero and parses integer strings.
func intField(v jsoniter.Any) (int64, bool) {
	switch v.ValueType() {
	case jsoniter.NumberValue:
		return int64(v.ToFloat64()), true
	case jsoniter.StringValue:
		n, err := strconv.ParseInt(strings.TrimSpace(v.ToString()), 10, 64)
		return n, err == nil
	case jsoniter.BoolValue:
		if v.ToBool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func stringField(v jsoniter.Any) (string, bool) {
	switch v.ValueType() {
	case jsoniter.StringValue, jsoniter.NumberValue:
		return v.ToString(), true
	}
	return "", false
}
