package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cstats-bot/internal/config"
	"cstats-bot/internal/domain"
)

const dateTimeLayout = "2006-01-02 15:04:05"

// Formatter renders match summaries as chat replies in the configured timezone.
type Formatter struct {
	loc *time.Location
}

// NewFormatter returns a Formatter using cfg.Location for match times.
func NewFormatter(cfg *config.Config) *Formatter {
	return &Formatter{loc: cfg.Location()}
}

// FormatStatsText renders one player's line of a match. The "上" prefix is
// repeated MatchRound times, so the latest match reads "上把".
func (f *Formatter) FormatStatsText(summary *domain.MatchSummary, playerName string) (string, error) {
	stats, ok := summary.Stats(playerName)
	if !ok {
		return "", fmt.Errorf("player %q: %w", playerName, ErrPlayerNotFound)
	}

	result := "失败"
	if stats.Won {
		result = "胜利"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "5eplayer %s 的%s把比赛战绩:\n", stats.PlayerName, RoundsBackPrefix(summary.MatchRound))
	fmt.Fprintf(&b, "比赛时间: %s   比赛时长: %dmin\n",
		summary.StartDateTime(f.loc).Format(dateTimeLayout), summary.DurationMinutes())
	fmt.Fprintf(&b, "Map: %s 比赛结果: %s \n", summary.MapName, result)
	fmt.Fprintf(&b, "Elo变化: %s\n", formatFloat(stats.EloChange))
	fmt.Fprintf(&b, "kd: %d-%d\n", stats.Kills, stats.Deaths)
	fmt.Fprintf(&b, "rating: %s\n", formatFloat(stats.Rating))
	fmt.Fprintf(&b, "adr: %s\n", formatFloat(stats.ADR))
	fmt.Fprintf(&b, "爆头率: %.2f%% ", stats.HeadshotRate*100)
	return b.String(), nil
}

// FormatTeammates lists the other bound players seen in the same match, or "".
func (f *Formatter) FormatTeammates(summary *domain.MatchSummary, exclude string) string {
	names := make([]string, 0, len(summary.PlayerStats))
	for name := range summary.PlayerStats {
		if name != exclude {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s(rating %s)", name, formatFloat(summary.PlayerStats[name].Rating))
	}
	return "同场已绑定玩家: " + strings.Join(parts, ", ")
}

func RoundsBackPrefix(roundsBack int) string {
	if roundsBack < 0 {
		roundsBack = 0
	}
	return strings.Repeat("上", roundsBack)
}

// formatFloat prints the shortest representation and keeps a ".0" on whole
// numbers, so 15 reads "15.0" and 1.3 reads "1.3".
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
