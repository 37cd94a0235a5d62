// Package command turns raw chat text into bind, match and help invocations.
// Nothing in here knows about a particular chat runtime.
package command

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"cstats-bot/internal/service"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindBind
	KindMatch
	KindHelp
)

func (k Kind) String() string {
	switch k {
	case KindBind:
		return "bind"
	case KindMatch:
		return "match"
	case KindHelp:
		return "help"
	default:
		return "unknown"
	}
}

var (
	BindPrefixes  = []string{"bind", "绑定", "绑定用户", "添加", "添加用户"}
	MatchPrefixes = []string{"match", "战绩", "查询战绩"}
	HelpPrefixes  = []string{"cs_help", "help"}
)

type prefixEntry struct {
	prefix string
	kind   Kind
}

// commandTable holds every prefix, longest first, so "绑定用户" wins over "绑定".
var commandTable = buildTable()

func buildTable() []prefixEntry {
	var table []prefixEntry
	for _, p := range BindPrefixes {
		table = append(table, prefixEntry{p, KindBind})
	}
	for _, p := range MatchPrefixes {
		table = append(table, prefixEntry{p, KindMatch})
	}
	for _, p := range HelpPrefixes {
		table = append(table, prefixEntry{p, KindHelp})
	}
	sort.SliceStable(table, func(i, j int) bool { return len(table[i].prefix) > len(table[j].prefix) })
	return table
}

var roundsPattern = regexp.MustCompile(`\b(\d+)\b`)

// ParseCommandArgument strips an optional leading "/" and the longest prefix
// from knownPrefixes that is followed by whitespace or the end of the text,
// then returns the trimmed remainder. It reports false when no prefix matches
// or nothing is left.
func ParseCommandArgument(rawText string, knownPrefixes []string) (string, bool) {
	text := strings.TrimPrefix(strings.TrimSpace(rawText), "/")

	best := ""
	for _, p := range knownPrefixes {
		if len(p) > len(best) && hasWord(text, p) {
			best = p
		}
	}
	if best == "" {
		return "", false
	}

	arg := strings.TrimSpace(text[len(best):])
	return arg, arg != ""
}

// Classify finds which command rawText invokes and returns its argument,
// which may be empty. The text must start with wake (when set) directly
// followed by a command word, and the word must end at whitespace or the end
// of the text, so "/bindings" and plain chatter are not commands.
func Classify(rawText, wake string) (Kind, string) {
	text := strings.TrimSpace(rawText)
	if wake != "" {
		if !strings.HasPrefix(text, wake) {
			return KindUnknown, ""
		}
		text = text[len(wake):]
	}

	for _, e := range commandTable {
		if hasWord(text, e.prefix) {
			return e.kind, strings.TrimSpace(text[len(e.prefix):])
		}
	}
	return KindUnknown, ""
}

// hasWord reports whether text starts with word as a whole token.
func hasWord(text, word string) bool {
	if !strings.HasPrefix(text, word) {
		return false
	}
	rest := text[len(word):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r)
}

// ParseRoundsBack reads the first standalone integer in text. Without one the
// most recent match (1) is meant.
func ParseRoundsBack(text string) (int, error) {
	m := roundsPattern.FindStringSubmatch(text)
	if m == nil {
		return 1, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: rounds back %q: %w", service.ErrPrecheck, m[1], err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: rounds back must be positive, got %d", service.ErrPrecheck, n)
	}
	return n, nil
}

func HelpText(prefix string) string {
	return fmt.Sprintf(`cstatcheck使用帮助：
1. 账号绑定
命令: %[1]scommand [5e_player_name]
参数:
    command - 必选命令，有 %[2]s
    5e_player_name - 必选参数，您的5e账号名
示例: %[1]sbind ExamplePlayer

2. 战绩查询
命令: %[1]scommand [@群成员] [比赛场次]
参数:
  command - 必选命令，有 %[3]s
  @群成员 - 可选参数，可以艾特某个已绑定的群成员来查询他的战绩，无此参数则查询自己战绩
  比赛场次 - 可选参数，查的是倒数第几把，无此参数默认查询最近一把
示例: %[1]smatch @某某 2
      %[1]smatch @某某
注: 实际使用时不需要输入[]。
`, prefix, strings.Join(BindPrefixes, "，"), strings.Join(MatchPrefixes, "，"))
}
