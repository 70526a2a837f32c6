package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	multiSpace  = regexp.MustCompile(`\s+`)
	nonWordRuns = regexp.MustCompile(`[^a-z0-9]+`)
)

// MetricKey turns a harness label ("Packets_Sent", "Average RTT", "Bandwidth MBps")
// into a snake_case metric name. Returns "" if nothing usable is left.
func MetricKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	prev := rune(0)
	for i, r := range s {
		// camelCase boundary: "MarshalTime" -> "marshal_time"
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(prev) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	k := nonWordRuns.ReplaceAllString(b.String(), "_")
	return strings.Trim(k, "_")
}

// Label lowercases, collapses whitespace, and trims a categorical value such
// as a marshal data type. Returns "" if the input is blank.
func Label(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	return multiSpace.ReplaceAllString(s, " ")
}
