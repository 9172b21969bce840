// Package analysis extracts and groups error lines from build logs.
package analysis

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Normalization regexes compiled once at package init.
var (
	reDatetime   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?\s*`)
	reClock      = regexp.MustCompile(`^\[?\d{2}:\d{2}:\d{2}(\.\d+)?\]?\s*`)
	reHexAddr    = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	reUUID       = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	reLineCol    = regexp.MustCompile(`:\d+(:\d+)?\b`)
	reBracketNum = regexp.MustCompile(`\[\d+\]`)
	reParenNum   = regexp.MustCompile(`\(\d+\)`)
	reWhitespace = regexp.MustCompile(`\s+`)
	reLevel      = regexp.MustCompile(`(?i)\b(fatal|critical|error|exception|warn(ing)?)\b`)
)

// Line is one line of a log with its 1-based position.
type Line struct {
	Number int
	Text   string
}

// ErrorGroup is a deduplicated set of error lines sharing a normalized fingerprint.
type ErrorGroup struct {
	Fingerprint string
	Level       string
	Count       int
	FirstLine   int
	Sample      string
}

// IsErrorLine reports whether a line mentions an error or exception, case-insensitively.
func IsErrorLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "error") || strings.Contains(lower, "exception")
}

// ExtractErrorLines returns every error line of content, verbatim and in order.
// Returns empty slice when there are none (never nil).
func ExtractErrorLines(content string) []Line {
	lines := []Line{}
	for i, text := range SplitLines(content) {
		if IsErrorLine(text) {
			lines = append(lines, Line{Number: i + 1, Text: text})
		}
	}
	return lines
}

// SplitLines splits content on \n, dropping a trailing \r from each line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	parts := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

// Group collapses lines into ErrorGroups by fingerprint.
// Returns groups sorted by (Count DESC, severity DESC, FirstLine ASC).
func Group(lines []Line) []ErrorGroup {
	if len(lines) == 0 {
		return []ErrorGroup{}
	}

	groups := make(map[string]*ErrorGroup)
	for _, line := range lines {
		fp := Fingerprint(line.Text)
		g, exists := groups[fp]
		if !exists {
			g = &ErrorGroup{
				Fingerprint: fp,
				Level:       DetectLevel(line.Text),
				FirstLine:   line.Number,
				Sample:      truncateString(strings.TrimSpace(line.Text), 500),
			}
			groups[fp] = g
		}

		g.Count++
		if lvl := DetectLevel(line.Text); LevelSeverity(lvl) > LevelSeverity(g.Level) {
			g.Level = lvl
		}
	}

	out := make([]ErrorGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		si, sj := LevelSeverity(out[i].Level), LevelSeverity(out[j].Level)
		if si != sj {
			return si > sj
		}
		return out[i].FirstLine < out[j].FirstLine
	})

	return out
}

// Fingerprint computes a stable SHA-256 fingerprint for a log line.
func Fingerprint(message string) string {
	normalized := NormalizeMessage(message)
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hash)
}

// NormalizeMessage strips volatile parts of a line (timestamps, addresses,
// ids, positions) so repeats of the same failure compare equal.
func NormalizeMessage(msg string) string {
	msg = reDatetime.ReplaceAllString(msg, "")
	msg = reClock.ReplaceAllString(msg, "")
	msg = reHexAddr.ReplaceAllString(msg, "0xADDR")
	msg = reUUID.ReplaceAllString(msg, "UUID")
	msg = reLineCol.ReplaceAllString(msg, ":N")
	msg = reBracketNum.ReplaceAllString(msg, "[N]")
	msg = reParenNum.ReplaceAllString(msg, "(N)")
	msg = reWhitespace.ReplaceAllString(msg, " ")
	msg = strings.ToLower(msg)
	msg = strings.TrimSpace(msg)
	msg = truncateString(msg, 500)
	return msg
}

// DetectLevel returns the most severe level keyword found in line, upper-cased,
// or "" when none is present. "EXCEPTION" maps to ERROR.
func DetectLevel(line string) string {
	best := ""
	for _, m := range reLevel.FindAllString(line, -1) {
		lvl := strings.ToUpper(m)
		if lvl == "EXCEPTION" {
			lvl = "ERROR"
		}
		if LevelSeverity(lvl) > LevelSeverity(best) {
			best = lvl
		}
	}
	return best
}

// LevelSeverity maps a log level string to a numeric severity.
func LevelSeverity(level string) int {
	switch strings.ToUpper(level) {
	case "FATAL":
		return 4
	case "CRITICAL":
		return 3
	case "ERROR":
		return 2
	case "WARN", "WARNING":
		return 1
	default:
		return 0
	}
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
