package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// redactKeep is how many leading runes of a secret survive redaction.
const redactKeep = 4

type secretPattern struct {
	kind string
	re   *regexp.Regexp
	// group holds the submatch to redact; 0 means the whole match.
	group int
}

var secretPatterns = []secretPattern{
	{kind: "aws_access_key", re: regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`)},
	{kind: "private_key", re: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY(?: BLOCK)?-----`)},
	{kind: "github_token", re: regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`)},
	{kind: "slack_token", re: regexp.MustCompile(`\bxox[abprs]-[A-Za-z0-9-]{10,}`)},
	{kind: "generic_secret", re: regexp.MustCompile(`(?i)\b(?:password|passwd|secret|api[_-]?key|access[_-]?token)\s*[:=]\s*['"]?([^\s'"]{8,})`), group: 1},
}

// SecretMatch is one credential found in a line, already redacted.
type SecretMatch struct {
	Kind     string
	Redacted string
}

// FindSecrets returns every credential pattern match in line, in pattern order.
func FindSecrets(line string) []SecretMatch {
	var out []SecretMatch
	for _, p := range secretPatterns {
		for _, m := range p.re.FindAllStringSubmatch(line, -1) {
			out = append(out, SecretMatch{Kind: p.kind, Redacted: Redact(m[p.group])})
		}
	}
	return out
}

// MaskSecrets rewrites s with every credential match redacted in place.
func MaskSecrets(s string) string {
	for _, p := range secretPatterns {
		s = maskPattern(s, p)
	}
	return s
}

func maskPattern(s string, p secretPattern) string {
	locs := p.re.FindAllStringSubmatchIndex(s, -1)
	if locs == nil {
		return s
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[2*p.group], loc[2*p.group+1]
		if start < 0 {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(Redact(s[start:end]))
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

// Redact keeps the first four runes of a secret.
func Redact(s string) string {
	if utf8.RuneCountInString(s) <= redactKeep {
		return "****"
	}
	i, n := 0, 0
	for n < redactKeep {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		n++
	}
	return s[:i] + "****"
}
