package redact

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	placeholder      = "[REDACTED]"
	sensitiveLine    = "[redacted sensitive line]"
	tokenPlaceholder = "[redacted]"
	truncationMarker = "..."

	// DefaultMaxLength bounds a sanitized description in characters.
	DefaultMaxLength = 1200
)

// secretPatterns are regex heuristics for credentials that may leak into
// commit messages or pull request bodies before a prompt leaves the process.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+)?PRIVATE KEY-----`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

var (
	sensitiveLinePattern = regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)`)
	// RE2 has no lookarounds, so a maximal run of token characters stands in
	// for a word-bounded token.
	longTokenPattern = regexp.MustCompile(`[A-Za-z0-9_\-]{24,}`)
)

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllString(result, placeholder)
	}
	return result
}

// Sanitize reduces free-form change text to something safe to persist and
// show to an oracle. Blank lines are dropped, any line mentioning a key,
// token, secret or password is replaced whole, long token-like runs are
// masked, and the result is cut to maxLen characters followed by "...".
// A maxLen <= 0 uses DefaultMaxLength.
func Sanitize(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if line == "" {
			continue
		}
		if sensitiveLinePattern.MatchString(line) {
			lines = append(lines, sensitiveLine)
			continue
		}
		lines = append(lines, longTokenPattern.ReplaceAllString(line, tokenPlaceholder))
	}
	out := strings.TrimSpace(strings.Join(lines, "\n"))
	if utf8.RuneCountInString(out) > maxLen {
		runes := []rune(out)
		out = strings.TrimRight(string(runes[:maxLen]), " \t\r\n") + truncationMarker
	}
	return out
}
