package release

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/relnote/internal/redact"
)

var (
	prNumberPattern  = regexp.MustCompile(`(?i)(?:#|pull request\s+#)(\d+)`)
	breakingPattern  = regexp.MustCompile(`(?i)\bbreaking(?:\s+change)?\b|!:`)
	featurePattern   = regexp.MustCompile(`(?i)\bfeat(?:ure)?\b`)
	fixPattern       = regexp.MustCompile(`(?i)\bfix(?:es|ed)?\b|\bbug\b|\bhotfix\b`)
	notesHeadPattern = regexp.MustCompile(`(?ims)^#{1,6}\s*release\s*notes?\s*$\n(.*?)(?:^#{1,6}\s+|\z)`)
)

var (
	breakingLabels = []string{"breaking", "major"}
	featureLabels  = []string{"feature", "enhancement", "feat"}
	fixLabels      = []string{"bug", "fix", "hotfix"}
)

// Classify assigns a change type from labels first, then from the title and
// body text. A negated mention such as "no breaking changes" still counts as
// breaking.
func Classify(title, body string, labels []string) ChangeType {
	text := strings.ToLower(strings.TrimSpace(title + "\n" + body))
	lowered := make([]string, 0, len(labels))
	for _, l := range labels {
		lowered = append(lowered, strings.ToLower(l))
	}

	switch {
	case labelContains(lowered, breakingLabels) || breakingPattern.MatchString(text):
		return Breaking
	case labelContains(lowered, featureLabels) || featurePattern.MatchString(text):
		return Feature
	case labelContains(lowered, fixLabels) || fixPattern.MatchString(text):
		return Fix
	default:
		return Chore
	}
}

func labelContains(labels, markers []string) bool {
	for _, l := range labels {
		for _, m := range markers {
			if strings.Contains(l, m) {
				return true
			}
		}
	}
	return false
}

// ExtractPRNumbers returns the distinct pull request numbers referenced as
// "#123" or "pull request #123" in a commit message, ascending.
func ExtractPRNumbers(subject, body string) []int {
	seen := make(map[int]bool)
	var nums []int
	for _, m := range prNumberPattern.FindAllStringSubmatch(subject+"\n"+body, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// OwningPR picks the one pull request a commit belongs to: the last number
// in the subject (the squash-merge "(#N)" suffix), otherwise the smallest
// number in the body.
func OwningPR(subject, body string) (int, bool) {
	if nums := prNumbersIn(subject); len(nums) > 0 {
		return nums[len(nums)-1], true
	}
	if nums := ExtractPRNumbers("", body); len(nums) > 0 {
		return nums[0], true
	}
	return 0, false
}

// prNumbersIn returns the positive PR numbers in text in order of
// appearance.
func prNumbersIn(text string) []int {
	var nums []int
	for _, m := range prNumberPattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			nums = append(nums, n)
		}
	}
	return nums
}

// ReleaseNotesSection returns the sanitized text under a markdown
// "Release notes" heading in body, or the sanitized body when there is no
// such heading. An empty section under the heading yields "".
func ReleaseNotesSection(body string, maxLen int) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	if m := notesHeadPattern.FindStringSubmatch(body); m != nil {
		return redact.Sanitize(m[1], maxLen)
	}
	return redact.Sanitize(body, maxLen)
}
