package release

import "strings"

var (
	technicalLabelMarkers = []string{"ci", "chore", "build", "infra", "internal", "docs", "refactor", "test"}
	technicalTextMarkers  = []string{
		"ci", "workflow", "pipeline", "release script", "build system", "internal",
		"refactor", "unit test", "integration test", "lint", "format", "dependency",
		"dependencies", "readme", "documentation",
	}
	userFacingTextMarkers = []string{
		"user", "ui", "ux", "app", "screen", "dialog", "settings", "audio", "video",
		"transcribe", "translate", "annotation", "chat", "sync", "performance",
		"stability", "crash",
	}
)

// IsUserFacing reports whether an uncurated change belongs in end-user
// notes. Markers are substring matches, so "ci" also hits "decision".
func IsUserFacing(c Change) bool {
	typ, _ := ParseChangeType(string(c.Type))
	if typ == Breaking {
		return true
	}

	var labels []string
	for _, l := range c.Labels {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			labels = append(labels, l)
		}
	}
	text := strings.ToLower(c.Title + "\n" + c.Description)

	technical := labelContains(labels, technicalLabelMarkers) || containsAny(text, technicalTextMarkers)
	userText := containsAny(text, userFacingTextMarkers)
	if technical && !userText {
		return false
	}
	if typ == Feature || typ == Fix {
		return true
	}
	return userText
}

// SelectUserFacing keeps the user-facing changes in order.
func SelectUserFacing(changes []Change) []Change {
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if IsUserFacing(c) {
			out = append(out, c)
		}
	}
	return out
}

// NotesChanges is the change set that release notes must cover: every
// change of curated facts, otherwise the user-facing selection.
func NotesChanges(f Facts) []Change {
	if f.ChangesCurated {
		return f.Changes
	}
	return SelectUserFacing(f.Changes)
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
