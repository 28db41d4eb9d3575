package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/relnote/internal/notes"
)

// ReleaseNotes is everything the markdown renderer needs for one release.
type ReleaseNotes struct {
	Tag     string
	Locales []string
	// Headings maps a locale to its section heading; the locale is used when
	// missing.
	Headings map[string]string
	Notes    map[string]notes.LocaleNotes
	// Links maps change ids to URLs for reference links.
	Links map[string]string
}

// MarkdownWriter renders release notes for a release page. It does not
// validate the notes.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, v any) error {
	rn, ok := v.(ReleaseNotes)
	if !ok {
		p, isPtr := v.(*ReleaseNotes)
		if !isPtr || p == nil {
			return fmt.Errorf("markdown writer cannot render %T", v)
		}
		rn = *p
	}
	_, err := io.WriteString(w, Markdown(rn))
	return err
}

// Markdown renders the release notes as a single document ending in
// exactly one newline.
func Markdown(rn ReleaseNotes) string {
	lines := []string{"# Release " + rn.Tag}
	for _, locale := range rn.Locales {
		n := rn.Notes[locale]
		heading := rn.Headings[locale]
		if heading == "" {
			heading = locale
		}
		lines = append(lines, "", "## "+heading)

		if summary := strings.TrimSpace(n.Summary); summary != "" {
			lines = append(lines, summary, "")
		}

		if len(n.Highlights) > 0 {
			lines = append(lines, "### Highlights")
			for _, h := range n.Highlights {
				text := strings.TrimSpace(h.Text)
				if text == "" {
					continue
				}
				lines = append(lines, bullet(text, h.ChangeIDs, rn.Links))
			}
		}

		for _, s := range n.Sections {
			title := strings.TrimSpace(s.Title)
			if title == "" || len(s.Items) == 0 {
				continue
			}
			lines = append(lines, "", "### "+title)
			for _, item := range s.Items {
				lines = append(lines, bullet(strings.TrimSpace(item.Text), item.ChangeIDs, rn.Links))
			}
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \t\r\n") + "\n"
}

func bullet(text string, ids []string, links map[string]string) string {
	return strings.TrimRight("- "+text+" "+changeRefs(ids, links), " \t")
}

// changeRefs formats change ids as [id](url), or [id] without a URL.
func changeRefs(ids []string, links map[string]string) string {
	refs := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if url := strings.TrimSpace(links[id]); url != "" {
			refs = append(refs, fmt.Sprintf("[%s](%s)", id, url))
		} else {
			refs = append(refs, "["+id+"]")
		}
	}
	return strings.Join(refs, " ")
}
