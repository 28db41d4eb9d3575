package notes

import (
	"context"
	"strings"

	"github.com/dshills/relnote/internal/artifact"
	"github.com/dshills/relnote/internal/failure"
	"github.com/dshills/relnote/internal/release"
)

const maxHighlights = 3

const localizeSystemPrompt = `You localize release notes.
Return strict JSON with keys:
- summary: string
- items: array of {change_id, text}
- section_titles: object with keys breaking, feature, fix, chore
- highlights: array of {text, change_ids}

Constraints:
- include every provided change_id exactly once in items
- do not invent change IDs
- keep text concise and user-facing`

type sourceItem struct {
	ChangeID   string             `json:"change_id"`
	Type       release.ChangeType `json:"type"`
	SourceText string             `json:"source_text"`
}

type instructions struct {
	Translate        string `json:"translate"`
	KeepMeaning      bool   `json:"keep_meaning"`
	ReturnJSONOnly   bool   `json:"return_json_only"`
	MustKeepChangeID bool   `json:"must_keep_change_id"`
}

type localizePrompt struct {
	TargetLocale string       `json:"target_locale"`
	Version      string       `json:"version"`
	Items        []sourceItem `json:"items"`
	Instructions instructions `json:"instructions"`
}

type localizedItem struct {
	ChangeID string `json:"change_id"`
	Text     string `json:"text"`
}

type localizeAnswer struct {
	Summary       string            `json:"summary"`
	Items         []localizedItem   `json:"items"`
	SectionTitles map[string]string `json:"section_titles"`
	Highlights    []Entry           `json:"highlights"`
}

// Builder produces locale documents from Facts.
type Builder struct {
	Oracle  *release.Oracle
	Catalog *Catalog
}

func (b *Builder) catalog() *Catalog {
	if b.Catalog != nil {
		return b.Catalog
	}
	return DefaultCatalog()
}

// Build localizes the notes of facts into one locale. Facts without
// user-facing changes yield a maintenance document and no oracle call.
func (b *Builder) Build(ctx context.Context, facts release.Facts, locale, tag string) (LocaleNotes, error) {
	selected := release.NotesChanges(facts)
	required := make([]string, 0, len(selected))
	for _, c := range selected {
		required = append(required, c.ID)
	}

	n := LocaleNotes{
		SchemaVersion: artifact.SchemaVersion,
		GeneratedAt:   artifact.Timestamp(artifact.Now()),
		Locale:        locale,
		Version:       tag,
		Highlights:    []Entry{},
		Sections:      []Section{},
	}
	if len(selected) == 0 {
		n.Summary = b.catalog().MaintenanceSummary(locale, tag)
		if _, err := Check(n, locale, tag, nil); err != nil {
			return LocaleNotes{}, failure.Wrap(failure.Contract, err, "notes for "+locale)
		}
		return n, nil
	}

	grouped := make(map[release.ChangeType][]sourceItem, len(release.ChangeTypes))
	for _, c := range selected {
		typ, _ := release.ParseChangeType(string(c.Type))
		text := strings.TrimSpace(c.Title)
		if text == "" {
			text = strings.TrimSpace(c.Description)
		}
		grouped[typ] = append(grouped[typ], sourceItem{ChangeID: c.ID, Type: typ, SourceText: text})
	}

	prompt := localizePrompt{
		TargetLocale: locale,
		Version:      tag,
		Instructions: instructions{
			Translate:        "Translate each source_text to target locale.",
			KeepMeaning:      true,
			ReturnJSONOnly:   true,
			MustKeepChangeID: true,
		},
	}
	for _, t := range release.ChangeTypes {
		prompt.Items = append(prompt.Items, grouped[t]...)
	}

	var answer localizeAnswer
	accept := func() error {
		return b.assemble(&n, answer, grouped, required, len(selected))
	}
	if err := b.Oracle.Ask(ctx, "notes for "+locale, localizeSystemPrompt, prompt, &answer, accept); err != nil {
		return LocaleNotes{}, err
	}
	return n, nil
}

// assemble fills n from the localized answer and checks the result.
func (b *Builder) assemble(n *LocaleNotes, answer localizeAnswer, grouped map[release.ChangeType][]sourceItem, required []string, selected int) error {
	locale, tag := n.Locale, n.Version
	texts, err := localizedTexts(answer, required)
	if err != nil {
		return err
	}

	titles := b.catalog().SectionTitles(locale)
	for _, t := range release.ChangeTypes {
		if v := strings.TrimSpace(answer.SectionTitles[string(t)]); v != "" {
			titles[t] = v
		}
	}

	n.Sections = []Section{}
	for _, t := range release.ChangeTypes {
		items := make([]Entry, 0, len(grouped[t]))
		for _, src := range grouped[t] {
			text, ok := texts[src.ChangeID]
			if !ok {
				return failure.Contractf("LLM note output missing change_id '%s'", src.ChangeID)
			}
			items = append(items, Entry{Text: text, ChangeIDs: []string{src.ChangeID}})
		}
		if len(items) == 0 {
			continue
		}
		n.Sections = append(n.Sections, Section{Key: string(t), Title: titles[t], Items: items})
	}

	n.Summary = strings.TrimSpace(answer.Summary)
	if n.Summary == "" {
		n.Summary = b.catalog().UpdateSummary(locale, tag, selected)
	}

	n.Highlights = []Entry{}
	for _, h := range answer.Highlights {
		text := strings.TrimSpace(h.Text)
		if text == "" || len(h.ChangeIDs) == 0 {
			continue
		}
		n.Highlights = append(n.Highlights, Entry{Text: text, ChangeIDs: h.ChangeIDs})
	}
	if len(n.Highlights) == 0 {
		for _, s := range n.Sections {
			n.Highlights = append(n.Highlights, s.Items[0])
			if len(n.Highlights) >= maxHighlights {
				break
			}
		}
	}

	if _, err := Check(*n, locale, tag, required); err != nil {
		return failure.Wrap(failure.Contract, err, "notes for "+locale)
	}
	return nil
}

func localizedTexts(answer localizeAnswer, required []string) (map[string]string, error) {
	if answer.Items == nil {
		return nil, failure.Contractf("LLM note output missing items list")
	}
	known := make(map[string]bool, len(required))
	for _, id := range required {
		known[id] = true
	}
	texts := make(map[string]string, len(answer.Items))
	for _, item := range answer.Items {
		id := strings.TrimSpace(item.ChangeID)
		text := strings.TrimSpace(item.Text)
		switch {
		case id == "" || text == "":
			return nil, failure.Contractf("LLM note output has empty change_id or text")
		case !known[id]:
			return nil, failure.Contractf("LLM note output has unknown change_id '%s'", id)
		}
		if _, dup := texts[id]; dup {
			return nil, failure.Contractf("LLM note output repeats change_id '%s'", id)
		}
		texts[id] = text
	}
	return texts, nil
}
