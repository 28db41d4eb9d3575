package release

import (
	"context"
	"strings"

	"github.com/dshills/relnote/internal/artifact"
	"github.com/dshills/relnote/internal/failure"
)

const curationSystemPrompt = `You classify release changes for end-user release notes.
Return strict JSON with key:
- items: array of {change_id, include, type, reason}

Rules:
- include=true only for user-facing changes that matter to typical app users
- technical-only items (CI/build/refactor/internal tooling/docs-only) => include=false
- build pipeline, compiler, headers, artifact naming, packaging, and release workflow changes are technical unless they directly change user experience
- breaking is only for user-visible incompatibility (removed behavior, migration required, API/format change users notice)
- if included, set type to one of: breaking, feature, fix, chore
- do not invent change IDs
- include every input change_id exactly once in items`

type curationChange struct {
	ChangeID    string   `json:"change_id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
}

type curationPrompt struct {
	ReleaseTag string           `json:"release_tag"`
	Changes    []curationChange `json:"changes"`
}

type curationItem struct {
	ChangeID string `json:"change_id"`
	Include  bool   `json:"include"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`
}

type curationAnswer struct {
	Items []curationItem `json:"items"`
}

type curationDecision struct {
	include bool
	typ     ChangeType
}

// Curate asks the oracle which changes belong in end-user notes and returns
// a new Facts holding only the included changes, retyped, in input order.
// The input is not modified. An empty change set skips the oracle.
func (o *Oracle) Curate(ctx context.Context, facts Facts, tag string) (Facts, error) {
	out := facts
	out.ChangesCurated = true
	out.GeneratedAt = artifact.Timestamp(artifact.Now())
	if len(facts.Changes) == 0 {
		out.Changes = []Change{}
		out.Stats = computeStats(out.Changes)
		return out, nil
	}

	prompt := curationPrompt{ReleaseTag: tag}
	for _, c := range facts.Changes {
		labels := make([]string, 0, len(c.Labels))
		for _, l := range c.Labels {
			labels = append(labels, strings.TrimSpace(l))
		}
		prompt.Changes = append(prompt.Changes, curationChange{
			ChangeID:    strings.TrimSpace(c.ID),
			Type:        strings.ToLower(strings.TrimSpace(string(c.Type))),
			Title:       strings.TrimSpace(c.Title),
			Description: strings.TrimSpace(c.Description),
			Labels:      labels,
		})
	}

	var answer curationAnswer
	accept := func() error {
		kept, err := applyCuration(answer, facts)
		if err != nil {
			return err
		}
		out.Changes = kept
		out.Stats = computeStats(kept)
		return nil
	}
	if err := o.Ask(ctx, "curation", curationSystemPrompt, prompt, &answer, accept); err != nil {
		return Facts{}, err
	}
	return out, nil
}

// applyCuration returns the included changes in input order with their
// curated types.
func applyCuration(answer curationAnswer, facts Facts) ([]Change, error) {
	decisions, err := curationDecisions(answer, facts)
	if err != nil {
		return nil, err
	}

	var missing []string
	kept := make([]Change, 0, len(facts.Changes))
	for _, c := range facts.Changes {
		d, ok := decisions[c.ID]
		if !ok {
			missing = append(missing, c.ID)
			continue
		}
		if !d.include {
			continue
		}
		copied := c
		copied.Type = d.typ
		copied.Labels = append([]string{}, c.Labels...)
		copied.CommitSHAs = append([]string{}, c.CommitSHAs...)
		kept = append(kept, copied)
	}
	if len(missing) > 0 {
		return nil, failure.Contractf("LLM curation missing change ids: %s", strings.Join(missing, ", "))
	}
	return kept, nil
}

func curationDecisions(answer curationAnswer, facts Facts) (map[string]curationDecision, error) {
	if answer.Items == nil {
		return nil, failure.Contractf("LLM curation output missing items list")
	}
	known := make(map[string]bool, len(facts.Changes))
	for _, c := range facts.Changes {
		known[c.ID] = true
	}
	decisions := make(map[string]curationDecision, len(answer.Items))
	for _, item := range answer.Items {
		id := strings.TrimSpace(item.ChangeID)
		switch {
		case id == "":
			return nil, failure.Contractf("LLM curation item has an empty change_id")
		case !known[id]:
			return nil, failure.Contractf("LLM curation returned unknown change id %q", id)
		}
		if _, dup := decisions[id]; dup {
			return nil, failure.Contractf("LLM curation returned change id %q more than once", id)
		}
		typ, _ := ParseChangeType(item.Type)
		decisions[id] = curationDecision{include: item.Include, typ: typ}
	}
	return decisions, nil
}
