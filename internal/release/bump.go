package release

import (
	"context"
	"strings"

	"github.com/dshills/relnote/internal/artifact"
	"github.com/dshills/relnote/internal/failure"
)

const bumpSystemPrompt = `You are a release manager.
Decide semantic version bump for the next release.
Return strict JSON with keys:
- bump: one of major, minor, patch, none
- reason: short string
- confidence: float between 0 and 1
- evidence_change_ids: array of change IDs that justify the decision

Rules:
- breaking changes => major
- new user-facing feature(s) => at least minor
- only fixes/chore => patch
- no releasable change => none`

type bumpChange struct {
	ID          string     `json:"id"`
	Type        ChangeType `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Labels      []string   `json:"labels"`
	Source      Source     `json:"source"`
}

type bumpPrompt struct {
	BaseTag string       `json:"base_tag"`
	Head    string       `json:"head"`
	Stats   Stats        `json:"stats"`
	Changes []bumpChange `json:"changes"`
}

type bumpAnswer struct {
	Bump              string   `json:"bump"`
	Reason            string   `json:"reason"`
	Confidence        float64  `json:"confidence"`
	EvidenceChangeIDs []string `json:"evidence_change_ids"`
}

// DecideBump asks the oracle for the semantic-version bump and enforces the
// release rules on its answer. The oracle is consulted even for an empty
// change set; its answer is never corrected.
func (o *Oracle) DecideBump(ctx context.Context, facts Facts) (BumpDecision, error) {
	prompt := bumpPrompt{
		BaseTag: facts.BaseTag,
		Head:    facts.Head,
		Stats:   facts.Stats,
		Changes: make([]bumpChange, 0, len(facts.Changes)),
	}
	for _, c := range facts.Changes {
		labels := c.Labels
		if labels == nil {
			labels = []string{}
		}
		prompt.Changes = append(prompt.Changes, bumpChange{
			ID:          c.ID,
			Type:        c.Type,
			Title:       c.Title,
			Description: c.Description,
			Labels:      labels,
			Source:      c.Source,
		})
	}

	var answer bumpAnswer
	var decision BumpDecision
	accept := func() error {
		decision = BumpDecision{
			SchemaVersion:     artifact.SchemaVersion,
			GeneratedAt:       artifact.Timestamp(artifact.Now()),
			Bump:              strings.ToLower(strings.TrimSpace(answer.Bump)),
			Reason:            strings.TrimSpace(answer.Reason),
			Confidence:        answer.Confidence,
			EvidenceChangeIDs: answer.EvidenceChangeIDs,
			HasBreakingChange: facts.HasBreaking(),
			ChangeCount:       len(facts.Changes),
		}
		if decision.EvidenceChangeIDs == nil {
			decision.EvidenceChangeIDs = []string{}
		}
		return checkBump(decision, facts)
	}
	if err := o.Ask(ctx, "bump decision", bumpSystemPrompt, prompt, &answer, accept); err != nil {
		return BumpDecision{}, err
	}
	return decision, nil
}

func checkBump(d BumpDecision, facts Facts) error {
	switch d.Bump {
	case BumpMajor, BumpMinor, BumpPatch, BumpNone:
	default:
		return failure.Contractf("invalid bump from LLM: %q", d.Bump)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return failure.Contractf("LLM confidence %v is outside [0, 1]", d.Confidence)
	}
	known := make(map[string]bool, len(facts.Changes))
	for _, c := range facts.Changes {
		known[c.ID] = true
	}
	for _, id := range d.EvidenceChangeIDs {
		if !known[id] {
			return failure.Contractf("LLM evidence references unknown change id %q", id)
		}
	}

	switch {
	case d.HasBreakingChange && d.Bump != BumpMajor:
		return failure.Rulef("breaking change requires major bump")
	case d.ChangeCount == 0 && d.Bump != BumpNone:
		return failure.Rulef("no changes requires bump=none")
	case d.ChangeCount > 0 && d.Bump == BumpNone:
		return failure.Rulef("non-empty changes cannot use bump=none")
	}
	return nil
}
