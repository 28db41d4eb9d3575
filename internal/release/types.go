package release

import (
	"strings"

	"github.com/dshills/relnote/internal/artifact"
	"github.com/dshills/relnote/internal/failure"
)

// ChangeType is the release category of a change.
type ChangeType string

const (
	Breaking ChangeType = "breaking"
	Feature  ChangeType = "feature"
	Fix      ChangeType = "fix"
	Chore    ChangeType = "chore"
)

// ChangeTypes lists the categories in presentation order.
var ChangeTypes = []ChangeType{Breaking, Feature, Fix, Chore}

// ParseChangeType normalizes s and reports whether it names a known type.
func ParseChangeType(s string) (ChangeType, bool) {
	t := ChangeType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case Breaking, Feature, Fix, Chore:
		return t, true
	}
	return Chore, false
}

// Source says where a change was harvested from.
type Source string

const (
	SourcePullRequest Source = "pull_request"
	SourceCommit      Source = "commit"
)

// Bump kinds accepted from the oracle. None means "no release".
const (
	BumpMajor = "major"
	BumpMinor = "minor"
	BumpPatch = "patch"
	BumpNone  = "none"
)

// Change is one releasable unit: a pull request or a direct commit.
type Change struct {
	ID          string     `json:"id"`
	Source      Source     `json:"source"`
	Type        ChangeType `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Labels      []string   `json:"labels"`
	PRNumber    int        `json:"pr_number,omitempty"`
	URL         string     `json:"url"`
	Author      string     `json:"author,omitempty"`
	MergedAt    string     `json:"merged_at,omitempty"`
	CommitSHAs  []string   `json:"commit_shas"`
}

// Stats counts the changes in a Facts document.
type Stats struct {
	ChangeCount       int `json:"change_count"`
	PullRequestCount  int `json:"pull_request_count"`
	DirectCommitCount int `json:"direct_commit_count"`
}

// Facts is the harvested, classified change set for one compare range.
type Facts struct {
	SchemaVersion  int      `json:"schema_version"`
	GeneratedAt    string   `json:"generated_at"`
	Repository     string   `json:"repository"`
	BaseTag        string   `json:"base_tag"`
	Head           string   `json:"head"`
	HeadSHA        string   `json:"head_sha"`
	CompareRange   string   `json:"compare_range"`
	Changes        []Change `json:"changes"`
	Stats          Stats    `json:"stats"`
	ChangesCurated bool     `json:"changes_curated"`
}

// BumpDecision is the validated oracle answer for the next version bump.
type BumpDecision struct {
	SchemaVersion     int      `json:"schema_version"`
	GeneratedAt       string   `json:"generated_at"`
	Bump              string   `json:"bump"`
	Reason            string   `json:"reason"`
	Confidence        float64  `json:"confidence"`
	EvidenceChangeIDs []string `json:"evidence_change_ids"`
	HasBreakingChange bool     `json:"has_breaking_change"`
	ChangeCount       int      `json:"change_count"`
}

// ComputedTag is the next release tag derived from a base and a bump.
type ComputedTag struct {
	SchemaVersion int    `json:"schema_version"`
	GeneratedAt   string `json:"generated_at"`
	BaseTag       string `json:"base_tag"`
	BaseVersion   string `json:"base_version"`
	Bump          string `json:"bump"`
	Tag           string `json:"tag"`
}

func computeStats(changes []Change) Stats {
	s := Stats{ChangeCount: len(changes)}
	for _, c := range changes {
		if c.Source == SourcePullRequest {
			s.PullRequestCount++
		} else {
			s.DirectCommitCount++
		}
	}
	return s
}

// IDs returns the change ids in document order.
func (f Facts) IDs() []string {
	ids := make([]string, 0, len(f.Changes))
	for _, c := range f.Changes {
		ids = append(ids, c.ID)
	}
	return ids
}

// HasBreaking reports whether any change is classified breaking.
func (f Facts) HasBreaking() bool {
	for _, c := range f.Changes {
		if c.Type == Breaking {
			return true
		}
	}
	return false
}

// Links maps change ids to their URLs, skipping changes without one.
func (f Facts) Links() map[string]string {
	links := make(map[string]string, len(f.Changes))
	for _, c := range f.Changes {
		if c.ID != "" && c.URL != "" {
			links[c.ID] = c.URL
		}
	}
	return links
}

// Check verifies that change ids are present and unique.
func (f Facts) Check() error {
	seen := make(map[string]bool, len(f.Changes))
	for i, c := range f.Changes {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return failure.Inputf("facts change %d has an empty id", i)
		}
		if seen[id] {
			return failure.Inputf("facts contain duplicate change id %q", id)
		}
		seen[id] = true
	}
	return nil
}

// ReadFacts loads and checks a facts artifact.
func ReadFacts(path string) (Facts, error) {
	var f Facts
	if err := artifact.Read(path, &f); err != nil {
		return Facts{}, err
	}
	if err := f.Check(); err != nil {
		return Facts{}, err
	}
	return f, nil
}

// ReadBumpDecision loads a bump decision artifact.
func ReadBumpDecision(path string) (BumpDecision, error) {
	var d BumpDecision
	if err := artifact.Read(path, &d); err != nil {
		return BumpDecision{}, err
	}
	return d, nil
}
