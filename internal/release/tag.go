package release

import (
	"strings"

	"github.com/dshills/relnote/internal/artifact"
	"github.com/dshills/relnote/internal/failure"
	"github.com/dshills/relnote/internal/semver"
)

// ComputeTag applies the decided bump to the facts' base tag. A base tag
// that is absent or not SemVer counts as v0.0.0.
func ComputeTag(facts Facts, decision BumpDecision) (ComputedTag, error) {
	bump := strings.ToLower(strings.TrimSpace(decision.Bump))
	if bump == BumpNone {
		return ComputedTag{}, failure.Rulef("bump decision is 'none'; refusing to create a release tag")
	}
	if !semver.IsValidBump(bump) {
		return ComputedTag{}, failure.Inputf("unknown bump %q in decision", decision.Bump)
	}
	if decision.ChangeCount != len(facts.Changes) {
		return ComputedTag{}, failure.Integrityf("decision covers %d change(s) but facts hold %d", decision.ChangeCount, len(facts.Changes))
	}

	base, ok := semver.Parse(facts.BaseTag)
	if !ok {
		base = semver.New(0, 0, 0)
	}
	next := semver.Bump(base, bump)
	tag := next.String()
	if _, ok := semver.Parse(tag); !ok {
		return ComputedTag{}, failure.Integrityf("computed invalid tag: %s", tag)
	}
	return ComputedTag{
		SchemaVersion: artifact.SchemaVersion,
		GeneratedAt:   artifact.Timestamp(artifact.Now()),
		BaseTag:       facts.BaseTag,
		BaseVersion:   base.String(),
		Bump:          bump,
		Tag:           tag,
	}, nil
}
