package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Bump kinds accepted by [Bump].
const (
	Major = "major"
	Minor = "minor"
	Patch = "patch"
)

var tagRe = regexp.MustCompile(`^v(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)$`)

// Version is an immutable MAJOR.MINOR.PATCH triple.
type Version struct {
	major, minor, patch int
}

// New returns the version (major, minor, patch). Negative components are
// clamped to zero.
func New(major, minor, patch int) Version {
	return Version{major: max(major, 0), minor: max(minor, 0), patch: max(patch, 0)}
}

func (v Version) Major() int { return v.major }
func (v Version) Minor() int { return v.minor }
func (v Version) Patch() int { return v.patch }

// String returns the canonical tag form vMAJOR.MINOR.PATCH.
func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.major, v.minor, v.patch)
}

// Compare returns -1, 0 or 1 ordering v against o lexicographically on
// (major, minor, patch).
func (v Version) Compare(o Version) int {
	switch {
	case v.major != o.major:
		return cmpInt(v.major, o.major)
	case v.minor != o.minor:
		return cmpInt(v.minor, o.minor)
	default:
		return cmpInt(v.patch, o.patch)
	}
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Parse parses a tag of the exact form v<int>.<int>.<int>. Leading zeros are
// rejected. Surrounding whitespace is ignored.
func Parse(tag string) (Version, bool) {
	m := tagRe.FindStringSubmatch(strings.TrimSpace(tag))
	if m == nil {
		return Version{}, false
	}
	var parts [3]int
	for i := range parts {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			// overflow
			return Version{}, false
		}
		parts[i] = n
	}
	return Version{major: parts[0], minor: parts[1], patch: parts[2]}, true
}

// IsValidBump reports whether kind is one of major, minor or patch.
func IsValidBump(kind string) bool {
	switch kind {
	case Major, Minor, Patch:
		return true
	}
	return false
}

// Bump increments v by kind. Any kind other than major, minor or patch is a
// programming error and panics; callers validate untrusted input with
// [IsValidBump] first.
func Bump(v Version, kind string) Version {
	switch kind {
	case Major:
		return Version{major: v.major + 1}
	case Minor:
		return Version{major: v.major, minor: v.minor + 1}
	case Patch:
		return Version{major: v.major, minor: v.minor, patch: v.patch + 1}
	default:
		panic(fmt.Sprintf("semver: unsupported bump %q", kind))
	}
}

// FindLatest returns the tag with the greatest version among the parseable
// tags. ok is false when none parse.
func FindLatest(tags []string) (latest string, ok bool) {
	var best Version
	for _, tag := range tags {
		v, parsed := Parse(tag)
		if !parsed {
			continue
		}
		if !ok || best.Less(v) {
			best, latest, ok = v, strings.TrimSpace(tag), true
		}
	}
	return latest, ok
}
