package notes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/relnote/internal/artifact"
	"github.com/dshills/relnote/internal/failure"
	"github.com/dshills/relnote/internal/release"
)

// Check verifies a locale document against the expected locale, version and
// required change ids. Section items must cover the required ids exactly and
// highlights may only cite required ids. It returns the covered ids.
func Check(n LocaleNotes, locale, version string, required []string) (map[string]bool, error) {
	if n.Locale != locale {
		return nil, fmt.Errorf("locale mismatch: expected %s, got %s", locale, n.Locale)
	}
	if n.Version != version {
		return nil, fmt.Errorf("version mismatch: expected %s, got %s", version, n.Version)
	}
	if len(required) > 0 && len(n.Sections) == 0 {
		return nil, errors.New("notes must contain non-empty sections when releasable changes exist")
	}

	valid := make(map[string]bool, len(required))
	for _, id := range required {
		valid[id] = true
	}
	covered := make(map[string]bool, len(required))
	for _, s := range n.Sections {
		for _, item := range s.Items {
			if strings.TrimSpace(item.Text) == "" {
				return nil, errors.New("item text must be non-empty")
			}
			if len(item.ChangeIDs) == 0 {
				return nil, errors.New("item change_ids must be a non-empty list")
			}
			for _, id := range item.ChangeIDs {
				if !valid[id] {
					return nil, fmt.Errorf("unknown change id '%s'", id)
				}
				covered[id] = true
			}
		}
	}
	for _, h := range n.Highlights {
		if strings.TrimSpace(h.Text) == "" {
			return nil, errors.New("highlight text must be non-empty")
		}
		for _, id := range h.ChangeIDs {
			if !valid[id] {
				return nil, fmt.Errorf("highlight cites unknown change id '%s'", id)
			}
		}
	}

	var missing []string
	for id := range valid {
		if !covered[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing change ids: %s", strings.Join(missing, ", "))
	}
	return covered, nil
}

// Validate checks a generated notes directory before publishing: the
// manifest, each requested locale document, and the digest of every file the
// manifest lists. Facts supply the required ids when the manifest predates
// included_change_ids.
func Validate(dir, tag string, locales []string, facts release.Facts) error {
	manifestPath := filepath.Join(dir, ManifestFileName(tag))
	if _, err := os.Stat(manifestPath); err != nil {
		return failure.Inputf("missing manifest: %s", manifestPath)
	}
	var m Manifest
	if err := artifact.Read(manifestPath, &m); err != nil {
		return failure.Wrap(failure.Integrity, err, "unreadable manifest")
	}

	required := requiredIDs(m, facts)
	for _, locale := range locales {
		path := filepath.Join(dir, FileName(tag, locale))
		if _, err := os.Stat(path); err != nil {
			return failure.Integrityf("missing notes file: %s", path)
		}
		n, err := ReadLocaleNotes(dir, tag, locale)
		if err != nil {
			return failure.Wrap(failure.Integrity, err, "unreadable notes for "+locale)
		}
		if _, err := Check(n, locale, tag, required); err != nil {
			return failure.Wrap(failure.Integrity, err, "notes for "+locale)
		}
	}

	if m.Version != tag {
		return failure.Integrityf("manifest version mismatch: expected %s, got %s", tag, m.Version)
	}
	if m.Notes == nil {
		return failure.Integrityf("manifest notes must be a list")
	}
	for _, e := range m.Notes {
		file := strings.TrimSpace(e.File)
		if file == "" {
			return failure.Integrityf("manifest entry missing file")
		}
		path := filepath.Join(dir, file)
		sum, err := artifact.SHA256File(path)
		if err != nil {
			return failure.Integrityf("manifest file not found: %s", path)
		}
		if strings.ToLower(strings.TrimSpace(e.SHA256)) != sum {
			return failure.Integrityf("sha256 mismatch for %s", file)
		}
	}
	return nil
}

func requiredIDs(m Manifest, facts release.Facts) []string {
	if m.IncludedChangeIDs != nil {
		ids := make([]string, 0, len(m.IncludedChangeIDs))
		for _, id := range m.IncludedChangeIDs {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	}
	selected := release.SelectUserFacing(facts.Changes)
	ids := make([]string, 0, len(selected))
	for _, c := range selected {
		ids = append(ids, c.ID)
	}
	return ids
}
