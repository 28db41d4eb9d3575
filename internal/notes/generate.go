package notes

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/relnote/internal/artifact"
	"github.com/dshills/relnote/internal/failure"
	"github.com/dshills/relnote/internal/logging"
	"github.com/dshills/relnote/internal/release"
	"github.com/dshills/relnote/internal/semver"
)

// DefaultLocale is preferred as the manifest default when requested.
const DefaultLocale = "en-US"

// ParseLocales splits a comma-separated locale list, trimming entries and
// dropping blanks and duplicates.
func ParseLocales(s string) ([]string, error) {
	seen := make(map[string]bool)
	var locales []string
	for _, l := range strings.Split(s, ",") {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		locales = append(locales, l)
	}
	if len(locales) == 0 {
		return nil, failure.Inputf("locales cannot be empty")
	}
	return locales, nil
}

// CheckTag rejects release tags that are not vX.Y.Z.
func CheckTag(tag string) error {
	if _, ok := semver.Parse(tag); !ok {
		return failure.Inputf("invalid release tag '%s': expected vX.Y.Z", tag)
	}
	return nil
}

// Generate curates facts if needed, builds every requested locale, then
// writes one notes file per locale into dir and the manifest pinning each
// file by digest.
func (b *Builder) Generate(ctx context.Context, facts release.Facts, tag string, locales []string, dir string, log *logging.Logger) (Manifest, error) {
	if err := CheckTag(tag); err != nil {
		return Manifest{}, err
	}
	if len(locales) == 0 {
		return Manifest{}, failure.Inputf("locales cannot be empty")
	}

	curated := facts
	if !facts.ChangesCurated {
		var err error
		curated, err = b.Oracle.Curate(ctx, facts, tag)
		if err != nil {
			return Manifest{}, err
		}
		log.Infof("curated %d of %d change(s) as user-facing", len(curated.Changes), len(facts.Changes))
	}

	m := Manifest{
		SchemaVersion:     artifact.SchemaVersion,
		Version:           tag,
		DefaultLocale:     locales[0],
		SupportedLocales:  locales,
		IncludedChangeIDs: []string{},
		Notes:             make([]ManifestEntry, 0, len(locales)),
	}
	for _, l := range locales {
		if l == DefaultLocale {
			m.DefaultLocale = DefaultLocale
		}
	}
	for _, c := range curated.Changes {
		if id := strings.TrimSpace(c.ID); id != "" {
			m.IncludedChangeIDs = append(m.IncludedChangeIDs, id)
		}
	}

	// Every locale is built before anything is written, so a failing
	// locale leaves dir untouched.
	built := make([]LocaleNotes, 0, len(locales))
	for _, locale := range locales {
		n, err := b.Build(ctx, curated, locale, tag)
		if err != nil {
			return Manifest{}, err
		}
		built = append(built, n)
	}
	for _, n := range built {
		file := FileName(tag, n.Locale)
		data, err := artifact.Write(filepath.Join(dir, file), n)
		if err != nil {
			return Manifest{}, fmt.Errorf("writing %s: %w", file, err)
		}
		m.Notes = append(m.Notes, ManifestEntry{Locale: n.Locale, File: file, SHA256: artifact.SHA256(data)})
		log.Infof("wrote notes -> %s", filepath.Join(dir, file))
	}

	m.GeneratedAt = artifact.Timestamp(artifact.Now())
	if _, err := artifact.Write(filepath.Join(dir, ManifestFileName(tag)), m); err != nil {
		return Manifest{}, fmt.Errorf("writing manifest: %w", err)
	}
	return m, nil
}
