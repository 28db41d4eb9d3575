package notes

import (
	"fmt"
	"path/filepath"

	"github.com/dshills/relnote/internal/artifact"
)

// Entry is one rendered line with the changes it covers. Highlights and
// section items share this shape.
type Entry struct {
	Text      string   `json:"text"`
	ChangeIDs []string `json:"change_ids"`
}

// Section groups the entries of one change type.
type Section struct {
	Key   string  `json:"key"`
	Title string  `json:"title"`
	Items []Entry `json:"items"`
}

// LocaleNotes is the release-notes document for one locale.
type LocaleNotes struct {
	SchemaVersion int       `json:"schema_version"`
	GeneratedAt   string    `json:"generated_at"`
	Locale        string    `json:"locale"`
	Version       string    `json:"version"`
	Summary       string    `json:"summary"`
	Highlights    []Entry   `json:"highlights"`
	Sections      []Section `json:"sections"`
}

// ManifestEntry pins one locale file by digest.
type ManifestEntry struct {
	Locale string `json:"locale"`
	File   string `json:"file"`
	SHA256 string `json:"sha256"`
}

// Manifest lists the notes files of a release. A nil IncludedChangeIDs
// after decoding means the field was absent.
type Manifest struct {
	SchemaVersion     int             `json:"schema_version"`
	GeneratedAt       string          `json:"generated_at"`
	Version           string          `json:"version"`
	DefaultLocale     string          `json:"default_locale"`
	SupportedLocales  []string        `json:"supported_locales"`
	IncludedChangeIDs []string        `json:"included_change_ids"`
	Notes             []ManifestEntry `json:"notes"`
}

// FileName is the notes file name for a tag and locale.
func FileName(tag, locale string) string {
	return fmt.Sprintf("release-notes-%s-%s.json", tag, locale)
}

// ManifestFileName is the manifest file name for a tag.
func ManifestFileName(tag string) string {
	return fmt.Sprintf("release-notes-%s-manifest.json", tag)
}

// ReadLocaleNotes loads the notes of one locale from dir.
func ReadLocaleNotes(dir, tag, locale string) (LocaleNotes, error) {
	var n LocaleNotes
	if err := artifact.Read(filepath.Join(dir, FileName(tag, locale)), &n); err != nil {
		return LocaleNotes{}, err
	}
	return n, nil
}
