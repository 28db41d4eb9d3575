package notes

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dshills/relnote/internal/release"
)

//go:embed locales.yaml
var bundledCatalog []byte

const fallbackLanguage = "en"

// LocaleText holds the per-language strings used when the oracle supplies
// none.
type LocaleText struct {
	Sections    map[string]string `yaml:"sections"`
	Maintenance string            `yaml:"maintenance"`
	Summary     string            `yaml:"summary"`
}

// Catalog models locales.yaml.
type Catalog struct {
	Languages map[string]string            `yaml:"languages"`
	Scripts   map[string]map[string]string `yaml:"scripts"`
	Text      map[string]LocaleText        `yaml:"text"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := ParseCatalog(bundledCatalog)
		if err != nil {
			panic(fmt.Sprintf("notes: bundled locale catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ParseCatalog decodes a catalog and checks that the fallback language
// defines every section title and template.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse locale catalog: %w", err)
	}
	en, ok := c.Text[fallbackLanguage]
	if !ok {
		return nil, fmt.Errorf("locale catalog has no %q text", fallbackLanguage)
	}
	for _, t := range release.ChangeTypes {
		if strings.TrimSpace(en.Sections[string(t)]) == "" {
			return nil, fmt.Errorf("locale catalog has no %q title for section %q", fallbackLanguage, t)
		}
	}
	if en.Maintenance == "" || en.Summary == "" {
		return nil, fmt.Errorf("locale catalog has no %q summary templates", fallbackLanguage)
	}
	return &c, nil
}

// NormalizeLocale splits a locale such as "zh_cn" into ("zh", "CN").
func NormalizeLocale(locale string) (language, region string) {
	normalized := strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	var parts []string
	for _, p := range strings.Split(normalized, "-") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		language = strings.ToLower(parts[0])
	}
	if len(parts) > 1 {
		region = strings.ToUpper(parts[1])
	}
	return language, region
}

// DisplayName returns the human name of a locale, or the locale itself when
// the language is unknown.
func (c *Catalog) DisplayName(locale string) string {
	language, region := NormalizeLocale(locale)
	name, ok := c.Languages[language]
	if !ok || name == "" {
		return locale
	}
	if script, ok := c.Scripts[language][region]; ok && script != "" {
		return script
	}
	return name
}

// Headings maps each locale to its display name, disambiguated with the
// locale code when two locales share a name.
func (c *Catalog) Headings(locales []string) map[string]string {
	names := make(map[string]string, len(locales))
	counts := make(map[string]int)
	for _, l := range locales {
		names[l] = c.DisplayName(l)
		counts[names[l]]++
	}
	headings := make(map[string]string, len(locales))
	for _, l := range locales {
		if counts[names[l]] > 1 {
			headings[l] = fmt.Sprintf("%s (%s)", names[l], l)
		} else {
			headings[l] = names[l]
		}
	}
	return headings
}

func (c *Catalog) text(locale string) LocaleText {
	language, _ := NormalizeLocale(locale)
	if t, ok := c.Text[language]; ok {
		return t
	}
	return c.Text[fallbackLanguage]
}

// SectionTitles returns a title for every change type, falling back to
// English for types the locale does not name.
func (c *Catalog) SectionTitles(locale string) map[release.ChangeType]string {
	own := c.text(locale).Sections
	en := c.Text[fallbackLanguage].Sections
	titles := make(map[release.ChangeType]string, len(release.ChangeTypes))
	for _, t := range release.ChangeTypes {
		if v := strings.TrimSpace(own[string(t)]); v != "" {
			titles[t] = v
		} else {
			titles[t] = en[string(t)]
		}
	}
	return titles
}

// MaintenanceSummary is the summary of a release with no user-facing
// changes.
func (c *Catalog) MaintenanceSummary(locale, tag string) string {
	return fill(c.template(locale, func(t LocaleText) string { return t.Maintenance }), tag, 0)
}

// UpdateSummary is the summary used when the oracle returns none.
func (c *Catalog) UpdateSummary(locale, tag string, count int) string {
	return fill(c.template(locale, func(t LocaleText) string { return t.Summary }), tag, count)
}

func (c *Catalog) template(locale string, pick func(LocaleText) string) string {
	if s := pick(c.text(locale)); s != "" {
		return s
	}
	return pick(c.Text[fallbackLanguage])
}

func fill(template, tag string, count int) string {
	return strings.NewReplacer("{tag}", tag, "{count}", strconv.Itoa(count)).Replace(template)
}
