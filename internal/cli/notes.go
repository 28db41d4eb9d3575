package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/relnote/internal/logging"
	"github.com/dshills/relnote/internal/notes"
	"github.com/dshills/relnote/internal/output"
	"github.com/dshills/relnote/internal/release"
)

const defaultLocales = "zh-CN,en-US"

var (
	flagLocales   string
	flagOutputDir string
	flagNotesDir  string
)

var generateNotesCmd = &cobra.Command{
	Use:   "generate-notes",
	Short: "Write localized release notes and their manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cmd.ErrOrStderr())
		oracle, err := newOracle(cfg, log)
		if err != nil {
			return err
		}
		b := &notes.Builder{Oracle: oracle}
		_, err = generateNotes(cmd.Context(), b, flagFacts, flagTag, flagLocales, flagOutputDir, log)
		return err
	},
}

var validateNotesCmd = &cobra.Command{
	Use:   "validate-notes",
	Short: "Check generated notes against their manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateNotes(flagFacts, flagTag, flagLocales, flagNotesDir, newLogger(cmd.ErrOrStderr()))
	},
}

var renderMarkdownCmd = &cobra.Command{
	Use:   "render-markdown",
	Short: "Render generated notes as one markdown release page",
	RunE: func(cmd *cobra.Command, args []string) error {
		return renderMarkdown(flagTag, flagLocales, flagNotesDir, flagFacts, flagOutput, newLogger(cmd.ErrOrStderr()))
	},
}

func init() {
	f := generateNotesCmd.Flags()
	f.StringVar(&flagFacts, "facts", "", "Facts JSON path")
	f.StringVar(&flagTag, "tag", "", "Release tag (vX.Y.Z)")
	f.StringVar(&flagLocales, "locales", defaultLocales, "Comma-separated locales")
	f.StringVar(&flagOutputDir, "output-dir", "", "Directory for notes files and the manifest")
	for _, name := range []string{"facts", "tag", "output-dir"} {
		_ = generateNotesCmd.MarkFlagRequired(name)
	}

	f = validateNotesCmd.Flags()
	f.StringVar(&flagFacts, "facts", "", "Facts JSON path")
	f.StringVar(&flagTag, "tag", "", "Release tag (vX.Y.Z)")
	f.StringVar(&flagLocales, "locales", defaultLocales, "Comma-separated locales")
	f.StringVar(&flagNotesDir, "notes-dir", "", "Directory holding the generated notes")
	for _, name := range []string{"facts", "tag", "notes-dir"} {
		_ = validateNotesCmd.MarkFlagRequired(name)
	}

	f = renderMarkdownCmd.Flags()
	f.StringVar(&flagTag, "tag", "", "Release tag (vX.Y.Z)")
	f.StringVar(&flagLocales, "locales", defaultLocales, "Comma-separated locales")
	f.StringVar(&flagNotesDir, "notes-dir", "", "Directory holding the generated notes")
	f.StringVar(&flagFacts, "facts", "", "Facts JSON path used to link change references")
	f.StringVar(&flagOutput, "output", "", "Markdown path, or - for stdout")
	for _, name := range []string{"tag", "notes-dir", "output"} {
		_ = renderMarkdownCmd.MarkFlagRequired(name)
	}
}

func generateNotes(ctx context.Context, b *notes.Builder, factsPath, tag, localeList, dir string, log *logging.Logger) (notes.Manifest, error) {
	if err := notes.CheckTag(tag); err != nil {
		return notes.Manifest{}, err
	}
	locales, err := notes.ParseLocales(localeList)
	if err != nil {
		return notes.Manifest{}, err
	}
	facts, err := release.ReadFacts(factsPath)
	if err != nil {
		return notes.Manifest{}, err
	}
	return b.Generate(ctx, facts, tag, locales, dir, log)
}

func validateNotes(factsPath, tag, localeList, dir string, log *logging.Logger) error {
	if err := notes.CheckTag(tag); err != nil {
		return err
	}
	locales, err := notes.ParseLocales(localeList)
	if err != nil {
		return err
	}
	facts, err := release.ReadFacts(factsPath)
	if err != nil {
		return err
	}
	if err := notes.Validate(dir, tag, locales, facts); err != nil {
		return err
	}
	log.Infof("notes validation passed (%s)", strings.Join(locales, ", "))
	return nil
}

func renderMarkdown(tag, localeList, dir, factsPath, outPath string, log *logging.Logger) error {
	if err := notes.CheckTag(tag); err != nil {
		return err
	}
	locales, err := notes.ParseLocales(localeList)
	if err != nil {
		return err
	}
	rn := output.ReleaseNotes{
		Tag:      tag,
		Locales:  locales,
		Headings: notes.DefaultCatalog().Headings(locales),
		Notes:    make(map[string]notes.LocaleNotes, len(locales)),
	}
	for _, l := range locales {
		n, err := notes.ReadLocaleNotes(dir, tag, l)
		if err != nil {
			return err
		}
		rn.Notes[l] = n
	}
	if factsPath != "" {
		facts, err := release.ReadFacts(factsPath)
		if err != nil {
			return err
		}
		rn.Links = facts.Links()
	}

	md := &output.MarkdownWriter{}
	if err := output.WriteTo(outPath, func(w io.Writer) error { return md.Write(w, rn) }); err != nil {
		return err
	}
	if outPath != "-" {
		log.Infof("wrote markdown -> %s", outPath)
	}
	return nil
}
