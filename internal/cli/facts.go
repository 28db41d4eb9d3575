package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/relnote/internal/artifact"
	"github.com/dshills/relnote/internal/config"
	"github.com/dshills/relnote/internal/github"
	"github.com/dshills/relnote/internal/gitctx"
	"github.com/dshills/relnote/internal/logging"
	"github.com/dshills/relnote/internal/notes"
	"github.com/dshills/relnote/internal/release"
)

var (
	flagRepo           string
	flagBaseTag        string
	flagAutoBaseSource string
	flagHead           string
	flagHeadTag        string
	flagOutput         string
	flagFacts          string
	flagDecision       string
	flagTag            string
)

var collectFactsCmd = &cobra.Command{
	Use:   "collect-facts",
	Short: "Collect and classify the changes since the base tag",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cmd.ErrOrStderr())
		opts := release.CollectOptions{
			Repository:     flagRepo,
			BaseTag:        flagBaseTag,
			AutoBaseSource: flagAutoBaseSource,
			Head:           flagHead,
			HeadTag:        flagHeadTag,
		}
		_, err = collectFacts(cmd.Context(), cfg, gitctx.Open("."), opts, flagOutput, log)
		return err
	},
}

var curateFactsCmd = &cobra.Command{
	Use:   "curate-facts",
	Short: "Ask the model which changes belong in user-facing notes",
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
		_, err = curateFacts(cmd.Context(), oracle, flagFacts, flagTag, flagOutput, log)
		return err
	},
}

var decideBumpCmd = &cobra.Command{
	Use:   "decide-bump",
	Short: "Ask the model for the semantic version bump",
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
		_, err = decideBump(cmd.Context(), oracle, flagFacts, flagOutput, log)
		return err
	},
}

var computeTagCmd = &cobra.Command{
	Use:   "compute-tag",
	Short: "Apply the bump decision to the base tag",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := computeTag(flagFacts, flagDecision, flagOutput, newLogger(cmd.ErrOrStderr()))
		return err
	},
}

func init() {
	f := collectFactsCmd.Flags()
	f.StringVar(&flagRepo, "repo", "", "GitHub repo slug (owner/repo); inferred from origin when omitted")
	f.StringVar(&flagBaseTag, "base-tag", release.BaseAuto, "Base tag of the compare range, or 'auto'")
	f.StringVar(&flagAutoBaseSource, "auto-base-source", release.AutoBaseGitTags, "Where 'auto' looks for the base: git-tags or hosting-releases")
	f.StringVar(&flagHead, "head", "HEAD", "Head ref of the compare range when --head-tag is not set")
	f.StringVar(&flagHeadTag, "head-tag", "", "SemVer tag used as the compare range head")
	f.StringVar(&flagOutput, "output", "", "Facts JSON path")
	_ = collectFactsCmd.MarkFlagRequired("output")

	f = curateFactsCmd.Flags()
	f.StringVar(&flagFacts, "facts", "", "Facts JSON path")
	f.StringVar(&flagTag, "tag", "", "Release tag (vX.Y.Z)")
	f.StringVar(&flagOutput, "output", "", "Curated facts JSON path")
	for _, name := range []string{"facts", "tag", "output"} {
		_ = curateFactsCmd.MarkFlagRequired(name)
	}

	f = decideBumpCmd.Flags()
	f.StringVar(&flagFacts, "facts", "", "Facts JSON path")
	f.StringVar(&flagOutput, "output", "", "Bump decision JSON path")
	_ = decideBumpCmd.MarkFlagRequired("facts")
	_ = decideBumpCmd.MarkFlagRequired("output")

	f = computeTagCmd.Flags()
	f.StringVar(&flagFacts, "facts", "", "Facts JSON path")
	f.StringVar(&flagDecision, "decision", "", "Bump decision JSON path")
	f.StringVar(&flagOutput, "output", "", "Computed tag JSON path")
	for _, name := range []string{"facts", "decision", "output"} {
		_ = computeTagCmd.MarkFlagRequired(name)
	}
}

func collectFacts(ctx context.Context, cfg config.Config, history release.History, opts release.CollectOptions, output string, log *logging.Logger) (release.Facts, error) {
	c := &release.Collector{
		History:              history,
		Hosting:              github.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.APIURL),
		Log:                  log,
		MaxDescriptionLength: cfg.Privacy.MaxDescriptionLength,
	}
	facts, err := c.Collect(ctx, opts)
	if err != nil {
		return release.Facts{}, err
	}
	if _, err := artifact.Write(output, facts); err != nil {
		return release.Facts{}, fmt.Errorf("writing facts: %w", err)
	}
	log.Infof("wrote facts -> %s (%d change(s))", output, len(facts.Changes))
	return facts, nil
}

func curateFacts(ctx context.Context, oracle *release.Oracle, factsPath, tag, output string, log *logging.Logger) (release.Facts, error) {
	if err := notes.CheckTag(tag); err != nil {
		return release.Facts{}, err
	}
	facts, err := release.ReadFacts(factsPath)
	if err != nil {
		return release.Facts{}, err
	}
	curated, err := oracle.Curate(ctx, facts, tag)
	if err != nil {
		return release.Facts{}, err
	}
	if _, err := artifact.Write(output, curated); err != nil {
		return release.Facts{}, fmt.Errorf("writing curated facts: %w", err)
	}
	log.Infof("wrote curated facts -> %s (%d of %d change(s))", output, len(curated.Changes), len(facts.Changes))
	return curated, nil
}

func decideBump(ctx context.Context, oracle *release.Oracle, factsPath, output string, log *logging.Logger) (release.BumpDecision, error) {
	facts, err := release.ReadFacts(factsPath)
	if err != nil {
		return release.BumpDecision{}, err
	}
	d, err := oracle.DecideBump(ctx, facts)
	if err != nil {
		return release.BumpDecision{}, err
	}
	if _, err := artifact.Write(output, d); err != nil {
		return release.BumpDecision{}, fmt.Errorf("writing bump decision: %w", err)
	}
	log.Infof("wrote bump decision -> %s (%s)", output, d.Bump)
	return d, nil
}

func computeTag(factsPath, decisionPath, output string, log *logging.Logger) (release.ComputedTag, error) {
	facts, err := release.ReadFacts(factsPath)
	if err != nil {
		return release.ComputedTag{}, err
	}
	d, err := release.ReadBumpDecision(decisionPath)
	if err != nil {
		return release.ComputedTag{}, err
	}
	tag, err := release.ComputeTag(facts, d)
	if err != nil {
		return release.ComputedTag{}, err
	}
	if _, err := artifact.Write(output, tag); err != nil {
		return release.ComputedTag{}, fmt.Errorf("writing computed tag: %w", err)
	}
	log.Infof("wrote next tag -> %s (%s)", output, tag.Tag)
	return tag, nil
}
