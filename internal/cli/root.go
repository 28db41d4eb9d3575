package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/relnote/internal/cache"
	"github.com/dshills/relnote/internal/config"
	"github.com/dshills/relnote/internal/logging"
	"github.com/dshills/relnote/internal/providers"
	"github.com/dshills/relnote/internal/release"
)

const version = "0.1.0"

// Exit codes. Every handled failure maps to ExitFailure.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Persistent flags shared by every command.
var (
	flagConfig       string
	flagModel        string
	flagPromptFormat string
	flagNoRedact     bool
	flagNoCache      bool
	flagQuiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "relnote",
	Short: "AI-assisted release notes pipeline",
	Long: "relnote collects change facts from git and GitHub, asks a language model to curate\n" +
		"them and decide the version bump, and renders validated, localized release notes.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default: <config dir>/relnote/config.yaml)")
	pf.StringVar(&flagModel, "model", "", "Override llm.model")
	pf.StringVar(&flagPromptFormat, "prompt-format", "", "Override llm.prompt_format (json, toon)")
	pf.BoolVar(&flagNoRedact, "no-redact", false, "Send prompts without secret redaction")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Bypass the oracle response cache")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")

	rootCmd.AddCommand(collectFactsCmd)
	rootCmd.AddCommand(curateFactsCmd)
	rootCmd.AddCommand(decideBumpCmd)
	rootCmd.AddCommand(computeTagCmd)
	rootCmd.AddCommand(generateNotesCmd)
	rootCmd.AddCommand(validateNotesCmd)
	rootCmd.AddCommand(renderMarkdownCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

// Run executes the root command and returns an exit code.
func Run() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return report(os.Stderr, err)
	}
	return ExitSuccess
}

// report prints err as a single diagnostic line.
func report(w io.Writer, err error) int {
	fmt.Fprintf(w, "relnote: %s\n", strings.Join(strings.Fields(err.Error()), " "))
	return ExitFailure
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print relnote version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "relnote version %s\n", version)
	},
}

// buildOverrides maps persistent flags onto config keys. Unset flags are
// left out so the file and environment values stand.
func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagModel != "" {
		m["llm.model"] = flagModel
	}
	if flagPromptFormat != "" {
		m["llm.prompt_format"] = flagPromptFormat
	}
	if flagNoRedact {
		m["privacy.redact_prompts"] = "false"
	}
	if flagNoCache {
		m["cache.enabled"] = "false"
	}
	return m
}

func loadConfig() (config.Config, error) {
	return config.Load(flagConfig, buildOverrides())
}

func newLogger(w io.Writer) *logging.Logger {
	log := logging.New("relnote", w)
	log.SetQuiet(flagQuiet)
	return log
}

// newOracle connects to the configured model. LLM settings are only
// validated here, so stages without an oracle run without credentials.
func newOracle(cfg config.Config, log *logging.Logger) (*release.Oracle, error) {
	client, err := providers.New(cfg.LLM)
	if err != nil {
		return nil, err
	}
	return oracleFor(client, cfg, log)
}

// oracleFor wraps next with the response cache and the prompt settings.
func oracleFor(next providers.Completer, cfg config.Config, log *logging.Logger) (*release.Oracle, error) {
	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return &release.Oracle{
		Completer: &providers.Cached{Next: next, Cache: c, Model: cfg.LLM.Model, Log: log},
		Format:    cfg.LLM.PromptFormat,
		Redact:    cfg.Privacy.RedactPrompts,
	}, nil
}
