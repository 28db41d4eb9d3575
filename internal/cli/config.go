package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dshills/relnote/internal/config"
	"github.com/dshills/relnote/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect relnote configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		w, err := output.GetWriter(flagFormat)
		if err != nil {
			return err
		}
		return showConfig(cfg, w, cmd.OutOrStdout())
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable configuration keys",
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range config.Keys() {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configKeysCmd)
	configShowCmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text, json")
}

func showConfig(cfg config.Config, w output.Writer, out io.Writer) error {
	m := cfg.Masked()
	if _, isJSON := w.(*output.JSONWriter); isJSON {
		return w.Write(out, m)
	}
	return w.Write(out, output.Report{
		Title: "Effective configuration",
		Fields: []output.Field{
			{Label: "llm.api_key", Value: m.LLM.APIKey},
			{Label: "llm.model", Value: m.LLM.Model},
			{Label: "llm.base_url", Value: m.LLM.BaseURL},
			{Label: "llm.endpoint", Value: m.LLM.Endpoint},
			{Label: "llm.timeout_seconds", Value: strconv.Itoa(m.LLM.TimeoutSeconds)},
			{Label: "llm.max_retries", Value: strconv.Itoa(m.LLM.MaxRetries)},
			{Label: "llm.prompt_format", Value: m.LLM.PromptFormat},
			{Label: "github.token", Value: m.GitHub.Token},
			{Label: "github.api_url", Value: m.GitHub.APIURL},
			{Label: "cache.enabled", Value: strconv.FormatBool(m.Cache.Enabled)},
			{Label: "cache.dir", Value: m.Cache.Dir},
			{Label: "privacy.redact_prompts", Value: strconv.FormatBool(m.Privacy.RedactPrompts)},
			{Label: "privacy.max_description_len", Value: strconv.Itoa(m.Privacy.MaxDescriptionLength)},
		},
	})
}
