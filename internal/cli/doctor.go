package cli

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/relnote/internal/output"
	"github.com/dshills/relnote/internal/providers"
)

var flagFormat string

const doctorSystemPrompt = `Reply with exactly this JSON object: {"ok": true}`

// endpointLister is a completer that can name the endpoints it tries.
type endpointLister interface {
	providers.Completer
	Endpoints() []string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Ping the configured model and report which endpoint answered",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		w, err := output.GetWriter(flagFormat)
		if err != nil {
			return err
		}
		client, err := providers.New(cfg.LLM)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		return doctor(ctx, client, w, cmd.OutOrStdout())
	},
}

func init() {
	doctorCmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text, json")
}

// doctor sends one ping straight to the model, bypassing the response
// cache.
func doctor(ctx context.Context, c endpointLister, w output.Writer, out io.Writer) error {
	start := time.Now()
	resp, err := c.Complete(ctx, providers.Request{System: doctorSystemPrompt, User: "ping"})
	if err != nil {
		return err
	}
	latency := time.Since(start).Round(time.Millisecond)
	if _, isJSON := w.(*output.JSONWriter); isJSON {
		return w.Write(out, map[string]any{
			"client":     c.Name(),
			"endpoint":   resp.Endpoint,
			"endpoints":  c.Endpoints(),
			"latency_ms": latency.Milliseconds(),
			"ok":         true,
		})
	}
	r := output.Report{
		Title: "LLM doctor",
		Fields: []output.Field{
			{Label: "Client", Value: c.Name()},
			{Label: "Answered by", Value: resp.Endpoint},
			{Label: "Endpoints", Value: strings.Join(c.Endpoints(), ", ")},
			{Label: "Latency", Value: latency.String()},
			{Label: "Status", Value: "ok"},
		},
	}
	return w.Write(out, r)
}
