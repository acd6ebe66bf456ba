// Command chart-summary reads one patient's chart from the command line: the
// narrative summary as text or HTML, or a single section as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wolfman30/chart-console/cmd/mainconfig"
	"github.com/wolfman30/chart-console/internal/app/bootstrap"
	"github.com/wolfman30/chart-console/internal/clinical"
	appconfig "github.com/wolfman30/chart-console/internal/config"
	"github.com/wolfman30/chart-console/internal/narrative"
	"github.com/wolfman30/chart-console/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	rootCmd := &cobra.Command{
		Use:          "chart-summary",
		Short:        "Read a patient chart from the record store",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Duration("timeout", 2*time.Minute, "overall deadline; 0 means none")

	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(sectionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <patient-id>",
		Short: "Generate the narrative summary for a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asHTML, _ := cmd.Flags().GetBool("html")
			ctx, cancel := commandContext(cmd)
			defer cancel()

			cfg := appconfig.Load()
			logger := logging.New(cfg.LogLevel)
			chart, cleanup, err := buildChart(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer cleanup()
			return printSummary(ctx, chart.Pipeline, args[0], asHTML, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("html", false, "print HTML instead of text")
	return cmd
}

func sectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "section <patient-id> <category>",
		Short: "Load one chart section and print it as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := clinical.ParseCategory(args[1])
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			cfg := appconfig.Load()
			logger := logging.New(cfg.LogLevel)
			chart, cleanup, err := buildChart(ctx, cfg, logger, category == clinical.CategorySummary)
			if err != nil {
				return err
			}
			defer cleanup()
			return printSection(ctx, chart.Store, clinical.Key{PatientID: args[0], Category: category}, cmd.OutOrStdout())
		},
	}
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

// buildChart wires a chart session. Summaries are only required when the
// command needs them.
func buildChart(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, needSummary bool) (*bootstrap.Chart, func(), error) {
	summarizer, err := bootstrap.BuildSummarizer(ctx, cfg, mainconfig.LoadAWSConfig, logger)
	if err != nil {
		return nil, nil, err
	}
	if summarizer == nil && needSummary {
		return nil, nil, clinical.ErrSummaryUnavailable
	}

	cleanup := func() {}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		cleanup = func() { _ = redisClient.Close() }
	}

	chart, err := bootstrap.BuildChart(cfg, bootstrap.ChartDeps{
		Summarizer: summarizer,
		Narratives: bootstrap.BuildNarrativeStore(redisClient, cfg, logger),
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return chart, cleanup, nil
}

func printSummary(ctx context.Context, pipeline *clinical.SummaryPipeline, patientID string, asHTML bool, out io.Writer) error {
	text, err := pipeline.Load(ctx, patientID)
	if err != nil {
		if step, ok := clinical.FailedStep(err); ok {
			return fmt.Errorf("%s step failed: %w", step, err)
		}
		return err
	}

	blocks := narrative.Parse(text)
	if asHTML {
		_, err = io.WriteString(out, narrative.RenderHTML(blocks))
		return err
	}
	_, err = io.WriteString(out, narrative.RenderText(blocks))
	return err
}

func printSection(ctx context.Context, store *clinical.Store, key clinical.Key, out io.Writer) error {
	entry, err := store.Load(ctx, key)
	if err != nil {
		return err
	}
	if entry.Status == clinical.StatusError {
		return fmt.Errorf("%s: %s", key, entry.Error)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(entry.Data)
}
