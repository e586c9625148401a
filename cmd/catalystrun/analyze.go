package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lowfloat/catalystrun/internal/analyzer"
)

func newAnalyzeCmd() *cobra.Command {
	var sinceDays int

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the historical analyzer once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(sinceDays)
		},
	}
	cmd.Flags().IntVar(&sinceDays, "since-days", 0, "override the analyzer's lookback window, in days (0 = use configured default)")
	return cmd
}

func runAnalyze(sinceDays int) error {
	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	if sinceDays > 0 {
		p.Settings.AnalyzerLookback = time.Duration(sinceDays) * 24 * time.Hour
		p.Analyzer = analyzer.New(p.Settings, p.Cache, p.OutcomeStore)
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := p.Analyzer.Run(ctx, p.Settings.RejectedEventsPath, p.Clock.Now())
	if err != nil {
		return &startupError{class: exitStorageError, err: fmt.Errorf("analyzer run: %w", err)}
	}

	if err := analyzer.WriteRecommendations(p.Settings.RecommendationsPath, report); err != nil {
		return &startupError{class: exitStorageError, err: fmt.Errorf("write recommendations: %w", err)}
	}

	log.Info().
		Int("items_considered", report.ItemsConsidered).
		Int("missed_opportunities", report.MissedCount).
		Int("recommendations", len(report.Recommendations)).
		Str("output", p.Settings.RecommendationsPath).
		Msg("analyzer run complete")
	return nil
}
