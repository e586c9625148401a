package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const bootstrapDateLayout = "2006-01-02"

func newBootstrapCmd() *cobra.Command {
	var startStr, endStr, sourcesStr string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Batch-fetch a historical window of feed items to seed the analyzer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(startStr, endStr, sourcesStr)
		},
	}
	cmd.Flags().StringVar(&startStr, "start", "", "window start date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&endStr, "end", "", "window end date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&sourcesStr, "sources", "", "comma-separated fetcher names to limit the backfill to (default: all registered sources)")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func runBootstrap(startStr, endStr, sourcesStr string) error {
	start, err := time.Parse(bootstrapDateLayout, startStr)
	if err != nil {
		return &startupError{class: exitConfigError, err: fmt.Errorf("invalid --start: %w", err)}
	}
	end, err := time.Parse(bootstrapDateLayout, endStr)
	if err != nil {
		return &startupError{class: exitConfigError, err: fmt.Errorf("invalid --end: %w", err)}
	}
	end = end.Add(24*time.Hour - time.Nanosecond) // inclusive end-of-day

	if end.Before(start) {
		return &startupError{class: exitConfigError, err: fmt.Errorf("--end %s precedes --start %s", endStr, startStr)}
	}

	var sources []string
	if sourcesStr != "" {
		for _, s := range strings.Split(sourcesStr, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sources = append(sources, s)
			}
		}
	}

	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := signalContext()
	defer cancel()

	stats, err := p.Bootstrap(ctx, start, end, sources)
	if err != nil {
		return &startupError{class: exitStorageError, err: fmt.Errorf("bootstrap run: %w", err)}
	}

	log.Info().
		Int("fetched", stats.Fetched).
		Int("accepted", stats.Accepted).
		Int("rejected", stats.Rejected).
		Int("skipped", stats.Skipped).
		Msg("bootstrap complete")
	return nil
}
