package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the cycle loop and run until signal",
		RunE:  runRun,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := signalContext()
	defer cancel()

	log.Info().Str("version", version).Msg("catalystrun starting")
	err = p.Run(ctx)
	if err != nil && ctx.Err() != nil {
		log.Info().Msg("shutdown signal received")
		return ctx.Err()
	}
	return err
}
