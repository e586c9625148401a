package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newHealthcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Report the same liveness counters as /healthz, without needing network access to the admin port",
		RunE:  runHealthcheck,
	}
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	ok, unhealthyProviders := p.Cache.Healthy()
	fallback := p.Dedup.IsFallback()
	dedupSize := p.Dedup.Size()

	fmt.Printf("cache_healthy=%t unhealthy_providers=%v\n", ok, unhealthyProviders)
	fmt.Printf("dedup_fallback=%t dedup_entries=%d\n", fallback, dedupSize)
	fmt.Printf("session=%s\n", p.Clock.CurrentSession())

	if !ok {
		log.Warn().Strs("unhealthy_providers", unhealthyProviders).Msg("healthcheck: one or more market data providers unhealthy")
		return &startupError{class: exitStorageError, err: fmt.Errorf("cache unhealthy: %v", unhealthyProviders)}
	}
	return nil
}
