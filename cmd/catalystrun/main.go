// Command catalystrun runs the market-catalyst ingestion and alerting
// pipeline: it polls SEC EDGAR and newswire feeds for low-priced U.S.
// equities, classifies items against market context, and dispatches
// alerts for anything that clears the admission bar.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/lowfloat/catalystrun/internal/pipeline"
)

const (
	appName = "catalystrun"
	version = "v1.0.0"
)

// Exit codes per spec.md §6.
const (
	exitOK            = 0
	exitConfigError   = 2
	exitStorageError  = 3
	exitInterrupted   = 130
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if isTerminal(os.Stderr) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Market-catalyst ingestion and alerting pipeline",
		Version: version,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newBootstrapCmd())
	rootCmd.AddCommand(newHealthcheckCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(exitFromError(err))
	}
}

// isTerminal reports whether f looks like an interactive terminal, so
// log output switches from the human-friendly console writer to plain
// JSON when running under a supervisor or in CI.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// buildPipeline loads settings and wires every component, logging and
// translating the two distinct startup failure classes spec.md §6 names:
// configuration errors and unrecoverable storage errors.
func buildPipeline() (*pipeline.Pipeline, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, &startupError{class: exitConfigError, err: err}
	}

	p, err := pipeline.Build(settings)
	if err != nil {
		return nil, &startupError{class: exitStorageError, err: err}
	}
	return p, nil
}

// startupError tags a setup-time failure with the exit code it should
// produce, so main can report a single os.Exit at the end of Execute
// without cobra's own usage-printing error path losing the distinction.
type startupError struct {
	class int
	err   error
}

func (e *startupError) Error() string { return e.err.Error() }
func (e *startupError) Unwrap() error { return e.err }

func exitFromError(err error) int {
	var se *startupError
	if errors.As(err, &se) {
		return se.class
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	return 1
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, mirroring
// the teacher's interrupt-handling idiom.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
