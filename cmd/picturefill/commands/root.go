// Package commands implements the picturefill command line interface.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giobyte8/picturefill/internal/config"
	"github.com/giobyte8/picturefill/internal/models"
	"github.com/giobyte8/picturefill/internal/resize"
	"github.com/giobyte8/picturefill/internal/services"
	"github.com/giobyte8/picturefill/internal/telemetry"
)

// Set at build time through -ldflags
var (
	Version = "dev"
	Commit  = "none"
)

// CLI represents the command line interface for picturefill.
type CLI struct {
	telemetry *telemetry.TelemetrySvc
	rootCmd   *cobra.Command

	taskFilePath string
	engineName   string
	concurrency  int

	// Set when PICTUREFILL_CONCURRENCY is not a number
	envErr error
}

// New creates the CLI. Flag defaults come from the environment
// (PICTUREFILL_ENGINE, PICTUREFILL_CONCURRENCY).
func New(telemetry *telemetry.TelemetrySvc) *CLI {
	rootCmd := &cobra.Command{
		Use:           "picturefill",
		Short:         "Resize images into responsive breakpoint variants",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	c := &CLI{
		telemetry: telemetry,
		rootCmd:   rootCmd,
	}

	defaultConcurrency, err := envIntOr("PICTUREFILL_CONCURRENCY", 0)
	if err != nil {
		slog.Error("Invalid PICTUREFILL_CONCURRENCY", "error", err)
		c.envErr = err
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(
		&c.taskFilePath,
		"config", "c",
		config.DefaultTaskFile,
		"Path to the task file",
	)
	flags.StringVarP(
		&c.engineName,
		"engine", "e",
		envOr("PICTUREFILL_ENGINE", resize.EngineImaging),
		fmt.Sprintf("Image engine, one of %v", resize.EngineNames),
	)
	flags.IntVarP(
		&c.concurrency,
		"concurrency", "j",
		defaultConcurrency,
		"Max resize operations in flight, 0 for no limit",
	)

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// prepare loads the task file and builds a coordinator from the
// global flags.
func (c *CLI) prepare() (*models.TaskFile, *services.Coordinator, error) {
	// An explicit --concurrency makes the environment value irrelevant
	if c.envErr != nil && !c.rootCmd.PersistentFlags().Changed("concurrency") {
		return nil, nil, c.envErr
	}
	if c.concurrency < 0 {
		return nil, nil, fmt.Errorf("--concurrency must not be negative")
	}

	engine, err := resize.NewEngine(c.engineName)
	if err != nil {
		return nil, nil, err
	}

	taskFile, err := config.Load(c.taskFilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", c.taskFilePath, err)
	}

	coordinator := services.NewCoordinator(
		services.CoordinatorConfig{Concurrency: c.concurrency},
		engine,
		c.telemetry,
	)
	return taskFile, coordinator, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return v, nil
}
