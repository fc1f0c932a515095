package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/flowsim/internal/config"
)

// cli is the state shared by all commands of one invocation.
type cli struct {
	flags  GlobalFlags
	format OutputFormat
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "flowsim",
		Short: "Validate and simulate workflow graphs",
		Long: `flowsim checks workflow documents for structural problems, computes
their execution order and simulates runs step by step.

Configuration is read from --config (YAML) and FLOWSIM_* environment
variables, e.g. FLOWSIM_STORE_DRIVER=sqlite.`,
		PersistentPreRunE: c.load,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	RegisterGlobalFlags(root, &c.flags)

	root.AddCommand(
		newValidateCmd(c),
		newOrderCmd(c),
		newSimulateCmd(c),
		newCatalogCmd(c),
		newServeCmd(c),
	)
	return root
}

// Execute runs cmd, cancelling its context on SIGINT or SIGTERM.
func Execute(ctx context.Context, cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return cmd.ExecuteContext(ctx)
}

// load resolves flags and configuration before any command runs.
func (c *cli) load(cmd *cobra.Command, _ []string) error {
	format, err := c.flags.Format()
	if err != nil {
		return err
	}
	c.format = format

	cfg, err := config.Load(c.flags.ConfigFile)
	if err != nil {
		return WrapError(ExitUsage, "failed to load configuration", err)
	}
	flagged := config.Config{Log: config.LogConfig{Level: c.flags.LogLevel, Format: c.flags.LogFormat}}
	if err := cfg.Override(flagged); err != nil {
		return WrapError(ExitUsage, "invalid configuration", err)
	}
	if err := config.Validate(cfg); err != nil {
		return WrapError(ExitUsage, "invalid configuration", err)
	}
	c.cfg = cfg
	c.logger = cfg.Log.NewLogger(cmd.ErrOrStderr())
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(ExitUsage, "failed to read workflow file", err)
	}
	return data, nil
}
