package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/flowsim/graph"
	"github.com/dshills/flowsim/graph/store"
)

type simulateFlags struct {
	seed         int64
	approvalRate float64
	noDelay      bool
	events       bool
	save         bool
	workflowID   string
}

func newSimulateCmd(c *cli) *cobra.Command {
	var f simulateFlags
	cmd := &cobra.Command{
		Use:   "simulate FILE",
		Short: "Simulate a workflow run step by step",
		Long: `Simulate validates a workflow document and, if it is valid, runs every
node in execution order with a simulated delay. Approval steps are decided
by the configured approval mode; --approval-rate switches to random
approvals with the given probability.

Exit codes:
  0 - run completed
  1 - workflow invalid or a step failed
  2 - file could not be read or configuration is invalid`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("seed") {
				c.cfg.Approval.Seed = f.seed
			}
			if cmd.Flags().Changed("approval-rate") {
				if f.approvalRate < 0 || f.approvalRate > 1 {
					return WrapError(ExitUsage, "--approval-rate must be between 0 and 1", nil)
				}
				c.cfg.Approval.Mode = "random"
				c.cfg.Approval.Rate = f.approvalRate
			}
			if f.noDelay {
				c.cfg.Simulation.MinDelay, c.cfg.Simulation.MaxDelay = 0, 0
			}
			return c.simulate(cmd, args[0], f)
		},
	}
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Seed for random approvals")
	cmd.Flags().Float64Var(&f.approvalRate, "approval-rate", 0, "Approve with this probability (0..1)")
	cmd.Flags().BoolVar(&f.noDelay, "no-delay", false, "Skip the simulated step delay")
	cmd.Flags().BoolVar(&f.events, "events", false, "Log step events to stderr")
	cmd.Flags().BoolVar(&f.save, "save", false, "Store the run result in the configured store")
	cmd.Flags().StringVar(&f.workflowID, "workflow-id", "", "Workflow id to record the run against (with --save)")
	return cmd
}

func (c *cli) simulate(cmd *cobra.Command, path string, f simulateFlags) error {
	ctx := cmd.Context()
	doc, err := loadDocument(path)
	if err != nil {
		return err
	}
	cat, err := c.newCatalog()
	if err != nil {
		return err
	}

	var events io.Writer
	if f.events {
		events = cmd.ErrOrStderr()
	}
	opts, shutdown, err := c.runnerOptions(cat, events)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()

	runner, err := graph.NewRunner(opts...)
	if err != nil {
		return WrapError(ExitUsage, "failed to create runner", err)
	}

	out := cmd.OutOrStdout()
	var onStep graph.StepFunc
	if c.format == FormatText {
		onStep = func(s graph.StepRecord) { printStep(out, s) }
	}
	result := runner.Run(ctx, doc.Nodes, doc.Edges, onStep)

	if f.save {
		st, err := store.Open(ctx, c.cfg.Store.Driver, c.cfg.Store.DSN)
		if err != nil {
			return WrapError(ExitUsage, "failed to open store", err)
		}
		defer st.Close()
		if _, err := store.PutRun(ctx, st, f.workflowID, result); err != nil {
			return WrapError(ExitFailure, "failed to save run", err)
		}
	}

	if err := render(out, c.format, result, func(w io.Writer) error {
		printRunSummary(w, result)
		return nil
	}); err != nil {
		return err
	}
	if !result.Success {
		return WrapError(ExitFailure, "simulation failed", nil)
	}
	return nil
}

// printStep prints terminal step transitions only.
func printStep(w io.Writer, s graph.StepRecord) {
	if s.Status == graph.StepRunning {
		return
	}
	var ms int64
	if s.Duration != nil {
		ms = *s.Duration
	}
	if s.Status == graph.StepError {
		fmt.Fprintf(w, "  ✗ %-28s %6dms  %s\n", s.Title, ms, s.Error)
		return
	}
	fmt.Fprintf(w, "  ✓ %-28s %6dms  %v\n", s.Title, ms, s.Output["message"])
}

func printRunSummary(w io.Writer, r graph.RunResult) {
	if r.Validation != nil {
		printValidation(w, *r.Validation)
	}
	if r.Success {
		fmt.Fprintf(w, "Run %s completed: %d step(s) in %dms\n", r.RunID, len(r.Steps), r.TotalDuration)
		return
	}
	fmt.Fprintf(w, "Run %s failed: %s\n", r.RunID, r.Error)
}
