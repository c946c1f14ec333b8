package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/creations-api/internal/service"
	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue lengths and lock state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRefresh(cmd.Context(), func(refresh service.RefreshService) error {
				status, err := refresh.Status(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, status)
				}

				out := cmd.OutOrStdout()
				if !status.Configured {
					fmt.Fprintln(out, "Amazon integration is not configured; steps are no-ops")
				}
				fmt.Fprint(out, renderQueueTable(status.Queues))
				return nil
			})
		},
	}
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Queue relations and products whose metadata is about to expire",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRefresh(cmd.Context(), func(refresh service.RefreshService) error {
				result, err := refresh.Sweep(cmd.Context(), force)
				if err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, result)
				}

				out := cmd.OutOrStdout()
				if result.Skipped {
					fmt.Fprintf(out, "Sweep skipped: %s\n", result.Reason)
					return nil
				}
				fmt.Fprintf(out, "Sweep %s\n", result.RunID)
				fmt.Fprintf(out, "  relations: %d found, %d queued\n", result.RelationsFound, result.RelationsQueued)
				fmt.Fprintf(out, "  products:  %d found, %d queued\n", result.ProductsFound, result.ProductsQueued)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Ignore the sweep interval guard")
	return cmd
}

func newStepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "step [relations|products]",
		Short:     "Process one item from a refresh queue (both when no queue is given)",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{service.TargetRelations, service.TargetProducts},
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := []string{service.TargetRelations, service.TargetProducts}
			if len(args) == 1 {
				targets = args
			}

			return ctx.withRefresh(cmd.Context(), func(refresh service.RefreshService) error {
				results := make(map[string]bool, len(targets))
				for _, target := range targets {
					step := refresh.StepRelations
					if target == service.TargetProducts {
						step = refresh.StepProducts
					}
					processed, err := step(cmd.Context())
					if err != nil {
						return fmt.Errorf("step %s: %w", target, err)
					}
					results[target] = processed
				}

				if ctx.jsonOutput {
					return writeJSON(cmd, results)
				}
				for _, target := range targets {
					state := "nothing to do"
					if results[target] {
						state = "processed one item"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", target, state)
				}
				return nil
			})
		},
	}
}

func newPushCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "push <relations|products> <id>...",
		Short: "Queue specific rows for refresh",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			ids := make([]int64, 0, len(args)-1)
			for _, raw := range args[1:] {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid id %q", raw)
				}
				ids = append(ids, id)
			}

			return ctx.withRefresh(cmd.Context(), func(refresh service.RefreshService) error {
				added, err := refresh.Enqueue(cmd.Context(), target, ids, force)
				if err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, map[string]int{"added": added})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %d of %d ids on %s\n", added, len(ids), target)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Queue ids even if already present")
	return cmd
}
