package cmds

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-go-golems/cozykitchen/pkg/hosting"
	"github.com/go-go-golems/cozykitchen/pkg/planner"
	"github.com/spf13/cobra"
)

func NewPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <goal...>",
		Short: "Create a plan for a single goal and optionally run it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			execute, err := cmd.Flags().GetBool("execute")
			if err != nil {
				return err
			}

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("allow-loops") {
				settings.Planner.AllowLoops, err = cmd.Flags().GetBool("allow-loops")
				if err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			svc, err := newPlannerService(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), settings)
			if err != nil {
				return err
			}

			return runPlan(ctx, cmd, svc, strings.Join(args, " "), execute)
		},
	}
	cmd.Flags().Bool("execute", false, "Run the plan and print its result")
	cmd.Flags().Bool("allow-loops", true, "Allow range loops in the plan")
	return cmd
}

// runPlan prints the plan, and its result when execute is set. A plan that
// could not be created is printed once and fails the command.
func runPlan(ctx context.Context, cmd *cobra.Command, svc *hosting.PlannerService, goal string, execute bool) error {
	plan, err := svc.CreatePlan(ctx, goal)
	if err != nil {
		if pce, ok := planner.AsPlanCreationError(err); ok {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), hosting.FormatPlanCreationError(pce))
			cmd.SilenceErrors = true
		}
		return err
	}

	if err := svc.PrintPlan(plan); err != nil {
		return err
	}
	if !execute {
		return nil
	}
	return svc.ExecutePlan(ctx, plan)
}
