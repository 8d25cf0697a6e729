package cmds

import (
	"context"

	"github.com/go-go-golems/cozykitchen/pkg/hosting"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewPlannerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "planner",
		Short: "Ask for something, get a plan, run it, repeat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			app := hosting.NewApp(settings,
				hosting.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout()),
				log.Logger)
			if err := app.Err(); err != nil {
				return err
			}

			startCtx, cancelStart := context.WithTimeout(cmd.Context(), app.StartTimeout())
			defer cancelStart()
			if err := app.Start(startCtx); err != nil {
				return err
			}

			signal := <-app.Wait()

			stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
			defer cancelStop()
			if err := app.Stop(stopCtx); err != nil {
				return err
			}

			if signal.ExitCode != 0 {
				return errors.Errorf("planner exited with code %d", signal.ExitCode)
			}
			return nil
		},
	}
}
