package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazuki-dev/vrcwatch/internal/domain"
	"github.com/hazuki-dev/vrcwatch/internal/snapshot"
)

func newSnapshotCmd(app *app) *cobra.Command {
	var targetIDs []string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Log in and print current friend states, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.settings.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			_, name, err := app.session.EnsureLogin(ctx)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in as:", name)

			targets := domain.NewTargetSet(targetIDs)
			if targets.Len() == 0 {
				targets = domain.NewTargetSet(app.directory.FetchAllFriendIDs(ctx))
			}

			snapshot.NewService(app.directory, app.logger, cmd.OutOrStdout()).Run(ctx, targets)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&targetIDs, "target", nil,
		"Friend user id to include (repeatable; default: the entire friend list)")

	return cmd
}
