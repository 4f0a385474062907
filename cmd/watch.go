package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazuki-dev/vrcwatch/internal/domain"
	"github.com/hazuki-dev/vrcwatch/internal/snapshot"
	"github.com/hazuki-dev/vrcwatch/internal/stream"
)

func newWatchCmd(app *app) *cobra.Command {
	var targetIDs []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch friend activity until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.settings.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			token, name, err := app.session.EnsureLogin(ctx)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in as:", name)

			// The target set is fixed for the run; friends added while
			// watching are picked up on the next start.
			targets := domain.NewTargetSet(targetIDs)
			if targets.Len() == 0 {
				targets = domain.NewTargetSet(app.directory.FetchAllFriendIDs(ctx))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Monitoring friends:", targets.Len())

			snapshot.NewService(app.directory, app.logger, cmd.OutOrStdout()).Run(ctx, targets)

			runner := stream.NewRunner(stream.Config{
				Session:   app.session,
				Directory: app.directory,
				Notifier:  app.notifier,
				Logger:    app.logger,
				Targets:   targets,
				UserAgent: app.settings.UserAgent,
				Out:       cmd.OutOrStdout(),
			})
			go runner.RunForever(ctx, token)

			_ = app.notifier.Notify("VRChat", "friend watch started", 5*time.Second)
			fmt.Fprintln(cmd.OutOrStdout(), "Watching... Press Ctrl+C to exit.")

			<-ctx.Done()
			fmt.Fprintln(cmd.OutOrStdout(), "Exiting...")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&targetIDs, "target", nil,
		"Friend user id to watch (repeatable; default: the entire friend list)")

	return cmd
}
