package cmd

import "github.com/spf13/cobra"

func Execute() error {
	rootCmd, cleanup := newRootCmd()
	defer func() { _ = cleanup() }()
	return rootCmd.Execute()
}

// newRootCmd assembles the command tree. The returned cleanup releases
// process-wide resources (currently the log file handle) after the command
// finishes.
func newRootCmd() (*cobra.Command, func() error) {
	rootCmd := &cobra.Command{
		Use:           "vrcwatch",
		Short:         "vrcwatch: desktop notifications for VRChat friend activity",
		Long:          "vrcwatch logs into VRChat, watches the streaming pipeline for friend online/offline/location/status changes, and raises desktop notifications for them.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd, func() error { return nil }
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newWatchCmd(app),
		newSnapshotCmd(app),
	)

	return rootCmd, app.logClose
}
