package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newDumpAlertsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump-alerts",
		Short: "Print the alert rules installed for this peer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDumpAlerts(cmd.Context())
		},
	}
}

func runDumpAlerts(ctx context.Context) error {
	settings, err := settingsFromConfig()
	if err != nil {
		return err
	}
	result, err := newAppService(settings).DumpAlerts(ctx)
	if err != nil {
		return err
	}
	if !result.Found {
		fmt.Println("no alerts configured")
		return nil
	}
	fmt.Printf("configured alerts (%s):\n%s\n", result.Path, result.Content)
	return nil
}
