package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"generic-exporter/internal/app"
)

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Release this peer's package and remove it when no other peer holds it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRemove(cmd.Context())
		},
	}
}

func runRemove(ctx context.Context) error {
	settings, err := settingsFromConfig()
	if err != nil {
		return err
	}
	result, err := newAppService(settings).Remove(ctx, app.RemoveRequest{})
	if err != nil {
		return err
	}
	if result.PackageName == "" {
		fmt.Println("nothing installed")
		return nil
	}
	fmt.Printf("released: %s\n", result.PackageName)
	return nil
}
