package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"generic-exporter/internal/app"
)

type peersOptions struct {
	Package string
}

func newPeersCommand() *cobra.Command {
	opts := peersOptions{}
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List peers registered for a package",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPeers(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.Package, "package", "", "Package name")
	return cmd
}

func runPeers(ctx context.Context, opts peersOptions) error {
	settings, err := settingsFromConfig()
	if err != nil {
		return err
	}
	result, err := newAppService(settings).Peers(ctx, app.PeersRequest{PackageName: opts.Package})
	if err != nil {
		return err
	}
	peers := "none"
	if len(result.Peers) > 0 {
		peers = strings.Join(result.Peers, ", ")
	}
	fmt.Printf("package: %s\npeers: %s\nused by other peers: %t\n", result.PackageName, peers, result.UsedByOthers)
	return nil
}
