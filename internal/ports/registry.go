package ports

import "context"

// RegistryPort is the peer coordination registry shared by every
// instance on the host.
type RegistryPort interface {
	Register(ctx context.Context, peerID string, packageName string) error
	// Unregister fails with a not-found error when no record exists.
	Unregister(ctx context.Context, peerID string, packageName string) error
	ListPeers(ctx context.Context, packageName string) ([]string, error)
	IsUsedByOtherUnits(ctx context.Context, selfPeerID string, packageName string) (bool, error)
}
