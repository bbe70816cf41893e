package ports

import (
	"context"

	"generic-exporter/internal/types"
)

// PackageManagerPort is the host package manager boundary. Every call is
// fallible and none of them retries on its own.
type PackageManagerPort interface {
	Install(ctx context.Context, name string, revision int, classic bool) error
	// Remove succeeds when the package is already absent.
	Remove(ctx context.Context, name string) error
	// Ensure moves an installed package to the given revision/confinement.
	Ensure(ctx context.Context, name string, revision int, classic bool) error
	Set(ctx context.Context, name string, config map[string]any) error
	Unset(ctx context.Context, name string, keys []string) error
	Get(ctx context.Context, name string) (map[string]any, error)
	Connect(ctx context.Context, name string, plugs []string) error
	Start(ctx context.Context, name string, enable bool) error
	Stop(ctx context.Context, name string, disable bool) error
	Services(ctx context.Context, name string) (map[string]types.ServiceStatus, error)
	Version(ctx context.Context, name string) (string, error)
}

// PackageInfoPort resolves store metadata for a package. An empty
// channel still returns confinement, with a zero revision.
type PackageInfoPort interface {
	Info(ctx context.Context, name string, channel string) (types.PackageInfo, error)
}
