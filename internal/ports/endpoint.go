package ports

import "context"

type EndpointPort interface {
	Reachable(ctx context.Context, url string) bool
}
