package ports

import "context"

// SecretSourcePort fetches the configuration overlay stored in a secret.
// Access failures use not-found/permission-denied codes, malformed content
// uses invalid-argument.
type SecretSourcePort interface {
	Fetch(ctx context.Context, secretID string) (map[string]any, error)
}
