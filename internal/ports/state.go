package ports

import "generic-exporter/internal/types"

type StateStorePort interface {
	Load() (types.AppliedState, error)
	Save(state types.AppliedState) error
}
