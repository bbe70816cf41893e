package ports

import "generic-exporter/internal/types"

// DesiredSpecPort loads raw operator input from wherever it is declared.
type DesiredSpecPort interface {
	LoadDesiredSpec(path string) (types.DesiredSpecInput, error)
}
