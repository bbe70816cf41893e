package policies

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"

	"generic-exporter/internal/types"
)

func ParseMergePolicy(value string) (types.MergePolicy, error) {
	switch types.MergePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", types.MergePolicyUnequal:
		return types.MergePolicyUnequal, nil
	case types.MergePolicyStrict:
		return types.MergePolicyStrict, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown merge policy: %s", value))
	}
}

// LeafConflict reports whether two values colliding at the same path,
// where at least one of them is not a map, must fail the merge.
func LeafConflict(policy types.MergePolicy, base any, overlay any) bool {
	if policy == types.MergePolicyStrict {
		return true
	}
	return !cmp.Equal(base, overlay)
}
