package core

import (
	"fmt"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"generic-exporter/internal/policies"
	"generic-exporter/internal/types"
)

const configKeySeparator = "."

// FlattenConfig joins nested map keys with dots. Non-map values end the
// recursion; empty nested maps contribute no keys.
func FlattenConfig(data map[string]any, prefix string) map[string]any {
	flat := map[string]any{}
	for key, value := range data {
		path := key
		if prefix != "" {
			path = prefix + configKeySeparator + key
		}
		if nested, ok := asConfigMap(value); ok {
			for nestedKey, nestedValue := range FlattenConfig(nested, path) {
				flat[nestedKey] = nestedValue
			}
			continue
		}
		flat[path] = value
	}
	return flat
}

// MergeConfig deep-merges overlay into a copy of base. Keys missing from
// base are inserted, maps present on both sides are merged recursively and
// any other collision is judged by the merge policy.
func MergeConfig(base map[string]any, overlay map[string]any, policy types.MergePolicy) (map[string]any, error) {
	return mergeConfigAt(base, overlay, policy, "")
}

func mergeConfigAt(base map[string]any, overlay map[string]any, policy types.MergePolicy, path string) (map[string]any, error) {
	result := make(map[string]any, len(base)+len(overlay))
	for key, value := range base {
		result[key] = value
	}
	for _, key := range sortedKeys(overlay) {
		value := overlay[key]
		current := key
		if path != "" {
			current = path + configKeySeparator + key
		}
		existing, found := result[key]
		if !found {
			result[key] = value
			continue
		}
		existingMap, existingIsMap := asConfigMap(existing)
		valueMap, valueIsMap := asConfigMap(value)
		if existingIsMap && valueIsMap {
			merged, err := mergeConfigAt(existingMap, valueMap, policy, current)
			if err != nil {
				return nil, err
			}
			result[key] = merged
			continue
		}
		if policies.LeafConflict(policy, existing, value) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg(fmt.Sprintf("config conflict at key: %s", current))
		}
	}
	return result, nil
}

// KeysToUnset returns the keys of oldFlat that are absent from newFlat,
// sorted. Package configuration persists between configure calls, so a
// key dropped from the desired config has to be retracted explicitly.
func KeysToUnset(oldFlat map[string]any, newFlat map[string]any) []string {
	var keys []string
	for key := range oldFlat {
		if _, ok := newFlat[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func asConfigMap(value any) (map[string]any, bool) {
	nested, ok := value.(map[string]any)
	return nested, ok
}

func sortedKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
