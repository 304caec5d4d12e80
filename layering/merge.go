// Package layering merges document trees made of mappings, sequences and
// scalars.
package layering

// MergeLayers composes documents ordered from strongest to weakest, returning
// a new document that keeps every key set by a stronger layer while filling
// missing keys from weaker ones. Inputs are not modified.
func MergeLayers(layers ...map[string]any) map[string]any {
	if len(layers) == 0 {
		return nil
	}
	merged := cloneMap(layers[len(layers)-1])
	for i := len(layers) - 2; i >= 0; i-- {
		merged = MergeDocuments(layers[i], merged)
	}
	return merged
}

// MergeDocuments returns a copy of strong with keys missing from it filled
// from weak. When both sides hold a mapping under the same key the mappings
// are merged recursively; otherwise strong wins, including explicit nulls.
func MergeDocuments(strong, weak map[string]any) map[string]any {
	if strong == nil {
		return cloneMap(weak)
	}
	result := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		result[key] = Clone(value)
	}
	for key, value := range strong {
		existing, ok := result[key]
		if !ok {
			result[key] = Clone(value)
			continue
		}
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := existing.(map[string]any)
		if strongIsMap && weakIsMap {
			result[key] = MergeDocuments(strongMap, weakMap)
			continue
		}
		result[key] = Clone(value)
	}
	return result
}

// Clone deep copies mappings and sequences; scalars are returned as is.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Clone(item)
		}
		return out
	default:
		return value
	}
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = Clone(value)
	}
	return out
}
