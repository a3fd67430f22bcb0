package recipe

// StripNulls removes every nil-valued key from v and from all maps nested
// inside it, including maps held in slices. Slice elements themselves are
// never removed, so positional data such as polyline points keeps its
// indices. v is modified in place and returned.
func StripNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if child == nil {
				delete(t, k)
				continue
			}
			t[k] = StripNulls(child)
		}
	case Recipe:
		StripNulls(map[string]any(t))
	case []any:
		for i, child := range t {
			t[i] = StripNulls(child)
		}
	}
	return v
}
