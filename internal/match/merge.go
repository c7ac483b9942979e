package match

// Merge appends the items of incoming whose identity is not already present
// to a copy of existing. Existing items keep their order and content; novel
// incoming items follow in their original order. A later duplicate is dropped
// whole, never merged field by field.
func Merge(existing, incoming []MatchedItem) []MatchedItem {
	out := make([]MatchedItem, len(existing), len(existing)+len(incoming))
	copy(out, existing)

	seen := make(map[Identity]struct{}, len(existing)+len(incoming))
	for _, it := range existing {
		seen[it.Identity()] = struct{}{}
	}

	for _, it := range incoming {
		key := it.Identity()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}

	return out
}

// Count returns the number of non-excluded items and the number of distinct
// labels among them.
func Count(items []MatchedItem) Summary {
	unique := make(map[string]struct{})
	total := 0

	for _, it := range items {
		if it.Excluded {
			continue
		}
		total++
		unique[it.Label()] = struct{}{}
	}

	return Summary{Total: total, Unique: len(unique)}
}

// Active returns the non-excluded items
func Active(items []MatchedItem) []MatchedItem {
	out := make([]MatchedItem, 0, len(items))
	for _, it := range items {
		if !it.Excluded {
			out = append(out, it)
		}
	}
	return out
}
