package revision

// Group is a set of names sharing one base name. Members are indices into
// the slice passed to GroupByBase, in scan order.
type Group struct {
	BaseName string
	Members  []int
}

// GroupByBase groups names by parsed base name, preserving first-seen group
// order and member order.
func GroupByBase(names []string) []Group {
	var groups []Group
	index := make(map[string]int)

	for i, name := range names {
		base := ParseFileName(name).BaseName
		pos, ok := index[base]
		if !ok {
			pos = len(groups)
			index[base] = pos
			groups = append(groups, Group{BaseName: base})
		}
		groups[pos].Members = append(groups[pos].Members, i)
	}

	return groups
}

// ResolveLatest returns, for each name, whether it is the latest revision of
// its group. With the filter disabled every name is latest. Within a group
// the strictly greatest revision wins and ties go to the first member.
func ResolveLatest(names []string, filterEnabled bool) []bool {
	latest := make([]bool, len(names))
	if !filterEnabled {
		for i := range latest {
			latest[i] = true
		}
		return latest
	}

	for _, group := range GroupByBase(names) {
		latest[Latest(names, group)] = true
	}

	return latest
}

// Latest returns the index of the winning member of group.
func Latest(names []string, group Group) int {
	best := group.Members[0]
	bestRevision := ParseFileName(names[best]).Revision

	for _, idx := range group.Members[1:] {
		if rev := ParseFileName(names[idx]).Revision; rev > bestRevision {
			best = idx
			bestRevision = rev
		}
	}

	return best
}
