// Package revision derives base names and revision numbers from uploaded
// file names and picks the latest revision within each base-name group.
package revision

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// NoRevision marks a name without a revision suffix. It is lower than any
// parsed revision, so it never wins a latest-revision comparison.
const NoRevision = -1

// revisionPattern matches "_r3" and "_3". Only a lowercase r is accepted.
var revisionPattern = regexp.MustCompile(`_r?(\d+)`)

// ParsedName is the normalized identity of a file name.
type ParsedName struct {
	BaseName string `json:"base_name"`
	Revision int    `json:"revision"`
}

// HasRevision reports whether a revision suffix was found
func (p ParsedName) HasRevision() bool {
	return p.Revision > NoRevision
}

// ParseFileName extracts the base name and revision from a file name.
// The last revision-like suffix wins, so "drawing_r2_final_r5.pdf" parses to
// base "drawing_r2_final" with revision 5.
func ParseFileName(name string) ParsedName {
	if name == "" {
		return ParsedName{BaseName: "", Revision: NoRevision}
	}

	stem := name
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		stem = name[:idx]
	}

	matches := revisionPattern.FindAllStringSubmatchIndex(stem, -1)
	if len(matches) == 0 {
		return ParsedName{BaseName: strings.ToLower(stem), Revision: NoRevision}
	}

	last := matches[len(matches)-1]
	base := stem[:last[0]]
	base = strings.TrimPrefix(base, "_")
	base = strings.TrimSuffix(base, "_")

	return ParsedName{
		BaseName: strings.ToLower(base),
		Revision: parseDigits(stem[last[2]:last[3]]),
	}
}

// parseDigits converts a run of ASCII digits, saturating on overflow
func parseDigits(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return math.MaxInt
	}
	return n
}
