package session

import (
	"strings"

	"github.com/a3tai/pdf-annotator/internal/match"
	"github.com/a3tai/pdf-annotator/internal/revision"
)

// FileView is an uploaded file as the list shows it
type FileView struct {
	UploadedFile
	BaseName string `json:"base_name"`
	Revision int    `json:"revision"`
	// Hidden files do not match the text filter.
	Hidden bool `json:"hidden"`
	// Superseded files lost to a later revision under the revision filter.
	Superseded bool `json:"superseded"`
}

// Active reports whether the file takes part in a full analysis
func (v FileView) Active() bool {
	return !v.Hidden && !v.Superseded && v.Path != ""
}

// FileViews derives per-file visibility. Only visible files compete in the
// revision filter; hidden files are never marked superseded.
func FileViews(s State) []FileView {
	views := make([]FileView, len(s.Files))
	filter := strings.ToLower(s.FilterText)

	var visibleNames []string
	var visibleIdx []int

	for i, f := range s.Files {
		parsed := revision.ParseFileName(f.Name)
		views[i] = FileView{
			UploadedFile: f,
			BaseName:     parsed.BaseName,
			Revision:     parsed.Revision,
			Hidden:       !strings.Contains(strings.ToLower(f.Name), filter),
		}
		if !views[i].Hidden {
			visibleNames = append(visibleNames, f.Name)
			visibleIdx = append(visibleIdx, i)
		}
	}

	latest := revision.ResolveLatest(visibleNames, s.RevisionFilter)
	for j, idx := range visibleIdx {
		views[idx].Superseded = !latest[j]
	}

	return views
}

// ActivePaths lists the paths a full analysis would send, in list order
func ActivePaths(s State) []string {
	var paths []string
	for _, v := range FileViews(s) {
		if v.Active() {
			paths = append(paths, v.Path)
		}
	}
	return paths
}

// TotalMatches counts non-excluded final items once an analysis produced
// any, and otherwise sums the preliminary totals of non-superseded files.
func TotalMatches(s State) int {
	if len(s.Items) > 0 {
		return match.Count(s.Items).Total
	}

	total := 0
	for _, v := range FileViews(s) {
		if v.Superseded || v.AnalysisResult == nil {
			continue
		}
		total += v.AnalysisResult.Total
	}
	return total
}
