// Package session holds the in-memory working set of a user session: the
// uploaded files, the matched items of the last analysis and the list
// filters. State changes only through Reduce, which never mutates its input.
package session

import (
	"slices"

	"github.com/a3tai/pdf-annotator/internal/match"
)

// UploadedFile is a PDF in the working set
type UploadedFile struct {
	Path           string                `json:"path"`
	Name           string                `json:"name"`
	Pages          int                   `json:"pages"`
	AnalysisResult *match.AnalysisResult `json:"analysis_result,omitempty"`
	IsAnalyzing    bool                  `json:"is_analyzing"`
}

// State is an immutable snapshot of the session
type State struct {
	Files             []UploadedFile
	Items             []match.MatchedItem
	AnalysisCompleted bool
	FilterText        string
	RevisionFilter    bool
	// BatchID is the token of the most recently started analysis. Results
	// carrying any other token are stale.
	BatchID string
}

// Action describes a state transition
type Action interface {
	action()
}

type (
	// AddFiles appends files not already present by path or name. New files
	// start in the analyzing state.
	AddFiles struct{ Files []UploadedFile }
	// RemoveFile drops the file whose path or name equals Path
	RemoveFile struct{ Path string }
	// ClearFiles empties the working set and invalidates any running batch
	ClearFiles struct{}
	// PreliminaryFinished records the quick per-file analysis outcome
	PreliminaryFinished struct {
		Path   string
		Result *match.AnalysisResult
	}
	// AnalysisStarted issues a new batch token
	AnalysisStarted struct{ BatchID string }
	// AnalysisFinished merges a batch's items, if the batch is still current
	AnalysisFinished struct {
		BatchID string
		Items   []match.MatchedItem
	}
	ToggleExclude struct{ Index int }
	SetComment    struct {
		Index   int
		Comment string
	}
	SetFilterText     struct{ Text string }
	SetRevisionFilter struct{ Enabled bool }
)

func (AddFiles) action()            {}
func (RemoveFile) action()          {}
func (ClearFiles) action()          {}
func (PreliminaryFinished) action() {}
func (AnalysisStarted) action()     {}
func (AnalysisFinished) action()    {}
func (ToggleExclude) action()       {}
func (SetComment) action()          {}
func (SetFilterText) action()       {}
func (SetRevisionFilter) action()   {}

// Reduce returns the state after applying a. Slices are copied before any
// change so earlier snapshots stay valid.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case AddFiles:
		files := slices.Clone(s.Files)
		for _, f := range a.Files {
			if containsFile(files, f) {
				continue
			}
			f.IsAnalyzing = true
			f.AnalysisResult = nil
			files = append(files, f)
		}
		s.Files = files

	case RemoveFile:
		s.Files = slices.DeleteFunc(slices.Clone(s.Files), func(f UploadedFile) bool {
			return f.Path == a.Path || f.Name == a.Path
		})

	case ClearFiles:
		s = State{RevisionFilter: s.RevisionFilter}

	case PreliminaryFinished:
		idx := slices.IndexFunc(s.Files, func(f UploadedFile) bool { return fileKey(f) == a.Path })
		if idx < 0 {
			return s
		}
		files := slices.Clone(s.Files)
		files[idx].AnalysisResult = a.Result
		files[idx].IsAnalyzing = false
		s.Files = files

	case AnalysisStarted:
		s.BatchID = a.BatchID

	case AnalysisFinished:
		if a.BatchID == "" || a.BatchID != s.BatchID {
			return s
		}
		s.Items = match.Merge(s.Items, a.Items)
		s.AnalysisCompleted = true

	case ToggleExclude:
		if a.Index < 0 || a.Index >= len(s.Items) {
			return s
		}
		items := slices.Clone(s.Items)
		items[a.Index].Excluded = !items[a.Index].Excluded
		s.Items = items

	case SetComment:
		if a.Index < 0 || a.Index >= len(s.Items) {
			return s
		}
		items := slices.Clone(s.Items)
		items[a.Index].Comment = a.Comment
		s.Items = items

	case SetFilterText:
		s.FilterText = a.Text

	case SetRevisionFilter:
		s.RevisionFilter = a.Enabled
	}

	return s
}

// fileKey identifies a file by path, falling back to name
func fileKey(f UploadedFile) string {
	if f.Path != "" {
		return f.Path
	}
	return f.Name
}

func containsFile(files []UploadedFile, f UploadedFile) bool {
	return slices.ContainsFunc(files, func(ex UploadedFile) bool {
		return (f.Path != "" && ex.Path == f.Path) || ex.Name == f.Name
	})
}
