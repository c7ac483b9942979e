// Package match holds the canonical matched-item model and the pure
// operations over it: normalizing engine records, merging repeated analyses
// and counting results.
package match

// SourceFile identifies the document an item was found in
type SourceFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// RawItem is an engine record as decoded from JSON. Fields may be missing or
// carry unexpected types.
type RawItem map[string]any

// MatchedItem is a single composite-number match shown to the user.
//
// ImageData is nil exactly when IsOcr is true. Excluded and Comment are the
// only fields the user mutates; items are never removed, only excluded.
type MatchedItem struct {
	Text            string     `json:"text"`
	CompositeNumber string     `json:"composite_number"`
	Page            int        `json:"page"`
	Grid            string     `json:"grid"`
	ImageData       []byte     `json:"image_data,omitempty"`
	Revision        *int       `json:"revision"`
	Comment         string     `json:"comment"`
	SourceFile      SourceFile `json:"source_file"`
	Excluded        bool       `json:"excluded"`
	IsOcr           bool       `json:"is_ocr"`
}

// Identity is the merge key of an item
type Identity struct {
	Text     string
	Page     int
	Grid     string
	FileName string
}

// Identity returns the (text, page, grid, source name) tuple used for dedup.
func (m MatchedItem) Identity() Identity {
	return Identity{
		Text:     m.Text,
		Page:     m.Page,
		Grid:     m.Grid,
		FileName: m.SourceFile.Name,
	}
}

// Label is the composite number, falling back to the matched text.
func (m MatchedItem) Label() string {
	if m.CompositeNumber != "" {
		return m.CompositeNumber
	}
	return m.Text
}

// AnalysisResult is the outcome of a preliminary per-file analysis. It is
// replaced wholesale, never patched.
type AnalysisResult struct {
	Total  int           `json:"total"`
	Unique int           `json:"unique"`
	Items  []MatchedItem `json:"items"`
	Error  string        `json:"error,omitempty"`
}

// FailedAnalysis builds the result recorded for a file whose analysis failed.
func FailedAnalysis(err error) *AnalysisResult {
	return &AnalysisResult{Items: []MatchedItem{}, Error: err.Error()}
}

// Summary holds aggregate counts for display
type Summary struct {
	Total  int `json:"total"`
	Unique int `json:"unique"`
}
