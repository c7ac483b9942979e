// Package export assembles report requests for the export engine and moves
// the generated artifact to where the user wants it.
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/a3tai/pdf-annotator/internal/match"
	"github.com/a3tai/pdf-annotator/internal/settings"
)

// Format is a report format understood by the export engine
type Format string

const (
	FormatPDF Format = "pdf"
	FormatCSV Format = "csv"
	FormatTXT Format = "txt"
)

// UnknownSource groups items that carry neither a path nor a name
const UnknownSource = "unknown"

// ErrNothingToExport is returned instead of sending an empty payload.
var ErrNothingToExport = errors.New("no items to export")

// ParseFormat accepts pdf, csv or txt in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatCSV, FormatTXT:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format: %q (must be one of: pdf, csv, txt)", s)
	}
}

// Extension returns the file extension for the format, with the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// Record is the flat per-item shape the export engine consumes. UI-only
// state (excluded, OCR badge) does not cross this boundary.
type Record struct {
	Text            string           `json:"text"`
	CompositeNumber string           `json:"composite_number"`
	Page            int              `json:"page"`
	Grid            string           `json:"grid"`
	ImagePNGBase64  string           `json:"image_png_b64"`
	Revision        *int             `json:"revision"`
	Comment         string           `json:"comment"`
	SourceFile      match.SourceFile `json:"sourceFile"`
}

// Group holds the records of one source file
type Group struct {
	FilePath string   `json:"filePath"`
	Items    []Record `json:"items"`
}

// Payload is the export engine request
type Payload struct {
	Format  Format           `json:"format"`
	Options settings.Options `json:"options"`
	Items   []Group          `json:"items"`
}

// Count returns the number of records across all groups
func (p *Payload) Count() int {
	n := 0
	for _, g := range p.Items {
		n += len(g.Items)
	}
	return n
}

// BuildPayload groups items by source path (then name, then "unknown"),
// keeping first-seen group order and in-group order. Options pass through
// unchanged.
func BuildPayload(format Format, options settings.Options, items []match.MatchedItem) (*Payload, error) {
	if len(items) == 0 {
		return nil, ErrNothingToExport
	}

	var groups []Group
	index := make(map[string]int)

	for _, it := range items {
		key := groupKey(it.SourceFile)
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, Group{FilePath: key})
		}
		groups[pos].Items = append(groups[pos].Items, toRecord(it))
	}

	return &Payload{Format: format, Options: options, Items: groups}, nil
}

func groupKey(src match.SourceFile) string {
	if src.Path != "" {
		return src.Path
	}
	if src.Name != "" {
		return src.Name
	}
	return UnknownSource
}

func toRecord(it match.MatchedItem) Record {
	return Record{
		Text:            it.Text,
		CompositeNumber: it.Label(),
		Page:            it.Page,
		Grid:            it.Grid,
		ImagePNGBase64:  match.EncodeImage(it.ImageData),
		Revision:        it.Revision,
		Comment:         it.Comment,
		SourceFile:      it.SourceFile,
	}
}
