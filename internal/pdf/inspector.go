package pdf

import (
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"
)

// Inspector reads document metadata shown next to uploaded files
type Inspector struct {
	logger zerolog.Logger
}

// NewInspector creates an inspector
func NewInspector(logger zerolog.Logger) *Inspector {
	return &Inspector{logger: logger.With().Str("component", "inspector").Logger()}
}

// PageCount returns the number of pages, or 0 when the file cannot be read.
// Failures are logged and never stop a file from being added.
func (i *Inspector) PageCount(path string) int {
	if path == "" {
		return 0
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		i.logger.Debug().Err(err).Str("path", path).Msg("page count unavailable")
		return 0
	}
	return n
}
