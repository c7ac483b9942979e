package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrCancelled is returned when no save location was chosen
var ErrCancelled = errors.New("save cancelled")

// Destination picks where a finished report is saved. It stands in for the
// save dialog.
type Destination interface {
	Choose(format Format) (string, error)
}

// DirectoryDestination saves reports as report-<unix millis>.<ext> in Dir.
type DirectoryDestination struct {
	Dir string
	Now func() time.Time
}

// Choose implements Destination
func (d DirectoryDestination) Choose(format Format) (string, error) {
	if d.Dir == "" {
		return "", ErrCancelled
	}
	if err := os.MkdirAll(d.Dir, 0o750); err != nil {
		return "", fmt.Errorf("cannot create export directory %s: %w", d.Dir, err)
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}

	name := fmt.Sprintf("report-%d%s", now().UnixMilli(), format.Extension())
	return filepath.Join(d.Dir, name), nil
}

// FileDestination saves the report at a fixed path, adding the format's
// extension when it is missing.
type FileDestination string

// Choose implements Destination
func (f FileDestination) Choose(format Format) (string, error) {
	path := strings.TrimSpace(string(f))
	if path == "" {
		return "", ErrCancelled
	}
	if !strings.EqualFold(filepath.Ext(path), format.Extension()) {
		path += format.Extension()
	}
	return path, nil
}
