package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo describes a discovered PDF
type FileInfo struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Search discovers PDF files below a directory
type Search struct {
	validator *Validator
}

// NewSearch creates a search that skips files the validator rejects
func NewSearch(validator *Validator) *Search {
	return &Search{validator: validator}
}

// Discover walks directory and returns the PDFs whose name contains query,
// case-insensitively. Hidden directories and unreadable entries are skipped,
// and symlinks leading outside the directory are ignored.
func (s *Search) Discover(directory, query string) ([]FileInfo, error) {
	if directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	root, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", directory)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", directory)
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate directory symlinks: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	var files []FileInfo

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // keep walking past unreadable entries
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsPDFName(d.Name()) {
			return nil
		}
		if query != "" && !strings.Contains(strings.ToLower(d.Name()), query) {
			return nil
		}
		if !within(path, realRoot) {
			return nil
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil //nolint:nilerr // dangling symlink
		}
		if err := s.validator.ValidateFileInfo(path, info); err != nil {
			return nil //nolint:nilerr // skip invalid files
		}

		files = append(files, FileInfo{Path: path, Name: d.Name(), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	return files, nil
}

// within reports whether path resolves to a location under realRoot
func within(path, realRoot string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(realRoot, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
