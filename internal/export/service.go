package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/a3tai/pdf-annotator/internal/match"
	"github.com/a3tai/pdf-annotator/internal/settings"
)

// Engine renders a payload into a temporary artifact and returns its path.
type Engine interface {
	Export(ctx context.Context, payload *Payload) (string, error)
}

// Result describes a saved report
type Result struct {
	Path   string `json:"path"`
	Format Format `json:"format"`
	Items  int    `json:"items"`
	Files  int    `json:"files"`
}

// Service runs the export flow: build payload, render, relocate, clean up.
type Service struct {
	engine Engine
	logger zerolog.Logger
}

// NewService creates an export service
func NewService(engine Engine, logger zerolog.Logger) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("export engine cannot be nil")
	}
	return &Service{
		engine: engine,
		logger: logger.With().Str("component", "export").Logger(),
	}, nil
}

// Export saves a report of the non-excluded items to a location chosen by
// dest. Without eligible items the engine is never called. The engine's
// temporary artifact is removed whatever the outcome, unless dest chose
// the artifact itself.
func (s *Service) Export(
	ctx context.Context,
	format Format,
	options settings.Options,
	items []match.MatchedItem,
	dest Destination,
) (*Result, error) {
	payload, err := BuildPayload(format, options, match.Active(items))
	if err != nil {
		return nil, err
	}

	tempFile, err := s.engine.Export(ctx, payload)
	keep := false
	defer func() {
		if !keep {
			s.cleanup(tempFile)
		}
	}()
	if err != nil {
		return nil, fmt.Errorf("export engine failed: %w", err)
	}

	if tempFile == "" {
		return nil, errors.New("no file returned by export engine")
	}
	if _, err := os.Stat(tempFile); err != nil {
		return nil, fmt.Errorf("no file returned by export engine: %w", err)
	}

	target, err := dest.Choose(format)
	if err != nil {
		return nil, err
	}

	if samePath(tempFile, target) {
		keep = true
	} else if err := copyFile(tempFile, target); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("format", string(format)).
		Str("path", target).
		Int("items", payload.Count()).
		Msg("report saved")

	return &Result{
		Path:   target,
		Format: format,
		Items:  payload.Count(),
		Files:  len(payload.Items),
	}, nil
}

func (s *Service) cleanup(tempFile string) {
	if tempFile == "" {
		return
	}
	if err := os.Remove(tempFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", tempFile).Msg("failed to remove temporary report")
	}
}

// samePath reports whether a and b name the same file
func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open report: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy report: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}
