// Package engine drives the external analysis and export executable. The
// engine is a separate process; this package owns its command-line contract
// and output protocol.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/a3tai/pdf-annotator/internal/export"
	"github.com/a3tai/pdf-annotator/internal/match"
	"github.com/a3tai/pdf-annotator/internal/pdf"
	"github.com/a3tai/pdf-annotator/internal/settings"
)

// DefaultMaxFiles is the largest batch a single analyze call accepts
const DefaultMaxFiles = 200

var (
	// ErrNoFiles is returned when an analyze request carries no paths
	ErrNoFiles = errors.New("no files provided")
	// ErrNoValidFiles is returned when every path of a request was rejected
	ErrNoValidFiles = errors.New("no valid PDF files found")
)

// Config locates the engine executables
type Config struct {
	Executable    string
	Args          []string
	OCRExecutable string
	OCRArgs       []string
	WorkDir       string
	AppVersion    string
	MaxFiles      int
	MaxFileSize   int64
}

// FileResult is the engine's per-file analyze output
type FileResult struct {
	FilePath string          `json:"filePath"`
	Items    []match.RawItem `json:"items"`
}

// AnalyzeResponse is the decoded analyze output
type AnalyzeResponse struct {
	Files []FileResult `json:"files"`
}

// Items returns the records reported for path, or nil
func (r *AnalyzeResponse) Items(path string) []match.RawItem {
	for _, f := range r.Files {
		if f.FilePath == path {
			return f.Items
		}
	}
	return nil
}

// Runner spawns the engine executable for each request
type Runner struct {
	cfg       Config
	validator *pdf.Validator
	logger    zerolog.Logger
}

// NewRunner creates a runner. An empty executable is rejected.
func NewRunner(cfg Config, logger zerolog.Logger) (*Runner, error) {
	if strings.TrimSpace(cfg.Executable) == "" {
		return nil, fmt.Errorf("engine executable must be configured")
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	return &Runner{
		cfg:       cfg,
		validator: pdf.NewValidator(cfg.MaxFileSize),
		logger:    logger.With().Str("component", "engine").Logger(),
	}, nil
}

// Analyze runs the engine over paths. Paths that are not existing PDF files
// are dropped before the engine is spawned.
func (r *Runner) Analyze(ctx context.Context, paths []string, opts settings.Options) (*AnalyzeResponse, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	if len(paths) > r.cfg.MaxFiles {
		return nil, fmt.Errorf("too many files: %d (max: %d)", len(paths), r.cfg.MaxFiles)
	}

	valid := r.validPaths(paths)
	if len(valid) == 0 {
		return nil, ErrNoValidFiles
	}

	opts.AppVersion = r.cfg.AppVersion
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode options: %w", err)
	}

	exe, args := r.command(opts.UseOCR)
	args = append(args, "analyze", string(optsJSON))
	args = append(args, valid...)

	r.logger.Debug().Str("exe", exe).Int("files", len(valid)).Bool("ocr", opts.UseOCR).Msg("running analysis")

	out, err := r.run(ctx, exe, args, nil)
	if err != nil {
		return nil, err
	}
	if out.FilePath != "" {
		return nil, fmt.Errorf("unexpected file path from engine: %s", out.FilePath)
	}

	return decodeAnalyze(out.Data, r.logger)
}

// Export sends payload to the engine and returns the temporary artifact it
// wrote. Export always uses the primary executable.
func (r *Runner) Export(ctx context.Context, payload *export.Payload) (string, error) {
	if payload == nil {
		return "", export.ErrNothingToExport
	}

	p := *payload
	p.Options.AppVersion = r.cfg.AppVersion
	body, err := json.Marshal(&p)
	if err != nil {
		return "", fmt.Errorf("failed to encode export payload: %w", err)
	}

	exe, args := r.command(false)
	args = append(args, "export")

	r.logger.Debug().Str("exe", exe).Str("format", string(p.Format)).Int("items", p.Count()).Msg("running export")

	out, err := r.run(ctx, exe, args, body)
	if err != nil {
		return "", err
	}
	if out.FilePath != "" {
		return out.FilePath, nil
	}

	var result struct {
		FilePath string `json:"filePath"`
	}
	if len(out.Data) > 0 {
		if err := json.Unmarshal(out.Data, &result); err != nil {
			return "", fmt.Errorf("invalid export response: %w", err)
		}
	}
	if result.FilePath == "" {
		return "", errors.New("no file returned by export engine")
	}
	return result.FilePath, nil
}

func (r *Runner) command(ocr bool) (string, []string) {
	if ocr && r.cfg.OCRExecutable != "" {
		return r.cfg.OCRExecutable, append([]string(nil), r.cfg.OCRArgs...)
	}
	return r.cfg.Executable, append([]string(nil), r.cfg.Args...)
}

// workDir is the configured directory, else the directory holding a
// path-qualified executable. Bundled engines resolve resources relative to it.
func (r *Runner) workDir(exe string) string {
	if r.cfg.WorkDir != "" {
		return r.cfg.WorkDir
	}
	if strings.ContainsRune(exe, filepath.Separator) {
		return filepath.Dir(exe)
	}
	return ""
}

func (r *Runner) validPaths(paths []string) []string {
	valid := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			r.logger.Warn().Err(err).Str("path", p).Msg("dropping unresolvable path")
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			r.logger.Warn().Err(err).Str("path", abs).Msg("dropping missing file")
			continue
		}
		if err := r.validator.ValidateFileInfo(abs, info); err != nil {
			r.logger.Warn().Err(err).Str("path", abs).Msg("dropping invalid file")
			continue
		}
		valid = append(valid, abs)
	}
	return valid
}

func (r *Runner) run(ctx context.Context, exe string, args []string, stdin []byte) (*output, error) {
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = r.workDir(exe)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, exitFailure(stderr.String(), exitErr.ExitCode())
		}
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	if stderr.Len() > 0 {
		r.logger.Debug().Str("stderr", strings.TrimSpace(stderr.String())).Msg("engine diagnostics")
	}

	return parseOutput(stdout.String(), filepath.Base(exe))
}

func exitFailure(stderr string, code int) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		return fmt.Errorf("engine exited with code %d", code)
	}

	// The engine reports fatal errors as a JSON line on stderr.
	lines := strings.Split(msg, "\n")
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &envelope); err == nil && envelope.Message != "" {
		return errors.New(envelope.Message)
	}
	return errors.New(msg)
}
