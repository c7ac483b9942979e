package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/a3tai/pdf-annotator/internal/engine"
	"github.com/a3tai/pdf-annotator/internal/export"
	"github.com/a3tai/pdf-annotator/internal/match"
	"github.com/a3tai/pdf-annotator/internal/pdf"
	"github.com/a3tai/pdf-annotator/internal/settings"
)

// DefaultWorkers bounds concurrent preliminary analyses
const DefaultWorkers = 4

var (
	// ErrNoFiles is returned when no file is active for analysis
	ErrNoFiles = errors.New("no files to analyze")
	// ErrStaleBatch is returned when a newer analysis or a clear overtook this one
	ErrStaleBatch = errors.New("analysis superseded by a newer request")
	// ErrIndexOutOfRange is returned for item indices outside the result list
	ErrIndexOutOfRange = errors.New("item index out of range")
	// ErrFileNotFound is returned when a path is not in the working set
	ErrFileNotFound = errors.New("file not found")
)

// Analyzer runs the analysis engine
type Analyzer interface {
	Analyze(ctx context.Context, paths []string, opts settings.Options) (*engine.AnalyzeResponse, error)
}

// Exporter saves reports
type Exporter interface {
	Export(ctx context.Context, format export.Format, options settings.Options, items []match.MatchedItem, dest export.Destination) (*export.Result, error)
}

// PageCounter reports document page counts
type PageCounter interface {
	PageCount(path string) int
}

// Dependencies wires a Shell to its collaborators
type Dependencies struct {
	Settings *settings.Store
	Analyzer Analyzer
	Exporter Exporter
	Pages    PageCounter
	Search   *pdf.Search
	Workers  int
}

// AddResult lists which paths were added and which were skipped
type AddResult struct {
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

// RunResult summarises a completed full analysis
type RunResult struct {
	BatchID string        `json:"batch_id"`
	Files   int           `json:"files"`
	Added   int           `json:"added"`
	Summary match.Summary `json:"summary"`
}

// Shell orchestrates the session: it feeds files to the engine, applies
// results to the store and drives exports.
type Shell struct {
	store       *Store
	deps        Dependencies
	logger      zerolog.Logger
	unsubscribe func()
}

// NewShell creates a shell over an empty session
func NewShell(deps Dependencies, logger zerolog.Logger) (*Shell, error) {
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings store cannot be nil")
	}
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if deps.Exporter == nil {
		return nil, fmt.Errorf("exporter cannot be nil")
	}
	if deps.Workers <= 0 {
		deps.Workers = DefaultWorkers
	}

	s := &Shell{
		store:  NewStore(),
		deps:   deps,
		logger: logger.With().Str("component", "session").Logger(),
	}

	s.applySettings(deps.Settings.Get())
	s.unsubscribe = deps.Settings.Subscribe(s.applySettings)

	return s, nil
}

// Close detaches the shell from settings broadcasts
func (s *Shell) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Shell) applySettings(st settings.Settings) {
	if st.ProcessLatestRevision {
		s.store.Dispatch(SetRevisionFilter{Enabled: true})
	}
}

// State returns the current session snapshot
func (s *Shell) State() State {
	return s.store.State()
}

// Subscribe registers a listener for session changes
func (s *Shell) Subscribe(l func(State)) func() {
	return s.store.Subscribe(l)
}

// Files returns the file list with visibility flags
func (s *Shell) Files() []FileView {
	return FileViews(s.store.State())
}

// Results returns the matched items of the full analysis
func (s *Shell) Results() []match.MatchedItem {
	return s.store.State().Items
}

// TotalMatches returns the headline match count
func (s *Shell) TotalMatches() int {
	return TotalMatches(s.store.State())
}

// Summary counts the non-excluded final items and their distinct labels
func (s *Shell) Summary() match.Summary {
	return match.Count(s.store.State().Items)
}

// AddFiles adds PDF paths to the session and waits for their preliminary
// analyses. Non-PDF names and duplicates by path or name are skipped. One
// file's failure is recorded on that file and never fails the others.
func (s *Shell) AddFiles(ctx context.Context, paths []string) (*AddResult, error) {
	res := &AddResult{Added: []string{}, Skipped: []string{}}
	current := s.store.State().Files

	var files []UploadedFile
	for _, p := range paths {
		if p == "" || !pdf.IsPDFName(p) {
			res.Skipped = append(res.Skipped, p)
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			res.Skipped = append(res.Skipped, p)
			continue
		}

		f := UploadedFile{Path: abs, Name: filepath.Base(abs)}
		if containsFile(current, f) || containsFile(files, f) {
			res.Skipped = append(res.Skipped, p)
			continue
		}
		if s.deps.Pages != nil {
			f.Pages = s.deps.Pages.PageCount(abs)
		}
		files = append(files, f)
	}

	if len(files) == 0 {
		return res, nil
	}

	s.store.Dispatch(AddFiles{Files: files})
	for _, f := range files {
		res.Added = append(res.Added, f.Path)
	}
	s.logger.Info().Int("added", len(files)).Int("skipped", len(res.Skipped)).Msg("files added")

	opts := s.deps.Settings.Get().Options
	prefilter, prefilterErr := match.NewPrefilter(opts.Prefix, opts.MaxDigits)

	p := pool.New().WithMaxGoroutines(s.deps.Workers)
	for _, f := range files {
		p.Go(func() {
			var result *match.AnalysisResult
			if prefilterErr != nil {
				result = match.FailedAnalysis(prefilterErr)
			} else {
				result = s.preliminary(ctx, f, opts, prefilter)
			}
			s.store.Dispatch(PreliminaryFinished{Path: f.Path, Result: result})
		})
	}
	p.Wait()

	return res, nil
}

func (s *Shell) preliminary(ctx context.Context, f UploadedFile, opts settings.Options, prefilter *match.Prefilter) *match.AnalysisResult {
	resp, err := s.deps.Analyzer.Analyze(ctx, []string{f.Path}, opts)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", f.Name).Msg("preliminary analysis failed")
		return match.FailedAnalysis(err)
	}
	if len(resp.Files) == 0 {
		return match.FailedAnalysis(errors.New("invalid response structure"))
	}

	items := match.NormalizeAll(resp.Files[0].Items, match.SourceFile{Name: f.Name, Path: f.Path})
	return prefilter.Summarize(items)
}

// AddDirectory adds the PDFs below dir whose names contain query
func (s *Shell) AddDirectory(ctx context.Context, dir, query string) (*AddResult, error) {
	if s.deps.Search == nil {
		return nil, fmt.Errorf("directory search is not available")
	}

	found, err := s.deps.Search.Discover(dir, query)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(found))
	for _, f := range found {
		paths = append(paths, f.Path)
	}
	return s.AddFiles(ctx, paths)
}

// Remove drops a file from the working set by path or name
func (s *Shell) Remove(path string) error {
	before := len(s.store.State().Files)
	if len(s.store.Dispatch(RemoveFile{Path: path}).Files) < before {
		return nil
	}
	if abs, err := filepath.Abs(path); err == nil && abs != path {
		if len(s.store.Dispatch(RemoveFile{Path: abs}).Files) < before {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFileNotFound, path)
}

// Clear empties the session. A running analysis becomes stale.
func (s *Shell) Clear() {
	s.store.Dispatch(ClearFiles{})
	s.logger.Info().Msg("session cleared")
}

// SetFilterText narrows the file list to names containing text
func (s *Shell) SetFilterText(text string) {
	s.store.Dispatch(SetFilterText{Text: text})
}

// SetRevisionFilter toggles keeping only the latest revision per base name
func (s *Shell) SetRevisionFilter(enabled bool) {
	s.store.Dispatch(SetRevisionFilter{Enabled: enabled})
}

// RunAnalysis analyzes every active file and merges the new items into the
// results. If another analysis starts or the session is cleared while the
// engine runs, the result is discarded with ErrStaleBatch.
func (s *Shell) RunAnalysis(ctx context.Context) (*RunResult, error) {
	before := s.store.State()
	paths := ActivePaths(before)
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}

	id := uuid.NewString()
	s.store.Dispatch(AnalysisStarted{BatchID: id})
	log := s.logger.With().Str("batch", id).Logger()
	log.Info().Int("files", len(paths)).Msg("analysis started")

	resp, err := s.deps.Analyzer.Analyze(ctx, paths, s.deps.Settings.Get().Options)
	if err != nil {
		log.Error().Err(err).Msg("analysis failed")
		return nil, err
	}

	names := make(map[string]string, len(before.Files))
	for _, f := range before.Files {
		names[f.Path] = f.Name
	}

	var items []match.MatchedItem
	for _, f := range resp.Files {
		name, ok := names[f.FilePath]
		if !ok {
			name = filepath.Base(f.FilePath)
		}
		items = append(items, match.NormalizeAll(f.Items, match.SourceFile{Name: name, Path: f.FilePath})...)
	}

	next := s.store.Dispatch(AnalysisFinished{BatchID: id, Items: items})
	if next.BatchID != id {
		log.Warn().Msg("discarding stale analysis result")
		return nil, ErrStaleBatch
	}

	added := len(next.Items) - len(before.Items)
	if added < 0 {
		added = 0
	}
	log.Info().Int("items", len(items)).Int("new", added).Msg("analysis finished")

	return &RunResult{
		BatchID: id,
		Files:   len(resp.Files),
		Added:   added,
		Summary: match.Count(next.Items),
	}, nil
}

// ToggleExclude flips the excluded flag of the item at index
func (s *Shell) ToggleExclude(index int) (match.MatchedItem, error) {
	next := s.store.Dispatch(ToggleExclude{Index: index})
	if index < 0 || index >= len(next.Items) {
		return match.MatchedItem{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return next.Items[index], nil
}

// SetComment replaces the comment of the item at index
func (s *Shell) SetComment(index int, comment string) (match.MatchedItem, error) {
	next := s.store.Dispatch(SetComment{Index: index, Comment: comment})
	if index < 0 || index >= len(next.Items) {
		return match.MatchedItem{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return next.Items[index], nil
}

// ExportAll saves a report of the non-excluded final items
func (s *Shell) ExportAll(ctx context.Context, format export.Format, dest export.Destination) (*export.Result, error) {
	items := s.store.State().Items
	return s.deps.Exporter.Export(ctx, format, s.deps.Settings.Get().Options, items, dest)
}

// ExportFile saves a report of one file's preliminary matches
func (s *Shell) ExportFile(ctx context.Context, path string, format export.Format, dest export.Destination) (*export.Result, error) {
	files := s.store.State().Files
	i := findFile(files, path)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	file := files[i]
	if file.AnalysisResult == nil {
		return nil, export.ErrNothingToExport
	}
	if file.AnalysisResult.Error != "" {
		return nil, fmt.Errorf("file analysis failed: %s", file.AnalysisResult.Error)
	}

	return s.deps.Exporter.Export(ctx, format, s.deps.Settings.Get().Options, file.AnalysisResult.Items, dest)
}

// findFile returns the index of the file matching path by path, absolute
// path or name, or -1.
func findFile(files []UploadedFile, path string) int {
	if path == "" {
		return -1
	}
	abs, err := filepath.Abs(path)
	for i, f := range files {
		if f.Path == path || f.Name == path {
			return i
		}
		if err == nil && f.Path != "" && f.Path == abs {
			return i
		}
	}
	return -1
}
