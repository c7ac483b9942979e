package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-annotator/internal/engine"
	"github.com/a3tai/pdf-annotator/internal/export"
	"github.com/a3tai/pdf-annotator/internal/match"
	"github.com/a3tai/pdf-annotator/internal/pdf"
	"github.com/a3tai/pdf-annotator/internal/settings"
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	items map[string][]match.RawItem
	fail  map[string]error
	calls [][]string
	// hook runs before the batch response is returned
	hook func(paths []string)
}

func (f *fakeAnalyzer) Analyze(_ context.Context, paths []string, _ settings.Options) (*engine.AnalyzeResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, paths)
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(paths)
	}

	resp := &engine.AnalyzeResponse{}
	for _, p := range paths {
		if err := f.fail[p]; err != nil {
			return nil, err
		}
		resp.Files = append(resp.Files, engine.FileResult{FilePath: p, Items: f.items[p]})
	}
	return resp, nil
}

type fakeExporter struct {
	items []match.MatchedItem
}

func (f *fakeExporter) Export(_ context.Context, format export.Format, _ settings.Options, items []match.MatchedItem, _ export.Destination) (*export.Result, error) {
	active := match.Active(items)
	if len(active) == 0 {
		return nil, export.ErrNothingToExport
	}
	f.items = active
	return &export.Result{Path: "/out" + format.Extension(), Format: format, Items: len(active)}, nil
}

type fixedPages int

func (p fixedPages) PageCount(string) int { return int(p) }

func raw(text string, page int) match.RawItem {
	return match.RawItem{"text": text, "page": float64(page), "grid": "A1"}
}

func newShell(t *testing.T, analyzer *fakeAnalyzer) (*Shell, *settings.Store, *fakeExporter) {
	t.Helper()
	st := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), zerolog.Nop())
	st.Load()

	exp := &fakeExporter{}
	shell, err := NewShell(Dependencies{
		Settings: st,
		Analyzer: analyzer,
		Exporter: exp,
		Pages:    fixedPages(3),
		Search:   pdf.NewSearch(pdf.NewValidator(0)),
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(shell.Close)

	return shell, st, exp
}

func TestNewShell_RequiresCollaborators(t *testing.T) {
	st := settings.NewStore(filepath.Join(t.TempDir(), "s.json"), zerolog.Nop())

	_, err := NewShell(Dependencies{Analyzer: &fakeAnalyzer{}, Exporter: &fakeExporter{}}, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewShell(Dependencies{Settings: st, Exporter: &fakeExporter{}}, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewShell(Dependencies{Settings: st, Analyzer: &fakeAnalyzer{}}, zerolog.Nop())
	assert.Error(t, err)
}

func TestShell_AddFilesRunsPreliminaryAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{
		items: map[string][]match.RawItem{
			"/docs/a.pdf": {raw("W12345", 1), raw("W12345-7", 2), raw("X1", 1), raw("W123456", 1)},
			"/docs/b.pdf": {raw("W7", 1)},
		},
		fail: map[string]error{"/docs/c.pdf": errors.New("engine crashed")},
	}
	shell, _, _ := newShell(t, analyzer)

	res, err := shell.AddFiles(context.Background(), []string{"/docs/a.pdf", "/docs/b.pdf", "/docs/c.pdf", "/docs/notes.txt", "/other/a.pdf"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/docs/a.pdf", "/docs/b.pdf", "/docs/c.pdf"}, res.Added)
	assert.Equal(t, []string{"/docs/notes.txt", "/other/a.pdf"}, res.Skipped)

	views := shell.Files()
	require.Len(t, views, 3)
	for _, v := range views {
		assert.False(t, v.IsAnalyzing, v.Name)
		require.NotNil(t, v.AnalysisResult, v.Name)
		assert.Equal(t, 3, v.Pages)
	}

	a := views[0].AnalysisResult
	assert.Equal(t, 2, a.Total, "W12345 and W12345-7 match, X1 and W123456 do not")
	assert.Equal(t, 1, a.Unique)
	assert.Equal(t, "a.pdf", a.Items[0].SourceFile.Name)

	assert.Equal(t, 1, views[1].AnalysisResult.Total)
	assert.Equal(t, "engine crashed", views[2].AnalysisResult.Error)
	assert.Equal(t, 0, views[2].AnalysisResult.Total)

	assert.Equal(t, 3, shell.TotalMatches())
	assert.Len(t, analyzer.calls, 3, "one engine call per file")
}

func TestShell_AddFilesSkipsDuplicates(t *testing.T) {
	shell, _, _ := newShell(t, &fakeAnalyzer{})

	_, err := shell.AddFiles(context.Background(), []string{"/docs/a.pdf"})
	require.NoError(t, err)

	res, err := shell.AddFiles(context.Background(), []string{"/docs/a.pdf", "/elsewhere/a.pdf"})
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Len(t, res.Skipped, 2)
	assert.Len(t, shell.Files(), 1)
}

func TestShell_AddDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"W1_r1.pdf", "W1_r2.pdf", "other.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0o644))
	}

	shell, _, _ := newShell(t, &fakeAnalyzer{})
	res, err := shell.AddDirectory(context.Background(), dir, "w1")
	require.NoError(t, err)
	assert.Len(t, res.Added, 2)

	_, err = shell.AddDirectory(context.Background(), filepath.Join(dir, "missing"), "")
	assert.Error(t, err)
}

func TestShell_RunAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{items: map[string][]match.RawItem{
		"/docs/W100_r1.pdf": {raw("W100", 1)},
		"/docs/W100_r2.pdf": {raw("W100", 1), raw("W101", 2)},
	}}
	shell, _, _ := newShell(t, analyzer)

	_, err := shell.RunAnalysis(context.Background())
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = shell.AddFiles(context.Background(), []string{"/docs/W100_r1.pdf", "/docs/W100_r2.pdf"})
	require.NoError(t, err)
	shell.SetRevisionFilter(true)

	res, err := shell.RunAnalysis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, match.Summary{Total: 2, Unique: 2}, res.Summary)
	assert.Equal(t, []string{"/docs/W100_r2.pdf"}, analyzer.calls[len(analyzer.calls)-1], "superseded revisions are not analyzed")

	results := shell.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "W100_r2.pdf", results[0].SourceFile.Name)
	assert.True(t, shell.State().AnalysisCompleted)

	_, err = shell.SetComment(0, "keep")
	require.NoError(t, err)

	res, err = shell.RunAnalysis(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added, "repeat analysis adds nothing new")
	assert.Equal(t, "keep", shell.Results()[0].Comment, "existing items keep user edits")
}

func TestShell_RunAnalysisFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	shell, _, _ := newShell(t, analyzer)
	_, err := shell.AddFiles(context.Background(), []string{"/docs/a.pdf"})
	require.NoError(t, err)

	analyzer.fail = map[string]error{"/docs/a.pdf": errors.New("no valid PDF files found")}
	_, err = shell.RunAnalysis(context.Background())
	assert.ErrorContains(t, err, "no valid PDF files found")
	assert.False(t, shell.State().AnalysisCompleted)
}

func TestShell_RunAnalysisStaleAfterClear(t *testing.T) {
	analyzer := &fakeAnalyzer{items: map[string][]match.RawItem{"/docs/a.pdf": {raw("W1", 1)}}}
	shell, _, _ := newShell(t, analyzer)
	_, err := shell.AddFiles(context.Background(), []string{"/docs/a.pdf"})
	require.NoError(t, err)

	analyzer.hook = func([]string) { shell.Clear() }
	_, err = shell.RunAnalysis(context.Background())
	assert.ErrorIs(t, err, ErrStaleBatch)
	assert.Empty(t, shell.Results())
}

func TestShell_RunAnalysisStaleAfterNewerBatch(t *testing.T) {
	analyzer := &fakeAnalyzer{items: map[string][]match.RawItem{"/docs/a.pdf": {raw("W1", 1)}}}
	shell, _, _ := newShell(t, analyzer)
	_, err := shell.AddFiles(context.Background(), []string{"/docs/a.pdf"})
	require.NoError(t, err)

	var newer *RunResult
	var newerErr error
	analyzer.hook = func([]string) {
		analyzer.hook = nil
		newer, newerErr = shell.RunAnalysis(context.Background())
	}

	_, err = shell.RunAnalysis(context.Background())
	assert.ErrorIs(t, err, ErrStaleBatch)
	require.NoError(t, newerErr)
	assert.Equal(t, newer.BatchID, shell.State().BatchID)
	assert.Len(t, shell.Results(), 1)
}

func TestShell_ItemEdits(t *testing.T) {
	analyzer := &fakeAnalyzer{items: map[string][]match.RawItem{"/docs/a.pdf": {raw("W1", 1), raw("W1", 2), raw("W2", 1)}}}
	shell, _, _ := newShell(t, analyzer)
	_, err := shell.AddFiles(context.Background(), []string{"/docs/a.pdf"})
	require.NoError(t, err)
	_, err = shell.RunAnalysis(context.Background())
	require.NoError(t, err)

	assert.Equal(t, match.Summary{Total: 3, Unique: 2}, shell.Summary())

	it, err := shell.ToggleExclude(2)
	require.NoError(t, err)
	assert.True(t, it.Excluded)
	assert.Equal(t, match.Summary{Total: 2, Unique: 1}, shell.Summary())
	assert.Equal(t, 2, shell.TotalMatches())

	_, err = shell.ToggleExclude(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = shell.SetComment(-1, "x")
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	it, err = shell.SetComment(0, "verify")
	require.NoError(t, err)
	assert.Equal(t, "verify", it.Comment)
}

func TestShell_RemoveAndClear(t *testing.T) {
	shell, _, _ := newShell(t, &fakeAnalyzer{})
	_, err := shell.AddFiles(context.Background(), []string{"/docs/a.pdf", "/docs/b.pdf"})
	require.NoError(t, err)

	require.NoError(t, shell.Remove("/docs/a.pdf"))
	require.NoError(t, shell.Remove("b.pdf"))
	assert.ErrorIs(t, shell.Remove("/docs/a.pdf"), ErrFileNotFound)
	assert.Empty(t, shell.Files())

	_, err = shell.AddFiles(context.Background(), []string{"/docs/c.pdf"})
	require.NoError(t, err)
	shell.SetFilterText("c")
	shell.Clear()
	assert.Empty(t, shell.Files())
	assert.Empty(t, shell.State().FilterText)
}

func TestShell_SettingsEnableRevisionFilter(t *testing.T) {
	shell, st, _ := newShell(t, &fakeAnalyzer{})
	assert.False(t, shell.State().RevisionFilter)

	_, err := st.Save(map[string]any{"process_latest_revision": true})
	require.NoError(t, err)
	assert.True(t, shell.State().RevisionFilter)

	shell.SetRevisionFilter(false)
	_, err = st.Save(map[string]any{"prefix": "W"})
	require.NoError(t, err)
	assert.True(t, shell.State().RevisionFilter, "the saved preference turns the filter back on")
}

func TestShell_Export(t *testing.T) {
	analyzer := &fakeAnalyzer{items: map[string][]match.RawItem{
		"/docs/a.pdf": {raw("W1", 1), raw("W2", 1), raw("Z9", 1)},
	}}
	shell, _, exp := newShell(t, analyzer)
	ctx := context.Background()

	_, err := shell.ExportAll(ctx, export.FormatPDF, export.FileDestination("/tmp/r"))
	assert.ErrorIs(t, err, export.ErrNothingToExport)

	_, err = shell.AddFiles(ctx, []string{"/docs/a.pdf"})
	require.NoError(t, err)

	res, err := shell.ExportFile(ctx, "a.pdf", export.FormatCSV, export.FileDestination("/tmp/r"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Items, "single-file export uses the preliminary matches")

	_, err = shell.ExportFile(ctx, "/docs/zzz.pdf", export.FormatCSV, export.FileDestination("/tmp/r"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = shell.RunAnalysis(ctx)
	require.NoError(t, err)
	_, err = shell.ToggleExclude(0)
	require.NoError(t, err)

	res, err = shell.ExportAll(ctx, export.FormatTXT, export.FileDestination("/tmp/r"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Items)
	assert.Equal(t, "W2", exp.items[0].Text)
}

func TestShell_ExportFileWithFailedAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{fail: map[string]error{"/docs/a.pdf": errors.New("bad pdf")}}
	shell, _, _ := newShell(t, analyzer)
	_, err := shell.AddFiles(context.Background(), []string{"/docs/a.pdf"})
	require.NoError(t, err)

	_, err = shell.ExportFile(context.Background(), "/docs/a.pdf", export.FormatPDF, export.FileDestination("/tmp/r"))
	assert.ErrorContains(t, err, "bad pdf")
}

func TestShell_SubscriberCanReadViews(t *testing.T) {
	analyzer := &fakeAnalyzer{items: map[string][]match.RawItem{
		"/docs/a.pdf": {raw("W1", 1)},
		"/docs/b.pdf": {raw("W2", 1), raw("W3", 1)},
	}}
	shell, _, _ := newShell(t, analyzer)

	var totals []int
	unsubscribe := shell.Subscribe(func(State) {
		_ = shell.Files()
		totals = append(totals, shell.TotalMatches())
	})
	defer unsubscribe()

	_, err := shell.AddFiles(context.Background(), []string{"/docs/a.pdf", "/docs/b.pdf"})
	require.NoError(t, err)

	require.Len(t, totals, 3, "one add and two preliminary results")
	assert.Equal(t, 3, totals[len(totals)-1])
}

func TestFindFile(t *testing.T) {
	files := []UploadedFile{
		{Path: "/docs/a.pdf", Name: "a.pdf"},
		{Name: "pasted.pdf"},
	}

	assert.Equal(t, 0, findFile(files, "/docs/a.pdf"))
	assert.Equal(t, 0, findFile(files, "a.pdf"))
	assert.Equal(t, 1, findFile(files, "pasted.pdf"))
	assert.Equal(t, -1, findFile(files, "missing.pdf"))
	assert.Equal(t, -1, findFile(files, ""), "an empty path never matches a path-less file")

	cwd, err := os.Getwd()
	require.NoError(t, err)
	local := []UploadedFile{{Path: filepath.Join(cwd, "local.pdf"), Name: "renamed.pdf"}}
	assert.Equal(t, 0, findFile(local, "local.pdf"), "relative paths resolve against the working directory")
}
