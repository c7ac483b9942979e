package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"github.com/a3tai/pdf-annotator/internal/export"
)

func (s *Server) handleAddFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := request.GetArguments()["paths"]
	if !ok {
		return mcp.NewToolResultError("required argument \"paths\" not found"), nil
	}
	paths, err := cast.ToStringSliceE(raw)
	if err != nil || len(paths) == 0 {
		return mcp.NewToolResultError("paths must be a non-empty list of file paths"), nil
	}

	res, err := s.shell.AddFiles(ctx, paths)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatAddResult(res) + "\n" + formatFileList(s.shell.Files(), s.shell.TotalMatches())), nil
}

func (s *Server) handleAddDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := request.RequireString("directory")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query := cast.ToString(request.GetArguments()["query"])

	res, err := s.shell.AddDirectory(ctx, dir, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatAddResult(res) + "\n" + formatFileList(s.shell.Files(), s.shell.TotalMatches())), nil
}

func (s *Server) handleListFiles(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatFileList(s.shell.Files(), s.shell.TotalMatches())), nil
}

func (s *Server) handleRemoveFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.shell.Remove(path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Removed %s\n\n%s", path, formatFileList(s.shell.Files(), s.shell.TotalMatches()))), nil
}

func (s *Server) handleClearFiles(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.shell.Clear()
	return mcp.NewToolResultText("Session cleared"), nil
}

func (s *Server) handleSetFilter(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	if v, ok := args["text"]; ok {
		text, err := cast.ToStringE(v)
		if err != nil {
			return mcp.NewToolResultError("text must be a string"), nil
		}
		s.shell.SetFilterText(text)
	}
	if v, ok := args["latest_revision"]; ok {
		enabled, err := cast.ToBoolE(v)
		if err != nil {
			return mcp.NewToolResultError("latest_revision must be a boolean"), nil
		}
		s.shell.SetRevisionFilter(enabled)
	}

	return mcp.NewToolResultText(formatFileList(s.shell.Files(), s.shell.TotalMatches())), nil
}

func (s *Server) handleAnalyze(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.shell.RunAnalysis(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Analysis complete: %d file(s), %d new item(s)\n", res.Files, res.Added)
	text += fmt.Sprintf("Total matches: %d (unique: %d)\n", res.Summary.Total, res.Summary.Unique)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleResults(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.shell.State()
	if !st.AnalysisCompleted {
		return mcp.NewToolResultText("No analysis has been run yet. Use pdf_analyze first."), nil
	}
	return mcp.NewToolResultText(formatResults(st.Items)), nil
}

func (s *Server) handleToggleExclude(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := itemIndex(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	item, err := s.shell.ToggleExclude(index)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	state := "included"
	if item.Excluded {
		state = "excluded"
	}
	summary := s.shell.Summary()
	return mcp.NewToolResultText(fmt.Sprintf("Item %d (%s) %s\nTotal matches: %d (unique: %d)",
		index, item.Label(), state, summary.Total, summary.Unique)), nil
}

func (s *Server) handleSetComment(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := itemIndex(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, ok := request.GetArguments()["comment"]
	if !ok {
		return mcp.NewToolResultError("required argument \"comment\" not found"), nil
	}

	item, err := s.shell.SetComment(index, cast.ToString(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Comment set on item %d (%s)", index, item.Label())), nil
}

func (s *Server) handleSummary(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary := s.shell.Summary()
	return mcp.NewToolResultText(fmt.Sprintf("Total matches: %d\nUnique composite numbers: %d\n", summary.Total, summary.Unique)), nil
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawFormat, err := request.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	var dest export.Destination = export.DirectoryDestination{Dir: s.config.ExportDirectory}
	if target := strings.TrimSpace(cast.ToString(args["destination"])); target != "" {
		dest = export.FileDestination(target)
	}

	var res *export.Result
	if file := strings.TrimSpace(cast.ToString(args["file"])); file != "" {
		res, err = s.shell.ExportFile(ctx, file, format, dest)
	} else {
		res, err = s.shell.ExportAll(ctx, format, dest)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Report saved: %s\nFormat: %s\nItems: %d from %d file(s)\n",
		res.Path, res.Format, res.Items, res.Files)), nil
}

func (s *Server) handleValidateFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.validator.ValidateFile(path)

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable (%d pages)", result.Path, result.Pages)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSettingsGet(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.settings.Get())
}

func (s *Server) handleSettingsSave(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := request.GetArguments()["settings"]
	if !ok {
		return mcp.NewToolResultError("required argument \"settings\" not found"), nil
	}
	patch, err := cast.ToStringMapE(raw)
	if err != nil {
		return mcp.NewToolResultError("settings must be an object"), nil
	}

	saved, err := s.settings.Save(patch)
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings save failed")
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(saved)
}

// itemIndex reads the "index" argument, which JSON delivers as a number
func itemIndex(request mcp.CallToolRequest) (int, error) {
	raw, ok := request.GetArguments()["index"]
	if !ok {
		return 0, errors.New("required argument \"index\" not found")
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("index must be a whole number, got %v", raw)
	}
	return int(f), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
