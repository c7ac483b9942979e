package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/a3tai/pdf-annotator/internal/config"
	"github.com/a3tai/pdf-annotator/internal/descriptions"
	"github.com/a3tai/pdf-annotator/internal/pdf"
	"github.com/a3tai/pdf-annotator/internal/session"
	"github.com/a3tai/pdf-annotator/internal/settings"
)

const shutdownTimeout = 5 * time.Second

// Services are the components the tools operate on
type Services struct {
	Shell     *session.Shell
	Settings  *settings.Store
	Validator *pdf.Validator
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	shell     *session.Shell
	settings  *settings.Store
	validator *pdf.Validator
	mcpServer *server.MCPServer
	logger    zerolog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc Services, logger zerolog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if svc.Shell == nil {
		return nil, fmt.Errorf("shell cannot be nil")
	}
	if svc.Settings == nil {
		return nil, fmt.Errorf("settings store cannot be nil")
	}
	if svc.Validator == nil {
		svc.Validator = pdf.NewValidator(cfg.MaxFileSize)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // tool list is static
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		shell:     svc.Shell,
		settings:  svc.Settings,
		validator: svc.Validator,
		mcpServer: mcpServer,
		logger:    logger.With().Str("component", "mcp").Logger(),
	}

	s.registerTools()

	return s, nil
}

func indexArg(name, what string) mcp.ToolOption {
	return mcp.WithNumber(name, mcp.Required(), mcp.Description(what))
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_add_files",
		mcp.WithDescription(descriptions.AddFilesDescription),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("Full paths of the PDF files to add"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), s.handleAddFiles)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_add_directory",
		mcp.WithDescription(descriptions.AddDirectoryDescription),
		mcp.WithString("directory",
			mcp.Required(),
			mcp.Description("Directory to scan recursively"),
		),
		mcp.WithString("query",
			mcp.Description("Case-insensitive file name filter"),
		),
	), s.handleAddDirectory)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_list_files",
		mcp.WithDescription("List session files with preliminary counts and filter state"),
	), s.handleListFiles)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_remove_file",
		mcp.WithDescription("Remove a file from the session"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path or file name as listed"),
		),
	), s.handleRemoveFile)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_clear_files",
		mcp.WithDescription("Remove all files and results from the session"),
	), s.handleClearFiles)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_set_filter",
		mcp.WithDescription(descriptions.SetFilterDescription),
		mcp.WithString("text",
			mcp.Description("Case-insensitive name filter; empty shows all files"),
		),
		mcp.WithBoolean("latest_revision",
			mcp.Description("Keep only the highest revision of each base name"),
		),
	), s.handleSetFilter)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_analyze",
		mcp.WithDescription(descriptions.AnalyzeDescription),
	), s.handleAnalyze)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_results",
		mcp.WithDescription("List the matched items of the full analysis"),
	), s.handleResults)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_toggle_exclude",
		mcp.WithDescription(descriptions.ToggleExcludeDescription),
		indexArg("index", "Item number as listed by pdf_results"),
	), s.handleToggleExclude)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_set_comment",
		mcp.WithDescription("Attach a comment to a matched item"),
		indexArg("index", "Item number as listed by pdf_results"),
		mcp.WithString("comment",
			mcp.Required(),
			mcp.Description("Comment text; empty clears it"),
		),
	), s.handleSetComment)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_summary",
		mcp.WithDescription("Count non-excluded matches and distinct composite numbers"),
	), s.handleSummary)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_export",
		mcp.WithDescription(descriptions.ExportDescription),
		mcp.WithString("format",
			mcp.Required(),
			mcp.Description("Report format"),
			mcp.Enum("pdf", "csv", "txt"),
		),
		mcp.WithString("destination",
			mcp.Description("Target file; defaults to a timestamped report in the export directory"),
		),
		mcp.WithString("file",
			mcp.Description("Export only this session file's preliminary matches"),
		),
	), s.handleExport)

	s.mcpServer.AddTool(mcp.NewTool(
		"pdf_validate_file",
		mcp.WithDescription(descriptions.ValidateFileDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	), s.handleValidateFile)

	s.mcpServer.AddTool(mcp.NewTool(
		"settings_get",
		mcp.WithDescription("Show the current settings"),
	), s.handleSettingsGet)

	s.mcpServer.AddTool(mcp.NewTool(
		"settings_save",
		mcp.WithDescription(descriptions.SettingsSaveDescription),
		mcp.WithObject("settings",
			mcp.Required(),
			mcp.Description("Settings fields to change, e.g. {\"prefix\": \"W\", \"use_ocr\": true}"),
		),
	), s.handleSettingsSave)
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	switch {
	case s.config.IsServerMode():
		return s.runServerMode(ctx)
	case s.config.IsStdioMode():
		return s.runStdioMode(ctx)
	default:
		return fmt.Errorf("unsupported mode: %s", s.config.Mode)
	}
}

// runStdioMode serves MCP over stdin/stdout until ctx ends or stdin closes
func (s *Server) runStdioMode(ctx context.Context) error {
	s.logger.Debug().Msg("starting stdio transport")

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(s.logger, "", 0))

	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx ends
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()
	s.logger.Info().Str("addr", addr).Msg("SSE server listening")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("SSE server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("SSE shutdown failed: %w", err)
		}
		select {
		case <-errCh:
		case <-shutdownCtx.Done():
		}
		s.logger.Info().Msg("SSE server stopped")
		return nil
	}
}
