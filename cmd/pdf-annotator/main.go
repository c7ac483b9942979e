package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/a3tai/pdf-annotator/internal/config"
	"github.com/a3tai/pdf-annotator/internal/engine"
	"github.com/a3tai/pdf-annotator/internal/export"
	"github.com/a3tai/pdf-annotator/internal/logging"
	"github.com/a3tai/pdf-annotator/internal/mcp"
	"github.com/a3tai/pdf-annotator/internal/pdf"
	"github.com/a3tai/pdf-annotator/internal/session"
	"github.com/a3tai/pdf-annotator/internal/settings"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// app bundles the wired components so main can tear them down
type app struct {
	server *mcp.Server
	shell  *session.Shell
}

func (a *app) Close() {
	a.shell.Close()
}

// build wires settings, engine, session and MCP server from cfg
func build(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	store := settings.NewStore(cfg.SettingsPath, logger)
	loaded := store.Load()
	logger.Debug().Str("path", store.Path()).Str("prefix", loaded.Prefix).Msg("settings loaded")

	runner, err := engine.NewRunner(engine.Config{
		Executable:    cfg.EngineExecutable,
		Args:          cfg.EngineArgs,
		OCRExecutable: cfg.OCRExecutable,
		OCRArgs:       cfg.OCRArgs,
		WorkDir:       cfg.EngineWorkDir,
		AppVersion:    cfg.Version,
		MaxFiles:      cfg.MaxBatchFiles,
		MaxFileSize:   cfg.MaxFileSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine runner: %w", err)
	}

	exporter, err := export.NewService(runner, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create export service: %w", err)
	}

	validator := pdf.NewValidator(cfg.MaxFileSize)
	shell, err := session.NewShell(session.Dependencies{
		Settings: store,
		Analyzer: runner,
		Exporter: exporter,
		Pages:    pdf.NewInspector(logger),
		Search:   pdf.NewSearch(validator),
		Workers:  cfg.Workers,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	server, err := mcp.NewServer(cfg, mcp.Services{
		Shell:     shell,
		Settings:  store,
		Validator: validator,
	}, logger)
	if err != nil {
		shell.Close()
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}

	return &app{server: server, shell: shell}, nil
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	logger.Debug().Str("config", cfg.String()).Msg("starting")

	a, err := build(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	err = a.server.Run(ctx)
	stop()
	a.Close()

	if err != nil {
		logger.Error().Err(err).Str("mode", cfg.Mode).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("PDF Annotator\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
