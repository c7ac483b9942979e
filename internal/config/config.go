package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 100 * 1024 * 1024 // 100MB
	DefaultEngine        = "process_pdfs"
	DefaultMaxBatchFiles = 200
	DefaultWorkers       = 4

	// EnvPrefix namespaces environment overrides, e.g. PDF_ANNOTATOR_PORT
	EnvPrefix = "PDF_ANNOTATOR"

	appDirName = "pdf-annotator"
)

// Config holds all configuration for the annotator
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	LogFile     string // optional rotating log file, stderr only when empty
	MaxFileSize int64  // Maximum PDF file size in bytes

	// Persisted user settings
	SettingsPath string

	// Engine configuration
	EngineExecutable string
	EngineArgs       []string // leading args, e.g. a script path
	OCRExecutable    string   // optional, used when use_ocr is set
	OCRArgs          []string
	EngineWorkDir    string
	MaxBatchFiles    int
	Workers          int // concurrent preliminary analyses

	// Reports land here unless a tool call names a file
	ExportDirectory string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}

	exportDir, err := os.UserHomeDir()
	if err != nil {
		exportDir = "."
	}

	return &Config{
		Mode:             ModeStdio, // Default to stdio mode for MCP compatibility
		Host:             DefaultHost,
		Port:             DefaultPort,
		Version:          "1.0.0",
		ServerName:       "pdf-annotator",
		LogLevel:         DefaultLogLevel,
		MaxFileSize:      DefaultMaxFileSize,
		SettingsPath:     filepath.Join(configDir, appDirName, "settings.json"),
		EngineExecutable: DefaultEngine,
		MaxBatchFiles:    DefaultMaxBatchFiles,
		Workers:          DefaultWorkers,
		ExportDirectory:  exportDir,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	for _, p := range []*string{&cfg.SettingsPath, &cfg.ExportDirectory, &cfg.EngineWorkDir} {
		if *p == "" {
			continue
		}
		if expanded, err := filepath.Abs(*p); err == nil {
			*p = expanded
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("logfile", cfg.LogFile)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("settings", cfg.SettingsPath)
	viper.SetDefault("engine", cfg.EngineExecutable)
	viper.SetDefault("engine-args", cfg.EngineArgs)
	viper.SetDefault("ocr-engine", cfg.OCRExecutable)
	viper.SetDefault("ocr-args", cfg.OCRArgs)
	viper.SetDefault("engine-dir", cfg.EngineWorkDir)
	viper.SetDefault("max-batch", cfg.MaxBatchFiles)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("export-dir", cfg.ExportDirectory)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP/SSE server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("logfile", cfg.LogFile, "Also write logs to this rotating file")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.String("settings", cfg.SettingsPath, "Settings file")
	pflag.String("engine", cfg.EngineExecutable, "Analysis/export engine executable")
	pflag.StringSlice("engine-args", cfg.EngineArgs, "Arguments placed before the engine command")
	pflag.String("ocr-engine", cfg.OCRExecutable, "OCR engine executable (defaults to --engine)")
	pflag.StringSlice("ocr-args", cfg.OCRArgs, "Arguments placed before the OCR engine command")
	pflag.String("engine-dir", cfg.EngineWorkDir, "Engine working directory (defaults to the executable's directory)")
	pflag.Int("max-batch", cfg.MaxBatchFiles, "Maximum files per analysis request")
	pflag.Int("workers", cfg.Workers, "Concurrent preliminary analyses")
	pflag.String("export-dir", cfg.ExportDirectory, "Default directory for saved reports")
}

var flagNames = []string{
	"mode", "host", "port", "loglevel", "logfile", "maxfilesize", "settings",
	"engine", "engine-args", "ocr-engine", "ocr-args", "engine-dir", "max-batch",
	"workers", "export-dir",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range flagNames {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPDF Annotator - batch composite-number annotation over an external engine\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --engine=/opt/backend/process_pdfs            # stdio mode (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --engine=python --engine-args=backend/main.py # development engine\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081                      # SSE server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, name := range flagNames {
			fmt.Fprintf(os.Stderr, "  %s_%s\n", EnvPrefix, strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
		}
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.LogFile = viper.GetString("logfile")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.SettingsPath = viper.GetString("settings")
	cfg.EngineExecutable = viper.GetString("engine")
	cfg.EngineArgs = viper.GetStringSlice("engine-args")
	cfg.OCRExecutable = viper.GetString("ocr-engine")
	cfg.OCRArgs = viper.GetStringSlice("ocr-args")
	cfg.EngineWorkDir = viper.GetString("engine-dir")
	cfg.MaxBatchFiles = viper.GetInt("max-batch")
	cfg.Workers = viper.GetInt("workers")
	cfg.ExportDirectory = viper.GetString("export-dir")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.SettingsPath == "" {
		return errors.New("settings path cannot be empty")
	}

	if strings.TrimSpace(c.EngineExecutable) == "" {
		return errors.New("engine executable cannot be empty")
	}

	if c.MaxBatchFiles < 1 || c.MaxBatchFiles > DefaultMaxBatchFiles {
		return fmt.Errorf("max batch files must be between 1 and %d", DefaultMaxBatchFiles)
	}

	if c.Workers < 1 {
		return errors.New("workers must be positive")
	}

	if c.EngineWorkDir != "" {
		info, err := os.Stat(c.EngineWorkDir)
		if err != nil {
			return fmt.Errorf("cannot access engine directory %s: %w", c.EngineWorkDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("engine directory %s is not a directory", c.EngineWorkDir)
		}
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, LogLevel: %s, MaxFileSize: %d, Settings: %s, Engine: %s, OCREngine: %s, ExportDir: %s}",
		c.Mode, c.Host, c.Port, c.LogLevel, c.MaxFileSize, c.SettingsPath, c.EngineExecutable, c.OCRExecutable, c.ExportDirectory)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
