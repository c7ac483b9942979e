package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Listener receives every settings record written through the store
type Listener func(Settings)

// Store is the persisted settings record. Reads go through viper so the
// file is layered over the defaults; writes are atomic JSON rewrites.
type Store struct {
	mu        sync.RWMutex
	path      string
	current   Settings
	listeners map[int]Listener
	nextID    int
	logger    zerolog.Logger
}

// NewStore creates a store backed by the JSON file at path. Call Load to
// read it.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:      path,
		current:   Defaults(),
		listeners: make(map[int]Listener),
		logger:    logger.With().Str("component", "settings").Logger(),
	}
}

// Path returns the settings file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file over the defaults. A missing or unreadable
// file is logged and leaves the last known settings in place.
func (s *Store) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := newViper(Defaults())
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug().Str("path", s.path).Msg("settings file not found, using defaults")
		} else {
			s.logger.Error().Err(err).Str("path", s.path).Msg("failed to read settings")
		}
		return s.current
	}

	var loaded Settings
	if err := v.Unmarshal(&loaded); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("failed to decode settings")
		return s.current
	}

	s.current = Normalize(loaded)
	return s.current
}

// Get returns the current settings
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save merges patch into the current settings, persists the result and
// notifies listeners. Keys are the settings file keys, case-insensitive.
// When the file cannot be written the new settings still become current and
// the write error is returned.
func (s *Store) Save(patch map[string]any) (Settings, error) {
	s.mu.Lock()

	v := newViper(s.current)
	for key, value := range patch {
		v.Set(key, value)
	}

	var next Settings
	if err := v.Unmarshal(&next); err != nil {
		s.mu.Unlock()
		return s.Get(), fmt.Errorf("invalid settings patch: %w", err)
	}
	next = Normalize(next)
	next.AppVersion = ""

	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return s.Get(), err
	}

	s.current = next
	writeErr := s.write(next)
	if writeErr != nil {
		s.logger.Error().Err(writeErr).Str("path", s.path).Msg("failed to write settings")
	}

	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}

	return next, writeErr
}

// SetUIScale clamps and persists the zoom factor, returning the stored value.
func (s *Store) SetUIScale(factor float64) (float64, error) {
	saved, err := s.Save(map[string]any{"uiScale": ClampUIScale(factor)})
	return saved.UIScale, err
}

// Subscribe registers l for future writes. The returned func unregisters it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// write replaces the settings file atomically
func (s *Store) write(st Settings) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("cannot create settings directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set settings permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close settings file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

// newViper returns a viper instance whose defaults are base
func newViper(base Settings) *viper.Viper {
	v := viper.New()
	v.SetDefault("prefix", base.Prefix)
	v.SetDefault("max_digits", base.MaxDigits)
	v.SetDefault("include_revision", base.IncludeRevision)
	v.SetDefault("process_latest_revision", base.ProcessLatestRevision)
	v.SetDefault("remove_duplicates", base.RemoveDuplicates)
	v.SetDefault("use_ocr", base.UseOCR)
	v.SetDefault("screenshot_width", base.ScreenshotWidth)
	v.SetDefault("screenshot_height", base.ScreenshotHeight)
	v.SetDefault("text_pos_x", base.TextPosX)
	v.SetDefault("text_pos_y", base.TextPosY)
	v.SetDefault("theme", base.Theme)
	v.SetDefault("language", base.Language)
	v.SetDefault("uiscale", base.UIScale)
	v.SetDefault("pdf_viewer_mode", base.PDFViewerMode)
	return v
}
