// Package settings owns the persisted user settings and the single
// normalization step that turns a partial record into a complete one.
package settings

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Default values, matching the settings file shipped with the desktop shell
const (
	DefaultPrefix           = "W"
	DefaultMaxDigits        = 5
	DefaultScreenshotWidth  = 200
	DefaultScreenshotHeight = 68
	DefaultTextPos          = 50
	DefaultUIScale          = 0.88
	DefaultLanguage         = "en"
	DefaultTheme            = "light"
	DefaultViewerMode       = "builtin"

	MinUIScale = 0.5
	MaxUIScale = 1.0
)

// Languages the shell ships translations for
var Languages = []string{"en", "ru", "et"}

var (
	themes      = []string{"light", "dark", "system"}
	viewerModes = []string{"builtin", "external"}
)

// Options is the record sent to the analysis and export engine. Keys match
// the engine's command-line contract.
type Options struct {
	Prefix                string `json:"prefix" mapstructure:"prefix" validate:"required"`
	MaxDigits             int    `json:"max_digits" mapstructure:"max_digits" validate:"min=1"`
	IncludeRevision       bool   `json:"include_revision" mapstructure:"include_revision"`
	ProcessLatestRevision bool   `json:"process_latest_revision" mapstructure:"process_latest_revision"`
	RemoveDuplicates      bool   `json:"remove_duplicates" mapstructure:"remove_duplicates"`
	UseOCR                bool   `json:"use_ocr" mapstructure:"use_ocr"`
	ScreenshotWidth       int    `json:"screenshot_width" mapstructure:"screenshot_width" validate:"min=1"`
	ScreenshotHeight      int    `json:"screenshot_height" mapstructure:"screenshot_height" validate:"min=1"`
	TextPosX              int    `json:"text_pos_x" mapstructure:"text_pos_x" validate:"min=0,max=100"`
	TextPosY              int    `json:"text_pos_y" mapstructure:"text_pos_y" validate:"min=0,max=100"`
	AppVersion            string `json:"app_version,omitempty" mapstructure:"app_version"`
}

// Settings is the full persisted record: engine options plus UI preferences.
type Settings struct {
	Options `mapstructure:",squash"`

	Theme         string  `json:"theme" mapstructure:"theme" validate:"oneof=light dark system"`
	Language      string  `json:"language" mapstructure:"language" validate:"oneof=en ru et"`
	UIScale       float64 `json:"uiScale" mapstructure:"uiscale" validate:"gte=0.5,lte=1"`
	PDFViewerMode string  `json:"pdf_viewer_mode" mapstructure:"pdf_viewer_mode" validate:"oneof=builtin external"`
}

// Defaults returns a fully populated settings record
func Defaults() Settings {
	return Settings{
		Options: Options{
			Prefix:           DefaultPrefix,
			MaxDigits:        DefaultMaxDigits,
			ScreenshotWidth:  DefaultScreenshotWidth,
			ScreenshotHeight: DefaultScreenshotHeight,
			TextPosX:         DefaultTextPos,
			TextPosY:         DefaultTextPos,
		},
		Theme:         DefaultTheme,
		Language:      DefaultLanguage,
		UIScale:       DefaultUIScale,
		PDFViewerMode: DefaultViewerMode,
	}
}

// Normalize fills missing values and clamps out-of-range ones. Downstream
// code may assume the result is complete.
func Normalize(s Settings) Settings {
	s.Prefix = strings.TrimSpace(s.Prefix)
	if s.Prefix == "" {
		s.Prefix = DefaultPrefix
	}
	if s.MaxDigits <= 0 {
		s.MaxDigits = DefaultMaxDigits
	}
	if s.ScreenshotWidth <= 0 {
		s.ScreenshotWidth = DefaultScreenshotWidth
	}
	if s.ScreenshotHeight <= 0 {
		s.ScreenshotHeight = DefaultScreenshotHeight
	}
	s.TextPosX = clampInt(s.TextPosX, 0, 100)
	s.TextPosY = clampInt(s.TextPosY, 0, 100)

	s.UIScale = ClampUIScale(s.UIScale)
	s.Theme = oneOf(strings.ToLower(s.Theme), themes, DefaultTheme)
	s.Language = oneOf(strings.ToLower(s.Language), Languages, DefaultLanguage)
	s.PDFViewerMode = oneOf(strings.ToLower(s.PDFViewerMode), viewerModes, DefaultViewerMode)

	return s
}

// ClampUIScale bounds a zoom factor; zero means the default.
func ClampUIScale(f float64) float64 {
	if f == 0 {
		return DefaultUIScale
	}
	if f < MinUIScale {
		return MinUIScale
	}
	if f > MaxUIScale {
		return MaxUIScale
	}
	return f
}

var validate = validator.New()

// Validate checks a settings record against its constraints
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func oneOf(v string, allowed []string, fallback string) string {
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}
