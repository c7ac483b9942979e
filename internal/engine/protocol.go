package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/a3tai/pdf-annotator/internal/match"
)

// absPathPattern matches POSIX and Windows drive-letter absolute paths
var absPathPattern = regexp.MustCompile(`^(/|[A-Za-z]:\\)`)

type output struct {
	FilePath string
	Data     json.RawMessage
}

// parseOutput interprets engine stdout. A bare absolute path names an
// artifact; anything else must be JSON, optionally wrapped in "data".
func parseOutput(stdout, cmd string) (*output, error) {
	text := strings.TrimSpace(stdout)
	if absPathPattern.MatchString(text) && !strings.Contains(text, "\n") {
		return &output{FilePath: text}, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		// Top-level arrays and scalars pass through unwrapped.
		if json.Valid([]byte(text)) {
			return &output{Data: json.RawMessage(text)}, nil
		}
		return nil, fmt.Errorf("invalid JSON from engine (%s)", cmd)
	}

	if truthy(envelope["error"]) {
		return nil, errors.New(errorMessage(envelope))
	}
	if data, ok := envelope["data"]; ok {
		return &output{Data: data}, nil
	}
	return &output{Data: json.RawMessage(text)}, nil
}

func errorMessage(envelope map[string]json.RawMessage) string {
	var msg string
	if err := json.Unmarshal(envelope["message"], &msg); err == nil && msg != "" {
		return msg
	}
	if err := json.Unmarshal(envelope["error"], &msg); err == nil && msg != "" {
		return msg
	}
	return "engine reported an error"
}

// truthy follows the engine's loose notion of a set error flag
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}

// decodeAnalyze decodes {"files":[{"filePath","items"}]}, skipping records
// that are not JSON objects.
func decodeAnalyze(data json.RawMessage, logger zerolog.Logger) (*AnalyzeResponse, error) {
	var wire struct {
		Files []struct {
			FilePath string            `json:"filePath"`
			Items    []json.RawMessage `json:"items"`
		} `json:"files"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("unexpected analyze response: %w", err)
		}
	}

	resp := &AnalyzeResponse{Files: make([]FileResult, 0, len(wire.Files))}
	for _, f := range wire.Files {
		items := make([]match.RawItem, 0, len(f.Items))
		for _, raw := range f.Items {
			var item match.RawItem
			if err := json.Unmarshal(raw, &item); err != nil || item == nil {
				logger.Warn().Str("file", f.FilePath).Msg("skipping malformed engine record")
				continue
			}
			items = append(items, item)
		}
		resp.Files = append(resp.Files, FileResult{FilePath: f.FilePath, Items: items})
	}
	return resp, nil
}
