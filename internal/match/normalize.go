package match

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// Engine record keys
const (
	keyText            = "text"
	keyCompositeNumber = "composite_number"
	keyPage            = "page"
	keyGrid            = "grid"
	keyImage           = "image_png_b64"
	keyRevision        = "revision"
	keyComment         = "comment"
	keySourceFile      = "sourceFile"
)

// Normalize maps an engine record onto a MatchedItem. Missing or mistyped
// fields fall back to zero values, so a partial record never fails.
// IsOcr is derived from the absence of a screenshot and is never read from
// the record.
func Normalize(raw RawItem, source SourceFile) MatchedItem {
	text := stringField(raw, keyText)

	composite := stringField(raw, keyCompositeNumber)
	if composite == "" {
		composite = text
	}

	image := decodeImage(stringField(raw, keyImage))

	return MatchedItem{
		Text:            text,
		CompositeNumber: composite,
		Page:            cast.ToInt(raw[keyPage]),
		Grid:            stringField(raw, keyGrid),
		ImageData:       image,
		Revision:        numericField(raw, keyRevision),
		Comment:         stringField(raw, keyComment),
		SourceFile:      sourceField(raw, source),
		Excluded:        false,
		IsOcr:           image == nil,
	}
}

// NormalizeAll normalizes a batch of records from the same source file
func NormalizeAll(raws []RawItem, source SourceFile) []MatchedItem {
	items := make([]MatchedItem, 0, len(raws))
	for _, raw := range raws {
		items = append(items, Normalize(raw, source))
	}
	return items
}

func stringField(raw RawItem, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

// numericField returns a pointer only when the engine sent an actual number
func numericField(raw RawItem, key string) *int {
	var n int
	switch v := raw[key].(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	case int64:
		n = int(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil
		}
		n = int(i)
	default:
		return nil
	}
	return &n
}

func sourceField(raw RawItem, fallback SourceFile) SourceFile {
	m, ok := raw[keySourceFile].(map[string]any)
	if !ok {
		return fallback
	}
	src := SourceFile{
		Name: cast.ToString(m["name"]),
		Path: cast.ToString(m["path"]),
	}
	if src.Name == "" && src.Path == "" {
		return fallback
	}
	return src
}

// decodeImage accepts plain base64 or a data URL. Undecodable data counts as
// no screenshot.
func decodeImage(s string) []byte {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil
		}
		s = s[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil
		}
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

// EncodeImage renders image bytes as the data URL the engine expects.
// Nil data encodes to the empty string.
func EncodeImage(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}
