package match

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func item(text string, page int, grid, file string) MatchedItem {
	return MatchedItem{
		Text:            text,
		CompositeNumber: text,
		Page:            page,
		Grid:            grid,
		SourceFile:      SourceFile{Name: file, Path: "/docs/" + file},
		IsOcr:           true,
	}
}

func TestNormalize(t *testing.T) {
	source := SourceFile{Name: "plan_r2.pdf", Path: "/docs/plan_r2.pdf"}

	t.Run("full record", func(t *testing.T) {
		var raw RawItem
		require.NoError(t, json.Unmarshal([]byte(`{
			"text": "W123",
			"composite_number": "PLAN-W123",
			"page": 3,
			"grid": "10,20",
			"image_png_b64": "data:image/png;base64,aGVsbG8=",
			"revision": 2,
			"comment": "check",
			"sourceFile": {"name": "other.pdf", "path": "/x/other.pdf"}
		}`), &raw))

		got := Normalize(raw, source)

		assert.Equal(t, "W123", got.Text)
		assert.Equal(t, "PLAN-W123", got.CompositeNumber)
		assert.Equal(t, 3, got.Page)
		assert.Equal(t, "10,20", got.Grid)
		assert.Equal(t, []byte("hello"), got.ImageData)
		assert.Equal(t, intPtr(2), got.Revision)
		assert.Equal(t, "check", got.Comment)
		assert.Equal(t, SourceFile{Name: "other.pdf", Path: "/x/other.pdf"}, got.SourceFile)
		assert.False(t, got.IsOcr)
		assert.False(t, got.Excluded)
	})

	t.Run("missing image means OCR", func(t *testing.T) {
		got := Normalize(RawItem{"text": "W5", "page": 1.0}, source)

		assert.True(t, got.IsOcr)
		assert.Nil(t, got.ImageData)
		assert.Equal(t, "W5", got.CompositeNumber, "composite falls back to text")
		assert.Equal(t, source, got.SourceFile)
		assert.Nil(t, got.Revision)
	})

	t.Run("empty record never fails", func(t *testing.T) {
		got := Normalize(RawItem{}, SourceFile{})

		assert.Equal(t, MatchedItem{IsOcr: true}, got)
	})

	t.Run("mistyped fields fall back", func(t *testing.T) {
		got := Normalize(RawItem{
			"text":          []any{"bad"},
			"page":          "not a number",
			"revision":      "3",
			"image_png_b64": "%%%not-base64%%%",
			"sourceFile":    "oops",
		}, source)

		assert.Equal(t, "", got.Text)
		assert.Equal(t, 0, got.Page)
		assert.Nil(t, got.Revision, "string revisions are ignored")
		assert.True(t, got.IsOcr)
		assert.Nil(t, got.ImageData)
		assert.Equal(t, source, got.SourceFile)
	})

	t.Run("plain base64 image", func(t *testing.T) {
		got := Normalize(RawItem{"image_png_b64": "aGVsbG8="}, source)
		assert.Equal(t, []byte("hello"), got.ImageData)
		assert.False(t, got.IsOcr)
	})
}

func TestEncodeImage(t *testing.T) {
	assert.Equal(t, "", EncodeImage(nil))
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", EncodeImage([]byte("hello")))
}

func TestMerge(t *testing.T) {
	a := item("W1", 1, "0,0", "a.pdf")
	b := item("W2", 1, "0,0", "a.pdf")
	c := item("W1", 2, "0,0", "a.pdf")
	d := item("W1", 1, "0,0", "b.pdf")

	t.Run("appends novel items in order", func(t *testing.T) {
		got := Merge([]MatchedItem{a}, []MatchedItem{b, a, c, d, b})
		assert.Equal(t, []MatchedItem{a, b, c, d}, got)
	})

	t.Run("existing prefix is preserved", func(t *testing.T) {
		existing := []MatchedItem{c, a}
		got := Merge(existing, []MatchedItem{b, d})
		assert.Equal(t, existing, got[:len(existing)])
	})

	t.Run("idempotent", func(t *testing.T) {
		existing := []MatchedItem{a}
		incoming := []MatchedItem{b, c, b}
		once := Merge(existing, incoming)
		assert.Equal(t, once, Merge(once, incoming))
	})

	t.Run("first comment wins", func(t *testing.T) {
		first := a
		first.Comment = "first"
		second := a
		second.Comment = "second"

		got := Merge(nil, []MatchedItem{first, second})

		require.Len(t, got, 1)
		assert.Equal(t, "first", got[0].Comment)
	})

	t.Run("does not alias existing", func(t *testing.T) {
		existing := []MatchedItem{a}
		got := Merge(existing, nil)
		got[0].Comment = "changed"
		assert.Equal(t, "", existing[0].Comment)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Empty(t, Merge(nil, nil))
	})
}

func TestCount(t *testing.T) {
	assert.Equal(t, Summary{}, Count(nil))

	items := []MatchedItem{
		{CompositeNumber: "W001"},
		{CompositeNumber: "W001"},
		{CompositeNumber: "W002", Excluded: true},
	}
	assert.Equal(t, Summary{Total: 2, Unique: 1}, Count(items))

	fallback := []MatchedItem{{Text: "W7"}, {Text: "W7", CompositeNumber: ""}, {Text: "W8"}}
	assert.Equal(t, Summary{Total: 3, Unique: 2}, Count(fallback))
}

func TestActive(t *testing.T) {
	items := []MatchedItem{{Text: "a"}, {Text: "b", Excluded: true}, {Text: "c"}}
	got := Active(items)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "c", got[1].Text)
}

func TestPrefilter(t *testing.T) {
	p, err := NewPrefilter("W", 5)
	require.NoError(t, err)

	tests := []struct {
		text string
		base string
		ok   bool
	}{
		{"W123", "W123", true},
		{"W12345", "W12345", true},
		{"W123456", "", false},
		{"W12-A", "W12", true},
		{"XW12", "", false},
		{"W", "", false},
	}
	for _, tt := range tests {
		base, ok := p.BaseNumber(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.base, base, tt.text)
	}

	result := p.Summarize([]MatchedItem{
		{Text: "W12"}, {Text: "W12 B"}, {Text: "Q99"}, {Text: "W13"},
	})
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Unique)
	assert.Len(t, result.Items, 3)
}

func TestPrefilter_QuotesPrefix(t *testing.T) {
	p, err := NewPrefilter("A.B", 3)
	require.NoError(t, err)

	_, ok := p.BaseNumber("AxB12")
	assert.False(t, ok)
	base, ok := p.BaseNumber("A.B12")
	assert.True(t, ok)
	assert.Equal(t, "A.B12", base)
}

func TestNewPrefilter_InvalidDigits(t *testing.T) {
	_, err := NewPrefilter("W", 0)
	assert.Error(t, err)
}

func TestFailedAnalysis(t *testing.T) {
	res := FailedAnalysis(errors.New("engine down"))
	assert.Equal(t, "engine down", res.Error)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Items)
}
