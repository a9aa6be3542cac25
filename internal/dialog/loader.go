package dialog

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"

	"github.com/rendis/flowlayout/pkg/schema"
)

// Format is the encoding of a dialog document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath guesses the format from a file extension, JSON by default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load decodes a dialog document. The result uses the generic JSON value
// shapes (map[string]any, []any, float64, string, bool, nil) whatever the
// input format.
func Load(r io.Reader, format Format) (any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeInput, "read dialog").WithCause(err)
	}
	return Decode(raw, format)
}

// Decode is Load over an in-memory document.
func Decode(raw []byte, format Format) (any, error) {
	if format == FormatYAML {
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeInput, "invalid YAML dialog: %s", err.Error()).WithCause(err)
		}
		// Round-trip through JSON so numbers and maps take JSON shapes.
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeInput, "unsupported YAML value: %s", err.Error()).WithCause(err)
		}
		raw = b
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeInput, "invalid JSON dialog: %s", err.Error()).WithCause(err)
	}
	return doc, nil
}

// Select runs a jq query against doc and returns its first output, for
// picking the layout root out of a larger dialog file (".triggers[0]").
// An empty query or "." returns doc itself.
func Select(ctx context.Context, doc any, query string) (any, error) {
	if query == "" || query == "." {
		return doc, nil
	}
	q, err := gojq.Parse(query)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeInput, "jq parse error in %q: %s", query, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"query": query})
	}
	code, err := gojq.Compile(q, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeInput, "jq compile error in %q: %s", query, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"query": query})
	}

	iter := code.RunWithContext(ctx, doc)
	v, ok := iter.Next()
	if !ok || v == nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "query %q selected nothing", query)
	}
	if err, isErr := v.(error); isErr {
		return nil, schema.NewErrorf(schema.ErrCodeInput, "jq evaluation failed for %q: %s", query, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"query": query})
	}
	return v, nil
}
