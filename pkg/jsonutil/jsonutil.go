// Package jsonutil wraps github.com/go-json-experiment/json for the codec
// paths that matter here: decoding axe-core results pulled out of the page and
// encoding the report payloads returned to MCP clients.
//
// Differences from encoding/json worth knowing:
//   - nil slices and maps encode as [] and {} rather than null
//   - object member names match case-sensitively when decoding
//   - omitempty drops "", null, [] and {}; use omitzero for false and 0
//
// Usage:
//
//	var res axe.Results
//	err := jsonutil.UnmarshalLenient(raw, &res)
//	data, err := jsonutil.MarshalIndent(report, "", "  ")
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// UnmarshalLenient is Unmarshal for text produced outside our control, such
// as page markup captured by the rule engine. Invalid UTF-8 and unpaired
// surrogate escapes decode as U+FFFD instead of failing the whole document.
func UnmarshalLenient(data []byte, v any) error {
	return json.Unmarshal(data, v, jsontext.AllowInvalidUTF8(true))
}

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent returns the indented JSON encoding of v. Reports and
// summaries are structs and keep field order; the deterministic option only
// matters for map-valued payloads such as the MCP resources.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return json.Marshal(v,
		jsontext.WithIndentPrefix(prefix),
		jsontext.WithIndent(indent),
		json.Deterministic(true),
	)
}

// WriteIndent encodes v to w with two-space indentation and a trailing newline.
func WriteIndent(w io.Writer, v any) error {
	if err := json.MarshalWrite(w, v, jsontext.WithIndent("  "), json.Deterministic(true)); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}
