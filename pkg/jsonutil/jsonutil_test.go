package jsonutil

import (
	"bytes"
	"strings"
	"testing"
)

func TestUnmarshalLenient(t *testing.T) {
	input := []byte(`{"html":"<div title=\"\ud800\">"}`)

	var strict map[string]string
	if err := Unmarshal(input, &strict); err == nil {
		t.Fatal("Unmarshal() expected error for an unpaired surrogate")
	}

	var lenient map[string]string
	if err := UnmarshalLenient(input, &lenient); err != nil {
		t.Fatalf("UnmarshalLenient() error = %v", err)
	}
	if got, want := lenient["html"], "<div title=\"\uFFFD\">"; got != want {
		t.Errorf("html = %q, want %q", got, want)
	}

	if err := UnmarshalLenient([]byte(`{broken`), &lenient); err == nil {
		t.Error("UnmarshalLenient() expected error for invalid JSON")
	}
}

func TestUnmarshal(t *testing.T) {
	t.Run("valid object", func(t *testing.T) {
		var result map[string]any
		if err := Unmarshal([]byte(`{"id":"image-alt","nodes":2}`), &result); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if result["id"] != "image-alt" {
			t.Errorf("expected id=image-alt, got %v", result["id"])
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		var result map[string]any
		if err := Unmarshal([]byte(`{invalid}`), &result); err == nil {
			t.Error("Unmarshal() expected error for invalid JSON")
		}
	})

	t.Run("case sensitive member names", func(t *testing.T) {
		var result struct {
			HelpURL string `json:"helpUrl"`
		}
		if err := Unmarshal([]byte(`{"HELPURL":"x"}`), &result); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if result.HelpURL != "" {
			t.Errorf("expected case-sensitive match, got %q", result.HelpURL)
		}
	})
}

func TestMarshalNilSliceAsEmptyArray(t *testing.T) {
	var v struct {
		Violations []string `json:"violations"`
	}
	data, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"violations":[]}` {
		t.Errorf("got %s, want {\"violations\":[]}", data)
	}
}

func TestMarshalIndent(t *testing.T) {
	data, err := MarshalIndent(map[string]int{"serious": 2, "critical": 1}, "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent() error = %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "\n  ") {
		t.Errorf("expected indentation, got %s", out)
	}
	if strings.Index(out, "critical") > strings.Index(out, "serious") {
		t.Errorf("expected sorted keys, got %s", out)
	}
}

func TestWriteIndent(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIndent(&buf, map[string]string{"url": "https://example.com"}); err != nil {
		t.Fatalf("WriteIndent() error = %v", err)
	}
	if !strings.HasSuffix(buf.String(), "}\n") {
		t.Errorf("expected trailing newline, got %q", buf.String())
	}
	if !Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("WriteIndent produced invalid JSON: %s", buf.String())
	}
}

func TestValid(t *testing.T) {
	if !Valid([]byte(`{"a":[1,2]}`)) {
		t.Error("expected valid")
	}
	if Valid([]byte(`{"a":`)) {
		t.Error("expected invalid")
	}
}
