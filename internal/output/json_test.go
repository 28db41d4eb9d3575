package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &JSONWriter{}
	v := map[string]any{"dir": "/tmp/cache", "entries": 3, "note": "<ok>"}
	if err := w.Write(&buf, v); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"note": "<ok>"`) {
		t.Errorf("expected unescaped, indented output, got %s", out)
	}
	var parsed map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed["entries"].(float64) != 3 {
		t.Errorf("entries = %v", parsed["entries"])
	}
}

func TestGetWriter(t *testing.T) {
	for _, format := range []string{"", "text", "json"} {
		if _, err := GetWriter(format); err != nil {
			t.Errorf("GetWriter(%q) error: %v", format, err)
		}
	}
	if _, err := GetWriter("sarif"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestWriteTo_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dist", "notes", "RELEASE.md")
	err := WriteTo(path, func(w io.Writer) error {
		_, err := w.Write([]byte("# Release v1.0.0\n"))
		return err
	})
	if err != nil {
		t.Fatalf("WriteTo error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "# Release v1.0.0\n" {
		t.Errorf("file = %q, %v", data, err)
	}
}
