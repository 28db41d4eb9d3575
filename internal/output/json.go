package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONWriter outputs a value as indented JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	return nil
}
