package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Writer writes a value in a specific format.
type Writer interface {
	Write(w io.Writer, v any) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "", "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteTo runs render against the file at outPath, creating parent
// directories, or against stdout when outPath is empty or "-".
func WriteTo(outPath string, render func(io.Writer) error) error {
	if outPath == "" || outPath == "-" {
		return render(os.Stdout)
	}
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
