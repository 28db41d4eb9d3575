package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/relnote/internal/failure"
)

// SchemaVersion is the version stamped into every artifact.
const SchemaVersion = 1

// Now returns the generation timestamp for new artifacts. Tests replace it.
var Now = func() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Timestamp formats t as an RFC 3339 UTC timestamp with seconds precision.
func Timestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Marshal encodes v with two-space indentation, without HTML escaping and
// with a trailing newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write marshals v to path, creating parent directories, and returns the
// bytes written.
func Write(path string, v any) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return data, nil
}

type header struct {
	SchemaVersion *int `json:"schema_version"`
}

// Read decodes the artifact at path into v after checking its schema
// version. A missing or malformed file is an input failure.
func Read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failure.Inputf("file not found: %s", path)
		}
		return failure.Wrap(failure.Input, err, "reading "+path)
	}
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return failure.Wrap(failure.Input, err, "parsing "+path)
	}
	if h.SchemaVersion != nil && *h.SchemaVersion != SchemaVersion {
		return failure.Inputf("%s: unsupported schema_version %d (want %d)", path, *h.SchemaVersion, SchemaVersion)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return failure.Wrap(failure.Input, err, "parsing "+path)
	}
	return nil
}

// SHA256 returns the lowercase hex digest of data.
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256File returns the lowercase hex digest of the file at path.
func SHA256File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return SHA256(data), nil
}
