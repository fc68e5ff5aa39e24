package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DjordjeVuckovic/qstone/internal/trace"
)

// JSONDir writes one indented JSON file per record into a directory.
type JSONDir struct {
	dir string
}

func NewJSONDir(dir string) (*JSONDir, error) {
	if dir == "" {
		return nil, fmt.Errorf("profile directory is not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile directory: %w", err)
	}
	return &JSONDir{dir: dir}, nil
}

func (s *JSONDir) Write(_ context.Context, rec trace.Record) error {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal profile record: %w", err)
	}
	path := filepath.Join(s.dir, rec.Name()+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile record: %w", err)
	}
	return nil
}

func (s *JSONDir) Close() error { return nil }
