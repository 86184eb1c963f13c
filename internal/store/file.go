package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/JonMunkholm/classlog/internal/core"
)

// FileStore keeps the diary in a single JSON object on disk.
type FileStore struct {
	Path string

	mu sync.Mutex
}

// NewFileStore returns a store for path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load decodes the file without assuming its shape; a file that is not a
// JSON object is reported by the validator. A missing file loads as an
// empty diary.
func (s *FileStore) Load(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return doc, nil
}

// Save writes rs as indented JSON. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, rs core.RecordSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// encoding/json sorts map keys.
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode diary: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".classlog-*.json")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("replace %s: %w", s.Path, err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() {}
