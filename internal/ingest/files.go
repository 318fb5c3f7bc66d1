package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the uploaded bytes.
type FileStore interface {
	// Save stores data and returns the path callers use to find it again.
	Save(ctx context.Context, category, name string, data []byte) (string, error)
}

// LocalFileStore writes uploads under a root directory as
// <category>/<sha256 prefix>-<name>. Saving the same bytes twice yields the
// same path.
type LocalFileStore struct {
	root string
}

func NewLocalFileStore(root string) (*LocalFileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("upload directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalFileStore{root: root}, nil
}

func (s *LocalFileStore) Save(ctx context.Context, category, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	rel := filepath.Join(category, hex.EncodeToString(sum[:6])+"-"+safeName(name))
	full := filepath.Join(s.root, rel)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create category directory: %w", err)
	}
	// A failed write leaves nothing at the final path.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("move upload: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// Remove deletes a stored file by the path Save returned.
func (s *LocalFileStore) Remove(path string) error {
	return os.Remove(filepath.Join(s.root, filepath.FromSlash(path)))
}
