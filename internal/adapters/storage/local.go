package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// LocalFileStore writes uploads under root/<userID>/<uuid>.<ext>.
// Stored paths are always relative to root so the root can move between
// deployments without rewriting database rows.
type LocalFileStore struct {
	root string
}

func NewLocalFileStore(root string) (*LocalFileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("file store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &LocalFileStore{root: root}, nil
}

func (s *LocalFileStore) Save(userID int64, fileName string, content io.Reader) (string, error) {
	userDir := strconv.FormatInt(userID, 10)
	if err := os.MkdirAll(filepath.Join(s.root, userDir), 0o755); err != nil {
		return "", fmt.Errorf("create user dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	relPath := filepath.Join(userDir, uuid.NewString()+ext)

	f, err := os.Create(filepath.Join(s.root, relPath))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(filepath.Join(s.root, relPath))
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return relPath, nil
}

func (s *LocalFileStore) Open(path string) (io.ReadCloser, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

func (s *LocalFileStore) Remove(path string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	err = os.Remove(abs)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// resolve rejects paths that escape the store root.
func (s *LocalFileStore) resolve(path string) (string, error) {
	abs := filepath.Join(s.root, filepath.Clean("/"+path))
	if !strings.HasPrefix(abs, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes store root: %s", path)
	}
	return abs, nil
}
