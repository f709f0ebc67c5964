// Package file persists wizard sessions as JSON documents on the local filesystem.
package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/wizard/internal/codec"
	"github.com/aretw0/wizard/pkg/domain"
)

const ext = ".json"

// Store implements ports.SessionStore using the local filesystem.
// Each session is one JSON file in BasePath.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".wizard/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".wizard", "sessions")
	}
	return &Store{BasePath: basePath}
}

// path maps a key to a file name. Keys may contain ':' (profile scoping),
// which is not portable in file names, so they are path-escaped.
func (s *Store) path(key string) string {
	name := strings.ReplaceAll(url.PathEscape(key), ":", "%3A")
	return filepath.Join(s.BasePath, name+ext)
}

func keyFromName(name string) (string, bool) {
	if !strings.HasSuffix(name, ext) || strings.HasPrefix(name, "tmp-") {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, ext))
	if err != nil {
		return "", false
	}
	return key, true
}

// Save persists the session atomically: temp file, fsync, rename.
func (s *Store) Save(ctx context.Context, key string, session *domain.Session) error {
	if key == "" {
		return fmt.Errorf("session key cannot be empty")
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := codec.EncodeSessionIndent(session)
	if err != nil {
		return err
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(key)
	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to replace session file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads the session stored under key.
func (s *Store) Load(ctx context.Context, key string) (*domain.Session, error) {
	if key == "" {
		return nil, fmt.Errorf("session key cannot be empty")
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return codec.DecodeSession(data)
}

// Delete removes the session file.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("session key cannot be empty")
	}
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns all stored keys.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	keys := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if key, ok := keyFromName(entry.Name()); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
