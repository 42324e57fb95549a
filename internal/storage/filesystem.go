package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists downloaded output assets onto the local filesystem.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Write persists data at the given relative key and returns the cleaned key.
// Keys cannot escape the storage root.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := s.Path(cleanKey)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// SaveOutput stores one result asset of an order as <operation>/<orderID>-<kind>.<ext>
// and returns the absolute file path.
func (s *FileStore) SaveOutput(ctx context.Context, operation, orderID, kind string, data []byte, contentType string) (string, error) {
	if strings.TrimSpace(orderID) == "" {
		return "", errors.New("storage: order id is required")
	}
	if kind == "" {
		kind = "output"
	}
	key := fmt.Sprintf("%s/%s-%s%s", slug(operation), slug(orderID), slug(kind), ExtensionFor(contentType))
	cleanKey, err := s.Write(ctx, key, data)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(s.Path(cleanKey))
	if err != nil {
		return s.Path(cleanKey), nil
	}
	return abs, nil
}

// Path maps a cleaned key onto the filesystem.
func (s *FileStore) Path(cleanKey string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
}

// ExtensionFor returns the file extension for an image content type.
func ExtensionFor(contentType string) string {
	ct, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), ";")
	switch strings.TrimSpace(ct) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

// FileName returns a flat file name for name that cannot contain a path
// separator or a parent reference.
func FileName(name, contentType string) string {
	return slug(name) + ExtensionFor(contentType)
}

func slug(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unnamed"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
