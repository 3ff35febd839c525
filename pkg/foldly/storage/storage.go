// Package storage abstracts the object store that holds uploaded files and
// branding assets. Handlers depend on the Client interface only, so the
// local-disk implementation can be swapped for a cloud bucket without
// touching them.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Client is the object storage contract consumed by the upload and branding
// handlers.
type Client interface {
	// Upload stores the object under key and returns its public URL.
	Upload(ctx context.Context, key string, r io.Reader) (string, error)
	// Delete removes the object under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}

// BrandingKey builds the storage key for a link's branding logo.
func BrandingKey(workspaceID, linkID, filename string) string {
	return fmt.Sprintf("branding/%s/%s/%s", workspaceID, linkID, sanitizeFilename(filename))
}

// UploadKey builds the storage key for a file uploaded through a link.
func UploadKey(workspaceID, linkID, fileID, filename string) string {
	return fmt.Sprintf("uploads/%s/%s/%s-%s", workspaceID, linkID, fileID, sanitizeFilename(filename))
}

// sanitizeFilename strips path separators and traversal sequences from a
// client-supplied filename before it becomes part of a storage key.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == "/" {
		name = "file"
	}
	return name
}

// Local stores objects on the local filesystem under a root directory and
// serves them from a base URL.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates a local-disk storage client.
func NewLocal(root, baseURL string) *Local {
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (l *Local) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func (l *Local) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	p := l.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(p)
		return "", err
	}

	return l.baseURL + "/" + key, nil
}

func (l *Local) Delete(ctx context.Context, key string) error {
	err := os.Remove(l.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(l.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
