package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Local stores files under Dir and serves them below BaseURL.
type Local struct {
	Dir     string
	BaseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("local file store requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create file store dir: %w", err)
	}
	if baseURL == "" {
		baseURL = "/files"
	}
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	path := filepath.Join(l.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", key, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	return l.BaseURL + "/" + key, nil
}

func (l *Local) Delete(ctx context.Context, fileURL string) error {
	key, err := keyFromURL(l.BaseURL, fileURL)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.Dir, filepath.FromSlash(key))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// MountPath is the router path the files are served under.
func (l *Local) MountPath() string {
	if u, err := url.Parse(l.BaseURL); err == nil && u.Path != "" {
		return strings.TrimRight(u.Path, "/")
	}
	return "/files"
}

// Handler serves stored files; mount it at MountPath.
func (l *Local) Handler() http.Handler {
	return http.StripPrefix(l.MountPath()+"/", http.FileServer(http.Dir(l.Dir)))
}
