// Package filestore keeps review attachments in Azure Blob Storage or on local disk.
package filestore

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Store uploads attachments and removes them by their public URL.
type Store interface {
	// Upload writes reader under key and returns the public URL.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	// Delete removes the file behind url. Returns ErrNotFound if it is already gone.
	Delete(ctx context.Context, url string) error
}

const (
	BackendLocal = "local"
	BackendAzure = "azure"
)

type Config struct {
	Backend          string
	Dir              string
	BaseURL          string
	ConnectionString string
	Container        string
}

// New builds the configured backend. The Azure container is created if missing.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendAzure:
		return NewAzure(ctx, cfg.ConnectionString, cfg.Container)
	case BackendLocal, "":
		return NewLocal(cfg.Dir, cfg.BaseURL)
	}
	return nil, fmt.Errorf("unknown file store backend %q", cfg.Backend)
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	return nil
}

// keyFromURL strips base from url and validates the remainder.
func keyFromURL(base, url string) (string, error) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", ErrForeignURL
	}
	key := strings.TrimPrefix(url, prefix)
	if err := validateKey(key); err != nil {
		return "", err
	}
	return key, nil
}
