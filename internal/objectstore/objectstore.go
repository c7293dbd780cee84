// Package objectstore implements the key-addressed blob storage used to
// persist Planet thumbnail evidence, grounded on original_source/src/storage.py.
// That module supports both a Cloudflare R2 backend and a local data/
// directory fallback; per SPEC_FULL.md §6 only the local filesystem backend
// is implemented here — R2 is a documented extension point (a second Store
// implementation behind the same interface), not wired, since no S3-client
// library appears anywhere in the example corpus to ground it on.
package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store is the storage-backend contract. LocalStore is the only
// implementation; a future R2Store would satisfy the same interface.
type Store interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) bool
}

// MakeKey builds the "{county}_{state}/{parcel}/{date}/{filename}" key
// convention documented in storage.py's module docstring.
func MakeKey(county, state, parcelID string, scanDate time.Time, filename string) string {
	countySlug := strings.ReplaceAll(strings.ToLower(county), " ", "_") + "_" + strings.ToLower(state)
	parcelSlug := strings.NewReplacer("/", "_", " ", "_").Replace(parcelID)
	return fmt.Sprintf("%s/%s/%s/%s", countySlug, parcelSlug, scanDate.Format("2006-01-02"), filename)
}

// MakePointKey builds the "points/{lat}_{lng}/{date}/{filename}" key used
// before a parcel association exists (e.g. an ad-hoc coordinate scan).
func MakePointKey(lat, lng float64, scanDate time.Time, filename string) string {
	return fmt.Sprintf("points/%.4f_%.4f/%s/%s", lat, lng, scanDate.Format("2006-01-02"), filename)
}

// LocalStore persists blobs under a root directory, mirroring storage.py's
// _upload_local/_download_local fallback.
type LocalStore struct {
	root string
}

// NewLocalStore builds a LocalStore rooted at dir ("data" if empty).
func NewLocalStore(dir string) *LocalStore {
	if dir == "" {
		dir = "data"
	}
	return &LocalStore{root: dir}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Upload writes data under key and returns the local path as its "URL".
func (s *LocalStore) Upload(_ context.Context, key string, data []byte) (string, error) {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("objectstore: mkdir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("objectstore: write %s: %w", p, err)
	}
	return p, nil
}

// Download reads the blob stored under key.
func (s *LocalStore) Download(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("objectstore: read %s: %w", key, err)
	}
	return data, nil
}

// Exists reports whether key has a blob on disk.
func (s *LocalStore) Exists(_ context.Context, key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}
