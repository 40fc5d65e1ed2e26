// Package avatar stores uploaded profile pictures and checks that avatar
// URLs can be loaded.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTooLarge        = errors.New("avatar exceeds the size limit")
	ErrUnsupportedType = errors.New("avatar must be a PNG, JPEG, GIF or WebP image")
	ErrForeignPath     = errors.New("avatar is not managed by this store")
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// LocalStore keeps avatars on the local filesystem and hands out URLs under
// a public prefix that the HTTP server maps back to the directory.
type LocalStore struct {
	dir     string
	prefix  string
	maxSize int64
	client  *http.Client
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, prefix string, maxSize int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create avatar directory: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		prefix:  "/" + strings.Trim(prefix, "/"),
		maxSize: maxSize,
		client:  newClient(10*time.Second, false),
	}, nil
}

func (s *LocalStore) Dir() string    { return s.dir }
func (s *LocalStore) Prefix() string { return s.prefix }

// StoreFromBytes saves an uploaded image and returns its public URL.
func (s *LocalStore) StoreFromBytes(_ context.Context, ownerID string, data []byte) (string, error) {
	if int64(len(data)) > s.maxSize {
		return "", ErrTooLarge
	}
	ext, ok := extensions[http.DetectContentType(data)]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := fmt.Sprintf("%s-%s%s", safeName(ownerID), uuid.NewString(), ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write avatar: %w", err)
	}
	return path.Join(s.prefix, name), nil
}

// StoreFromURL downloads a remote image into the store. Only public http(s)
// hosts are fetched.
func (s *LocalStore) StoreFromURL(ctx context.Context, ownerID, url string) (string, error) {
	resp, err := fetch(ctx, s.client, http.MethodGet, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize+1))
	if err != nil {
		return "", ErrUnreachable
	}
	return s.StoreFromBytes(ctx, ownerID, data)
}

// Delete removes an avatar previously returned by this store.
func (s *LocalStore) Delete(_ context.Context, publicURL string) error {
	if !s.Owns(publicURL) {
		return ErrForeignPath
	}
	name := strings.TrimPrefix(publicURL, s.prefix+"/")
	if name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		return ErrForeignPath
	}
	return os.Remove(filepath.Join(s.dir, name))
}

// Owns reports whether publicURL points into this store.
func (s *LocalStore) Owns(publicURL string) bool {
	return strings.HasPrefix(publicURL, s.prefix+"/")
}

func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}
