package avatar

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "avatars"), "avatars/", 1024)
	require.NoError(t, err)
	assert.Equal(t, "/avatars", store.Prefix())

	t.Run("StoreFromBytes", func(t *testing.T) {
		ctx := context.Background()
		url, err := store.StoreFromBytes(ctx, "user/1", pngHeader)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "/avatars/user_1-"))
		assert.True(t, strings.HasSuffix(url, ".png"))

		content, err := os.ReadFile(filepath.Join(store.Dir(), strings.TrimPrefix(url, "/avatars/")))
		require.NoError(t, err)
		assert.Equal(t, pngHeader, content)

		require.NoError(t, store.Delete(ctx, url))
		assert.Error(t, store.Delete(ctx, url))
	})

	t.Run("StoreFromURL", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(pngHeader)
		}))
		defer ts.Close()
		store.client = newClient(time.Second, true)

		url, err := store.StoreFromURL(context.Background(), "u2", ts.URL)
		require.NoError(t, err)
		assert.True(t, store.Owns(url))
	})

	t.Run("Rejects", func(t *testing.T) {
		ctx := context.Background()
		_, err := store.StoreFromBytes(ctx, "u", []byte("plain text, not an image"))
		assert.ErrorIs(t, err, ErrUnsupportedType)

		big := append(append([]byte{}, pngHeader...), make([]byte, 2048)...)
		_, err = store.StoreFromBytes(ctx, "u", big)
		assert.ErrorIs(t, err, ErrTooLarge)

		assert.ErrorIs(t, store.Delete(ctx, "/elsewhere/x.png"), ErrForeignPath)
		assert.ErrorIs(t, store.Delete(ctx, "/avatars/../secret"), ErrForeignPath)
	})
}

func TestResolver(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
		case "/page":
			w.Header().Set("Content-Type", "text/html")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	ctx := context.Background()
	r := NewResolver("/static/default-avatar.svg", true, time.Second)
	assert.Equal(t, "/static/default-avatar.svg", r.Resolve(ctx, ts.URL+"/ok.png"))
	assert.Equal(t, "/static/default-avatar.svg", r.Resolve(ctx, "file:///etc/passwd"))
	r.client = newClient(time.Second, true)

	assert.Equal(t, "/static/default-avatar.svg", r.Resolve(ctx, "  "))
	assert.Equal(t, "/avatars/mine.png", r.Resolve(ctx, "/avatars/mine.png"))
	assert.Equal(t, ts.URL+"/ok.png", r.Resolve(ctx, ts.URL+"/ok.png"))
	assert.Equal(t, "/static/default-avatar.svg", r.Resolve(ctx, ts.URL+"/missing.png"))
	assert.Equal(t, "/static/default-avatar.svg", r.Resolve(ctx, ts.URL+"/page"))

	lenient := NewResolver("/static/default-avatar.svg", false, 0)
	assert.Equal(t, ts.URL+"/missing.png", lenient.Resolve(ctx, ts.URL+"/missing.png"))
}

func TestStoreFromURLRefusesInternalHosts(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(pngHeader)
	}))
	defer ts.Close()

	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "/avatars", 1024)
	require.NoError(t, err)

	for _, url := range []string{
		ts.URL,
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.1/a.png",
		"http://[::1]:9/a.png",
		"file:///etc/passwd",
		"gopher://example.com/",
		"/relative.png",
	} {
		_, err := store.StoreFromURL(ctx, "u", url)
		assert.ErrorIs(t, err, ErrBlockedURL, url)
	}
	assert.Zero(t, hits.Load())
}

func TestClientRefusesInternalHosts(t *testing.T) {
	_, err := newClient(time.Second, false).Get("http://127.0.0.1:1/")
	assert.ErrorIs(t, err, ErrBlockedURL)

	redirect := &http.Request{URL: mustParse(t, "ftp://example.com/a.png")}
	assert.ErrorIs(t, newClient(time.Second, false).CheckRedirect(redirect, nil), ErrBlockedURL)
}

func TestStoreFromURLFailuresLookAlike(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()
	defer ts.Close()

	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "/avatars", 1024)
	require.NoError(t, err)
	store.client = newClient(time.Second, true)

	_, statusErr := store.StoreFromURL(ctx, "u", ts.URL)
	_, dialErr := store.StoreFromURL(ctx, "u", closedURL)
	assert.ErrorIs(t, statusErr, ErrUnreachable)
	assert.ErrorIs(t, dialErr, ErrUnreachable)
	assert.Equal(t, statusErr.Error(), dialErr.Error())
}

func TestPublicIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"8.8.8.8", true},
		{"2606:4700:4700::1111", true},
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"::1", false},
		{"fe80::1", false},
		{"fd00::1", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, publicIP(net.ParseIP(tt.ip)), tt.ip)
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
