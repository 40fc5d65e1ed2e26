package avatar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Resolver picks the avatar URL a page should render. Blank URLs and, when
// verification is on, URLs that fail to load resolve to the default image.
type Resolver struct {
	client     *http.Client
	defaultURL string
	verify     bool
}

func NewResolver(defaultURL string, verify bool, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Resolver{
		client:     newClient(timeout, false),
		defaultURL: defaultURL,
		verify:     verify,
	}
}

func (r *Resolver) Resolve(ctx context.Context, url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return r.defaultURL
	}
	// Site-relative paths are served by us.
	if !r.verify || strings.HasPrefix(url, "/") {
		return url
	}
	if err := r.check(ctx, url); err != nil {
		slog.Debug("Avatar unavailable; using default", "url", url, "error", err)
		return r.defaultURL
	}
	return url
}

func (r *Resolver) check(ctx context.Context, url string) error {
	resp, err := fetch(ctx, r.client, http.MethodHead, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("avatar has content type %q", ct)
	}
	return nil
}
