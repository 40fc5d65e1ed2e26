package avatar

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

var (
	ErrBlockedURL  = errors.New("avatar URL is not allowed")
	ErrUnreachable = errors.New("avatar could not be downloaded")
)

const maxRedirects = 3

// sharedAddressSpace is 100.64.0.0/10 (carrier-grade NAT).
var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// publicIP reports whether ip is routable on the public internet.
func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		sharedAddressSpace.Contains(ip))
}

// refusePrivate runs after name resolution, so it sees the address that is
// about to be dialed.
func refusePrivate(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !publicIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedURL, host)
	}
	return nil
}

// checkURL accepts absolute http(s) URLs only.
func checkURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, ErrBlockedURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrBlockedURL
	}
	return u, nil
}

// newClient builds the client used for outbound avatar requests. Unless
// allowPrivate is set it refuses to connect to loopback, private and
// link-local addresses, including after redirects.
func newClient(timeout time.Duration, allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: timeout}
	if !allowPrivate {
		dialer.Control = refusePrivate
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: timeout,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			if _, err := checkURL(req.URL.String()); err != nil {
				return err
			}
			return nil
		},
	}
}

// fetch runs req and hands back the response only when it was a 2xx. Every
// other outcome collapses into ErrUnreachable so callers cannot tell a
// closed port from a missing file.
func fetch(ctx context.Context, client *http.Client, method, raw string) (*http.Response, error) {
	u, err := checkURL(raw)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, ErrBlockedURL
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedURL) {
			return nil, ErrBlockedURL
		}
		return nil, ErrUnreachable
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, ErrUnreachable
	}
	return resp, nil
}
