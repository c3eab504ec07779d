package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// MaxImageBytes caps the size of a fetched or decoded image source.
	MaxImageBytes = 20 << 20
	// MaxImagePixels caps the decoded area of an image source.
	MaxImagePixels = 16 << 20
)

// ErrForbiddenSource is returned for remote sources the loader may not reach.
var ErrForbiddenSource = errors.New("image source not allowed")

// Loader resolves layer and garment image sources.
type Loader struct {
	client *http.Client
	hosts  []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// AllowHosts restricts remote sources to the given hosts. No hosts means any
// host the client can reach.
func AllowHosts(hosts ...string) LoaderOption {
	return func(l *Loader) {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				l.hosts = append(l.hosts, h)
			}
		}
	}
}

// NewLoader returns a loader fetching remote sources with client. A nil
// client means one from NewClient with a 10 second timeout.
func NewLoader(client *http.Client, opts ...LoaderOption) *Loader {
	if client == nil {
		client = NewClient(10 * time.Second)
	}
	l := &Loader{client: client}
	for _, opt := range opts {
		opt(l)
	}
	if len(l.hosts) > 0 {
		c := *client
		next := c.CheckRedirect
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if !l.allowed(req.URL) {
				return fmt.Errorf("%w: redirect to %s", ErrForbiddenSource, req.URL.Hostname())
			}
			if next != nil {
				return next(req, via)
			}
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		}
		l.client = &c
	}
	return l
}

// NewClient returns an HTTP client that only dials public unicast addresses
// and ignores proxy settings.
func NewClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout: timeout,
		Control: func(_, address string, _ syscall.RawConn) error {
			ap, err := netip.ParseAddrPort(address)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrForbiddenSource, err)
			}
			if !publicAddr(ap.Addr()) {
				return fmt.Errorf("%w: %s", ErrForbiddenSource, ap.Addr())
			}
			return nil
		},
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: timeout,
			MaxIdleConns:        16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func publicAddr(a netip.Addr) bool {
	a = a.Unmap()
	return a.IsValid() &&
		!a.IsLoopback() &&
		!a.IsPrivate() &&
		!a.IsLinkLocalUnicast() &&
		!a.IsLinkLocalMulticast() &&
		!a.IsInterfaceLocalMulticast() &&
		!a.IsMulticast() &&
		!a.IsUnspecified()
}

// Load decodes src, which is either a base64 data URI or an http(s) URL.
func (l *Loader) Load(ctx context.Context, src string) (image.Image, error) {
	switch {
	case core.IsDataURI(src):
		mediaType, data, err := core.ParseDataURI(src)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(mediaType, "image/") {
			return nil, fmt.Errorf("data URI is %s, not an image", mediaType)
		}
		if len(data) > MaxImageBytes {
			return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
		}
		return decode(data)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetch(ctx, src)
	default:
		return nil, fmt.Errorf("unsupported image source %q", truncate(src, 32))
	}
}

func (l *Loader) allowed(u *url.URL) bool {
	return len(l.hosts) == 0 || slices.Contains(l.hosts, strings.ToLower(u.Hostname()))
}

func (l *Loader) fetch(ctx context.Context, src string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	if !l.allowed(req.URL) {
		return nil, fmt.Errorf("%w: %s", ErrForbiddenSource, req.URL.Hostname())
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", truncate(src, 64), resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	return decode(data)
}

// decode reads the header first so oversized images are refused before any
// pixel buffer is allocated.
func decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, fmt.Errorf("decode image: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxImagePixels)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
