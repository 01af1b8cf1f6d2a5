// Package netcache fetches remote templates and data files into a local
// cache, revalidating with ETag and Last-Modified.
package netcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when the server answers 404 or 410.
var ErrNotFound = errors.New("remote resource not found")

// Cache provides a simple persistent HTTP cache with ETag/Last-Modified support.
type Cache struct {
	Dir     string
	Client  *http.Client
	Logger  *slog.Logger
	Retries int
	Backoff time.Duration
}

// New returns a new Cache with a reasonable default HTTP client.
func New(dir string) *Cache {
	return &Cache{
		Dir:     dir,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Logger:  slog.New(slog.DiscardHandler),
		Retries: 3,
		Backoff: time.Second,
	}
}

type meta struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	// DataFile is the basename of the cached payload file
	DataFile string `json:"data_file"`
}

// Get fetches the URL into the cache and returns a local file path.
// If the cache is valid, it is reused without downloading.
// Returns (path, fromCache, error).
func (c *Cache) Get(ctx context.Context, url string) (string, bool, error) {
	key := hash(url)
	mpath := filepath.Join(c.Dir, key+".json")

	m, haveMeta := readMeta(mpath, url, c.Dir)
	if haveMeta {
		path, fresh, err := c.revalidate(ctx, url, key, mpath, m)
		if err == nil {
			return path, !fresh, nil
		}
		if errors.Is(err, ErrNotFound) {
			return "", false, err
		}
		// If conditional request fails (network or server), reuse cached file best-effort
		c.Logger.Warn("revalidation failed, using cached copy", "url", url, "error", err)
		return filepath.Join(c.Dir, m.DataFile), true, nil
	}

	var lastErr error
	attempts := max(c.Retries, 1)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			// Backoff before retrying
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(time.Duration(1<<(attempt-1)) * c.Backoff):
			}
		}
		path, err := c.fetch(ctx, url, key, mpath, nil)
		if err == nil {
			return path, false, nil
		}
		if errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			return "", false, err
		}
		c.Logger.Debug("fetch failed", "url", url, "attempt", attempt+1, "error", err)
		lastErr = err
	}
	return "", false, lastErr
}

// Read returns the content of url, going through the cache.
func (c *Cache) Read(ctx context.Context, url string) ([]byte, error) {
	path, fromCache, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("remote file", "url", url, "cached", fromCache)
	return os.ReadFile(path)
}

// revalidate issues a conditional GET. fresh is true when a new body was
// stored.
func (c *Cache) revalidate(ctx context.Context, url, key, mpath string, m meta) (string, bool, error) {
	h := http.Header{}
	if m.ETag != "" {
		h.Set("If-None-Match", m.ETag)
	}
	if m.LastModified != "" {
		h.Set("If-Modified-Since", m.LastModified)
	}
	path, err := c.fetch(ctx, url, key, mpath, h)
	if errors.Is(err, errNotModified) {
		return filepath.Join(c.Dir, m.DataFile), false, nil
	}
	return path, err == nil, err
}

var errNotModified = errors.New("not modified")

func (c *Cache) fetch(ctx context.Context, url, key, mpath string, h http.Header) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	for k, v := range h {
		req.Header[k] = v
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return "", errNotModified
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return "", fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}

	dataFile := key + ".data"
	path := filepath.Join(c.Dir, dataFile)
	if err := streamToFile(resp.Body, path, 0o644); err != nil {
		return "", err
	}
	nm := meta{
		URL:          url,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		DataFile:     dataFile,
	}
	if err := writeMeta(mpath, nm); err != nil {
		return "", err
	}
	return path, nil
}

func readMeta(mpath, url, dir string) (meta, bool) {
	var m meta
	b, err := os.ReadFile(mpath)
	if err != nil {
		return m, false
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, false
	}
	// Validate basic consistency
	if m.URL != url || m.DataFile == "" || !fileExists(filepath.Join(dir, m.DataFile)) {
		return m, false
	}
	return m, true
}

func streamToFile(r io.Reader, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func writeMeta(path string, m meta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
