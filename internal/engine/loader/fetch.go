package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds a single fetch when none is configured.
const DefaultTimeout = 30 * time.Second

// Fetcher reads asset bytes from http(s) URLs, file URLs and local paths.
type Fetcher struct {
	client  *http.Client
	baseURL *url.URL
}

// NewFetcher creates a fetcher. Relative URLs resolve against baseURL when
// it is non-empty, otherwise against the working directory.
func NewFetcher(timeout time.Duration, baseURL string) (*Fetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	f := &Fetcher{client: &http.Client{Timeout: timeout}}
	if baseURL != "" {
		u, err := url.Parse(EscapeURL(baseURL))
		if err != nil {
			return nil, fmt.Errorf("parse base URL: %w", err)
		}
		f.baseURL = u
	}
	return f, nil
}

// Resolve turns a raw asset reference into an absolute location.
func (f *Fetcher) Resolve(raw string) (*url.URL, error) {
	if isWindowsPath(raw) {
		return &url.URL{Scheme: "file", Path: filepath.ToSlash(raw)}, nil
	}
	u, err := url.Parse(EscapeURL(raw))
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	if u.Scheme == "" && f.baseURL != nil {
		u = f.baseURL.ResolveReference(u)
	}
	if u.Scheme == "" {
		u.Scheme = "file"
	}
	if u.Scheme == "file" && !path.IsAbs(u.Path) && !isWindowsPath(u.Path) {
		abs, err := filepath.Abs(filepath.FromSlash(u.Path))
		if err != nil {
			return nil, err
		}
		u.Path = filepath.ToSlash(abs)
	}
	return u, nil
}

// Fetch reads the whole resource. progress, when non-nil, receives
// percentages in [0, 100] as bytes arrive.
func (f *Fetcher) Fetch(ctx context.Context, raw string, progress func(int)) ([]byte, error) {
	u, err := f.Resolve(raw)
	if err != nil {
		return nil, err
	}
	return f.fetchURL(ctx, u, progress)
}

func (f *Fetcher) fetchURL(ctx context.Context, u *url.URL, progress func(int)) ([]byte, error) {
	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, u, progress)
	case "file":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.FromSlash(u.Path))
		if err != nil {
			return nil, err
		}
		report(progress, 100)
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, u *url.URL, progress func(int)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	pr := &progressReader{r: resp.Body, total: resp.ContentLength, fn: progress, last: -1}
	pr.emit()

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}
	if _, err := io.Copy(&buf, pr); err != nil {
		return nil, err
	}
	report(progress, 100)
	return buf.Bytes(), nil
}

func report(fn func(int), pct int) {
	if fn != nil {
		fn(pct)
	}
}

// progressReader reports round(read/total*100) whenever it changes.
type progressReader struct {
	r     io.Reader
	read  int64
	total int64
	fn    func(int)
	last  int
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	p.emit()
	return n, err
}

func (p *progressReader) emit() {
	if p.fn == nil || p.total <= 0 {
		return
	}
	pct := int(math.Round(float64(p.read) / float64(p.total) * 100))
	if pct > 100 {
		pct = 100
	}
	if pct != p.last {
		p.last = pct
		p.fn(pct)
	}
}

func isWindowsPath(s string) bool {
	return len(s) >= 3 && s[1] == ':' && (s[2] == '\\' || s[2] == '/') &&
		('a' <= s[0] && s[0] <= 'z' || 'A' <= s[0] && s[0] <= 'Z')
}

// resourceFS exposes the siblings of an asset (external glTF buffers and
// images) as an fs.FS backed by the fetcher.
type resourceFS struct {
	ctx     context.Context
	fetcher *Fetcher
	base    *url.URL
}

func (r *resourceFS) ReadFile(name string) ([]byte, error) {
	ref, err := url.Parse(EscapeURL(name))
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	if ref.Scheme == "" && strings.HasPrefix(ref.Path, "/") {
		ref.Path = strings.TrimPrefix(ref.Path, "/")
	}
	data, err := r.fetcher.fetchURL(r.ctx, r.base.ResolveReference(ref), nil)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fs.ErrNotExist
		}
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

func (r *resourceFS) Open(name string) (fs.File, error) {
	data, err := r.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &memFile{Reader: bytes.NewReader(data), name: path.Base(name), size: int64(len(data))}, nil
}

type memFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *memFile) Stat() (fs.FileInfo, error) { return memInfo{f.name, f.size}, nil }
func (f *memFile) Close() error               { return nil }

type memInfo struct {
	name string
	size int64
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() fs.FileMode  { return 0o444 }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return false }
func (i memInfo) Sys() any           { return nil }
