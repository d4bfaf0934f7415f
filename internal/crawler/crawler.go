package crawler

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const userAgent = "sentiboard/1.0"

// HTTPClient reads CSV exports from http(s) URLs, file:// URLs or local
// paths.
type HTTPClient struct {
	client  *http.Client
	sizeCap int64
}

func NewHTTPClient(timeout, dialTimeout time.Duration, sizeCap int64) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Transport: newTransport(dialTimeout), Timeout: timeout},
		sizeCap: sizeCap,
	}
}

func newTransport(dialTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// Fetch opens location and returns its body, the location actually read
// (after redirects) and how long opening took. The body is capped at the
// client's size cap; reading past it fails with ErrTooLarge.
func (h *HTTPClient) Fetch(ctx context.Context, location string) (io.ReadCloser, string, time.Duration, error) {
	start := time.Now()
	u, err := url.Parse(location)
	if err != nil || location == "" {
		return nil, "", 0, fmt.Errorf("invalid location %q", location)
	}

	var (
		body  io.ReadCloser
		final string
	)
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return nil, "", 0, fmt.Errorf("invalid location %q", location)
		}
		body, final, err = h.get(ctx, u)
	case "file":
		body, final, err = openFile(u.Path)
	case "":
		body, final, err = openFile(location)
	default:
		// a Windows drive letter parses as a scheme
		if len(u.Scheme) == 1 {
			body, final, err = openFile(location)
			break
		}
		return nil, "", 0, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, "", 0, err
	}

	sniffed, err := rejectHTML(body)
	if err != nil {
		body.Close()
		return nil, "", 0, fmt.Errorf("%s: %w", final, err)
	}
	left := h.sizeCap
	if left <= 0 {
		left = math.MaxInt64
	}
	return &cappedBody{r: sniffed, c: body, left: left}, final, time.Since(start), nil
}

func (h *HTTPClient) get(ctx context.Context, u *url.URL) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "text/csv,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	final := resp.Request.URL.String()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, "", &HTTPError{StatusCode: resp.StatusCode, URL: final}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" {
		resp.Body.Close()
		return nil, "", fmt.Errorf("%s: %w (content type %s)", final, ErrNotCSV, mediaType)
	}

	var body io.ReadCloser = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, "", err
		}
		body = &gzipBody{Reader: gz, raw: resp.Body}
	}
	return body, final, nil
}

func openFile(path string) (io.ReadCloser, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return f, abs, nil
}

// rejectHTML peeks at the start of body and fails with ErrNotCSV when it
// looks like an HTML document, whatever the declared content type.
func rejectHTML(body io.Reader) (io.Reader, error) {
	br := bufio.NewReader(body)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	head = []byte(strings.TrimPrefix(string(head), "\xef\xbb\xbf"))
	if strings.HasPrefix(http.DetectContentType(head), "text/html") {
		return nil, ErrNotCSV
	}
	return br, nil
}

type gzipBody struct {
	*gzip.Reader
	raw io.Closer
}

func (g *gzipBody) Close() error {
	g.Reader.Close()
	return g.raw.Close()
}

// cappedBody reads at most left bytes and fails with ErrTooLarge when the
// underlying body has more.
type cappedBody struct {
	r    io.Reader
	c    io.Closer
	left int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.left <= 0 {
		// one byte more tells a body of exactly the cap from a longer one
		var probe [1]byte
		if n, _ := b.r.Read(probe[:]); n > 0 {
			return 0, ErrTooLarge
		}
		return 0, io.EOF
	}
	if int64(len(p)) > b.left {
		p = p[:b.left]
	}
	n, err := b.r.Read(p)
	b.left -= int64(n)
	return n, err
}

func (b *cappedBody) Close() error { return b.c.Close() }
