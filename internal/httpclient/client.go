package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/oukeidos/photomotion/internal/version"
)

const (
	// DefaultTimeout bounds a single download of a generated video.
	DefaultTimeout = 5 * time.Minute
	// MaxResponseBytes caps downloaded artifacts. Generated clips are a few MB.
	MaxResponseBytes = 256 * 1024 * 1024
	// MaxErrorBodyBytes caps how much of a failed response body is kept for error messages.
	MaxErrorBodyBytes = 4 * 1024

	MaxIdleConns          = 20
	MaxIdleConnsPerHost   = 4
	IdleConnTimeout       = 90 * time.Second
	TLSHandshakeTimeout   = 30 * time.Second
	ExpectContinueTimeout = 2 * time.Second
)

var (
	defaultClient     *http.Client
	defaultClientOnce sync.Once
	overrideMu        sync.RWMutex
	overrideClient    *http.Client
)

// NewClient returns a new http.Client with the specified timeout.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          MaxIdleConns,
		MaxIdleConnsPerHost:   MaxIdleConnsPerHost,
		IdleConnTimeout:       IdleConnTimeout,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// GetDefaultClient returns the shared client used for artifact downloads.
func GetDefaultClient() *http.Client {
	overrideMu.RLock()
	c := overrideClient
	overrideMu.RUnlock()
	if c != nil {
		return c
	}
	defaultClientOnce.Do(func() {
		defaultClient = NewClient(DefaultTimeout)
	})
	return defaultClient
}

// SetDefaultClientForTesting overrides the singleton client for tests.
// It returns a restore function to reset the previous client.
func SetDefaultClientForTesting(client *http.Client) func() {
	overrideMu.Lock()
	prev := overrideClient
	overrideClient = client
	overrideMu.Unlock()
	return func() {
		overrideMu.Lock()
		overrideClient = prev
		overrideMu.Unlock()
	}
}

// StatusError reports a non-2xx response. Body holds at most MaxErrorBodyBytes.
type StatusError struct {
	StatusCode int
	StatusText string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return e.StatusText
	}
	return fmt.Sprintf("%s: %s", e.StatusText, e.Body)
}

// Get performs a GET and returns the full body. Non-2xx responses become *StatusError.
// The body is always closed and its size capped at MaxResponseBytes.
func Get(ctx context.Context, client *http.Client, url string) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodyBytes))
		return nil, resp, &StatusError{
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
			Body:       string(errBody),
		}
	}

	if resp.ContentLength > MaxResponseBytes {
		return nil, resp, fmt.Errorf("response body too large (limit %d bytes)", MaxResponseBytes)
	}
	limited := &io.LimitedReader{R: resp.Body, N: MaxResponseBytes + 1}
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, resp, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseBytes {
		return nil, resp, fmt.Errorf("response body too large (limit %d bytes)", MaxResponseBytes)
	}
	return body, resp, nil
}

// statusText returns the reason phrase, e.g. "Forbidden" for "403 Forbidden".
func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
