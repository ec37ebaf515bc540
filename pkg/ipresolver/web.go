package ipresolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxBodySize caps how much of the echo service response is read.
const maxBodySize = 1024

// Web asks an HTTP "what is my IP" service that answers with plain text.
//
// The response is trimmed of surrounding whitespace and returned as-is; it is
// not checked to be a well-formed address.
type Web struct {
	url        string
	httpClient *http.Client
}

// NewWeb creates a Web resolver for serviceURL. A nil client uses http.DefaultClient.
func NewWeb(serviceURL string, httpClient *http.Client) *Web {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Web{url: serviceURL, httpClient: httpClient}
}

// Resolve implements Resolver.
func (w *Web) Resolve(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %w", ErrLookup, err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "text/plain")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: requesting %s: %w", ErrLookup, w.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned %s", ErrLookup, w.url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %w", ErrLookup, err)
	}
	if !utf8.Valid(body) {
		return "", fmt.Errorf("%w: response from %s is not text", ErrLookup, w.url)
	}

	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", fmt.Errorf("%w: empty response from %s", ErrLookup, w.url)
	}
	return ip, nil
}
