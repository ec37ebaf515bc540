package porkbun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gitlab.bluewillows.net/root/porkddns/internal/metrics"
)

// DefaultBaseURL is the Porkbun v3 JSON API root.
const DefaultBaseURL = "https://api.porkbun.com/api/json/v3"

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 4 << 20

// Client issues authenticated POST requests against the Porkbun API.
// It holds no per-cycle state and is safe for concurrent use.
type Client struct {
	baseURL     string
	credentials Credentials
	httpClient  *http.Client
	logger      *slog.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Porkbun client authenticating with creds.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		credentials: creds,
		httpClient:  http.DefaultClient,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// post JSON-encodes body, POSTs it to path and returns the status code and
// response body. Only transport failures are errors.
func (c *Client) post(ctx context.Context, endpoint, path string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encoding request body: %w", err)
	}

	reqURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return 0, nil, fmt.Errorf("%w: POST %s: %w", ErrTransport, reqURL, err)
	}
	defer resp.Body.Close()

	metrics.APIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: reading response from %s: %w", ErrTransport, reqURL, err)
	}

	c.logger.Debug("porkbun response",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
	)

	return resp.StatusCode, respBody, nil
}

// Retrieve returns every DNS record of site.
func (c *Client) Retrieve(ctx context.Context, site string) ([]Record, error) {
	path := "/dns/retrieve/" + url.PathEscape(site)

	_, body, err := c.post(ctx, "retrieve", path, c.credentials)
	if err != nil {
		return nil, fmt.Errorf("retrieving records for %s: %w", site, err)
	}

	var result retrieveResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding records for %s: %v", ErrAPIAccess, site, err)
	}
	if result.Records == nil {
		if result.Message != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrAPIAccess, site, result.Message)
		}
		return nil, fmt.Errorf("%w: %s: response has no records", ErrAPIAccess, site)
	}

	return *result.Records, nil
}

// ListARecordSubdomains returns the subdomain labels of site's A records in
// provider order. See SubdomainLabels.
func (c *Client) ListARecordSubdomains(ctx context.Context, site string) ([]string, error) {
	records, err := c.Retrieve(ctx, site)
	if err != nil {
		return nil, err
	}
	return SubdomainLabels(records), nil
}

// UpdateARecord edits the A record of subdomain.site, or of site itself when
// subdomain is empty, to hold body.Content.
//
// Porkbun answers an edit that would not change the record with an error
// status, so any non-2xx response is reported as OutcomeUnchanged. A genuine
// rejection (bad credentials, missing record) is indistinguishable from that
// case and is reported the same way.
func (c *Client) UpdateARecord(ctx context.Context, site, subdomain string, body UpdateRequestBody) (Outcome, error) {
	path := "/dns/editByNameType/" + url.PathEscape(site) + "/" + RecordTypeA + "/" + url.PathEscape(subdomain)

	status, respBody, err := c.post(ctx, "editByNameType", path, body)
	if err != nil {
		return OutcomeUnchanged, fmt.Errorf("updating A record %q of %s: %w", subdomain, site, err)
	}

	if status < 200 || status > 299 {
		var sr statusResponse
		_ = json.Unmarshal(respBody, &sr)
		c.logger.Debug("porkbun rejected edit",
			slog.String("site", site),
			slog.String("subdomain", subdomain),
			slog.Int("status", status),
			slog.String("message", sr.Message),
		)
		return OutcomeUnchanged, nil
	}

	return OutcomeUpdated, nil
}

// Ping checks connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	status, body, err := c.post(ctx, "ping", "/ping", c.credentials)
	if err != nil {
		return err
	}

	var sr statusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return fmt.Errorf("%w: status %d: decoding response: %v", ErrPing, status, err)
	}
	if status < 200 || status > 299 || sr.Status != "SUCCESS" {
		if sr.Message != "" {
			return fmt.Errorf("%w: status %d: %s", ErrPing, status, sr.Message)
		}
		return fmt.Errorf("%w: status %d", ErrPing, status)
	}
	return nil
}
