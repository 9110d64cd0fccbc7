// Package sensor contains the client for the remote occupancy sensor API.
package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
)

const tenantHeader = "X-Tenant"

type (
	// Reader abstracts the upstream sensor API as an opaque value source.
	Reader interface {
		// Fetch reads the current occupancy value.
		Fetch(ctx context.Context) (float64, error)
		// FetchRaw reads the upstream response body verbatim, for
		// passthrough endpoints.
		FetchRaw(ctx context.Context) ([]byte, error)
	}

	ClientOptions struct {
		// URL of the sensor API endpoint returning {"value": N}.
		URL string
		// Tenant is sent as the X-Tenant header on every request.
		Tenant string
		// Timeout bounds each upstream request so a stalled fetch cannot
		// delay subsequent poll cycles indefinitely.
		Timeout time.Duration
	}

	valueResponse struct {
		Value float64 `json:"value"`
	}

	client struct {
		url        string
		tenant     string
		httpClient *http.Client
	}
)

// NewReader creates a client for the sensor API.
func NewReader(opts ClientOptions) Reader {
	if opts.Timeout <= 0 {
		opts.Timeout = 4 * time.Second
	}
	return &client{
		url:    addScheme(opts.URL),
		tenant: opts.Tenant,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

func (c *client) Fetch(ctx context.Context) (float64, error) {
	body, err := c.doGet(ctx)
	if err != nil {
		return 0, err
	}
	var resp valueResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		glog.Errorf("Error parsing sensor response. url=%q, err=%q, body=%q", c.url, err, string(body))
		return 0, fmt.Errorf("malformed sensor response: %w", err)
	}
	return resp.Value, nil
}

func (c *client) FetchRaw(ctx context.Context) ([]byte, error) {
	return c.doGet(ctx)
}

func (c *client) doGet(ctx context.Context) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, "GET", c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if c.tenant != "" {
		req.Header.Add(tenantHeader, c.tenant)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		glog.Errorf("Get request error to sensor url=%q, err=%q", c.url, err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		glog.Errorf("Error reading sensor response body url=%q, status=%d, error=%q", c.url, resp.StatusCode, err)
		return nil, err
	}
	if glog.V(7) {
		took := time.Since(start)
		glog.Infof("Sensor get request done url=%q, status=%d, latency=%v, body=%q",
			c.url, resp.StatusCode, took, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		glog.Errorf("Status error from sensor url=%q, status=%d, body=%q", c.url, resp.StatusCode, string(body))
		return nil, APIError{resp.StatusCode, string(body)}
	}
	return body, nil
}

func addScheme(url string) string {
	url = strings.ToLower(url)
	if url == "" || strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	if strings.Contains(url, ".local") || strings.HasPrefix(url, "localhost") {
		return "http://" + url
	}
	return "https://" + url
}
