package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is the raw payload returned by the analysis backend. Score is a
// pointer so an absent field is distinguishable from a genuine zero; the
// ingestion pipeline owns that validation.
type Result struct {
	Score        *int     `json:"score"`
	Verdict      string   `json:"verdict"`
	Findings     []string `json:"findings_list"`
	TotalRecords *int     `json:"total_records,omitempty"`
}

// Client is the ScanService consumed by the dashboard. Implementations
// perform a single request per call; retries and overlap prevention are
// the caller's concern.
type Client interface {
	// AnalyzeURL submits a target for reputation analysis. The caller
	// guarantees target is non-empty.
	AnalyzeURL(ctx context.Context, target string) (*Result, error)

	// BrowserScan runs the no-argument browser history analysis.
	BrowserScan(ctx context.Context) (*Result, error)
}

// NetworkError reports an unreachable backend or a non-success response.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scan %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("scan %s: backend returned status %d", e.Op, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPClient talks to a real analysis backend over HTTP.
type HTTPClient struct {
	base       string
	httpClient *http.Client
	logger     *log.Logger
}

// NewHTTPClient constructs a client for the backend at baseURL,
// e.g. http://127.0.0.1:5000.
func NewHTTPClient(baseURL string, logger *log.Logger) (*HTTPClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("scan: backend URL is required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &HTTPClient{
		base:       strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}, nil
}

// AnalyzeURL POSTs the target as form data to /api/analyze-url.
func (c *HTTPClient) AnalyzeURL(ctx context.Context, target string) (*Result, error) {
	form := url.Values{}
	form.Set("url", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/api/analyze-url", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("scan analyze-url: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, "analyze-url")
}

// BrowserScan GETs /api/browser-scan.
func (c *HTTPClient) BrowserScan(ctx context.Context) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.base+"/api/browser-scan", nil)
	if err != nil {
		return nil, fmt.Errorf("scan browser-scan: build request: %w", err)
	}

	return c.do(req, "browser-scan")
}

func (c *HTTPClient) do(req *http.Request, op string) (*Result, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		c.logger.Printf("%s: backend status %d: %s", op, resp.StatusCode, truncate(string(body), 200))
		return nil, &NetworkError{Op: op, Status: resp.StatusCode}
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("scan %s: decode response: %w", op, err)
	}
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
