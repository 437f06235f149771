package scan

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"personashield/internal/config"
	"personashield/internal/domain"
	"personashield/internal/port"
)

// Client implements port.ScanClient against the visual-document scan API.
type Client struct {
	baseURL    string
	apiKey     string
	submitPath string
	statusPath string
	resultPath string
	loc        *time.Location
	client     *http.Client
}

// NewClient creates a scan client from the scan config.
func NewClient(cfg *config.ScanConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify} //nolint:gosec
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		submitPath: cfg.SubmitPath,
		statusPath: cfg.StatusPath,
		resultPath: cfg.ResultPath,
		loc:        cfg.Location(),
		client:     &http.Client{Timeout: timeout, Transport: transport},
	}
}

type submitRequest struct {
	File     string `json:"file"`
	Filename string `json:"filename"`
	Model    string `json:"model"`
}

type submitResponse struct {
	ID string `json:"id"`
}

// Submit sends the document for asynchronous scanning. Only HTTP 202 counts
// as success; any other status is returned as a rejection carrying the code.
func (c *Client) Submit(ctx context.Context, input port.SubmitInput) (string, error) {
	payload := submitRequest{
		File:     base64.StdEncoding.EncodeToString(input.FileBytes),
		Filename: input.Filename,
		Model:    input.Model,
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", c.transportErr(ctx, StepSubmit, "", fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.submitPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", c.transportErr(ctx, StepSubmit, "", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	status, respBody, err := c.do(req)
	if err != nil {
		return "", c.transportErr(ctx, StepSubmit, "", err)
	}

	log.Printf("scan.Client.Submit: processed %s at %s: %d", input.Filename, c.now().Format(time.RFC3339), status)

	if status != http.StatusAccepted {
		log.Printf("scan.Client.Submit: response body: %s", truncate(string(respBody), 2000))
		return "", &Error{
			Step:       StepSubmit,
			Kind:       KindRejected,
			StatusCode: status,
			Err:        fmt.Errorf("scan API error (status %d): %s", status, truncate(string(respBody), 500)),
		}
	}

	var out submitResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", c.transportErr(ctx, StepSubmit, "", fmt.Errorf("unmarshaling response: %w", err))
	}
	if out.ID == "" {
		return "", c.transportErr(ctx, StepSubmit, "", fmt.Errorf("response has no request id"))
	}

	log.Printf("scan.Client.Submit: request id: %s", out.ID)
	return out.ID, nil
}

// PollStatus issues a single status request for requestID.
func (c *Client) PollStatus(ctx context.Context, requestID string) (*domain.StatusSnapshot, error) {
	var snap domain.StatusSnapshot
	if err := c.get(ctx, StepPoll, c.statusPath, requestID, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// FetchResult issues a single result request for requestID.
func (c *Client) FetchResult(ctx context.Context, requestID string) (*domain.ScanResult, error) {
	var result domain.ScanResult
	if err := c.get(ctx, StepFetch, c.resultPath, requestID, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, step Step, path, requestID string, out interface{}) error {
	endpoint := c.baseURL + path + "/" + url.PathEscape(requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return c.transportErr(ctx, step, requestID, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	status, respBody, err := c.do(req)
	if err != nil {
		return c.transportErr(ctx, step, requestID, err)
	}

	if status != http.StatusOK {
		log.Printf("scan.Client: %s %s returned %d: %s", step, requestID, status, truncate(string(respBody), 2000))
		return &Error{
			Step:       step,
			Kind:       KindRejected,
			RequestID:  requestID,
			StatusCode: status,
			Err:        fmt.Errorf("scan API error (status %d): %s", status, truncate(string(respBody), 500)),
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return c.transportErr(ctx, step, requestID, fmt.Errorf("unmarshaling response: %w", err))
	}
	return nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("calling scan API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) transportErr(ctx context.Context, step Step, requestID string, err error) error {
	kind := KindTransport
	if ctx.Err() != nil {
		kind = KindCanceled
	}
	log.Printf("scan.Client: %s failed at %s: %v", step, c.now().Format(time.RFC3339), err)
	return &Error{Step: step, Kind: kind, RequestID: requestID, Err: err}
}

func (c *Client) now() time.Time {
	return time.Now().In(c.loc)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
