package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// StatusError is a non-2xx answer from the billing backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("billing API error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("billing API error %d", e.Code)
}

// Client is an HTTP client for the billing backend.
//
// register-and-pay uses its own long timeout: the backend holds the request
// open while the mobile-money STK push is confirmed on the handset, which can
// take most of a minute. Status reads stay on a short timeout so a slow tick
// costs one poll attempt, not the whole budget.
type Client struct {
	baseURL      string
	submitClient *http.Client
	statusClient *http.Client
	log          *slog.Logger
}

// NewClient creates a billing API client.
func NewClient(baseURL string, submitTimeout, statusTimeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		submitClient: &http.Client{Timeout: submitTimeout},
		statusClient: &http.Client{Timeout: statusTimeout},
		log:          log,
	}
}

func (c *Client) doRequest(ctx context.Context, client *http.Client, method, path string, body interface{}) ([]byte, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		c.log.Debug("billing API error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return nil, &StatusError{Code: resp.StatusCode, Message: apiErr.text()}
	}

	return data, nil
}

// RegisterAndPay submits one charge request. No retries happen here: the
// backend gives no idempotency guarantee, so retry policy belongs to the user.
func (c *Client) RegisterAndPay(ctx context.Context, req PayRequest) (*PayResponse, error) {
	data, err := c.doRequest(ctx, c.submitClient, http.MethodPost, "/hotspot/register-and-pay", req)
	if err != nil {
		return nil, err
	}

	var resp PayResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return &resp, nil
}

// PaymentStatus queries the outcome of a submitted charge.
func (c *Client) PaymentStatus(ctx context.Context, correlationID int64) (*StatusResponse, error) {
	path := fmt.Sprintf("/hotspot/payment-status/%d", correlationID)
	data, err := c.doRequest(ctx, c.statusClient, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp StatusResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return &resp, nil
}

// ResolveRouter looks up the numeric router id for a MikroTik identity.
func (c *Client) ResolveRouter(ctx context.Context, identity string) (int64, error) {
	path := "/hotspot/routers/" + identity
	data, err := c.doRequest(ctx, c.statusClient, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}

	var resp RouterResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("unmarshal: %w", err)
	}

	return resp.ID, nil
}

// Plans fetches the plan catalog. The raw body is returned alongside the
// decoded list so the portal can proxy it untouched.
func (c *Client) Plans(ctx context.Context) ([]Plan, json.RawMessage, error) {
	data, err := c.doRequest(ctx, c.statusClient, http.MethodGet, "/plans?user_id=1", nil)
	if err != nil {
		return nil, nil, err
	}

	var plans []Plan
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, nil, fmt.Errorf("unmarshal: %w", err)
	}

	return plans, data, nil
}
