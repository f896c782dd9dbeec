// Package client calls a deployed prediction service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slopefs/ml"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Response is the raw outcome of a call; Body is the decoded JSON payload.
type Response struct {
	StatusCode int
	Body       map[string]any
}

// APIError is returned for non-2xx answers.
type APIError struct {
	StatusCode int
	Message    string
	Stage      string
}

func (e *APIError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("service returned %d at %s: %s", e.StatusCode, e.Stage, e.Message)
	}
	return fmt.Sprintf("service returned %d: %s", e.StatusCode, e.Message)
}

// Predict posts features to /predict.
func (c *Client) Predict(ctx context.Context, fv ml.FeatureVector) (ml.Result, *Response, error) {
	body, err := json.Marshal(map[string]any{"features": fv.Slice()})
	if err != nil {
		return ml.Result{}, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return ml.Result{}, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return ml.Result{}, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ml.Result{}, nil, fmt.Errorf("error reading response: %w", err)
	}
	out := &Response{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, &out.Body); err != nil {
		return ml.Result{}, out, fmt.Errorf("error decoding response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		apiErr.Message, _ = out.Body["error"].(string)
		apiErr.Stage, _ = out.Body["stage"].(string)
		return ml.Result{}, out, apiErr
	}

	var res ml.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return ml.Result{}, out, fmt.Errorf("error decoding result: %w", err)
	}
	res.Features = fv
	return res, out, nil
}

// Ping calls the liveness endpoint and returns its message.
func (c *Client) Ping(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}
	return payload.Message, nil
}
