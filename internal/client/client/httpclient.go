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
)

const (
	sendOTPPath   = "/api/send-otp"
	verifyOTPPath = "/api/verify-otp"
	healthPath    = "/api/health"

	defaultTimeout  = 15 * time.Second
	maxResponseSize = 64 << 10
)

type sendOTPRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type otpResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// HTTPClient implements OTPClient over HTTP/JSON.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient returns a client for the OTP API rooted at baseURL.
// A non-positive timeout selects the 15s default.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SendOTP(ctx context.Context, email string) error {
	return c.postOTP(ctx, "send otp", sendOTPPath, sendOTPRequest{Email: email}, MsgSendFailed)
}

func (c *HTTPClient) VerifyOTP(ctx context.Context, email, otp string) error {
	return c.postOTP(ctx, "verify otp", verifyOTPPath, verifyOTPRequest{Email: email, OTP: otp}, MsgVerifyFailed)
}

// Health reports nil only when the API answers {"status":"ok"}.
func (c *HTTPClient) Health(ctx context.Context) error {
	const op = "health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.mapError(op, err)
	}
	defer resp.Body.Close()

	var hr healthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&hr); err != nil || hr.Status != "ok" {
		return &APIError{Op: op, Message: MsgUnhealthy, Err: ErrUnavailable}
	}
	return nil
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) postOTP(ctx context.Context, op, path string, body any, fallback string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.mapError(op, err)
	}
	defer resp.Body.Close()

	var or otpResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&or); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return &APIError{Op: op, Message: MsgNetwork, Err: fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)}
		}
		return &APIError{Op: op, Message: fallback, Err: fmt.Errorf("%w: %s", ErrRejected, resp.Status)}
	}

	if or.Success && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := strings.TrimSpace(or.Message)
	if msg == "" {
		msg = fallback
	}
	return &APIError{Op: op, Message: msg, Err: ErrRejected}
}

// mapError turns a transport failure into an ErrUnavailable APIError.
// Context cancellation and deadlines are kept in the chain.
func (c *HTTPClient) mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{Op: op, Message: MsgNetwork, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
}
