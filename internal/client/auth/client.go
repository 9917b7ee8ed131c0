// Package auth talks to the remote authentication service that owns user
// identities. Students get a login there before the local record exists;
// the returned identity handle is stored on the student row.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/distrischool/student-service/pkg/config"
)

// RegisterUserRequest is the payload accepted by the auth service register
// endpoint, matching the contract exposed to end users.
type RegisterUserRequest struct {
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirmPassword"`
	FirstName       string   `json:"firstName"`
	LastName        string   `json:"lastName"`
	Phone           string   `json:"phone,omitempty"`
	DocumentNumber  string   `json:"documentNumber"`
	Roles           []string `json:"roles"`
}

// User is the auth-service view of an account.
type User struct {
	ID      int64  `json:"id"`
	Auth0ID string `json:"auth0Id"`
	Email   string `json:"email"`
}

type authPayload struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type registerEnvelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *authPayload `json:"data"`
}

type userEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *User  `json:"data"`
}

type boolEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *bool  `json:"data"`
}

// Client calls the auth service with bounded retries and capped exponential
// backoff. Connect and read timeouts are configured separately.
type Client struct {
	baseURL       string
	http          *http.Client
	maxAttempts   int
	retryInterval time.Duration
	retryMaxDelay time.Duration
	logger        *zap.Logger
}

// NewClient constructs an auth service client.
func NewClient(cfg config.AuthServiceConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = 100 * time.Millisecond
	}
	retryMaxDelay := cfg.RetryMaxDelay
	if retryMaxDelay <= 0 {
		retryMaxDelay = time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}

	return &Client{
		baseURL:       cfg.BaseURL,
		http:          &http.Client{Timeout: readTimeout, Transport: transport},
		maxAttempts:   maxAttempts,
		retryInterval: retryInterval,
		retryMaxDelay: retryMaxDelay,
		logger:        logger,
	}
}

// RegisterIdentity provisions an account for a new student and returns the
// opaque identity handle. Any failure, including a success response missing
// the handle, is an error; the caller treats provisioning as a precondition.
func (c *Client) RegisterIdentity(ctx context.Context, authorization string, req RegisterUserRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal register request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", authorization, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("auth service register returned status %d", resp.StatusCode)
	}

	var envelope registerEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("decode register response: %w", err)
	}
	if !envelope.Success || envelope.Data == nil || envelope.Data.User == nil {
		if envelope.Message != "" {
			return "", fmt.Errorf("auth service rejected registration: %s", envelope.Message)
		}
		return "", fmt.Errorf("auth service returned an invalid registration response")
	}
	if envelope.Data.User.Auth0ID == "" {
		return "", fmt.Errorf("auth service response is missing the identity handle")
	}

	return envelope.Data.User.Auth0ID, nil
}

// GetUserByAuthID resolves an account by its identity handle.
func (c *Client) GetUserByAuthID(ctx context.Context, authID string) (*User, error) {
	path := "/api/v1/users/auth0/" + url.PathEscape(authID)
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("auth service user lookup returned status %d", resp.StatusCode)
	}

	var envelope userEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}
	if !envelope.Success || envelope.Data == nil {
		return nil, fmt.Errorf("user %s not found in auth service", authID)
	}
	return envelope.Data, nil
}

// HasRole asks the auth service whether the account holds the given role.
func (c *Client) HasRole(ctx context.Context, userID int64, role string) (bool, error) {
	path := fmt.Sprintf("/api/v1/users/%d/has-role?role=%s", userID, url.QueryEscape(role))
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("auth service role check returned status %d", resp.StatusCode)
	}

	var envelope boolEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return false, fmt.Errorf("decode role response: %w", err)
	}
	return envelope.Success && envelope.Data != nil && *envelope.Data, nil
}

// do performs one HTTP request with bounded retries on transport failures.
// The request body is replayed on each attempt.
func (c *Client) do(ctx context.Context, method, path, authorization string, body []byte) (*http.Response, error) {
	delay := c.retryInterval
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("build auth service request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}

		resp, err := c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == c.maxAttempts {
			break
		}
		c.logger.Warn("auth service call failed, retrying",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.retryMaxDelay {
			delay = c.retryMaxDelay
		}
	}

	return nil, fmt.Errorf("auth service unreachable after %d attempts: %w", c.maxAttempts, lastErr)
}
