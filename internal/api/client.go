// Package api provides the client for the SAM auth gateway
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sam-app/cli/internal/common"
	"github.com/sam-app/cli/internal/models"
	"github.com/sam-app/cli/internal/utils"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Gateway is the set of auth gateway calls the session layer depends on
type Gateway interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.SessionPayload, error)
	Refresh(ctx context.Context, refreshToken string) (*models.SessionPayload, error)
}

// Client represents the auth gateway client
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	limiter    *rate.Limiter
	logger     *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.HTTPClient = hc
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.HTTPClient.Timeout = timeout
	}
}

// WithRateLimit sets the request rate limit; zero or less disables it
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new gateway client rooted at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Login authenticates with email and password
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/login", "", req, &resp); err != nil {
		return nil, err
	}
	return resp.ToPayload(), nil
}

// Register creates an account and returns its first session
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.SessionPayload, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/register", "", req, &resp); err != nil {
		return nil, err
	}
	return resp.ToPayload(), nil
}

// Refresh exchanges a refresh token for a new session
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.SessionPayload, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/refresh", refreshToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.ToPayload(), nil
}

// MFASetup starts TOTP enrollment for the session owning token
func (c *Client) MFASetup(ctx context.Context, token string) (*models.MFASetupResponse, error) {
	var resp models.MFASetupResponse
	if err := c.do(ctx, http.MethodPost, "/mfa/setup", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MFAVerifySetup confirms enrollment with the first TOTP code
func (c *Client) MFAVerifySetup(ctx context.Context, token, code string) (*models.MFASetupResponse, error) {
	var resp models.MFASetupResponse
	body := models.MFASetupRequest{Code: code}
	if err := c.do(ctx, http.MethodPost, "/mfa/verify-setup", token, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OAuthCallback exchanges a provider redirect for a session
func (c *Client) OAuthCallback(ctx context.Context, req models.OAuthCallbackRequest) (*models.OAuthCallbackResponse, error) {
	var resp models.OAuthCallbackResponse
	if err := c.do(ctx, http.MethodPost, "/oauth/callback", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OAuthProviders lists the OAuth providers enabled on the backend
func (c *Client) OAuthProviders(ctx context.Context) (*models.OAuthProvidersResponse, error) {
	var resp models.OAuthProvidersResponse
	if err := c.do(ctx, http.MethodGet, "/oauth/providers", "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do performs a rate-limited JSON request. Non-2xx responses come back as
// *utils.AuthError; transport failures are wrapped unchanged.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	c.logger.Debug().Str("method", method).Str("path", path).Str("request_id", requestID).Msg("auth gateway request")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("request_id", requestID).Str("kind", "connectivity").Msg("auth gateway unreachable")
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseError(resp.StatusCode, data)
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("code", apiErr.Code).
			Str("request_id", requestID).
			Str("kind", "auth").
			Msg("auth gateway rejected request")
		return apiErr
	}

	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// parseError reads the gateway's error body, falling back to the HTTP status
// when the body is not JSON
func parseError(statusCode int, body []byte) *utils.AuthError {
	var detail models.ErrorDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return utils.NewHTTPError(statusCode, "")
	}
	return &utils.AuthError{
		Message:    detail.Message,
		Field:      detail.Field,
		Code:       detail.Code,
		StatusCode: statusCode,
	}
}
