// Package oauth exchanges an OAuth provider redirect for a session
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sam-app/cli/internal/auth"
	"github.com/sam-app/cli/internal/models"
	"github.com/sam-app/cli/internal/utils"
)

// Status is the handshake's progress
type Status int32

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusSuccess
	StatusError
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusInProgress:
		return "in_progress"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// DefaultRedirectDelay is how long a successful handshake waits before navigating
const DefaultRedirectDelay = 2 * time.Second

const (
	msgCancelled       = "Authentication was cancelled or failed"
	msgMissingParams   = "Missing provider or authorization code"
	msgExchangeFailure = "OAuth authentication failed"
)

// ErrAlreadyProcessed is returned by every Process call after the first
var ErrAlreadyProcessed = errors.New("oauth: callback already processed")

// Exchanger performs the callback exchange against the gateway
type Exchanger interface {
	OAuthCallback(ctx context.Context, req models.OAuthCallbackRequest) (*models.OAuthCallbackResponse, error)
}

// SessionSink adopts the session produced by the exchange
type SessionSink interface {
	SetAuthData(data auth.AuthData)
}

// Handshake processes one provider redirect, at most once
type Handshake struct {
	exchanger Exchanger
	sink      SessionSink

	// RedirectDelay is the pause between success and Navigate
	RedirectDelay time.Duration
	// Navigate, if set, runs once after a successful exchange
	Navigate func()

	status atomic.Int32

	mu    sync.Mutex
	err   *utils.AuthError
	timer *time.Timer
}

// NewHandshake creates a handshake that has not started
func NewHandshake(exchanger Exchanger, sink SessionSink) *Handshake {
	return &Handshake{
		exchanger:     exchanger,
		sink:          sink,
		RedirectDelay: DefaultRedirectDelay,
	}
}

// ParseRedirect extracts the query parameters from a redirect URL
func ParseRedirect(raw string) (url.Values, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL: %w", err)
	}
	return u.Query(), nil
}

// Process exchanges params for a session. The status moves out of
// NotStarted before any work begins, so only the first call does anything.
func (h *Handshake) Process(ctx context.Context, params url.Values) error {
	if !h.status.CompareAndSwap(int32(StatusNotStarted), int32(StatusInProgress)) {
		return ErrAlreadyProcessed
	}

	if providerErr := params.Get("error"); providerErr != "" {
		msg := params.Get("error_description")
		if msg == "" {
			msg = msgCancelled
		}
		return h.finishError(utils.NewAuthError(msg, "", providerErr))
	}

	provider := params.Get("provider")
	code := params.Get("code")
	if provider == "" || code == "" {
		return h.finishError(utils.NewAuthError(msgMissingParams, "", ""))
	}

	req := models.OAuthCallbackRequest{
		Provider:       provider,
		Code:           code,
		Email:          params.Get("email"),
		ProviderUserID: params.Get("providerUserId"),
		FirstName:      optional(params, "firstName"),
		LastName:       optional(params, "lastName"),
		AccessToken:    optional(params, "accessToken"),
		RefreshToken:   optional(params, "refreshToken"),
	}

	resp, err := h.exchanger.OAuthCallback(ctx, req)
	if err != nil {
		return h.finishError(utils.Normalize(err, msgExchangeFailure))
	}

	h.sink.SetAuthData(auth.AuthData{
		Token:        resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
	})
	h.status.Store(int32(StatusSuccess))

	if h.Navigate != nil {
		h.mu.Lock()
		h.timer = time.AfterFunc(h.RedirectDelay, h.Navigate)
		h.mu.Unlock()
	}
	return nil
}

// Status returns the current status
func (h *Handshake) Status() Status {
	return Status(h.status.Load())
}

// Err returns the recorded error, if the handshake failed
func (h *Handshake) Err() *utils.AuthError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Stop cancels a pending navigation
func (h *Handshake) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
	}
}

func (h *Handshake) finishError(authErr *utils.AuthError) error {
	h.mu.Lock()
	h.err = authErr
	h.mu.Unlock()
	h.status.Store(int32(StatusError))
	return authErr
}

// optional returns nil for an absent or empty parameter
func optional(params url.Values, key string) *string {
	v := params.Get(key)
	if v == "" {
		return nil
	}
	return &v
}
