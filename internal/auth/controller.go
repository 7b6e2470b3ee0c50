// Package auth orchestrates the session lifecycle: restoring a persisted
// session at startup, login, registration, refresh, logout, and adopting a
// session obtained elsewhere (the OAuth callback).
package auth

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sam-app/cli/internal/api"
	"github.com/sam-app/cli/internal/common"
	"github.com/sam-app/cli/internal/models"
	"github.com/sam-app/cli/internal/session"
	"github.com/sam-app/cli/internal/utils"
)

const (
	loginFallback    = "Login failed"
	registerFallback = "Registration failed"
	refreshFallback  = "Session refresh failed"

	mfaNotImplemented = "MFA is required but not yet implemented"
	incompleteSession = "Server returned an incomplete session"
)

var (
	// ErrLoginInProgress is returned when a login or registration starts
	// while another is still in flight
	ErrLoginInProgress = errors.New("a login attempt is already in progress")

	// ErrClosed is returned by operations on a closed controller
	ErrClosed = errors.New("session controller is closed")
)

// AuthData is a session obtained outside the login gateway
type AuthData struct {
	Token        string
	RefreshToken string
	User         *models.User
}

// Controller is the single writer of the session store
type Controller struct {
	store     *session.Store
	validator *session.Validator
	gateway   api.Gateway
	logger    *common.Logger

	loginInFlight atomic.Bool
	closed        atomic.Bool

	base   context.Context
	cancel context.CancelFunc
}

// NewController wires a controller over store, validator and gateway
func NewController(store *session.Store, validator *session.Validator, gateway api.Gateway, logger *common.Logger) *Controller {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if validator == nil {
		validator = session.NewValidator()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		store:     store,
		validator: validator,
		gateway:   gateway,
		logger:    logger,
		base:      base,
		cancel:    cancel,
	}
}

// Initialize restores the persisted session if its token is still valid and
// clears it otherwise. It never touches the network.
func (c *Controller) Initialize() {
	stored := c.store.Load()
	if stored == nil {
		c.update(func(s *session.Session) { s.IsLoading = false })
		return
	}

	if stored.User == nil || !c.validator.IsValid(stored.Token) {
		c.logger.Info().Msg("stored session is expired or incomplete, clearing")
		c.store.Save(nil)
		c.update(func(s *session.Session) {
			*s = session.Session{}
		})
		return
	}

	c.update(func(s *session.Session) {
		s.User = stored.User
		s.AccessToken = stored.Token
		s.RefreshToken = stored.RefreshToken
		s.IsLoading = false
	})
	c.logger.Debug().Str("user", stored.User.Email).Msg("restored stored session")
}

// Login authenticates with email and password. The returned error, when not
// nil, is the *utils.AuthError also recorded on the session, or
// ErrLoginInProgress / ErrClosed.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, loginFallback, func() error {
		return utils.ValidateLogin(email, password)
	}, func(ctx context.Context) (*models.SessionPayload, error) {
		return c.gateway.Login(ctx, models.LoginRequest{Email: email, Password: password})
	})
}

// Register creates an account and signs in with it
func (c *Controller) Register(ctx context.Context, req models.RegisterRequest) error {
	return c.authenticate(ctx, registerFallback, func() error {
		return utils.ValidateRegistration(req.Email, req.Password, req.FirstName, req.LastName)
	}, func(ctx context.Context) (*models.SessionPayload, error) {
		return c.gateway.Register(ctx, req)
	})
}

func (c *Controller) authenticate(
	ctx context.Context,
	fallback string,
	validate func() error,
	call func(context.Context) (*models.SessionPayload, error),
) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.loginInFlight.CompareAndSwap(false, true) {
		return ErrLoginInProgress
	}
	defer c.loginInFlight.Store(false)

	c.update(func(s *session.Session) {
		s.IsLoading = true
		s.Error = nil
	})
	defer c.update(func(s *session.Session) { s.IsLoading = false })

	if err := validate(); err != nil {
		return c.fail(utils.Normalize(err, fallback), err)
	}

	opCtx, done := c.operationContext(ctx)
	defer done()

	payload, err := call(opCtx)
	if err != nil {
		return c.fail(utils.Normalize(err, fallback), err)
	}

	if payload.MFARequired {
		return c.fail(utils.NewAuthError(mfaNotImplemented, "", utils.CodeMFARequired), nil)
	}
	if payload.Token == "" || payload.User == nil {
		return c.fail(utils.NewAuthError(incompleteSession, "", utils.CodeInvalidResponse), nil)
	}

	c.establish(payload.Token, payload.RefreshToken, payload.User)
	return nil
}

// Refresh exchanges the stored refresh token for a new session. A rejected
// refresh token ends the session.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	snap := c.store.Snapshot()
	if snap.RefreshToken == "" {
		return utils.NewAuthError("No session to refresh", "", utils.CodeNoSession)
	}

	opCtx, done := c.operationContext(ctx)
	defer done()

	payload, err := c.gateway.Refresh(opCtx, snap.RefreshToken)
	if err != nil {
		authErr := utils.Normalize(err, refreshFallback)
		if utils.IsUnauthorized(err) {
			c.Logout()
		}
		return c.fail(authErr, err)
	}
	if payload.Token == "" {
		return c.fail(utils.NewAuthError(incompleteSession, "", utils.CodeInvalidResponse), nil)
	}

	user := payload.User
	if user == nil {
		user = snap.User
	}
	refreshToken := payload.RefreshToken
	if refreshToken == "" {
		refreshToken = snap.RefreshToken
	}
	c.establish(payload.Token, refreshToken, user)
	return nil
}

// Logout ends the session locally and removes the persisted copy
func (c *Controller) Logout() {
	c.update(func(s *session.Session) {
		s.User = nil
		s.AccessToken = ""
		s.RefreshToken = ""
		s.Error = nil
	})
	c.store.Save(nil)
}

// ClearError clears the recorded error and nothing else
func (c *Controller) ClearError() {
	c.update(func(s *session.Session) { s.Error = nil })
}

// SetAuthData adopts a session obtained without the login gateway
func (c *Controller) SetAuthData(data AuthData) {
	c.establish(data.Token, data.RefreshToken, data.User)
}

// Snapshot returns a copy of the current session
func (c *Controller) Snapshot() session.Session {
	return c.store.Snapshot()
}

// IsAuthenticated reports whether a user and access token are both present
func (c *Controller) IsAuthenticated() bool {
	return c.store.Snapshot().IsAuthenticated()
}

// Token returns the current access token, or "" when signed out
func (c *Controller) Token() string {
	return c.store.Snapshot().AccessToken
}

// Validator returns the validator used to check stored tokens
func (c *Controller) Validator() *session.Validator {
	return c.validator
}

// Close cancels in-flight requests; later state changes are discarded
func (c *Controller) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.cancel()
	}
}

// establish persists the session first, then makes it current. A failed
// write is logged by the store and does not block the transition.
func (c *Controller) establish(token, refreshToken string, user *models.User) {
	if c.closed.Load() {
		return
	}
	c.store.Save(&models.StoredAuthState{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user,
	})
	c.update(func(s *session.Session) {
		s.User = user
		s.AccessToken = token
		s.RefreshToken = refreshToken
		s.IsLoading = false
	})
}

func (c *Controller) fail(authErr *utils.AuthError, cause error) error {
	c.logger.Warn().
		Str("kind", utils.ErrorKind(cause)).
		Str("code", authErr.Code).
		Str("field", authErr.Field).
		Msg(authErr.Message)
	c.update(func(s *session.Session) { s.Error = authErr })
	return authErr
}

func (c *Controller) update(fn func(*session.Session)) {
	if c.closed.Load() {
		return
	}
	c.store.Update(fn)
}

// operationContext derives a context that is also cancelled by Close
func (c *Controller) operationContext(ctx context.Context) (context.Context, func()) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.base, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}
