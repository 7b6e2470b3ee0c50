package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sam-app/cli/internal/models"
	"github.com/sam-app/cli/internal/session"
	"github.com/sam-app/cli/internal/storage"
	"github.com/sam-app/cli/internal/utils"
)

type fakeGateway struct {
	login    func(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error)
	register func(ctx context.Context, req models.RegisterRequest) (*models.SessionPayload, error)
	refresh  func(ctx context.Context, refreshToken string) (*models.SessionPayload, error)
}

func (g *fakeGateway) Login(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
	return g.login(ctx, req)
}

func (g *fakeGateway) Register(ctx context.Context, req models.RegisterRequest) (*models.SessionPayload, error) {
	return g.register(ctx, req)
}

func (g *fakeGateway) Refresh(ctx context.Context, refreshToken string) (*models.SessionPayload, error) {
	return g.refresh(ctx, refreshToken)
}

var testUser = &models.User{ID: "u1", Email: "a@b.com"}

func newTestController(gw *fakeGateway) (*Controller, *storage.MemoryBackend) {
	backend := storage.NewMemoryBackend()
	store := session.NewStore(backend, nil)
	return NewController(store, session.NewValidator(), gw, nil), backend
}

func storedState(t *testing.T, backend *storage.MemoryBackend) *models.StoredAuthState {
	t.Helper()
	raw, err := backend.Get(session.StorageKey)
	require.NoError(t, err)
	var state models.StoredAuthState
	require.NoError(t, json.Unmarshal([]byte(raw), &state))
	return &state
}

func jwtWithExp(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func seed(t *testing.T, backend *storage.MemoryBackend, state models.StoredAuthState) {
	t.Helper()
	data, err := json.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, backend.Set(session.StorageKey, string(data)))
}

func TestInitialize_NothingStored(t *testing.T) {
	c, _ := newTestController(&fakeGateway{})
	require.True(t, c.Snapshot().IsLoading)

	c.Initialize()

	snap := c.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.False(t, snap.IsAuthenticated())
}

func TestInitialize_RestoresValidSession(t *testing.T) {
	c, backend := newTestController(&fakeGateway{})
	token := jwtWithExp(t, time.Now().Add(time.Hour))
	seed(t, backend, models.StoredAuthState{Token: token, RefreshToken: "r1", User: testUser})

	c.Initialize()

	snap := c.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, token, snap.AccessToken)
	assert.Equal(t, "r1", snap.RefreshToken)
	assert.False(t, snap.IsLoading)
}

func TestInitialize_ExpiredSessionIsCleared(t *testing.T) {
	c, backend := newTestController(&fakeGateway{})
	seed(t, backend, models.StoredAuthState{
		Token:        jwtWithExp(t, time.Now().Add(-time.Minute)),
		RefreshToken: "r1",
		User:         testUser,
	})

	c.Initialize()

	assert.False(t, c.IsAuthenticated())
	assert.False(t, c.Snapshot().IsLoading)
	assert.False(t, backend.Has(session.StorageKey))
}

func TestInitialize_MalformedStorageIsIgnored(t *testing.T) {
	c, backend := newTestController(&fakeGateway{})
	require.NoError(t, backend.Set(session.StorageKey, "{broken"))

	c.Initialize()

	assert.False(t, c.IsAuthenticated())
	assert.False(t, c.Snapshot().IsLoading)
}

func TestLogin_Success(t *testing.T) {
	gw := &fakeGateway{login: func(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
		assert.Equal(t, "a@b.com", req.Email)
		return &models.SessionPayload{Token: "t1", RefreshToken: "r1", User: testUser}, nil
	}}
	c, backend := newTestController(gw)
	c.Initialize()

	require.NoError(t, c.Login(context.Background(), "a@b.com", "secret123"))

	snap := c.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, "t1", snap.AccessToken)
	assert.False(t, snap.IsLoading)
	assert.Nil(t, snap.Error)

	assert.Equal(t, &models.StoredAuthState{Token: "t1", RefreshToken: "r1", User: testUser}, storedState(t, backend))
}

func TestLogin_ClearsPreviousErrorBeforeResolving(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &fakeGateway{login: func(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
		close(entered)
		<-release
		return nil, utils.NewAuthError("Invalid email or password", "", utils.CodeInvalidCredentials)
	}}
	c, _ := newTestController(gw)
	c.Initialize()
	c.store.Update(func(s *session.Session) { s.Error = utils.NewAuthError("old", "", "") })

	done := make(chan error, 1)
	go func() { done <- c.Login(context.Background(), "a@b.com", "secret123") }()

	<-entered
	snap := c.Snapshot()
	assert.Nil(t, snap.Error)
	assert.True(t, snap.IsLoading)

	close(release)
	err := <-done
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", c.Snapshot().Error.Message)
	assert.False(t, c.Snapshot().IsLoading)
}

func TestLogin_RejectsConcurrentAttempt(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	gw := &fakeGateway{login: func(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
		calls++
		close(entered)
		<-release
		return &models.SessionPayload{Token: "t1", User: testUser}, nil
	}}
	c, _ := newTestController(gw)
	c.Initialize()

	done := make(chan error, 1)
	go func() { done <- c.Login(context.Background(), "a@b.com", "secret123") }()
	<-entered

	assert.ErrorIs(t, c.Login(context.Background(), "a@b.com", "secret123"), ErrLoginInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
	assert.True(t, c.IsAuthenticated())
}

func TestLogin_MFARequiredIsNotAuthenticated(t *testing.T) {
	gw := &fakeGateway{login: func(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
		return &models.SessionPayload{Token: "t1", User: testUser, MFARequired: true}, nil
	}}
	c, backend := newTestController(gw)
	c.Initialize()

	err := c.Login(context.Background(), "a@b.com", "secret123")

	assert.True(t, utils.IsCode(err, utils.CodeMFARequired))
	snap := c.Snapshot()
	assert.False(t, snap.IsAuthenticated())
	assert.Equal(t, "MFA is required but not yet implemented", snap.Error.Message)
	assert.False(t, backend.Has(session.StorageKey))
}

func TestLogin_ConnectivityErrorIsNormalized(t *testing.T) {
	gw := &fakeGateway{login: func(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
		return nil, fmt.Errorf("failed to execute request: %w", &url.Error{Op: "Post", URL: "http://x/login", Err: errors.New("connection refused")})
	}}
	c, _ := newTestController(gw)
	c.Initialize()

	err := c.Login(context.Background(), "a@b.com", "secret123")

	var authErr *utils.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, "connection refused")
	assert.False(t, c.Snapshot().IsLoading)
}

func TestLogin_EmptyErrorMessageUsesFallback(t *testing.T) {
	gw := &fakeGateway{login: func(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
		return nil, &utils.AuthError{StatusCode: 500}
	}}
	c, _ := newTestController(gw)
	c.Initialize()

	_ = c.Login(context.Background(), "a@b.com", "secret123")
	assert.Equal(t, "Login failed", c.Snapshot().Error.Message)
}

func TestLogin_ValidationSkipsNetwork(t *testing.T) {
	gw := &fakeGateway{login: func(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
		t.Fatal("gateway must not be called")
		return nil, nil
	}}
	c, _ := newTestController(gw)
	c.Initialize()

	err := c.Login(context.Background(), "not-an-email", "secret123")

	require.Error(t, err)
	assert.Equal(t, "email", c.Snapshot().Error.Field)
}

func TestLogin_PersistenceFailureStillAuthenticates(t *testing.T) {
	gw := &fakeGateway{login: func(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
		return &models.SessionPayload{Token: "t1", RefreshToken: "r1", User: testUser}, nil
	}}
	c, backend := newTestController(gw)
	backend.SetErr = errors.New("disk full")
	c.Initialize()

	require.NoError(t, c.Login(context.Background(), "a@b.com", "secret123"))
	assert.True(t, c.IsAuthenticated())
	assert.False(t, backend.Has(session.StorageKey))
}

func TestLogout_ClearsEverything(t *testing.T) {
	gw := &fakeGateway{login: func(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
		return &models.SessionPayload{Token: "t1", RefreshToken: "r1", User: testUser}, nil
	}}
	c, backend := newTestController(gw)
	c.Initialize()
	require.NoError(t, c.Login(context.Background(), "a@b.com", "secret123"))
	c.store.Update(func(s *session.Session) { s.Error = utils.NewAuthError("stale", "", "") })

	c.Logout()

	snap := c.Snapshot()
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.AccessToken)
	assert.Nil(t, snap.Error)
	assert.False(t, snap.IsAuthenticated())
	assert.False(t, backend.Has(session.StorageKey))
}

func TestClearError_TouchesNothingElse(t *testing.T) {
	c, _ := newTestController(&fakeGateway{})
	c.Initialize()
	c.SetAuthData(AuthData{Token: "t1", RefreshToken: "r1", User: testUser})
	c.store.Update(func(s *session.Session) { s.Error = utils.NewAuthError("x", "", "") })

	c.ClearError()

	snap := c.Snapshot()
	assert.Nil(t, snap.Error)
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, "r1", snap.RefreshToken)
}

func TestSetAuthData_BypassesGateway(t *testing.T) {
	c, backend := newTestController(&fakeGateway{})
	c.Initialize()

	c.SetAuthData(AuthData{Token: "t9", RefreshToken: "r9", User: testUser})

	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "t9", c.Token())
	assert.Equal(t, "t9", storedState(t, backend).Token)
}

func TestRegister_Success(t *testing.T) {
	gw := &fakeGateway{register: func(ctx context.Context, req models.RegisterRequest) (*models.SessionPayload, error) {
		return &models.SessionPayload{Token: "t1", RefreshToken: "r1", User: testUser}, nil
	}}
	c, _ := newTestController(gw)
	c.Initialize()

	err := c.Register(context.Background(), models.RegisterRequest{
		Email: "a@b.com", Password: "secret123", FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)
	assert.True(t, c.IsAuthenticated())
}

func TestRegister_ServerFieldError(t *testing.T) {
	gw := &fakeGateway{register: func(ctx context.Context, req models.RegisterRequest) (*models.SessionPayload, error) {
		return nil, &utils.AuthError{Message: "Email already registered", Field: "email", StatusCode: 409}
	}}
	c, _ := newTestController(gw)
	c.Initialize()

	err := c.Register(context.Background(), models.RegisterRequest{
		Email: "a@b.com", Password: "secret123", FirstName: "Ada", LastName: "Lovelace",
	})
	require.Error(t, err)
	assert.Equal(t, "email", c.Snapshot().Error.Field)
}

func TestRegister_ValidationKeepsEveryProblem(t *testing.T) {
	c, _ := newTestController(&fakeGateway{})
	c.Initialize()

	err := c.Register(context.Background(), models.RegisterRequest{
		Email: "a@b.com", Password: "short", FirstName: "", LastName: "Lovelace",
	})

	require.Error(t, err)
	snap := c.Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, utils.CodeValidation, snap.Error.Code)
	assert.Equal(t, "password", snap.Error.Field)
	assert.Contains(t, snap.Error.Message, "at least 8 characters")
	assert.Contains(t, snap.Error.Message, "firstName is required")
	assert.False(t, snap.IsLoading)
}

func TestRefresh_RotatesTokens(t *testing.T) {
	gw := &fakeGateway{refresh: func(ctx context.Context, refreshToken string) (*models.SessionPayload, error) {
		assert.Equal(t, "r1", refreshToken)
		return &models.SessionPayload{Token: "t2", RefreshToken: "r2"}, nil
	}}
	c, backend := newTestController(gw)
	c.Initialize()
	c.SetAuthData(AuthData{Token: "t1", RefreshToken: "r1", User: testUser})

	require.NoError(t, c.Refresh(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, "t2", snap.AccessToken)
	assert.Equal(t, "u1", snap.User.ID)
	assert.Equal(t, "r2", storedState(t, backend).RefreshToken)
}

func TestRefresh_MissingAccessTokenKeepsSession(t *testing.T) {
	gw := &fakeGateway{refresh: func(ctx context.Context, refreshToken string) (*models.SessionPayload, error) {
		return &models.SessionPayload{RefreshToken: "r2"}, nil
	}}
	c, backend := newTestController(gw)
	c.Initialize()
	c.SetAuthData(AuthData{Token: "t1", RefreshToken: "r1", User: testUser})

	err := c.Refresh(context.Background())

	assert.True(t, utils.IsCode(err, utils.CodeInvalidResponse))
	snap := c.Snapshot()
	assert.Equal(t, "t1", snap.AccessToken)
	assert.Equal(t, "r1", snap.RefreshToken)
	assert.True(t, snap.IsAuthenticated())
	require.NotNil(t, snap.Error)
	assert.Equal(t, utils.CodeInvalidResponse, snap.Error.Code)

	stored := storedState(t, backend)
	assert.Equal(t, "t1", stored.Token)
	assert.Equal(t, "r1", stored.RefreshToken)
}

func TestRefresh_RejectedTokenLogsOut(t *testing.T) {
	gw := &fakeGateway{refresh: func(ctx context.Context, refreshToken string) (*models.SessionPayload, error) {
		return nil, &utils.AuthError{Message: "Token expired", Code: utils.CodeTokenExpired, StatusCode: 401}
	}}
	c, backend := newTestController(gw)
	c.Initialize()
	c.SetAuthData(AuthData{Token: "t1", RefreshToken: "r1", User: testUser})

	err := c.Refresh(context.Background())

	assert.True(t, utils.IsCode(err, utils.CodeTokenExpired))
	assert.False(t, c.IsAuthenticated())
	assert.False(t, backend.Has(session.StorageKey))
}

func TestRefresh_WithoutSession(t *testing.T) {
	c, _ := newTestController(&fakeGateway{})
	c.Initialize()

	assert.True(t, utils.IsCode(c.Refresh(context.Background()), utils.CodeNoSession))
}

func TestClose_CancelsInFlightLogin(t *testing.T) {
	entered := make(chan struct{})
	gw := &fakeGateway{login: func(ctx context.Context, req models.LoginRequest) (*models.SessionPayload, error) {
		close(entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c, _ := newTestController(gw)
	c.Initialize()

	done := make(chan error, 1)
	go func() { done <- c.Login(context.Background(), "a@b.com", "secret123") }()
	<-entered

	c.Close()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("login was not cancelled")
	}
	assert.Nil(t, c.Snapshot().Error, "no state writes after close")
	assert.ErrorIs(t, c.Login(context.Background(), "a@b.com", "secret123"), ErrClosed)
}
