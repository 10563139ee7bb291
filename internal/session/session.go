// Package session tracks who, if anyone, is signed in to the console.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/westgate-schools/admin-console/internal/models"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

// Status enumerates the session states.
type Status string

const (
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// State is a snapshot of the session. Admin is set only when Status is
// StatusAuthenticated.
type State struct {
	Status Status        `json:"status"`
	Admin  *models.Admin `json:"admin,omitempty"`
}

// Authenticated reports whether an identity has been established.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Admin != nil
}

// Result is the outcome of a login attempt.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type authAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginData, error)
	Logout(ctx context.Context) error
	VerifyToken(ctx context.Context) (*models.Admin, error)
}

type tokenReader interface {
	Get(ctx context.Context) (string, bool, error)
	Remove(ctx context.Context) error
}

// Session holds the admin identity.
type Session struct {
	api       authAPI
	tokens    tokenReader
	validator *validator.Validate
	logger    *zap.Logger

	mu          sync.RWMutex
	state       State
	subscribers []func(State)
}

// New returns a session in the loading state.
func New(api authAPI, tokens tokenReader, validate *validator.Validate, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &Session{
		api:       api,
		tokens:    tokens,
		validator: validate,
		logger:    logger,
		state:     State{Status: StatusLoading},
	}
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to be called after every state change.
func (s *Session) Subscribe(fn func(State)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Init resolves the loading state: a stored token is verified, otherwise the
// session becomes unauthenticated.
func (s *Session) Init(ctx context.Context) {
	_, ok, err := s.tokens.Get(ctx)
	if err != nil {
		s.logger.Warn("failed to read stored token", zap.Error(err))
	}
	if !ok {
		s.set(State{Status: StatusUnauthenticated})
		return
	}
	s.Verify(ctx)
}

// Login authenticates against the backend. Expected failures are reported in
// the result, never as errors.
func (s *Session) Login(ctx context.Context, username, password string) Result {
	req := models.LoginRequest{Username: username, Password: password}
	if err := s.validator.Struct(req); err != nil {
		return Result{Success: false, Message: "Username and password are required"}
	}

	data, err := s.api.Login(ctx, req)
	if err != nil {
		message := appErrors.FromError(err).Message
		if errors.Is(err, appErrors.ErrTransport) {
			s.logger.Warn("login request failed", zap.Error(err))
		}
		return Result{Success: false, Message: message}
	}

	admin := data.Admin
	s.set(State{Status: StatusAuthenticated, Admin: &admin})
	s.logger.Info("admin signed in", zap.String("username", admin.Username))
	return Result{Success: true, Message: "Login successful"}
}

// Logout ends the session. The backend call is best effort.
func (s *Session) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("logout request failed", zap.Error(err))
	}
	if err := s.tokens.Remove(ctx); err != nil {
		s.logger.Error("failed to remove token", zap.Error(err))
	}
	s.set(State{Status: StatusUnauthenticated})
}

// Verify asks the backend to confirm the stored token. Any failure silently
// leaves the session unauthenticated.
func (s *Session) Verify(ctx context.Context) {
	admin, err := s.api.VerifyToken(ctx)
	if err != nil {
		s.logger.Debug("token verification failed", zap.Error(err))
		if rmErr := s.tokens.Remove(ctx); rmErr != nil {
			s.logger.Error("failed to remove token", zap.Error(rmErr))
		}
		s.set(State{Status: StatusUnauthenticated})
		return
	}
	s.set(State{Status: StatusAuthenticated, Admin: admin})
}

// Expire drops the identity after the backend rejected the token.
func (s *Session) Expire() {
	if s.State().Status == StatusUnauthenticated {
		return
	}
	s.set(State{Status: StatusUnauthenticated})
}

func (s *Session) set(state State) {
	s.mu.Lock()
	s.state = state
	subs := append([]func(State){}, s.subscribers...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(state)
	}
}
