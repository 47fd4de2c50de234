// Package auth provides the single-user identity contract. The user record
// lives in the users table under the configured id and is created from
// configured defaults the first time it is read.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/trackerhub/internal/sanitize"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// DefaultRedirect is returned by Logout when no redirect path is given.
const DefaultRedirect = "/"

// Service answers identity questions for the local user.
type Service struct {
	mu            sync.Mutex
	users         types.Table
	defaults      types.User
	authenticated bool
	log           *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// New returns a Service backed by the users table. The local user starts
// logged in. An empty defaults.ID falls back to types.DefaultUserID.
func New(users types.Table, defaults types.User, opts ...Option) *Service {
	if defaults.ID == "" {
		defaults.ID = types.DefaultUserID
	}
	s := &Service{
		users:         users,
		defaults:      defaults,
		authenticated: true,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticated reports whether the user is logged in.
func (s *Service) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// CurrentUser returns the logged-in user.
// Returns ErrUnauthenticated after Logout.
func (s *Service) CurrentUser(ctx context.Context) (types.User, error) {
	if !s.Authenticated() {
		return types.User{}, types.ErrUnauthenticated
	}
	rec, err := s.ensure(ctx)
	if err != nil {
		return types.User{}, err
	}
	return types.UserFromRecord(rec), nil
}

// UpdateCurrentUser merges patch into the user record. An email in the
// patch is normalized and must be valid.
func (s *Service) UpdateCurrentUser(ctx context.Context, patch types.Patch) (types.User, error) {
	if !s.Authenticated() {
		return types.User{}, types.ErrUnauthenticated
	}
	if raw, ok := patch.Value("email"); ok {
		str, _ := raw.(string)
		email, valid := sanitize.Email(str)
		if !valid {
			return types.User{}, fmt.Errorf("%w: email %q", types.ErrInvalidData, str)
		}
		patch = patch.Set("email", email)
	}
	if raw, ok := patch.Value("display_name"); ok {
		patch = patch.Set("display_name", sanitize.Text(raw))
	}

	if _, err := s.ensure(ctx); err != nil {
		return types.User{}, err
	}
	rec, err := s.users.Update(ctx, s.defaults.ID, patch)
	if err != nil {
		return types.User{}, fmt.Errorf("update user: %w", err)
	}
	return types.UserFromRecord(rec), nil
}

// Logout ends the session and returns the path to redirect to.
func (s *Service) Logout(redirect string) string {
	s.mu.Lock()
	s.authenticated = false
	s.mu.Unlock()

	if redirect == "" {
		redirect = DefaultRedirect
	}
	s.log.Info("user logged out", zap.String("redirect", redirect))
	return redirect
}

// Login restores the session and returns the user.
func (s *Service) Login(ctx context.Context) (types.User, error) {
	s.mu.Lock()
	s.authenticated = true
	s.mu.Unlock()

	s.log.Info("user logged in", zap.String("user_id", s.defaults.ID))
	return s.CurrentUser(ctx)
}

// ensure returns the stored user record, creating it from defaults when
// missing.
func (s *Service) ensure(ctx context.Context) (types.Record, error) {
	rec, err := s.users.Get(ctx, s.defaults.ID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	rec, err = s.users.Create(ctx, types.Record{
		types.FieldID:  s.defaults.ID,
		"email":        s.defaults.Email,
		"display_name": s.defaults.DisplayName,
	})
	if errors.Is(err, types.ErrDuplicateID) {
		// Created concurrently by another caller.
		return s.users.Get(ctx, s.defaults.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Debug("created local user", zap.String("user_id", s.defaults.ID))
	return rec, nil
}
