// Package session implements store of authenticated user.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/pkg/logs"
)

// State represents state of session store.
type State int

const (
	// Unknown means identity was not checked yet.
	Unknown State = iota
	// Loading means identity check is in progress.
	Loading
	// Authenticated means user is known.
	Authenticated
	// Anonymous means there is no valid session.
	Anonymous
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Routes used for navigation.
const (
	DashboardRoute = "/dashboard"
	LoginRoute     = "/login"
)

// ErrInvalidCredentials is returned for every failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Client represents identity part of backend API.
type Client interface {
	Me(ctx context.Context) (api.User, error)
	Login(ctx context.Context, form api.LoginForm) error
	Logout(ctx context.Context) error
}

// Navigator is called when store requests navigation.
type Navigator func(route string)

type Option func(*Store)

func WithNavigator(navigator Navigator) Option {
	return func(s *Store) {
		s.navigate = navigator
	}
}

func WithLogger(logger *logs.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store holds current user.
//
// Store is the only shared mutable state and it is mutated only by its
// own methods.
type Store struct {
	client   Client
	navigate Navigator
	logger   *logs.Logger
	mutex    sync.RWMutex
	state    State
	user     *api.User
}

// NewStore returns store in Unknown state.
func NewStore(client Client, options ...Option) *Store {
	s := Store{
		client:   client,
		navigate: func(string) {},
		logger:   logs.Discard(),
	}
	for _, option := range options {
		option(&s)
	}
	return &s
}

// State returns current state.
func (s *Store) State() State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

// User returns copy of current user.
func (s *Store) User() (api.User, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.user == nil {
		return api.User{}, false
	}
	return *s.user, true
}

// Init performs identity check.
//
// Any check failure moves store to Anonymous state, returned error is
// only informational.
func (s *Store) Init(ctx context.Context) error {
	s.setState(Loading, nil)
	user, err := s.client.Me(ctx)
	if err != nil {
		s.setState(Anonymous, nil)
		s.logger.Info("Session is anonymous", err)
		return err
	}
	s.setState(Authenticated, &user)
	s.logger.Info("Session is authenticated", logs.Any("user_id", user.ID))
	return nil
}

// Login posts credentials and repeats identity check.
//
// Backend error detail is never exposed, every failure is reported as
// ErrInvalidCredentials.
func (s *Store) Login(ctx context.Context, email, password string) error {
	if err := s.client.Login(ctx, api.LoginForm{
		Email:    email,
		Password: password,
	}); err != nil {
		s.setState(Anonymous, nil)
		s.logger.Warn("Login failed", err)
		return ErrInvalidCredentials
	}
	if err := s.Init(ctx); err != nil {
		return ErrInvalidCredentials
	}
	s.navigate(DashboardRoute)
	return nil
}

// Logout terminates session.
//
// Local state is cleared even if backend request fails.
func (s *Store) Logout(ctx context.Context) {
	if err := s.client.Logout(ctx); err != nil {
		s.logger.Warn("Unable to logout", err)
	}
	s.setState(Anonymous, nil)
	s.navigate(LoginRoute)
}

// UserPatch contains fields to update, nil fields are kept.
type UserPatch struct {
	Name     *string
	Surname  *string
	Username *string
	Email    *string
	IsAdmin  *bool
}

// PatchFromUser returns patch that overrides all fields with user values.
func PatchFromUser(user api.User) UserPatch {
	return UserPatch{
		Name:     &user.Name,
		Surname:  &user.Surname,
		Username: &user.Username,
		Email:    &user.Email,
		IsAdmin:  &user.IsAdmin,
	}
}

// UpdateUser merges patch into current user without backend request.
//
// Does nothing for anonymous session.
func (s *Store) UpdateUser(patch UserPatch) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.user == nil {
		return
	}
	user := *s.user
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Surname != nil {
		user.Surname = *patch.Surname
	}
	if patch.Username != nil {
		user.Username = *patch.Username
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.IsAdmin != nil {
		user.IsAdmin = *patch.IsAdmin
	}
	s.user = &user
}

func (s *Store) setState(state State, user *api.User) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.state, s.user = state, user
}
