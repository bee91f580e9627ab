package users

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/R3E-Network/tracker/internal/app/domain/user"
	"github.com/R3E-Network/tracker/internal/app/storage"
	"github.com/R3E-Network/tracker/internal/errors"
	"github.com/R3E-Network/tracker/internal/events"
	"github.com/R3E-Network/tracker/pkg/logger"
)

// Service registers and looks up users.
type Service struct {
	store  storage.UserStore
	events events.Publisher
	log    *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, pub events.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: store, events: pub, log: log}
}

// Register creates a user. Logins are unique.
func (s *Service) Register(ctx context.Context, login, name string) (user.User, error) {
	u := user.User{Login: strings.TrimSpace(login), Name: strings.TrimSpace(name)}
	if err := u.Validate(); err != nil {
		return user.User{}, err
	}

	exists, err := s.store.UserExists(ctx, u.Login)
	if err != nil {
		return user.User{}, err
	}
	if exists {
		return user.User{}, errors.Conflict("user already exists: %s", u.Login)
	}

	u, err = s.store.CreateUser(ctx, u)
	if err != nil {
		return user.User{}, storage.Translate(err, "user "+u.Login)
	}

	s.log.WithContext(ctx).WithField("login", u.Login).Info("user registered")
	events.NewEvent(events.EventUserRegistered).Actor(u.Login, "").Entity(u.Login).PublishTo(ctx, s.events)
	return u, nil
}

// Get returns the user with login.
func (s *Service) Get(ctx context.Context, login string) (user.User, error) {
	u, err := s.store.GetUser(ctx, login)
	if err != nil {
		return user.User{}, unknown(err, login)
	}
	return u, nil
}

// List returns every user ordered by login.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// Exists reports whether login is registered.
func (s *Service) Exists(ctx context.Context, login string) (bool, error) {
	return s.store.UserExists(ctx, login)
}

// RequireExists fails with NOT_FOUND when login is not registered.
func (s *Service) RequireExists(ctx context.Context, login string) error {
	ok, err := s.store.UserExists(ctx, login)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NotFound("unknown user: %s", login)
	}
	return nil
}

func unknown(err error, login string) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NotFound("unknown user: %s", login)
	}
	return err
}
