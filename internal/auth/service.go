package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/casahub/casahub/internal/domain/user"
	"github.com/casahub/casahub/internal/security"
)

var (
	ErrInvalidInput       = errors.New("missing required field")
	ErrInvalidCredentials = errors.New("wrong credentials")
)

// UserStore is the slice of the users repository the service needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, email, passwordHash, name, avatar string) (user.User, error)
}

// Service is the single authentication contract: signup, signin and
// federated signin all route through here so the token and projection
// handling cannot drift between endpoints.
type Service struct {
	users UserStore
	jwt   *Manager
	log   *slog.Logger
}

func NewService(users UserStore, jwt *Manager, log *slog.Logger) *Service {
	return &Service{
		users: users,
		jwt:   jwt,
		log:   log,
	}
}

type Session struct {
	Token string
	User  user.Public
}

// SignUp registers a new account and opens a session for it.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (Session, error) {
	if name == "" || email == "" || password == "" {
		return Session{}, ErrInvalidInput
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return Session{}, err
	}

	u, err := s.users.Create(ctx, email, hash, name, "")

	if err != nil {
		return Session{}, err
	}

	return s.open(u)
}

// SignIn verifies credentials and opens a session. Unknown emails surface as
// user.ErrNotFound, a failed password check as ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	if email == "" || password == "" {
		return Session{}, ErrInvalidInput
	}

	u, err := s.users.GetByEmail(ctx, email)

	if err != nil {
		return Session{}, err
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return s.open(u)
}

// FederatedSignIn handles the provider-asserted (name, email, avatar) tuple.
// A known email signs in regardless of how the account was created; an
// unknown one is auto-provisioned with a random password that is never
// surfaced and never usable for direct signin. The created flag lets the
// transport answer 201 for fresh accounts.
func (s *Service) FederatedSignIn(ctx context.Context, name, email, avatar string) (Session, bool, error) {
	if name == "" || email == "" {
		return Session{}, false, ErrInvalidInput
	}

	u, err := s.users.GetByEmail(ctx, email)

	if err == nil {
		sess, err := s.open(u)
		return sess, false, err
	}

	if !errors.Is(err, user.ErrNotFound) {
		return Session{}, false, err
	}

	generated, err := security.RandomPassword(16)

	if err != nil {
		return Session{}, false, err
	}

	hash, err := security.HashPassword(generated)

	if err != nil {
		return Session{}, false, err
	}

	u, err = s.users.Create(ctx, email, hash, name, avatar)

	if err != nil {
		// lost a race against a concurrent federated signin for the same email
		if errors.Is(err, user.ErrEmailTaken) {
			u, err = s.users.GetByEmail(ctx, email)

			if err != nil {
				return Session{}, false, err
			}

			sess, err := s.open(u)
			return sess, false, err
		}

		return Session{}, false, err
	}

	s.log.Info("federated account provisioned", "user_id", u.ID)

	sess, err := s.open(u)
	return sess, true, err
}

func (s *Service) open(u user.User) (Session, error) {
	token, err := s.jwt.Issue(u.ID)

	if err != nil {
		return Session{}, err
	}

	return Session{
		Token: token,
		User:  u.Public(),
	}, nil
}
