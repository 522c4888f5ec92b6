package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/casahub/casahub/internal/auth"
	"github.com/casahub/casahub/internal/domain/user"
	"github.com/casahub/casahub/internal/repo/memory"
	"github.com/casahub/casahub/internal/security"
)

func newService(t *testing.T) (*auth.Service, *memory.UsersRepo, *auth.Manager) {
	t.Helper()

	users := memory.NewUsersRepo()
	jwt := auth.NewManager("test-secret", time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return auth.NewService(users, jwt, log), users, jwt
}

func TestSignUpThenSignIn(t *testing.T) {
	svc, _, jwt := newService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, "Ana", "a@x.com", "pw123")

	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	if sess.User.Name != "Ana" || sess.User.Email != "a@x.com" {
		t.Errorf("unexpected projection: %+v", sess.User)
	}

	subject, err := jwt.Verify(sess.Token)

	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}

	if subject != sess.User.ID {
		t.Errorf("token subject %q does not match user id %q", subject, sess.User.ID)
	}

	again, err := svc.SignIn(ctx, "a@x.com", "pw123")

	if err != nil {
		t.Fatalf("SignIn after SignUp returned error: %v", err)
	}

	if again.User.ID != sess.User.ID {
		t.Errorf("SignIn resolved a different user")
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "Ana", "a@x.com", "pw123"); err != nil {
		t.Fatalf("first SignUp returned error: %v", err)
	}

	_, err := svc.SignUp(ctx, "Imposter", "a@x.com", "other-pw")

	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("got %v, want ErrEmailTaken", err)
	}

	if users.Count() != 1 {
		t.Errorf("duplicate signup must not alter the store, have %d users", users.Count())
	}

	existing, err := users.GetByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}

	if existing.Name != "Ana" {
		t.Errorf("existing record was altered: %+v", existing)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "Ana", "a@x.com", "pw123"); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	_, err := svc.SignIn(ctx, "a@x.com", "wrong")

	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestSignInUnknownEmail(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.SignIn(context.Background(), "nobody@x.com", "pw123")

	if !errors.Is(err, user.ErrNotFound) {
		t.Errorf("got %v, want user.ErrNotFound", err)
	}
}

func TestSignUpMissingFields(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{name: "no name", email: "a@x.com", password: "pw123"},
		{name: "no email", userName: "Ana", password: "pw123"},
		{name: "no password", userName: "Ana", email: "a@x.com"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tc.userName, tc.email, tc.password)

			if !errors.Is(err, auth.ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestEmailNormalization(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "Ana", "  Ana@X.Com ", "pw123"); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	sess, err := svc.SignIn(ctx, "ana@x.com", "pw123")

	if err != nil {
		t.Fatalf("SignIn with normalized email returned error: %v", err)
	}

	if sess.User.Email != "ana@x.com" {
		t.Errorf("stored email %q is not normalized", sess.User.Email)
	}

	if _, err := svc.SignUp(ctx, "Copycat", "ANA@x.com", "pw456"); !errors.Is(err, user.ErrEmailTaken) {
		t.Errorf("case-variant email must collide, got %v", err)
	}
}

func TestFederatedSignInProvisionsOnce(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()

	sess, created, err := svc.FederatedSignIn(ctx, "Ana", "a@x.com", "https://img.example/a.png")

	if err != nil {
		t.Fatalf("FederatedSignIn returned error: %v", err)
	}

	if !created {
		t.Errorf("first federated signin should report created=true")
	}

	if users.Count() != 1 {
		t.Fatalf("expected exactly one provisioned user, have %d", users.Count())
	}

	if sess.User.Avatar != "https://img.example/a.png" {
		t.Errorf("avatar not persisted: %+v", sess.User)
	}

	// second round resolves the same account
	sess2, created, err := svc.FederatedSignIn(ctx, "Ana", "a@x.com", "")

	if err != nil {
		t.Fatalf("second FederatedSignIn returned error: %v", err)
	}

	if created {
		t.Errorf("second federated signin should not create")
	}

	if sess2.User.ID != sess.User.ID {
		t.Errorf("federated signin resolved a different user")
	}

	if users.Count() != 1 {
		t.Errorf("second federated signin must not provision again")
	}
}

func TestFederatedSignInIntoPasswordAccount(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	first, err := svc.SignUp(ctx, "Ana", "a@x.com", "pw123")

	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	sess, created, err := svc.FederatedSignIn(ctx, "Ana G", "a@x.com", "")

	if err != nil {
		t.Fatalf("FederatedSignIn returned error: %v", err)
	}

	if created {
		t.Errorf("existing account must not be re-provisioned")
	}

	if sess.User.ID != first.User.ID {
		t.Errorf("federated signin should resolve the password account")
	}
}

func TestGeneratedPasswordNotUsable(t *testing.T) {
	svc, users, _ := newService(t)
	ctx := context.Background()

	if _, _, err := svc.FederatedSignIn(ctx, "Ana", "a@x.com", ""); err != nil {
		t.Fatalf("FederatedSignIn returned error: %v", err)
	}

	u, err := users.GetByEmail(ctx, "a@x.com")

	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}

	// the stored value is a bcrypt hash of a random secret nobody knows
	if err := security.CheckPassword(u.PasswordHash, ""); err == nil {
		t.Errorf("empty password must not verify")
	}

	if _, err := svc.SignIn(ctx, "a@x.com", u.PasswordHash); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("the hash itself must not be usable as a password, got %v", err)
	}
}
