package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sakif/doc-insight/internal/apperror"
	"github.com/sakif/doc-insight/internal/auth"
	"github.com/sakif/doc-insight/internal/model"
)

// newTestAccountService returns an AccountService wired with fakes and a
// cost-4 bcrypt so tests stay fast.
func newTestAccountService(t *testing.T, users *fakeUserRepo, history *fakeHistoryRepo) *AccountService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return NewAccountService(users, history, ts, auth.NewPasswordServiceForTest(4), discardLogger())
}

func validSignup() SignupInput {
	return SignupInput{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Username:        "ada",
		Password:        "analytical-engine",
		ConfirmPassword: "analytical-engine",
	}
}

// appMessage returns the user-facing message of err, or "".
func appMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}

// =========================================================================
// Signup TESTS
// =========================================================================

func TestSignup_Success(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAccountService(t, users, &fakeHistoryRepo{})

	in := validSignup()
	in.Username = "  ada  "
	user, err := svc.Signup(context.Background(), in)
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Signup() returned a user without ID")
	}
	if user.Username != "ada" {
		t.Errorf("Username = %q, want trimmed %q", user.Username, "ada")
	}
	if user.PasswordHash == "" || user.PasswordHash == in.Password {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", user.PasswordHash)
	}
	if !strings.HasPrefix(user.PasswordHash, "$2") {
		t.Errorf("PasswordHash %q does not look like bcrypt", user.PasswordHash)
	}
}

func TestSignup_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*SignupInput)
		want   string
	}{
		{"missing first name", func(in *SignupInput) { in.FirstName = " " }, MsgFieldsRequired},
		{"missing password", func(in *SignupInput) { in.Password, in.ConfirmPassword = "", "" }, MsgFieldsRequired},
		{"mismatch", func(in *SignupInput) { in.ConfirmPassword = "different" }, MsgPasswordMismatch},
		{"bad email", func(in *SignupInput) { in.Email = "not-an-email" }, MsgInvalidEmail},
		{"display-name email", func(in *SignupInput) { in.Email = "Ada <ada@example.com>" }, MsgInvalidEmail},
		{"too long", func(in *SignupInput) {
			in.Password = strings.Repeat("x", 73)
			in.ConfirmPassword = in.Password
		}, MsgPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := newFakeUserRepo()
			svc := newTestAccountService(t, users, &fakeHistoryRepo{})

			in := validSignup()
			tt.modify(&in)
			_, err := svc.Signup(context.Background(), in)

			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Signup() error = %v, want ErrValidation", err)
			}
			if got := appMessage(err); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
			if len(users.users) != 0 {
				t.Errorf("%d users created, want 0", len(users.users))
			}
		})
	}
}

func TestSignup_DuplicateUsernameOrEmail(t *testing.T) {
	for _, tt := range []struct {
		name   string
		modify func(*SignupInput)
	}{
		{"same username", func(in *SignupInput) { in.Email = "other@example.com" }},
		{"same email", func(in *SignupInput) { in.Username = "other" }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			users := newFakeUserRepo()
			svc := newTestAccountService(t, users, &fakeHistoryRepo{})
			if _, err := svc.Signup(context.Background(), validSignup()); err != nil {
				t.Fatalf("first Signup() error = %v", err)
			}

			in := validSignup()
			tt.modify(&in)
			_, err := svc.Signup(context.Background(), in)

			if !errors.Is(err, apperror.ErrConflict) {
				t.Fatalf("Signup() error = %v, want ErrConflict", err)
			}
			if got := appMessage(err); got != MsgUserExists {
				t.Errorf("message = %q, want %q", got, MsgUserExists)
			}
			if len(users.users) != 1 {
				t.Errorf("%d users stored, want 1", len(users.users))
			}
		})
	}
}

func TestSignup_RepositoryError(t *testing.T) {
	users := newFakeUserRepo()
	users.existsErr = errors.New("disk I/O error")
	svc := newTestAccountService(t, users, &fakeHistoryRepo{})

	_, err := svc.Signup(context.Background(), validSignup())
	if err == nil || errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Signup() error = %v, want an internal error", err)
	}
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestAccountService(t, users, &fakeHistoryRepo{})
	created, err := svc.Signup(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(context.Background(), "ada", "analytical-engine")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if res.User.ID != created.ID {
			t.Errorf("User.ID = %q, want %q", res.User.ID, created.ID)
		}
		userID, err := svc.tokens.Validate(res.Token)
		if err != nil || userID != created.ID {
			t.Errorf("token subject = %q (err %v), want %q", userID, err, created.ID)
		}
	})

	for _, tt := range []struct{ name, user, pass string }{
		{"wrong password", "ada", "difference-engine"},
		{"unknown user", "babbage", "analytical-engine"},
		{"empty", "", ""},
	} {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Login(context.Background(), tt.user, tt.pass)
			if !errors.Is(err, apperror.ErrUnauthorized) {
				t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
			}
			if res != nil {
				t.Error("Login() should not issue a session on failure")
			}
			if got := appMessage(err); got != MsgLoginFailed {
				t.Errorf("message = %q, want %q", got, MsgLoginFailed)
			}
		})
	}
}

// =========================================================================
// History TESTS
// =========================================================================

func TestHistory_OnlyOwnEntries(t *testing.T) {
	history := &fakeHistoryRepo{}
	svc := newTestAccountService(t, newFakeUserRepo(), history)

	history.Add(context.Background(), &model.ChatHistory{UserID: "u1", Summary: "mine"})
	history.Add(context.Background(), &model.ChatHistory{UserID: "u2", Summary: "theirs"})

	got, err := svc.History(context.Background(), "u1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(got) != 1 || got[0].Summary != "mine" {
		t.Errorf("History() = %+v", got)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	svc := newTestAccountService(t, newFakeUserRepo(), &fakeHistoryRepo{})

	_, err := svc.GetUserByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}
