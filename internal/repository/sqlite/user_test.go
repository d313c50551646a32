package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sakif/doc-insight/internal/apperror"
	"github.com/sakif/doc-insight/internal/model"
)

// newTestDB opens a fresh file-backed database under t.TempDir().
// A file (rather than ":memory:") keeps every pooled connection on the same
// database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, username, email string) *model.User {
	t.Helper()
	user := &model.User{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        email,
		Username:     username,
		PasswordHash: "$2a$04$notarealhashbutlongenoughforthecolumn",
	}
	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		FirstName:    "Grace",
		LastName:     "Hopper",
		Email:        "grace@example.com",
		Username:     "grace",
		PasswordHash: "hash",
	}

	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "dup", "first@example.com")

	err := db.Create(context.Background(), &model.User{
		FirstName: "x", LastName: "y",
		Email:        "second@example.com",
		Username:     "dup",
		PasswordHash: "hash",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "first", "same@example.com")

	err := db.Create(context.Background(), &model.User{
		FirstName: "x", LastName: "y",
		Email:        "same@example.com",
		Username:     "second",
		PasswordHash: "hash",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "getbyid", "getbyid@example.com")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}

	if found.Username != "getbyid" {
		t.Errorf("Username = %q, want %q", found.Username, "getbyid")
	}
	if found.Email != "getbyid@example.com" {
		t.Errorf("Email = %q, want %q", found.Email, "getbyid@example.com")
	}
	if found.PasswordHash != created.PasswordHash {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, created.PasswordHash)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "login-name", "login@example.com")

	found, err := db.GetByUsername(context.Background(), "login-name")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}

	_, err = db.GetByUsername(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByUsername(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestUserExistsByUsernameOrEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "taken", "taken@example.com")

	tests := []struct {
		name     string
		username string
		email    string
		want     bool
	}{
		{"username matches", "taken", "free@example.com", true},
		{"email matches", "free", "taken@example.com", true},
		{"neither matches", "free", "free@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ExistsByUsernameOrEmail(context.Background(), tt.username, tt.email)
			if err != nil {
				t.Fatalf("ExistsByUsernameOrEmail() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExistsByUsernameOrEmail(%q, %q) = %v, want %v", tt.username, tt.email, got, tt.want)
			}
		})
	}
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	first, err := New(path)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	createTestUser(t, first, "persisted", "persisted@example.com")
	first.Close()

	second, err := New(path)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer second.Close()

	if _, err := second.GetByUsername(context.Background(), "persisted"); err != nil {
		t.Errorf("user lost after reopening: %v", err)
	}
}
