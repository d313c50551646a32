// Package repository declares the storage interfaces the services depend on.
// Implementations live in sub-packages (see repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/doc-insight/internal/model"
)

// UserRepository stores accounts. Create must fail with an apperror conflict
// when the username or email is already taken.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

// HistoryRepository stores the per-user summary history.
type HistoryRepository interface {
	Add(ctx context.Context, entry *model.ChatHistory) error
	ListByUser(ctx context.Context, userID string) ([]model.ChatHistory, error)
}
