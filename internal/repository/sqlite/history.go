package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/doc-insight/internal/model"
	"github.com/sakif/doc-insight/internal/repository"
)

var _ repository.HistoryRepository = (*DB)(nil)

// Add appends a history entry for entry.UserID. ID and CreatedAt are set here.
// A UserID that does not exist fails the foreign key.
func (db *DB) Add(ctx context.Context, entry *model.ChatHistory) error {
	entry.ID = xid.New().String()
	entry.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO chat_history (id, user_id, chat_summary, created_at) VALUES (?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.Summary,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting chat history for user %s: %w", entry.UserID, err)
	}
	return nil
}

// ListByUser returns the user's entries oldest first. An unknown user yields
// an empty, non-nil slice.
func (db *DB) ListByUser(ctx context.Context, userID string) ([]model.ChatHistory, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, chat_summary, created_at
		 FROM chat_history
		 WHERE user_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing chat history: %w", err)
	}
	defer rows.Close()

	entries := []model.ChatHistory{}
	for rows.Next() {
		var h model.ChatHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.Summary, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning chat history: %w", err)
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating chat history: %w", err)
	}

	return entries, nil
}
