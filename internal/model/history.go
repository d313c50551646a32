package model

import "time"

// ChatHistory is one summary generated for a signed-in user by /analyze.
// Rows are append-only.
type ChatHistory struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Summary   string    `json:"summary"   db:"chat_summary"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
