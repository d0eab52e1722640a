package models

import "time"

type Settings struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	SystemPrompt string    `db:"system_prompt" json:"system_prompt"`
	Model        string    `db:"model" json:"model"`
	AutoPost     bool      `db:"auto_post" json:"auto_post"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
