package models

import "time"

// Message is a chat message posted to a study group.
type Message struct {
	ID         string    `json:"id"`
	GroupID    string    `json:"group_id"`
	UserID     string    `json:"user_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// PostMessageRequest is the body for posting to a group.
type PostMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// MessageFilter pages through a group's messages.
type MessageFilter struct {
	Limit  int
	Offset int
}
