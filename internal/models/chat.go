package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	// ChatEmptyReplyText replaces a reply that came back without text.
	ChatEmptyReplyText = "I'm here for you, but I'm having trouble connecting right now."
	// ChatConnectionErrorText replaces a reply whose call failed.
	ChatConnectionErrorText = "I'm having trouble connecting. Please check your internet or try again later."
)
