package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system" // injected at call time, never stored
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

type Message struct {
	ID        int64     `json:"id"`
	ConvID    string    `json:"conv_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	IP        string    `json:"ip,omitempty"`
	UA        string    `json:"ua,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is the role-tagged shape sent to the completion API.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
