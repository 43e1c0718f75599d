package domain

import (
	"strings"
	"time"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser MessageRole = "user"
	RoleBot  MessageRole = "bot"
)

// Label returns the capitalized role used in rendered chat logs
func (r MessageRole) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleBot:
		return "Bot"
	default:
		if r == "" {
			return ""
		}
		return strings.ToUpper(string(r[:1])) + string(r[1:])
	}
}

// Message is one transcript entry. Bot messages grow while a reply streams
// in and are frozen once Final is set.
type Message struct {
	Role      MessageRole `json:"role"`
	Text      string      `json:"text"`
	Final     bool        `json:"final"`
	CreatedAt time.Time   `json:"created_at"`
}

// RenderChatLog renders messages as newline-joined "<Role>: <text>" lines
func RenderChatLog(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, m.Role.Label()+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}
