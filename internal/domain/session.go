// Package domain contains core domain types for the job-search assistant.
package domain

import (
	"fmt"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Session identifies one conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSessionTitle returns the title given to a session created at t.
func DefaultSessionTitle(t time.Time) string {
	return "대화 " + t.Format("2006. 1. 2.")
}

// Message is one durable turn in a session. Messages are never mutated.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatTurn is the role/content pair sent to the remote advisor.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
