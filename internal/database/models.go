package database

import (
	"fmt"
	"time"
)

// MaxContentLength caps the content field of a message. Oversized sends are
// rejected before any row is written.
const MaxContentLength = 10_000_000

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id          int
	ExternalId  string
	Name        string
	Description string
	OwnerId     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Message struct {
	Id        string
	Seq       int64
	RoomId    string
	Sender    string
	Content   string
	Type      string
	Time      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
}

type CreateRoomParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerId     int    `json:"-"`
	ExternalId  string `json:"external_id"`
}

type CreateMessageParams struct {
	RoomId  string
	Sender  string
	Content string
	Type    string
	Time    string
}

// ValidationError reports a malformed identifier or an oversized content
// field. It is returned before any write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const maxIdLength = 64

// ValidateId checks that s is a well-formed identifier: non-empty, at most
// 64 characters, drawn from [A-Za-z0-9_-].
func ValidateId(field, s string) error {
	if s == "" {
		return &ValidationError{Field: field, Reason: "empty"}
	}
	if len(s) > maxIdLength {
		return &ValidationError{Field: field, Reason: "too long"}
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return &ValidationError{Field: field, Reason: fmt.Sprintf("illegal character %q", c)}
		}
	}
	return nil
}
