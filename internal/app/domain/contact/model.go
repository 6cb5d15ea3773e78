// Package contact defines inbound customer messages.
package contact

import "time"

// Status tracks operator handling of a message. UNREAD moves to READ
// automatically the first time an operator opens the record.
type Status string

const (
	StatusUnread  Status = "UNREAD"
	StatusRead    Status = "READ"
	StatusReplied Status = "REPLIED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	return s == StatusUnread || s == StatusRead || s == StatusReplied
}

// Contact is a message submitted through the public contact form.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Status    Status    `json:"status"`
	IPAddress string    `json:"ipAddress,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
