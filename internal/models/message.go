package models

import "time"

// MessageStatus is the inbox state of a contact message.
type MessageStatus string

const (
	MessageUnread  MessageStatus = "unread"
	MessageRead    MessageStatus = "read"
	MessageReplied MessageStatus = "replied"
)

// Valid reports whether s is a known status.
func (s MessageStatus) Valid() bool {
	return s == MessageUnread || s == MessageRead || s == MessageReplied
}

// MessagePriority ranks inbox messages.
type MessagePriority string

const (
	PriorityHigh   MessagePriority = "high"
	PriorityNormal MessagePriority = "normal"
	PriorityLow    MessagePriority = "low"
)

// Message is a contact form submission.
type Message struct {
	ID          string          `json:"_id"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone,omitempty"`
	Subject     string          `json:"subject"`
	Category    string          `json:"category,omitempty"`
	Body        string          `json:"message"`
	Priority    MessagePriority `json:"priority"`
	Status      MessageStatus   `json:"status"`
	Response    string          `json:"response,omitempty"`
	RespondedAt *time.Time      `json:"respondedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CreateMessageRequest is the public contact form payload.
type CreateMessageRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty"`
	Subject   string `json:"subject" validate:"required"`
	Category  string `json:"category,omitempty"`
	Body      string `json:"message" validate:"required,min=10"`
}

// RespondRequest stores a reply on a message.
type RespondRequest struct {
	Response string `json:"response"`
}

// MessagePatch is a partial update of a message.
type MessagePatch struct {
	Priority *MessagePriority `json:"priority,omitempty"`
	Category *string          `json:"category,omitempty"`
	Status   *MessageStatus   `json:"status,omitempty"`
}

// MessageList is the data of GET /messages.
type MessageList struct {
	Messages   []Message  `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

// MessageData wraps a single message.
type MessageData struct {
	Message Message `json:"message"`
}

// MessageOverview counts messages per status.
type MessageOverview struct {
	Total   int `json:"total"`
	Unread  int `json:"unread"`
	Read    int `json:"read"`
	Replied int `json:"replied"`
}

// MessageStats is the data of GET /messages/stats.
type MessageStats struct {
	Overview MessageOverview `json:"overview"`
}
