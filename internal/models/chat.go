package models

import "time"

// Conversation is a chat thread between org members. Clients poll the
// conversation and message lists; there is no push channel.
type Conversation struct {
	ID            int64      `json:"id"`
	OrgID         int64      `json:"org_id"`
	Title         *string    `json:"title,omitempty"`
	ParticipantIDs []int64   `json:"participant_ids"`
	CreatedBy     int64      `json:"created_by"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Message is one chat message. IDs are UUIDs generated server-side.
type Message struct {
	ID             string     `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	Body           string     `json:"body"`
	ReadBy         []int64    `json:"read_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CreateConversationRequest represents the request body for starting a thread
type CreateConversationRequest struct {
	Title          *string `json:"title,omitempty"`
	ParticipantIDs []int64 `json:"participant_ids" validate:"required,min=1"`
}

// SendMessageRequest represents the request body for posting a message
type SendMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}
