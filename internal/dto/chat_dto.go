package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateConversationRequest struct {
	Title     *string    `json:"title"`
	ProjectId *uuid.UUID `json:"project_id"`
}

type UpdateConversationRequest struct {
	Id        uuid.UUID  `json:"-"`
	Title     *string    `json:"title"`
	Pinned    *bool      `json:"pinned"`
	ProjectId *uuid.UUID `json:"project_id"`
}

type ConversationDTO struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Pinned    bool       `json:"pinned"`
	ProjectId *uuid.UUID `json:"project_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type SidebarResponse struct {
	Pinned  []ConversationDTO `json:"pinned"`
	Recents []ConversationDTO `json:"recents"`
}

type MessageDTO struct {
	Id             uuid.UUID `json:"id"`
	ConversationId uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type SendMessageRequest struct {
	ConversationId *uuid.UUID `json:"conversation_id"`
	Content        string     `json:"content" validate:"required"`
}

type SendMessageResponse struct {
	ConversationId uuid.UUID  `json:"conversation_id"`
	UserMessage    MessageDTO `json:"user_message"`
}

type GuestUsageResponse struct {
	Ok        bool `json:"ok"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
	Limit     int  `json:"limit"`
}

// PublishTitleMessage is the payload queued for async conversation titling.
type PublishTitleMessage struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	FirstPrompt    string    `json:"first_prompt"`
}
