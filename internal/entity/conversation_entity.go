package entity

import (
	"time"

	"github.com/google/uuid"
)

// Conversation groups messages. OwnerId is nil for guest conversations.
type Conversation struct {
	Id        uuid.UUID
	OwnerId   *uuid.UUID
	ProjectId *uuid.UUID
	Title     *string
	Pinned    bool
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

type Message struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Role           string
	Content        string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

type Project struct {
	Id        uuid.UUID
	OwnerId   uuid.UUID
	Name      string
	CreatedAt time.Time
}
