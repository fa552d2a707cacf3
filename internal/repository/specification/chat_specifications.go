package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnedBy filters conversations/projects by owner.
type OwnedBy struct {
	OwnerID uuid.UUID
}

func (s OwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_id = ?", s.OwnerID)
}

type ByConversationID struct {
	ConversationID uuid.UUID
}

func (s ByConversationID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationID)
}

type ByProjectID struct {
	ProjectID uuid.UUID
}

func (s ByProjectID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("project_id = ?", s.ProjectID)
}

type Pinned struct {
	Value bool
}

func (s Pinned) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("pinned = ?", s.Value)
}
