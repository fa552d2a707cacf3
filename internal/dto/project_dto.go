package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateProjectRequest struct {
	Name string `json:"name" validate:"required"`
}

type UpdateProjectRequest struct {
	Id   uuid.UUID `json:"-"`
	Name string    `json:"name" validate:"required"`
}

type ProjectDTO struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
