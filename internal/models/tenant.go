package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the top-level isolation boundary. Every other entity is
// tenant-scoped transitively through its event.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
