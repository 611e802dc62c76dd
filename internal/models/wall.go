package models

import (
	"time"

	"github.com/google/uuid"
)

// Wall is a named, slugged collection of items owned by one organization.
type Wall struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"orgId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

// WallRef is the public projection of a wall in the items API.
type WallRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Ref returns the public projection of w.
func (w *Wall) Ref() WallRef {
	return WallRef{Name: w.Name, Slug: w.Slug}
}
