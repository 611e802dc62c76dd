package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is stamped into Meta.Version of every persisted document.
const SchemaVersion = 1

// Meta carries document-level metadata.
type Meta struct {
	CreatedAt time.Time `json:"createdAt"`
	Version   int       `json:"version"`
}

// Document is the whole persisted state: five collections plus metadata.
type Document struct {
	Users   []User         `json:"users"`
	Orgs    []Organization `json:"orgs"`
	Walls   []Wall         `json:"walls"`
	Sources []Source       `json:"sources"`
	Items   []Item         `json:"items"`
	Meta    Meta           `json:"meta"`
}

// NewDocument returns an empty document created at now.
func NewDocument(now time.Time) *Document {
	return &Document{
		Users:   []User{},
		Orgs:    []Organization{},
		Walls:   []Wall{},
		Sources: []Source{},
		Items:   []Item{},
		Meta:    Meta{CreatedAt: now.UTC(), Version: SchemaVersion},
	}
}

// Normalize replaces nil collections with empty ones so the JSON shape stays fixed.
func (d *Document) Normalize() {
	if d.Users == nil {
		d.Users = []User{}
	}
	if d.Orgs == nil {
		d.Orgs = []Organization{}
	}
	if d.Walls == nil {
		d.Walls = []Wall{}
	}
	if d.Sources == nil {
		d.Sources = []Source{}
	}
	if d.Items == nil {
		d.Items = []Item{}
	}
	if d.Meta.Version == 0 {
		d.Meta.Version = SchemaVersion
	}
}

// UserByEmail finds a user by email, case-insensitively.
func (d *Document) UserByEmail(email string) *User {
	for i := range d.Users {
		if strings.EqualFold(d.Users[i].Email, email) {
			return &d.Users[i]
		}
	}
	return nil
}

// OrgByID finds an organization by id.
func (d *Document) OrgByID(id uuid.UUID) *Organization {
	for i := range d.Orgs {
		if d.Orgs[i].ID == id {
			return &d.Orgs[i]
		}
	}
	return nil
}

// WallByID finds a wall by id.
func (d *Document) WallByID(id uuid.UUID) *Wall {
	for i := range d.Walls {
		if d.Walls[i].ID == id {
			return &d.Walls[i]
		}
	}
	return nil
}

// WallBySlug finds a wall by its globally unique slug.
func (d *Document) WallBySlug(slug string) *Wall {
	for i := range d.Walls {
		if d.Walls[i].Slug == slug {
			return &d.Walls[i]
		}
	}
	return nil
}

// WallsForOrg returns the walls owned by orgID in creation order.
func (d *Document) WallsForOrg(orgID uuid.UUID) []Wall {
	out := []Wall{}
	for _, w := range d.Walls {
		if w.OrgID == orgID {
			out = append(out, w)
		}
	}
	return out
}

// SourcesForWall returns the sources of wallID in creation order.
func (d *Document) SourcesForWall(wallID uuid.UUID) []Source {
	out := []Source{}
	for _, s := range d.Sources {
		if s.WallID == wallID {
			out = append(out, s)
		}
	}
	return out
}

// ItemsForWall returns the items of wallID newest first. Items sharing a
// timestamp keep reverse insertion order.
func (d *Document) ItemsForWall(wallID uuid.UUID) []Item {
	out := []Item{}
	for i := len(d.Items) - 1; i >= 0; i-- {
		if d.Items[i].WallID == wallID {
			out = append(out, d.Items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
