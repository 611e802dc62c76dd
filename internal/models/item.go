package models

import (
	"time"

	"github.com/google/uuid"
)

// Embed is the outcome of resolving a content URL against its provider.
type Embed struct {
	Provider string
	Title    string
	HTML     string
}

// Item is the displayable result of a source.
type Item struct {
	ID        uuid.UUID `json:"id"`
	WallID    uuid.UUID `json:"wallId"`
	Type      Platform  `json:"type"`
	URL       string    `json:"url"`
	Provider  string    `json:"provider"`
	Title     string    `json:"title"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"createdAt"`
}

// PublicItem is Item without the owning wall id, for unauthenticated responses.
type PublicItem struct {
	ID        uuid.UUID `json:"id"`
	Type      Platform  `json:"type"`
	URL       string    `json:"url"`
	Provider  string    `json:"provider"`
	Title     string    `json:"title"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToPublic converts Item to PublicItem.
func (it *Item) ToPublic() PublicItem {
	return PublicItem{
		ID:        it.ID,
		Type:      it.Type,
		URL:       it.URL,
		Provider:  it.Provider,
		Title:     it.Title,
		HTML:      it.HTML,
		CreatedAt: it.CreatedAt,
	}
}

// DisplayProvider returns the provider name, falling back to the platform.
func (it *Item) DisplayProvider() string {
	if it.Provider != "" {
		return it.Provider
	}
	return string(it.Type)
}
