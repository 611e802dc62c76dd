package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform identifies a supported social platform.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
)

// Platforms lists the supported platforms in display order.
var Platforms = []Platform{PlatformYouTube, PlatformTikTok, PlatformInstagram}

// ParsePlatform lower-cases s and reports whether it names a supported platform.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformYouTube, PlatformTikTok, PlatformInstagram:
		return p, true
	}
	return p, false
}

// SourceStatus records whether embed resolution raised for a source.
type SourceStatus string

const (
	SourceStatusOK    SourceStatus = "ok"
	SourceStatusError SourceStatus = "fout"
)

// Source is a user-submitted (platform, URL) pair. Each source has exactly one item.
type Source struct {
	ID        uuid.UUID    `json:"id"`
	WallID    uuid.UUID    `json:"wallId"`
	Type      Platform     `json:"type"`
	URL       string       `json:"url"`
	Status    SourceStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}
