package models

import "time"

// Platform identifies the social network an account publishes to.
type Platform string

const (
	PlatformX           Platform = "x"
	PlatformFacebook    Platform = "facebook"
	PlatformTruthSocial Platform = "truthsocial"
	PlatformInstagram   Platform = "instagram"
)

// KnownPlatform reports whether p is one of the supported platforms.
func KnownPlatform(p Platform) bool {
	switch p {
	case PlatformX, PlatformFacebook, PlatformTruthSocial, PlatformInstagram:
		return true
	}
	return false
}

// PostStatus is the lifecycle state of a SocialPost. Transitions are owned
// exclusively by the queue orchestrator.
type PostStatus string

const (
	StatusPending  PostStatus = "pending"
	StatusApproved PostStatus = "approved"
	StatusSending  PostStatus = "sending"
	StatusSent     PostStatus = "sent"
	StatusFailed   PostStatus = "failed"
)

type SocialAccount struct {
	ID             string    `json:"id"`
	Platform       Platform  `json:"platform"`
	Name           string    `json:"name"`
	PublishTarget  *string   `json:"publishTarget,omitempty"`
	AccessTokenEnc *string   `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CompetitorAccount is an externally observed account used only as a
// statistical reference. EngagementGrid, when present, holds a 7x24 grid of
// average engagement; malformed grids are treated as absent data, not errors.
type CompetitorAccount struct {
	ID             string      `json:"id"`
	Platform       Platform    `json:"platform"`
	Name           string      `json:"name"`
	EngagementGrid [][]float64 `json:"engagementGrid,omitempty"`
	Active         bool        `json:"active"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type SocialPost struct {
	ID                  string     `json:"id"`
	AccountID           string     `json:"accountId"`
	ArticleID           *string    `json:"articleId,omitempty"`
	Caption             string     `json:"caption"`
	ImageURL            *string    `json:"imageUrl,omitempty"`
	ScheduledAt         time.Time  `json:"scheduledAt"`
	Status              PostStatus `json:"status"`
	PlatformPostID      *string    `json:"platformPostId,omitempty"`
	ErrorMessage        *string    `json:"errorMessage,omitempty"`
	Likes               int        `json:"likes"`
	Shares              int        `json:"shares"`
	Replies             int        `json:"replies"`
	Views               int        `json:"views"`
	Impressions         int        `json:"impressions"`
	EngagementFetchedAt *time.Time `json:"engagementFetchedAt,omitempty"`
	SentAt              *time.Time `json:"sentAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}
