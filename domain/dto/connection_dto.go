package dto

import (
	"time"
)

type Res struct {
	ResponseCode    string `json:"response_code"`
	ResponseMessage string `json:"response_message"`
}

// InitiateConnectionResponse carries the authorization URL the browser should
// be redirected to. The state token rides inside the URL only.
type InitiateConnectionResponse struct {
	AuthURL  string `json:"auth_url"`
	Platform string `json:"platform"`
}

// ConnectionResponse is the token-free public view of a linked account.
type ConnectionResponse struct {
	ID              int64      `json:"id"`
	Platform        string     `json:"platform"`
	PlatformUserID  string     `json:"platform_user_id"`
	Username        string     `json:"username"`
	DisplayName     string     `json:"display_name"`
	ProfileImageURL string     `json:"profile_image_url"`
	FollowerCount   int64      `json:"follower_count"`
	FollowingCount  int64      `json:"following_count"`
	Status          string     `json:"status"`
	Scopes          string     `json:"scopes"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	ConnectedAt     time.Time  `json:"connected_at"`
	LastSyncedAt    time.Time  `json:"last_synced_at"`
}
