package model

import (
	"time"
)

// PendingOAuthState is the server-held binding for an in-flight OAuth
// handshake, stored in the cache under the state token until the callback
// consumes it or the TTL evicts it.
type PendingOAuthState struct {
	UserID         string   `json:"userId"`
	OrganizationID *string  `json:"organizationId,omitempty"`
	Platform       Platform `json:"platform"`
	CodeVerifier   string   `json:"codeVerifier,omitempty"` // PKCE platforms only
	CreatedAt      int64    `json:"createdAt"`              // epoch millis
}

// Age returns how long ago the state was minted.
func (s *PendingOAuthState) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.CreatedAt))
}

// OAuthTokens is the transient result of a code exchange or refresh. It is
// never persisted as-is; the connection usecase runs both tokens through the
// cipher before anything touches the database.
type OAuthTokens struct {
	AccessToken  string
	RefreshToken string // empty when the platform issued none
	ExpiresIn    int64  // seconds; 0 means the platform reported no expiry
	Scope        string // granted scopes exactly as the platform reported them
}

// ExpiryTime converts ExpiresIn into an absolute timestamp, or nil when the
// platform did not report one.
func (t *OAuthTokens) ExpiryTime(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	e := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return &e
}

// PlatformProfile is the normalized identity every adapter returns. ID is the
// platform's stable user identifier and is the only mandatory field.
type PlatformProfile struct {
	ID              string
	Username        string
	DisplayName     string
	ProfileImageURL string
	FollowerCount   int64
	FollowingCount  int64
}
