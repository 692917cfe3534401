package model

import (
	"time"
)

// Account status values. EXPIRED means the last refresh attempt failed and the
// account needs either a successful refresh or a full re-auth. REVOKED is
// terminal and only set on disconnect.
const (
	AccountStatusActive  = "ACTIVE"
	AccountStatusExpired = "EXPIRED"
	AccountStatusRevoked = "REVOKED"
)

// LinkedAccount is a persisted link between a user and an external platform
// identity. Token columns always hold Token Cipher envelopes, never plaintext.
// Unique key: (UserID, Platform, PlatformUserID).
type LinkedAccount struct {
	ID                    int64      `json:"id"`
	UserID                string     `json:"userId"`
	OrganizationID        *string    `json:"organizationId,omitempty"`
	Platform              Platform   `json:"platform"`
	PlatformUserID        string     `json:"platformUserId"`
	EncryptedAccessToken  string     `json:"-"`
	EncryptedRefreshToken *string    `json:"-"`
	TokenExpiresAt        *time.Time `json:"tokenExpiresAt,omitempty"`
	Scopes                string     `json:"scopes"` // space-joined, order preserved
	Username              string     `json:"username"`
	DisplayName           string     `json:"displayName"`
	ProfileImageURL       string     `json:"profileImageUrl"`
	FollowerCount         int64      `json:"followerCount"`
	FollowingCount        int64      `json:"followingCount"`
	Status                string     `json:"status"`
	LastSyncedAt          time.Time  `json:"lastSyncedAt"`
	ConnectedAt           time.Time  `json:"connectedAt"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// TokenExpired reports whether the stored access token is past its expiry.
// Accounts without a recorded expiry are treated as non-expiring.
func (a *LinkedAccount) TokenExpired(now time.Time) bool {
	return a.TokenExpiresAt != nil && now.After(*a.TokenExpiresAt)
}
