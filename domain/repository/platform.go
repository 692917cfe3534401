package repository

import (
	"context"

	"social-hub/domain/model"
)

// IPlatformAdapter is the per-platform capability set. One implementation per
// platform, registered at startup; all adapters are stateless between calls.
// PKCE verifiers travel through the state store, never through adapter fields.
type IPlatformAdapter interface {
	Platform() model.Platform

	// UsesPKCE reports whether authorization requires a code challenge. For
	// PKCE platforms BuildAuthorizationURL fails fast when codeChallenge is
	// empty rather than issuing a weaker URL.
	UsesPKCE() bool

	BuildAuthorizationURL(state string, codeChallenge string) (string, error)

	// ExchangeCodeForTokens performs the one-shot code exchange. Never retried:
	// authorization codes are single-use. Non-2xx responses come back as
	// *apperrors.OAuthExchangeError.
	ExchangeCodeForTokens(ctx context.Context, code string, codeVerifier string) (*model.OAuthTokens, error)

	// RefreshAccessToken returns apperrors.ErrRefreshNotSupported on platforms
	// without refresh semantics instead of echoing the old token back.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*model.OAuthTokens, error)

	GetProfile(ctx context.Context, accessToken string) (*model.PlatformProfile, error)

	// RevokeAccess is best-effort; callers swallow the error after logging so
	// a disconnect always succeeds locally.
	RevokeAccess(ctx context.Context, accessToken string) error
}
