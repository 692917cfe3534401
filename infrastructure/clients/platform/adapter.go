package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"social-hub/domain/apperrors"
	"social-hub/domain/model"

	"golang.org/x/oauth2"
)

// Outbound calls to platform APIs are bounded; token exchange is never
// retried because authorization codes are single-use.
const requestTimeout = 10 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// GeneratePKCE mints a fresh code verifier and its S256 challenge for one
// authorization flow. The verifier is bound to the flow's state entry; it is
// never kept on the adapter, so concurrent flows cannot clobber each other.
func GeneratePKCE() (verifier, challenge string) {
	verifier = oauth2.GenerateVerifier()
	return verifier, oauth2.S256ChallengeFromVerifier(verifier)
}

// oauthContext routes x/oauth2's internal HTTP calls through our bounded client.
func oauthContext(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// pkceAuthCodeOptions attaches an S256 code challenge to an authorization URL.
func pkceAuthCodeOptions(codeChallenge string) []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
}

// wrapExchangeError converts a failed x/oauth2 exchange into the taxonomy the
// connection usecase understands, preserving the platform's HTTP status.
func wrapExchangeError(p model.Platform, err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		status := 0
		if rErr.Response != nil {
			status = rErr.Response.StatusCode
		}
		return &apperrors.OAuthExchangeError{Platform: p.String(), StatusCode: status, Body: string(rErr.Body)}
	}
	return fmt.Errorf("%s token exchange: %w", p, err)
}

func tokensFromOAuth2(tok *oauth2.Token) *model.OAuthTokens {
	out := &model.OAuthTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		if secs := int64(time.Until(tok.Expiry).Seconds()); secs > 0 {
			out.ExpiresIn = secs
		}
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	return out
}

// errMissingChallenge is returned when a PKCE platform is asked for an
// authorization URL without a code challenge. Failing fast here beats
// silently issuing a weaker-than-intended URL.
func errMissingChallenge(p model.Platform) error {
	return fmt.Errorf("%s requires a PKCE code challenge to build an authorization url", p)
}

// drainBody reads a bounded amount of an error response body for diagnostics.
func drainBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(b)
}

func profileRequestFailed(p model.Platform, status int) error {
	return fmt.Errorf("%s profile fetch failed: status %d", p, status)
}
