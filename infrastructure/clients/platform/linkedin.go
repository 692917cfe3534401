package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/configuration"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

// LinkedInAdapter uses the standard authorization-code flow (no PKCE) and the
// OpenID Connect userinfo endpoint for the profile snapshot.
type LinkedInAdapter struct {
	conf       *oauth2.Config
	apiBaseURL string
	revokeURL  string
	httpClient *http.Client
}

func NewLinkedInAdapter(cfg configuration.OAuthClient) *LinkedInAdapter {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "w_member_social"}
	}
	return &LinkedInAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint:     linkedin.Endpoint,
		},
		apiBaseURL: "https://api.linkedin.com",
		revokeURL:  "https://www.linkedin.com/oauth/v2/revoke",
		httpClient: newHTTPClient(),
	}
}

func (a *LinkedInAdapter) Platform() model.Platform { return model.PlatformLinkedIn }
func (a *LinkedInAdapter) UsesPKCE() bool           { return false }

func (a *LinkedInAdapter) BuildAuthorizationURL(state, _ string) (string, error) {
	return a.conf.AuthCodeURL(state), nil
}

func (a *LinkedInAdapter) ExchangeCodeForTokens(ctx context.Context, code, _ string) (*model.OAuthTokens, error) {
	tok, err := a.conf.Exchange(oauthContext(ctx, a.httpClient), code)
	if err != nil {
		return nil, wrapExchangeError(a.Platform(), err)
	}
	return tokensFromOAuth2(tok), nil
}

func (a *LinkedInAdapter) RefreshAccessToken(ctx context.Context, refreshToken string) (*model.OAuthTokens, error) {
	src := a.conf.TokenSource(oauthContext(ctx, a.httpClient), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("linkedin refresh: %w", err)
	}
	return tokensFromOAuth2(tok), nil
}

func (a *LinkedInAdapter) GetProfile(ctx context.Context, accessToken string) (*model.PlatformProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiBaseURL+"/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("linkedin profile request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, profileRequestFailed(a.Platform(), resp.StatusCode)
	}

	var body struct {
		Sub       string `json:"sub"`
		Name      string `json:"name"`
		GivenName string `json:"given_name"`
		Picture   string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("linkedin profile decode: %w", err)
	}
	if body.Sub == "" {
		return nil, fmt.Errorf("linkedin profile response missing subject")
	}
	return &model.PlatformProfile{
		ID:              body.Sub,
		Username:        body.GivenName,
		DisplayName:     body.Name,
		ProfileImageURL: body.Picture,
	}, nil
}

func (a *LinkedInAdapter) RevokeAccess(ctx context.Context, accessToken string) error {
	form := url.Values{}
	form.Set("client_id", a.conf.ClientID)
	form.Set("client_secret", a.conf.ClientSecret)
	form.Set("token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("linkedin revoke request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("linkedin revoke failed: status %d: %s", resp.StatusCode, drainBody(resp.Body))
	}
	return nil
}

var _ repository.IPlatformAdapter = (*LinkedInAdapter)(nil)
