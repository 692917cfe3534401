package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"social-hub/domain/apperrors"
	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/configuration"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// FacebookAdapter drives the Graph API OAuth flow. Facebook issues long-lived
// user tokens through a second exchange instead of refresh tokens, so
// RefreshAccessToken reports ErrRefreshNotSupported and callers force a
// re-auth when the long-lived token finally lapses.
type FacebookAdapter struct {
	conf         *oauth2.Config
	graphBaseURL string
	httpClient   *http.Client
}

func NewFacebookAdapter(cfg configuration.OAuthClient) *FacebookAdapter {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"public_profile", "pages_show_list", "pages_read_engagement", "pages_manage_posts"}
	}
	return &FacebookAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint:     facebook.Endpoint,
		},
		graphBaseURL: "https://graph.facebook.com/v19.0",
		httpClient:   newHTTPClient(),
	}
}

func (a *FacebookAdapter) Platform() model.Platform { return model.PlatformFacebook }
func (a *FacebookAdapter) UsesPKCE() bool           { return false }

func (a *FacebookAdapter) BuildAuthorizationURL(state, _ string) (string, error) {
	return a.conf.AuthCodeURL(state), nil
}

// ExchangeCodeForTokens runs the standard code exchange and then upgrades the
// short-lived user token to a long-lived one via fb_exchange_token.
func (a *FacebookAdapter) ExchangeCodeForTokens(ctx context.Context, code, _ string) (*model.OAuthTokens, error) {
	shortTok, err := a.conf.Exchange(oauthContext(ctx, a.httpClient), code)
	if err != nil {
		return nil, wrapExchangeError(a.Platform(), err)
	}

	llURL := fmt.Sprintf("%s/oauth/access_token?grant_type=fb_exchange_token&client_id=%s&client_secret=%s&fb_exchange_token=%s",
		a.graphBaseURL,
		url.QueryEscape(a.conf.ClientID), url.QueryEscape(a.conf.ClientSecret), url.QueryEscape(shortTok.AccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, llURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook long-lived exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &apperrors.OAuthExchangeError{
			Platform:   a.Platform().String(),
			StatusCode: resp.StatusCode,
			Body:       drainBody(resp.Body),
		}
	}

	var llData struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&llData); err != nil {
		return nil, fmt.Errorf("facebook long-lived token decode: %w", err)
	}
	return &model.OAuthTokens{AccessToken: llData.AccessToken, ExpiresIn: llData.ExpiresIn}, nil
}

func (a *FacebookAdapter) RefreshAccessToken(context.Context, string) (*model.OAuthTokens, error) {
	return nil, apperrors.ErrRefreshNotSupported
}

func (a *FacebookAdapter) GetProfile(ctx context.Context, accessToken string) (*model.PlatformProfile, error) {
	endpoint := fmt.Sprintf("%s/me?fields=id,name,picture.type(large)&access_token=%s",
		a.graphBaseURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook profile request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, profileRequestFailed(a.Platform(), resp.StatusCode)
	}

	var body struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("facebook profile decode: %w", err)
	}
	if body.ID == "" {
		return nil, fmt.Errorf("facebook profile response missing user id")
	}
	return &model.PlatformProfile{
		ID:              body.ID,
		Username:        body.Name,
		DisplayName:     body.Name,
		ProfileImageURL: body.Picture.Data.URL,
	}, nil
}

// RevokeAccess de-authorizes the app for the user via DELETE /me/permissions.
func (a *FacebookAdapter) RevokeAccess(ctx context.Context, accessToken string) error {
	endpoint := fmt.Sprintf("%s/me/permissions?access_token=%s", a.graphBaseURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("facebook revoke request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("facebook revoke failed: status %d: %s", resp.StatusCode, drainBody(resp.Body))
	}
	return nil
}

var _ repository.IPlatformAdapter = (*FacebookAdapter)(nil)
