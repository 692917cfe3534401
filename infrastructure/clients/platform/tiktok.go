package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"social-hub/domain/apperrors"
	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/configuration"
)

// TikTokAdapter implements the TikTok v2 OAuth flow with PKCE. TikTok names
// the client credential "client_key" rather than "client_id", so the token
// calls are plain form posts instead of going through x/oauth2.
type TikTokAdapter struct {
	clientKey    string
	clientSecret string
	redirectURI  string
	scopes       []string
	authURL      string
	tokenURL     string
	apiBaseURL   string
	httpClient   *http.Client
}

func NewTikTokAdapter(cfg configuration.OAuthClient) *TikTokAdapter {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"user.info.basic", "user.info.stats", "video.publish"}
	}
	return &TikTokAdapter{
		clientKey:    cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		scopes:       scopes,
		authURL:      "https://www.tiktok.com/v2/auth/authorize/",
		tokenURL:     "https://open.tiktokapis.com/v2/oauth/token/",
		apiBaseURL:   "https://open.tiktokapis.com",
		httpClient:   newHTTPClient(),
	}
}

func (a *TikTokAdapter) Platform() model.Platform { return model.PlatformTikTok }
func (a *TikTokAdapter) UsesPKCE() bool           { return true }

func (a *TikTokAdapter) BuildAuthorizationURL(state, codeChallenge string) (string, error) {
	if codeChallenge == "" {
		return "", errMissingChallenge(a.Platform())
	}
	u, err := url.Parse(a.authURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_key", a.clientKey)
	q.Set("response_type", "code")
	q.Set("redirect_uri", a.redirectURI)
	q.Set("scope", strings.Join(a.scopes, ","))
	q.Set("state", state)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tiktokTokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (a *TikTokAdapter) postToken(ctx context.Context, form url.Values) (*tiktokTokenResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("tiktok token endpoint: status %d: %s", resp.StatusCode, drainBody(resp.Body))
	}

	var body tiktokTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("tiktok token decode: %w", err)
	}
	// TikTok reports some failures inside a 200 body.
	if body.Error != "" {
		return nil, resp.StatusCode, fmt.Errorf("tiktok token endpoint: %s: %s", body.Error, body.ErrorDescription)
	}
	return &body, resp.StatusCode, nil
}

func (a *TikTokAdapter) ExchangeCodeForTokens(ctx context.Context, code, codeVerifier string) (*model.OAuthTokens, error) {
	if codeVerifier == "" {
		return nil, fmt.Errorf("tiktok code exchange requires the pkce verifier")
	}
	form := url.Values{}
	form.Set("client_key", a.clientKey)
	form.Set("client_secret", a.clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", a.redirectURI)
	form.Set("code_verifier", codeVerifier)

	body, status, err := a.postToken(ctx, form)
	if err != nil {
		if status != 0 && status != http.StatusOK {
			return nil, &apperrors.OAuthExchangeError{Platform: a.Platform().String(), StatusCode: status, Body: err.Error()}
		}
		return nil, err
	}
	return &model.OAuthTokens{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresIn:    body.ExpiresIn,
		Scope:        body.Scope,
	}, nil
}

func (a *TikTokAdapter) RefreshAccessToken(ctx context.Context, refreshToken string) (*model.OAuthTokens, error) {
	form := url.Values{}
	form.Set("client_key", a.clientKey)
	form.Set("client_secret", a.clientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	body, _, err := a.postToken(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("tiktok refresh: %w", err)
	}
	return &model.OAuthTokens{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresIn:    body.ExpiresIn,
		Scope:        body.Scope,
	}, nil
}

func (a *TikTokAdapter) GetProfile(ctx context.Context, accessToken string) (*model.PlatformProfile, error) {
	endpoint := a.apiBaseURL + "/v2/user/info/?fields=open_id,display_name,avatar_url,follower_count,following_count"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiktok profile request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, profileRequestFailed(a.Platform(), resp.StatusCode)
	}

	var body struct {
		Data struct {
			User struct {
				OpenID         string `json:"open_id"`
				DisplayName    string `json:"display_name"`
				AvatarURL      string `json:"avatar_url"`
				FollowerCount  int64  `json:"follower_count"`
				FollowingCount int64  `json:"following_count"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("tiktok profile decode: %w", err)
	}
	if body.Data.User.OpenID == "" {
		return nil, fmt.Errorf("tiktok profile response missing open_id")
	}
	return &model.PlatformProfile{
		ID:              body.Data.User.OpenID,
		Username:        body.Data.User.DisplayName,
		DisplayName:     body.Data.User.DisplayName,
		ProfileImageURL: body.Data.User.AvatarURL,
		FollowerCount:   body.Data.User.FollowerCount,
		FollowingCount:  body.Data.User.FollowingCount,
	}, nil
}

func (a *TikTokAdapter) RevokeAccess(ctx context.Context, accessToken string) error {
	form := url.Values{}
	form.Set("client_key", a.clientKey)
	form.Set("client_secret", a.clientSecret)
	form.Set("token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBaseURL+"/v2/oauth/revoke/", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tiktok revoke request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tiktok revoke failed: status %d: %s", resp.StatusCode, drainBody(resp.Body))
	}
	return nil
}

var _ repository.IPlatformAdapter = (*TikTokAdapter)(nil)
