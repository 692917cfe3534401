package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/configuration"

	"golang.org/x/oauth2"
)

// TwitterAdapter implements the OAuth2 authorization-code flow with PKCE
// against the X/Twitter v2 API. PKCE is mandatory for this platform.
type TwitterAdapter struct {
	conf       *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

func NewTwitterAdapter(cfg configuration.OAuthClient) *TwitterAdapter {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"tweet.read", "users.read", "tweet.write", "offline.access"}
	}
	return &TwitterAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://twitter.com/i/oauth2/authorize",
				TokenURL:  "https://api.twitter.com/2/oauth2/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiBaseURL: "https://api.twitter.com",
		httpClient: newHTTPClient(),
	}
}

func (a *TwitterAdapter) Platform() model.Platform { return model.PlatformTwitter }
func (a *TwitterAdapter) UsesPKCE() bool           { return true }

func (a *TwitterAdapter) BuildAuthorizationURL(state, codeChallenge string) (string, error) {
	if codeChallenge == "" {
		return "", errMissingChallenge(a.Platform())
	}
	return a.conf.AuthCodeURL(state, pkceAuthCodeOptions(codeChallenge)...), nil
}

func (a *TwitterAdapter) ExchangeCodeForTokens(ctx context.Context, code, codeVerifier string) (*model.OAuthTokens, error) {
	if codeVerifier == "" {
		return nil, fmt.Errorf("twitter code exchange requires the pkce verifier")
	}
	tok, err := a.conf.Exchange(oauthContext(ctx, a.httpClient), code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, wrapExchangeError(a.Platform(), err)
	}
	return tokensFromOAuth2(tok), nil
}

func (a *TwitterAdapter) RefreshAccessToken(ctx context.Context, refreshToken string) (*model.OAuthTokens, error) {
	src := a.conf.TokenSource(oauthContext(ctx, a.httpClient), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			return nil, fmt.Errorf("twitter refresh rejected: status %d: %w", rErr.Response.StatusCode, err)
		}
		return nil, fmt.Errorf("twitter refresh: %w", err)
	}
	return tokensFromOAuth2(tok), nil
}

func (a *TwitterAdapter) GetProfile(ctx context.Context, accessToken string) (*model.PlatformProfile, error) {
	endpoint := a.apiBaseURL + "/2/users/me?user.fields=profile_image_url,public_metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter profile request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, profileRequestFailed(a.Platform(), resp.StatusCode)
	}

	var body struct {
		Data struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
			PublicMetrics   struct {
				FollowersCount int64 `json:"followers_count"`
				FollowingCount int64 `json:"following_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("twitter profile decode: %w", err)
	}
	if body.Data.ID == "" {
		return nil, fmt.Errorf("twitter profile response missing user id")
	}
	return &model.PlatformProfile{
		ID:              body.Data.ID,
		Username:        body.Data.Username,
		DisplayName:     body.Data.Name,
		ProfileImageURL: body.Data.ProfileImageURL,
		FollowerCount:   body.Data.PublicMetrics.FollowersCount,
		FollowingCount:  body.Data.PublicMetrics.FollowingCount,
	}, nil
}

func (a *TwitterAdapter) RevokeAccess(ctx context.Context, accessToken string) error {
	form := url.Values{}
	form.Set("token", accessToken)
	form.Set("token_type_hint", "access_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBaseURL+"/2/oauth2/revoke", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.conf.ClientID, a.conf.ClientSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twitter revoke request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("twitter revoke failed: status %d: %s", resp.StatusCode, drainBody(resp.Body))
	}
	return nil
}

var _ repository.IPlatformAdapter = (*TwitterAdapter)(nil)
