package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"social-hub/domain/apperrors"
	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/configuration"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"
)

// YouTubeAdapter connects a Google account's YouTube channel. Token handling
// is plain Google OAuth; the profile snapshot comes from the channel the
// token owns via the YouTube Data API.
type YouTubeAdapter struct {
	conf       *oauth2.Config
	revokeURL  string
	httpClient *http.Client

	// newService is swappable in tests so profile calls can hit a stub server.
	newService func(ctx context.Context, accessToken string) (*youtube.Service, error)
}

func NewYouTubeAdapter(cfg configuration.OAuthClient) *YouTubeAdapter {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{youtube.YoutubeReadonlyScope, youtube.YoutubeUploadScope}
	}
	a := &YouTubeAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		revokeURL:  "https://oauth2.googleapis.com/revoke",
		httpClient: newHTTPClient(),
	}
	a.newService = func(ctx context.Context, accessToken string) (*youtube.Service, error) {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		return youtube.NewService(ctx, option.WithTokenSource(src))
	}
	return a
}

func (a *YouTubeAdapter) Platform() model.Platform { return model.PlatformYouTube }
func (a *YouTubeAdapter) UsesPKCE() bool           { return false }

func (a *YouTubeAdapter) BuildAuthorizationURL(state, _ string) (string, error) {
	// offline access + consent prompt so Google returns a refresh token.
	return a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

func (a *YouTubeAdapter) ExchangeCodeForTokens(ctx context.Context, code, _ string) (*model.OAuthTokens, error) {
	tok, err := a.conf.Exchange(oauthContext(ctx, a.httpClient), code)
	if err != nil {
		return nil, wrapExchangeError(a.Platform(), err)
	}
	return tokensFromOAuth2(tok), nil
}

func (a *YouTubeAdapter) RefreshAccessToken(ctx context.Context, refreshToken string) (*model.OAuthTokens, error) {
	src := a.conf.TokenSource(oauthContext(ctx, a.httpClient), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.ErrorCode == "invalid_grant" {
			// Refresh grant revoked or expired; only a re-auth can recover.
			return nil, fmt.Errorf("youtube refresh grant invalid: %w", apperrors.ErrReAuthRequired)
		}
		return nil, fmt.Errorf("youtube refresh: %w", err)
	}
	return tokensFromOAuth2(tok), nil
}

func (a *YouTubeAdapter) GetProfile(ctx context.Context, accessToken string) (*model.PlatformProfile, error) {
	service, err := a.newService(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	resp, err := service.Channels.List([]string{"snippet", "statistics"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube channel fetch: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("youtube token owns no channel")
	}
	ch := resp.Items[0]

	profile := &model.PlatformProfile{
		ID:          ch.Id,
		DisplayName: ch.Snippet.Title,
		Username:    ch.Snippet.CustomUrl,
	}
	if profile.Username == "" {
		profile.Username = ch.Snippet.Title
	}
	if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.Default != nil {
		profile.ProfileImageURL = ch.Snippet.Thumbnails.Default.Url
	}
	if ch.Statistics != nil {
		profile.FollowerCount = int64(ch.Statistics.SubscriberCount)
	}
	return profile, nil
}

func (a *YouTubeAdapter) RevokeAccess(ctx context.Context, accessToken string) error {
	form := url.Values{}
	form.Set("token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("youtube revoke request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube revoke failed: status %d", resp.StatusCode)
	}
	return nil
}

var _ repository.IPlatformAdapter = (*YouTubeAdapter)(nil)
