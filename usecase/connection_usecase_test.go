package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"social-hub/domain/apperrors"
	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/cache"
	"social-hub/infrastructure/clients/platform"
	"social-hub/infrastructure/cryptox"
)

const cipherTestSecret = "0123456789abcdef0123456789abcdef"

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) Upsert(ctx context.Context, account *model.LinkedAccount) (*model.LinkedAccount, error) {
	args := m.Called(ctx, account)
	if v := args.Get(0); v != nil {
		return v.(*model.LinkedAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccounts) GetByID(ctx context.Context, id int64) (*model.LinkedAccount, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*model.LinkedAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccounts) GetByUniqueKey(ctx context.Context, userID string, p model.Platform, platformUserID string) (*model.LinkedAccount, error) {
	args := m.Called(ctx, userID, p, platformUserID)
	if v := args.Get(0); v != nil {
		return v.(*model.LinkedAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccounts) ListByUser(ctx context.Context, userID string) ([]*model.LinkedAccount, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]*model.LinkedAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccounts) UpdateTokens(ctx context.Context, id int64, encryptedAccess string, encryptedRefresh *string, expiresAt *time.Time, status string) error {
	args := m.Called(ctx, id, encryptedAccess, encryptedRefresh, expiresAt, status)
	return args.Error(0)
}

func (m *mockAccounts) UpdateStatus(ctx context.Context, id int64, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockAccounts) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// stubAdapter is a scriptable platform adapter that records every call.
type stubAdapter struct {
	platform model.Platform
	pkce     bool

	buildCalls    int
	lastChallenge string

	exchangeCalls int
	lastCode      string
	lastVerifier  string
	exchangeErr   error
	tokens        *model.OAuthTokens

	refreshCalls int
	refreshErr   error
	refreshed    *model.OAuthTokens

	profile    *model.PlatformProfile
	profileErr error

	revokeCalls int
	revokeErr   error
}

func (s *stubAdapter) Platform() model.Platform { return s.platform }
func (s *stubAdapter) UsesPKCE() bool           { return s.pkce }

func (s *stubAdapter) BuildAuthorizationURL(state, codeChallenge string) (string, error) {
	s.buildCalls++
	s.lastChallenge = codeChallenge
	if s.pkce && codeChallenge == "" {
		return "", errors.New("missing code challenge")
	}
	u := "https://auth.example.com/authorize?state=" + url.QueryEscape(state)
	if codeChallenge != "" {
		u += "&code_challenge=" + url.QueryEscape(codeChallenge) + "&code_challenge_method=S256"
	}
	return u, nil
}

func (s *stubAdapter) ExchangeCodeForTokens(_ context.Context, code, codeVerifier string) (*model.OAuthTokens, error) {
	s.exchangeCalls++
	s.lastCode = code
	s.lastVerifier = codeVerifier
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return s.tokens, nil
}

func (s *stubAdapter) RefreshAccessToken(_ context.Context, _ string) (*model.OAuthTokens, error) {
	s.refreshCalls++
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.refreshed, nil
}

func (s *stubAdapter) GetProfile(_ context.Context, _ string) (*model.PlatformProfile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profile, nil
}

func (s *stubAdapter) RevokeAccess(_ context.Context, _ string) error {
	s.revokeCalls++
	return s.revokeErr
}

type recordingPublisher struct {
	topics []string
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, _ []byte) error {
	r.topics = append(r.topics, topic)
	return nil
}

// failingCache wraps a cache with a Set that always errors.
type failingCache struct {
	repository.ICache
}

func (f *failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend unavailable")
}

func newTestCipher(t *testing.T) *cryptox.TokenCipher {
	t.Helper()
	c, err := cryptox.NewTokenCipher(cipherTestSecret, "")
	require.NoError(t, err)
	return c
}

func defaultStub() *stubAdapter {
	return &stubAdapter{
		platform: model.PlatformTwitter,
		pkce:     true,
		tokens: &model.OAuthTokens{
			AccessToken:  "access-token-1",
			RefreshToken: "refresh-token-1",
			ExpiresIn:    7200,
			Scope:        "tweet.read users.read offline.access",
		},
		profile: &model.PlatformProfile{
			ID:              "tw-user-42",
			Username:        "jdoe",
			DisplayName:     "J. Doe",
			ProfileImageURL: "https://img.example.com/jdoe.png",
			FollowerCount:   120,
			FollowingCount:  80,
		},
	}
}

func stateFromAuthURL(t *testing.T, authURL string) (state, challenge string) {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state"), u.Query().Get("code_challenge")
}

func TestInitiateIncludesPKCEChallengeAndStoresState(t *testing.T) {
	ctx := context.Background()
	adapter := defaultStub()
	store := NewStateStore(cache.NewMemoryCache())
	uc := NewConnectionUsecase(new(mockAccounts), store, platform.NewRegistryFromAdapters(adapter), newTestCipher(t), nil)

	res, err := uc.Initiate(ctx, "user-1", nil, model.PlatformTwitter)
	require.NoError(t, err)
	assert.Equal(t, "twitter", res.Platform)

	state, challenge := stateFromAuthURL(t, res.AuthURL)
	require.NotEmpty(t, state)
	require.NotEmpty(t, challenge)

	exists, err := store.Exists(ctx, state)
	require.NoError(t, err)
	assert.True(t, exists)

	// The challenge must correspond to the verifier held in the state entry.
	pending, err := store.ValidateAndConsume(ctx, state, model.PlatformTwitter)
	require.NoError(t, err)
	assert.Equal(t, challenge, oauth2.S256ChallengeFromVerifier(pending.CodeVerifier))
}

func TestInitiateNoPKCEForPlatformsWithoutIt(t *testing.T) {
	adapter := defaultStub()
	adapter.platform = model.PlatformLinkedIn
	adapter.pkce = false
	uc := NewConnectionUsecase(new(mockAccounts), NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(adapter), newTestCipher(t), nil)

	res, err := uc.Initiate(context.Background(), "user-1", nil, model.PlatformLinkedIn)
	require.NoError(t, err)
	assert.NotContains(t, res.AuthURL, "code_challenge")
	assert.Empty(t, adapter.lastChallenge)
}

func TestInitiateAbortsWhenStateCannotBeStored(t *testing.T) {
	adapter := defaultStub()
	store := NewStateStore(&failingCache{ICache: cache.NewMemoryCache()})
	uc := NewConnectionUsecase(new(mockAccounts), store, platform.NewRegistryFromAdapters(adapter), newTestCipher(t), nil)

	_, err := uc.Initiate(context.Background(), "user-1", nil, model.PlatformTwitter)
	assert.ErrorIs(t, err, apperrors.ErrStorageFailure)
	assert.Zero(t, adapter.buildCalls, "no authorization URL may be issued without a stored state")
}

func TestInitiateUnknownPlatform(t *testing.T) {
	uc := NewConnectionUsecase(new(mockAccounts), NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(), newTestCipher(t), nil)

	_, err := uc.Initiate(context.Background(), "user-1", nil, model.PlatformTwitter)
	assert.Error(t, err)
}

func TestCompleteCallbackEndToEnd(t *testing.T) {
	ctx := context.Background()
	adapter := defaultStub()
	accounts := new(mockAccounts)
	events := &recordingPublisher{}
	cipher := newTestCipher(t)
	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(adapter), cipher, events)

	res, err := uc.Initiate(ctx, "user-1", nil, model.PlatformTwitter)
	require.NoError(t, err)
	state, challenge := stateFromAuthURL(t, res.AuthURL)

	var captured *model.LinkedAccount
	accounts.On("Upsert", mock.Anything, mock.AnythingOfType("*model.LinkedAccount")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*model.LinkedAccount)
		}).
		Return(&model.LinkedAccount{ID: 7, UserID: "user-1", Platform: model.PlatformTwitter, PlatformUserID: "tw-user-42"}, nil)

	saved, err := uc.CompleteCallback(ctx, model.PlatformTwitter, state, "auth-code-xyz")
	require.NoError(t, err)
	assert.EqualValues(t, 7, saved.ID)

	// The verifier forwarded to the exchange must be the one the state bound
	// to this flow's challenge.
	assert.Equal(t, "auth-code-xyz", adapter.lastCode)
	assert.Equal(t, challenge, oauth2.S256ChallengeFromVerifier(adapter.lastVerifier))

	require.NotNil(t, captured)
	assert.Equal(t, "user-1", captured.UserID)
	assert.Equal(t, "tw-user-42", captured.PlatformUserID)
	assert.Equal(t, model.AccountStatusActive, captured.Status)
	assert.Equal(t, "tweet.read users.read offline.access", captured.Scopes)
	require.NotNil(t, captured.TokenExpiresAt)

	// Persisted tokens are cipher envelopes, never plaintext.
	assert.NotEqual(t, "access-token-1", captured.EncryptedAccessToken)
	plain, err := cipher.Decrypt(captured.EncryptedAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access-token-1", plain)
	require.NotNil(t, captured.EncryptedRefreshToken)
	plainRefresh, err := cipher.Decrypt(*captured.EncryptedRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token-1", plainRefresh)

	assert.Equal(t, []string{EventAccountConnected}, events.topics)
	accounts.AssertExpectations(t)
}

func TestCompleteCallbackReplayRejected(t *testing.T) {
	ctx := context.Background()
	adapter := defaultStub()
	accounts := new(mockAccounts)
	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(adapter), newTestCipher(t), nil)

	res, err := uc.Initiate(ctx, "user-1", nil, model.PlatformTwitter)
	require.NoError(t, err)
	state, _ := stateFromAuthURL(t, res.AuthURL)

	accounts.On("Upsert", mock.Anything, mock.Anything).
		Return(&model.LinkedAccount{ID: 7, UserID: "user-1", Platform: model.PlatformTwitter}, nil).Once()

	_, err = uc.CompleteCallback(ctx, model.PlatformTwitter, state, "auth-code-xyz")
	require.NoError(t, err)

	_, err = uc.CompleteCallback(ctx, model.PlatformTwitter, state, "auth-code-xyz")
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredState)
	assert.Equal(t, 1, adapter.exchangeCalls, "replay must not reach the token endpoint")
	accounts.AssertExpectations(t)
}

func TestCompleteCallbackPlatformMismatch(t *testing.T) {
	ctx := context.Background()
	twitter := defaultStub()
	facebook := &stubAdapter{platform: model.PlatformFacebook}
	uc := NewConnectionUsecase(new(mockAccounts), NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(twitter, facebook), newTestCipher(t), nil)

	res, err := uc.Initiate(ctx, "user-1", nil, model.PlatformTwitter)
	require.NoError(t, err)
	state, _ := stateFromAuthURL(t, res.AuthURL)

	_, err = uc.CompleteCallback(ctx, model.PlatformFacebook, state, "auth-code")
	assert.ErrorIs(t, err, apperrors.ErrPlatformMismatch)
	assert.Zero(t, twitter.exchangeCalls)
	assert.Zero(t, facebook.exchangeCalls)
}

func TestCompleteCallbackExchangeFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	adapter := defaultStub()
	adapter.exchangeErr = &apperrors.OAuthExchangeError{Platform: "twitter", StatusCode: 400, Body: "invalid_grant"}
	uc := NewConnectionUsecase(new(mockAccounts), NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(adapter), newTestCipher(t), nil)

	res, err := uc.Initiate(ctx, "user-1", nil, model.PlatformTwitter)
	require.NoError(t, err)
	state, _ := stateFromAuthURL(t, res.AuthURL)

	_, err = uc.CompleteCallback(ctx, model.PlatformTwitter, state, "bad-code")
	var xErr *apperrors.OAuthExchangeError
	require.ErrorAs(t, err, &xErr)
	assert.Equal(t, 400, xErr.StatusCode)
}

func TestDisconnectNonOwnerLooksLikeMissing(t *testing.T) {
	accounts := new(mockAccounts)
	accounts.On("GetByID", mock.Anything, int64(7)).
		Return(&model.LinkedAccount{ID: 7, UserID: "someone-else", Platform: model.PlatformTwitter}, nil)
	adapter := defaultStub()
	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(adapter), newTestCipher(t), nil)

	err := uc.Disconnect(context.Background(), "user-1", 7)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, adapter.revokeCalls)
	accounts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDisconnectRevokeFailureStillDeletes(t *testing.T) {
	cipher := newTestCipher(t)
	encAccess, err := cipher.Encrypt("access-token-1")
	require.NoError(t, err)

	accounts := new(mockAccounts)
	accounts.On("GetByID", mock.Anything, int64(7)).
		Return(&model.LinkedAccount{ID: 7, UserID: "user-1", Platform: model.PlatformTwitter, EncryptedAccessToken: encAccess}, nil)
	accounts.On("Delete", mock.Anything, int64(7)).Return(nil)

	adapter := defaultStub()
	adapter.revokeErr = errors.New("platform 500")
	events := &recordingPublisher{}
	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(adapter), cipher, events)

	err = uc.Disconnect(context.Background(), "user-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, adapter.revokeCalls)
	assert.Equal(t, []string{EventAccountDisconnected}, events.topics)
	accounts.AssertExpectations(t)
}

func TestRefreshReturnsStoredTokenWithoutNetworkWhenValid(t *testing.T) {
	cipher := newTestCipher(t)
	encAccess, err := cipher.Encrypt("still-good-token")
	require.NoError(t, err)
	future := time.Now().Add(1 * time.Hour)

	accounts := new(mockAccounts)
	accounts.On("GetByID", mock.Anything, int64(7)).
		Return(&model.LinkedAccount{
			ID: 7, UserID: "user-1", Platform: model.PlatformTwitter,
			EncryptedAccessToken: encAccess, TokenExpiresAt: &future,
			Status: model.AccountStatusActive,
		}, nil)

	adapter := defaultStub()
	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(adapter), cipher, nil)

	token, err := uc.RefreshIfNeeded(context.Background(), "user-1", 7)
	require.NoError(t, err)
	assert.Equal(t, "still-good-token", token)
	assert.Zero(t, adapter.refreshCalls)
	accounts.AssertNotCalled(t, "UpdateTokens", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshWithoutExpiryTreatedAsValid(t *testing.T) {
	cipher := newTestCipher(t)
	encAccess, err := cipher.Encrypt("non-expiring-token")
	require.NoError(t, err)

	accounts := new(mockAccounts)
	accounts.On("GetByID", mock.Anything, int64(7)).
		Return(&model.LinkedAccount{
			ID: 7, UserID: "user-1", Platform: model.PlatformFacebook,
			EncryptedAccessToken: encAccess, Status: model.AccountStatusActive,
		}, nil)

	adapter := defaultStub()
	adapter.platform = model.PlatformFacebook
	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(adapter), cipher, nil)

	token, err := uc.RefreshIfNeeded(context.Background(), "user-1", 7)
	require.NoError(t, err)
	assert.Equal(t, "non-expiring-token", token)
	assert.Zero(t, adapter.refreshCalls)
}

func TestRefreshExpiredWithoutRefreshTokenRequiresReAuth(t *testing.T) {
	cipher := newTestCipher(t)
	encAccess, err := cipher.Encrypt("stale-token")
	require.NoError(t, err)
	past := time.Now().Add(-1 * time.Minute)

	accounts := new(mockAccounts)
	accounts.On("GetByID", mock.Anything, int64(7)).
		Return(&model.LinkedAccount{
			ID: 7, UserID: "user-1", Platform: model.PlatformTwitter,
			EncryptedAccessToken: encAccess, TokenExpiresAt: &past,
			Status: model.AccountStatusActive,
		}, nil)
	accounts.On("UpdateStatus", mock.Anything, int64(7), model.AccountStatusExpired).Return(nil)

	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(defaultStub()), cipher, nil)

	_, err = uc.RefreshIfNeeded(context.Background(), "user-1", 7)
	assert.ErrorIs(t, err, apperrors.ErrReAuthRequired)
	accounts.AssertExpectations(t)
}

func TestRefreshFailureMarksExpiredAndPublishes(t *testing.T) {
	cipher := newTestCipher(t)
	encAccess, err := cipher.Encrypt("stale-token")
	require.NoError(t, err)
	encRefresh, err := cipher.Encrypt("refresh-token-1")
	require.NoError(t, err)
	past := time.Now().Add(-1 * time.Minute)

	accounts := new(mockAccounts)
	accounts.On("GetByID", mock.Anything, int64(7)).
		Return(&model.LinkedAccount{
			ID: 7, UserID: "user-1", Platform: model.PlatformTwitter,
			EncryptedAccessToken: encAccess, EncryptedRefreshToken: &encRefresh,
			TokenExpiresAt: &past, Status: model.AccountStatusActive,
		}, nil)
	accounts.On("UpdateStatus", mock.Anything, int64(7), model.AccountStatusExpired).Return(nil)

	adapter := defaultStub()
	adapter.refreshErr = apperrors.ErrReAuthRequired
	events := &recordingPublisher{}
	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(adapter), cipher, events)

	_, err = uc.RefreshIfNeeded(context.Background(), "user-1", 7)
	assert.ErrorIs(t, err, apperrors.ErrReAuthRequired)
	assert.Equal(t, 1, adapter.refreshCalls)
	assert.Equal(t, []string{EventAccountRefreshFailed}, events.topics)
	accounts.AssertExpectations(t)
}

func TestRefreshSuccessPersistsRotatedTokens(t *testing.T) {
	cipher := newTestCipher(t)
	encAccess, err := cipher.Encrypt("stale-token")
	require.NoError(t, err)
	encRefresh, err := cipher.Encrypt("refresh-token-1")
	require.NoError(t, err)
	past := time.Now().Add(-1 * time.Minute)

	accounts := new(mockAccounts)
	accounts.On("GetByID", mock.Anything, int64(7)).
		Return(&model.LinkedAccount{
			ID: 7, UserID: "user-1", Platform: model.PlatformTwitter,
			EncryptedAccessToken: encAccess, EncryptedRefreshToken: &encRefresh,
			TokenExpiresAt: &past, Status: model.AccountStatusActive,
		}, nil)

	var storedAccess string
	var storedRefresh *string
	accounts.On("UpdateTokens", mock.Anything, int64(7), mock.Anything, mock.Anything, mock.Anything, model.AccountStatusActive).
		Run(func(args mock.Arguments) {
			storedAccess = args.String(2)
			storedRefresh = args.Get(3).(*string)
		}).
		Return(nil)

	adapter := defaultStub()
	adapter.refreshed = &model.OAuthTokens{AccessToken: "fresh-token", RefreshToken: "refresh-token-2", ExpiresIn: 7200}
	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(adapter), cipher, nil)

	token, err := uc.RefreshIfNeeded(context.Background(), "user-1", 7)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	plain, err := cipher.Decrypt(storedAccess)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", plain)
	require.NotNil(t, storedRefresh)
	plainRefresh, err := cipher.Decrypt(*storedRefresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token-2", plainRefresh)
	accounts.AssertExpectations(t)
}

func TestRefreshKeepsOldRefreshTokenWhenNotRotated(t *testing.T) {
	cipher := newTestCipher(t)
	encAccess, err := cipher.Encrypt("stale-token")
	require.NoError(t, err)
	encRefresh, err := cipher.Encrypt("refresh-token-1")
	require.NoError(t, err)
	past := time.Now().Add(-1 * time.Minute)

	accounts := new(mockAccounts)
	accounts.On("GetByID", mock.Anything, int64(7)).
		Return(&model.LinkedAccount{
			ID: 7, UserID: "user-1", Platform: model.PlatformTwitter,
			EncryptedAccessToken: encAccess, EncryptedRefreshToken: &encRefresh,
			TokenExpiresAt: &past, Status: model.AccountStatusActive,
		}, nil)

	var storedRefresh *string
	accounts.On("UpdateTokens", mock.Anything, int64(7), mock.Anything, mock.Anything, mock.Anything, model.AccountStatusActive).
		Run(func(args mock.Arguments) {
			storedRefresh = args.Get(3).(*string)
		}).
		Return(nil)

	adapter := defaultStub()
	adapter.refreshed = &model.OAuthTokens{AccessToken: "fresh-token", ExpiresIn: 7200}
	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(adapter), cipher, nil)

	_, err = uc.RefreshIfNeeded(context.Background(), "user-1", 7)
	require.NoError(t, err)
	require.NotNil(t, storedRefresh)
	assert.Equal(t, encRefresh, *storedRefresh)
	accounts.AssertExpectations(t)
}

func TestRefreshRevokedAccountRequiresReAuth(t *testing.T) {
	accounts := new(mockAccounts)
	accounts.On("GetByID", mock.Anything, int64(7)).
		Return(&model.LinkedAccount{ID: 7, UserID: "user-1", Platform: model.PlatformTwitter, Status: model.AccountStatusRevoked}, nil)

	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(defaultStub()), newTestCipher(t), nil)

	_, err := uc.RefreshIfNeeded(context.Background(), "user-1", 7)
	assert.ErrorIs(t, err, apperrors.ErrReAuthRequired)
}

func TestRefreshUnreadableEnvelopeQuarantinesAccount(t *testing.T) {
	future := time.Now().Add(1 * time.Hour)
	accounts := new(mockAccounts)
	accounts.On("GetByID", mock.Anything, int64(7)).
		Return(&model.LinkedAccount{
			ID: 7, UserID: "user-1", Platform: model.PlatformTwitter,
			EncryptedAccessToken: "not:an:envelope", TokenExpiresAt: &future,
			Status: model.AccountStatusActive,
		}, nil)
	accounts.On("UpdateStatus", mock.Anything, int64(7), model.AccountStatusExpired).Return(nil)

	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(defaultStub()), newTestCipher(t), nil)

	_, err := uc.RefreshIfNeeded(context.Background(), "user-1", 7)
	assert.ErrorIs(t, err, apperrors.ErrDecryptionFailed)
	accounts.AssertExpectations(t)
}

func TestListConnectionsNeverExposesTokenMaterial(t *testing.T) {
	cipher := newTestCipher(t)
	encAccess, err := cipher.Encrypt("secret-token")
	require.NoError(t, err)

	accounts := new(mockAccounts)
	accounts.On("ListByUser", mock.Anything, "user-1").
		Return([]*model.LinkedAccount{{
			ID: 1, UserID: "user-1", Platform: model.PlatformTwitter,
			PlatformUserID: "tw-user-42", Username: "jdoe",
			EncryptedAccessToken: encAccess, Status: model.AccountStatusActive,
		}}, nil)

	uc := NewConnectionUsecase(accounts, NewStateStore(cache.NewMemoryCache()), platform.NewRegistryFromAdapters(defaultStub()), cipher, nil)

	list, err := uc.ListConnections(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "twitter", list[0].Platform)
	assert.Equal(t, "jdoe", list[0].Username)

	serialized, err := json.Marshal(list)
	require.NoError(t, err)
	assert.NotContains(t, string(serialized), "secret-token")
	assert.NotContains(t, string(serialized), encAccess)
}
