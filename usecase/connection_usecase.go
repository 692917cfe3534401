package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"social-hub/domain/apperrors"
	"social-hub/domain/dto"
	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/clients/platform"
	"social-hub/infrastructure/cryptox"
	"social-hub/infrastructure/logger"
)

// Lifecycle event topics consumed by the scheduler and analytics pipelines.
const (
	EventAccountConnected     = "account.connected"
	EventAccountDisconnected  = "account.disconnected"
	EventAccountRefreshFailed = "account.refresh_failed"
)

// IConnection orchestrates the full lifecycle of a linked social account:
// initiate, callback completion, listing, refresh and disconnect.
type IConnection interface {
	Initiate(ctx context.Context, userID string, organizationID *string, p model.Platform) (*dto.InitiateConnectionResponse, error)
	CompleteCallback(ctx context.Context, reported model.Platform, stateToken, code string) (*model.LinkedAccount, error)
	ListConnections(ctx context.Context, userID string) ([]dto.ConnectionResponse, error)
	Disconnect(ctx context.Context, userID string, accountID int64) error
	RefreshIfNeeded(ctx context.Context, userID string, accountID int64) (string, error)
}

type connectionUsecase struct {
	accounts repository.ILinkedAccount
	states   IStateStore
	adapters *platform.Registry
	cipher   *cryptox.TokenCipher
	events   repository.IEventPublisher // optional; nil disables publishing
	now      func() time.Time
}

func NewConnectionUsecase(
	accounts repository.ILinkedAccount,
	states IStateStore,
	adapters *platform.Registry,
	cipher *cryptox.TokenCipher,
	events repository.IEventPublisher,
) IConnection {
	return &connectionUsecase{
		accounts: accounts,
		states:   states,
		adapters: adapters,
		cipher:   cipher,
		events:   events,
		now:      time.Now,
	}
}

// Initiate mints PKCE material when the platform requires it, persists the
// pending state, and only then builds the authorization URL. A state that was
// never stored must never reach a browser.
func (u *connectionUsecase) Initiate(ctx context.Context, userID string, organizationID *string, p model.Platform) (*dto.InitiateConnectionResponse, error) {
	adapter, err := u.adapters.Get(p)
	if err != nil {
		return nil, err
	}

	var verifier, challenge string
	if adapter.UsesPKCE() {
		verifier, challenge = platform.GeneratePKCE()
	}

	state, err := u.states.GenerateAndStore(ctx, userID, p, organizationID, verifier)
	if err != nil {
		logger.GetLogger().
			WithField("platform", p).
			WithField("error", err.Error()).
			Error("Failed to store pending OAuth state, aborting initiate")
		return nil, err
	}

	authURL, err := adapter.BuildAuthorizationURL(state, challenge)
	if err != nil {
		return nil, err
	}

	logger.GetLogger().
		WithField("platform", p).
		WithField("userId", userID).
		Info("OAuth connection initiated")
	return &dto.InitiateConnectionResponse{AuthURL: authURL, Platform: p.String()}, nil
}

// CompleteCallback validates and consumes the state, exchanges the code,
// fetches the platform profile and upserts the linked account with both
// tokens encrypted. The PKCE verifier comes exclusively from the consumed
// state entry.
func (u *connectionUsecase) CompleteCallback(ctx context.Context, reported model.Platform, stateToken, code string) (*model.LinkedAccount, error) {
	pending, err := u.states.ValidateAndConsume(ctx, stateToken, reported)
	if err != nil {
		return nil, err
	}

	adapter, err := u.adapters.Get(pending.Platform)
	if err != nil {
		return nil, err
	}

	tokens, err := adapter.ExchangeCodeForTokens(ctx, code, pending.CodeVerifier)
	if err != nil {
		var xErr *apperrors.OAuthExchangeError
		if errors.As(err, &xErr) {
			logger.GetLogger().
				WithField("platform", pending.Platform).
				WithField("status", xErr.StatusCode).
				Error("OAuth code exchange rejected by platform")
		}
		return nil, err
	}

	profile, err := adapter.GetProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching %s profile: %w", pending.Platform, err)
	}

	encAccess, err := u.cipher.Encrypt(tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("sealing access token: %w", err)
	}
	var encRefresh *string
	if tokens.RefreshToken != "" {
		sealed, err := u.cipher.Encrypt(tokens.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("sealing refresh token: %w", err)
		}
		encRefresh = &sealed
	}

	now := u.now()
	account := &model.LinkedAccount{
		UserID:                pending.UserID,
		OrganizationID:        pending.OrganizationID,
		Platform:              pending.Platform,
		PlatformUserID:        profile.ID,
		EncryptedAccessToken:  encAccess,
		EncryptedRefreshToken: encRefresh,
		TokenExpiresAt:        tokens.ExpiryTime(now),
		Scopes:                tokens.Scope,
		Username:              profile.Username,
		DisplayName:           profile.DisplayName,
		ProfileImageURL:       profile.ProfileImageURL,
		FollowerCount:         profile.FollowerCount,
		FollowingCount:        profile.FollowingCount,
		Status:                model.AccountStatusActive,
		LastSyncedAt:          now,
		ConnectedAt:           now,
	}

	saved, err := u.accounts.Upsert(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("persisting linked account: %w", err)
	}

	logger.GetLogger().
		WithField("platform", saved.Platform).
		WithField("userId", saved.UserID).
		WithField("accountId", saved.ID).
		Info("Platform account connected")
	u.publish(ctx, EventAccountConnected, saved)
	return saved, nil
}

func (u *connectionUsecase) ListConnections(ctx context.Context, userID string) ([]dto.ConnectionResponse, error) {
	accounts, err := u.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ConnectionResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toConnectionResponse(a))
	}
	return out, nil
}

// Disconnect revokes access at the platform on a best-effort basis, then
// removes the record. A failed or impossible revoke never blocks removal.
func (u *connectionUsecase) Disconnect(ctx context.Context, userID string, accountID int64) error {
	account, err := u.loadOwned(ctx, userID, accountID)
	if err != nil {
		return err
	}

	if adapter, aErr := u.adapters.Get(account.Platform); aErr == nil {
		if accessToken, dErr := u.cipher.Decrypt(account.EncryptedAccessToken); dErr == nil {
			if rErr := adapter.RevokeAccess(ctx, accessToken); rErr != nil {
				logger.GetLogger().
					WithField("platform", account.Platform).
					WithField("accountId", account.ID).
					WithField("error", rErr.Error()).
					Warn("Platform-side revoke failed, removing record anyway")
			}
		} else {
			logger.GetLogger().
				WithField("platform", account.Platform).
				WithField("accountId", account.ID).
				Warn("Stored access token unreadable, skipping platform-side revoke")
		}
	}

	if err := u.accounts.Delete(ctx, accountID); err != nil {
		return err
	}

	logger.GetLogger().
		WithField("platform", account.Platform).
		WithField("userId", userID).
		WithField("accountId", accountID).
		Info("Platform account disconnected")
	u.publish(ctx, EventAccountDisconnected, account)
	return nil
}

// RefreshIfNeeded returns a plaintext access token that is valid right now.
// Tokens that have not expired are decrypted and returned without any network
// traffic. Expired tokens are refreshed through the platform; a failed
// refresh marks the account EXPIRED so callers stop retrying until re-auth.
func (u *connectionUsecase) RefreshIfNeeded(ctx context.Context, userID string, accountID int64) (string, error) {
	account, err := u.loadOwned(ctx, userID, accountID)
	if err != nil {
		return "", err
	}
	if account.Status == model.AccountStatusRevoked {
		return "", apperrors.ErrReAuthRequired
	}

	now := u.now()
	if !account.TokenExpired(now) {
		accessToken, err := u.cipher.Decrypt(account.EncryptedAccessToken)
		if err != nil {
			return "", u.quarantine(ctx, account, err)
		}
		return accessToken, nil
	}

	if account.EncryptedRefreshToken == nil {
		return "", u.markExpired(ctx, account, apperrors.ErrReAuthRequired)
	}
	refreshToken, err := u.cipher.Decrypt(*account.EncryptedRefreshToken)
	if err != nil {
		return "", u.quarantine(ctx, account, err)
	}

	adapter, err := u.adapters.Get(account.Platform)
	if err != nil {
		return "", err
	}
	tokens, err := adapter.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		u.publish(ctx, EventAccountRefreshFailed, account)
		if errors.Is(err, apperrors.ErrRefreshNotSupported) || errors.Is(err, apperrors.ErrReAuthRequired) {
			return "", u.markExpired(ctx, account, apperrors.ErrReAuthRequired)
		}
		return "", u.markExpired(ctx, account, fmt.Errorf("refreshing %s token: %w", account.Platform, err))
	}

	encAccess, err := u.cipher.Encrypt(tokens.AccessToken)
	if err != nil {
		return "", fmt.Errorf("sealing refreshed access token: %w", err)
	}
	// Some platforms rotate the refresh token on every refresh; keep the old
	// one when the response omits it.
	encRefresh := account.EncryptedRefreshToken
	if tokens.RefreshToken != "" {
		sealed, sErr := u.cipher.Encrypt(tokens.RefreshToken)
		if sErr != nil {
			return "", fmt.Errorf("sealing rotated refresh token: %w", sErr)
		}
		encRefresh = &sealed
	}

	if err := u.accounts.UpdateTokens(ctx, account.ID, encAccess, encRefresh, tokens.ExpiryTime(u.now()), model.AccountStatusActive); err != nil {
		return "", fmt.Errorf("persisting refreshed tokens: %w", err)
	}

	logger.GetLogger().
		WithField("platform", account.Platform).
		WithField("accountId", account.ID).
		Info("Access token refreshed")
	return tokens.AccessToken, nil
}

// loadOwned fetches an account and enforces ownership. A foreign account is
// indistinguishable from a missing one.
func (u *connectionUsecase) loadOwned(ctx context.Context, userID string, accountID int64) (*model.LinkedAccount, error) {
	account, err := u.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		logger.GetLogger().
			WithField("accountId", accountID).
			WithField("userId", userID).
			Warn("Account access denied: requester is not the owner")
		return nil, apperrors.ErrNotFound
	}
	return account, nil
}

// markExpired flips the account to EXPIRED and returns cause. Persistence
// failures are logged but cause stays the caller-visible error.
func (u *connectionUsecase) markExpired(ctx context.Context, account *model.LinkedAccount, cause error) error {
	if err := u.accounts.UpdateStatus(ctx, account.ID, model.AccountStatusExpired); err != nil {
		logger.GetLogger().
			WithField("accountId", account.ID).
			WithField("error", err.Error()).
			Error("Failed to mark account expired")
	}
	return cause
}

// quarantine handles an unreadable token envelope: the credential is unusable
// (key rotation or corruption), so the account is expired pending re-auth.
func (u *connectionUsecase) quarantine(ctx context.Context, account *model.LinkedAccount, cause error) error {
	logger.GetLogger().
		WithField("platform", account.Platform).
		WithField("accountId", account.ID).
		Error("Stored token envelope failed decryption, forcing re-auth")
	return u.markExpired(ctx, account, cause)
}

func (u *connectionUsecase) publish(ctx context.Context, event string, account *model.LinkedAccount) {
	if u.events == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event":          event,
		"accountId":      account.ID,
		"userId":         account.UserID,
		"organizationId": account.OrganizationID,
		"platform":       account.Platform,
		"occurredAt":     u.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := u.events.Publish(ctx, event, payload); err != nil {
		logger.GetLogger().
			WithField("event", event).
			WithField("accountId", account.ID).
			WithField("error", err.Error()).
			Warn("Failed to publish lifecycle event")
	}
}

func toConnectionResponse(a *model.LinkedAccount) dto.ConnectionResponse {
	return dto.ConnectionResponse{
		ID:              a.ID,
		Platform:        a.Platform.String(),
		PlatformUserID:  a.PlatformUserID,
		Username:        a.Username,
		DisplayName:     a.DisplayName,
		ProfileImageURL: a.ProfileImageURL,
		FollowerCount:   a.FollowerCount,
		FollowingCount:  a.FollowingCount,
		Status:          a.Status,
		Scopes:          a.Scopes,
		TokenExpiresAt:  a.TokenExpiresAt,
		ConnectedAt:     a.ConnectedAt,
		LastSyncedAt:    a.LastSyncedAt,
	}
}
