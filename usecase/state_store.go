package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"social-hub/domain/apperrors"
	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/logger"
)

const (
	stateKeyPrefix = "oauth_state:"
	stateTokenLen  = 32 // random bytes before hex encoding
	stateTTL       = 300 * time.Second
	// stateMaxAge is an independent age check on the stored createdAt. The
	// cache TTL should evict first; this catches clock-skew and backend TTL
	// bugs.
	stateMaxAge = 300 * time.Second
)

// IStateStore manages the single-use CSRF state tokens that bind an OAuth
// callback to the flow that initiated it.
type IStateStore interface {
	GenerateAndStore(ctx context.Context, userID string, platform model.Platform, organizationID *string, codeVerifier string) (string, error)
	ValidateAndConsume(ctx context.Context, stateToken string, expectedPlatform model.Platform) (*model.PendingOAuthState, error)
	Exists(ctx context.Context, stateToken string) (bool, error)
	RemainingTTL(ctx context.Context, stateToken string) (time.Duration, bool, error)
}

type stateStore struct {
	cache repository.ICache
	now   func() time.Time
}

func NewStateStore(cache repository.ICache) IStateStore {
	return &stateStore{cache: cache, now: time.Now}
}

// NewStateStoreWithClock lets tests control the age check.
func NewStateStoreWithClock(cache repository.ICache, now func() time.Time) IStateStore {
	return &stateStore{cache: cache, now: now}
}

func (s *stateStore) GenerateAndStore(ctx context.Context, userID string, platform model.Platform, organizationID *string, codeVerifier string) (string, error) {
	buf := make([]byte, stateTokenLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: minting state token: %v", apperrors.ErrStorageFailure, err)
	}
	token := hex.EncodeToString(buf)

	pending := model.PendingOAuthState{
		UserID:         userID,
		OrganizationID: organizationID,
		Platform:       platform,
		CodeVerifier:   codeVerifier,
		CreatedAt:      s.now().UnixMilli(),
	}
	payload, err := json.Marshal(&pending)
	if err != nil {
		return "", fmt.Errorf("%w: encoding state: %v", apperrors.ErrStorageFailure, err)
	}

	// A failed write must abort the whole initiate flow: handing out an
	// authorization URL with no server-side state guarantees a dead callback.
	if err := s.cache.Set(ctx, stateKeyPrefix+token, payload, stateTTL); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrStorageFailure, err)
	}
	return token, nil
}

// ValidateAndConsume consumes the token atomically (single GETDEL round trip)
// before any validation result is returned, so a concurrent replay can never
// observe the state again regardless of what the first caller does next.
func (s *stateStore) ValidateAndConsume(ctx context.Context, stateToken string, expectedPlatform model.Platform) (*model.PendingOAuthState, error) {
	payload, found, err := s.cache.GetDel(ctx, stateKeyPrefix+stateToken)
	if err != nil {
		return nil, fmt.Errorf("state lookup: %w", err)
	}
	if !found {
		logger.GetLogger().
			WithField("statePrefix", tokenPrefix(stateToken)).
			WithField("platform", expectedPlatform).
			Warn("OAuth state not found or already consumed")
		return nil, apperrors.ErrInvalidOrExpiredState
	}

	var pending model.PendingOAuthState
	if err := json.Unmarshal(payload, &pending); err != nil {
		return nil, fmt.Errorf("state decode: %w", err)
	}

	if pending.Platform != expectedPlatform {
		// Possible CSRF or cross-platform replay. The token is already gone,
		// so it cannot be retried with the correct platform either.
		logger.GetLogger().
			WithField("statePrefix", tokenPrefix(stateToken)).
			WithField("expectedPlatform", expectedPlatform).
			WithField("storedPlatform", pending.Platform).
			Error("OAuth state platform mismatch - possible CSRF attempt")
		return nil, apperrors.ErrPlatformMismatch
	}

	if pending.Age(s.now()) > stateMaxAge {
		logger.GetLogger().
			WithField("statePrefix", tokenPrefix(stateToken)).
			WithField("ageMillis", pending.Age(s.now()).Milliseconds()).
			Warn("OAuth state outlived its maximum age")
		return nil, apperrors.ErrStateExpired
	}

	return &pending, nil
}

func (s *stateStore) Exists(ctx context.Context, stateToken string) (bool, error) {
	_, found, err := s.cache.Get(ctx, stateKeyPrefix+stateToken)
	return found, err
}

func (s *stateStore) RemainingTTL(ctx context.Context, stateToken string) (time.Duration, bool, error) {
	return s.cache.TTL(ctx, stateKeyPrefix+stateToken)
}

// tokenPrefix truncates a state token for logging; full tokens never hit logs.
func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
