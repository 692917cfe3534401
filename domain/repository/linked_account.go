package repository

import (
	"context"
	"time"

	"social-hub/domain/model"
)

// ILinkedAccount persists linked social accounts. Upsert relies on the store's
// unique constraint over (user_id, platform, platform_user_id) so concurrent
// connects for the same external identity cannot create duplicate rows.
type ILinkedAccount interface {
	Upsert(ctx context.Context, account *model.LinkedAccount) (*model.LinkedAccount, error)
	GetByID(ctx context.Context, id int64) (*model.LinkedAccount, error)
	GetByUniqueKey(ctx context.Context, userID string, platform model.Platform, platformUserID string) (*model.LinkedAccount, error)
	ListByUser(ctx context.Context, userID string) ([]*model.LinkedAccount, error)
	UpdateTokens(ctx context.Context, id int64, encryptedAccess string, encryptedRefresh *string, expiresAt *time.Time, status string) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}
