package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"social-hub/domain/apperrors"
	"social-hub/domain/model"
)

type LinkedAccountRepository struct{ db *sql.DB }

func NewLinkedAccountRepository(db *sql.DB) *LinkedAccountRepository {
	return &LinkedAccountRepository{db: db}
}

// EnsureLinkedAccountSchema creates the linked_accounts table if it does not
// exist. The unique index over (user_id, platform, platform_user_id) is what
// makes Upsert safe under concurrent connects for the same identity.
func EnsureLinkedAccountSchema(db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS linked_accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		organization_id TEXT NULL,
		platform TEXT NOT NULL,
		platform_user_id TEXT NOT NULL,
		encrypted_access_token TEXT NOT NULL,
		encrypted_refresh_token TEXT NULL,
		token_expires_at TIMESTAMPTZ NULL,
		scopes TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		profile_image_url TEXT NOT NULL DEFAULT '',
		follower_count BIGINT NOT NULL DEFAULT 0,
		following_count BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		last_synced_at TIMESTAMPTZ NOT NULL,
		connected_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT ux_linked_accounts_identity UNIQUE (user_id, platform, platform_user_id)
	)`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create linked_accounts: %w", err)
	}
	return nil
}

const linkedAccountColumns = `id, user_id, organization_id, platform, platform_user_id,
	encrypted_access_token, encrypted_refresh_token, token_expires_at, scopes,
	username, display_name, profile_image_url, follower_count, following_count,
	status, last_synced_at, connected_at, created_at, updated_at`

func (r *LinkedAccountRepository) Upsert(ctx context.Context, a *model.LinkedAccount) (*model.LinkedAccount, error) {
	now := time.Now().UTC()
	if a.ConnectedAt.IsZero() {
		a.ConnectedAt = now
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.LastSyncedAt = now
	a.UpdatedAt = now

	q := `INSERT INTO linked_accounts (user_id, organization_id, platform, platform_user_id,
			encrypted_access_token, encrypted_refresh_token, token_expires_at, scopes,
			username, display_name, profile_image_url, follower_count, following_count,
			status, last_synced_at, connected_at, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		  ON CONFLICT (user_id, platform, platform_user_id) DO UPDATE SET
			organization_id=EXCLUDED.organization_id,
			encrypted_access_token=EXCLUDED.encrypted_access_token,
			encrypted_refresh_token=EXCLUDED.encrypted_refresh_token,
			token_expires_at=EXCLUDED.token_expires_at,
			scopes=EXCLUDED.scopes,
			username=EXCLUDED.username,
			display_name=EXCLUDED.display_name,
			profile_image_url=EXCLUDED.profile_image_url,
			follower_count=EXCLUDED.follower_count,
			following_count=EXCLUDED.following_count,
			status=EXCLUDED.status,
			last_synced_at=EXCLUDED.last_synced_at,
			updated_at=EXCLUDED.updated_at
		  RETURNING id, connected_at, created_at`
	row := r.db.QueryRowContext(ctx, q,
		a.UserID, a.OrganizationID, a.Platform, a.PlatformUserID,
		a.EncryptedAccessToken, a.EncryptedRefreshToken, a.TokenExpiresAt, a.Scopes,
		a.Username, a.DisplayName, a.ProfileImageURL, a.FollowerCount, a.FollowingCount,
		a.Status, a.LastSyncedAt, a.ConnectedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err := row.Scan(&a.ID, &a.ConnectedAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *LinkedAccountRepository) GetByID(ctx context.Context, id int64) (*model.LinkedAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+linkedAccountColumns+` FROM linked_accounts WHERE id=$1`, id)
	return scanLinkedAccount(row)
}

func (r *LinkedAccountRepository) GetByUniqueKey(ctx context.Context, userID string, platform model.Platform, platformUserID string) (*model.LinkedAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+linkedAccountColumns+` FROM linked_accounts WHERE user_id=$1 AND platform=$2 AND platform_user_id=$3`,
		userID, platform, platformUserID)
	return scanLinkedAccount(row)
}

func (r *LinkedAccountRepository) ListByUser(ctx context.Context, userID string) ([]*model.LinkedAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+linkedAccountColumns+` FROM linked_accounts WHERE user_id=$1 ORDER BY connected_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*model.LinkedAccount
	for rows.Next() {
		a, err := scanLinkedAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *LinkedAccountRepository) UpdateTokens(ctx context.Context, id int64, encryptedAccess string, encryptedRefresh *string, expiresAt *time.Time, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE linked_accounts SET encrypted_access_token=$1, encrypted_refresh_token=$2, token_expires_at=$3, status=$4, updated_at=$5 WHERE id=$6`,
		encryptedAccess, encryptedRefresh, expiresAt, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (r *LinkedAccountRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE linked_accounts SET status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (r *LinkedAccountRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM linked_accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLinkedAccount(row rowScanner) (*model.LinkedAccount, error) {
	a := &model.LinkedAccount{}
	var orgID, refreshTok sql.NullString
	var expiresAt sql.NullTime
	err := row.Scan(
		&a.ID, &a.UserID, &orgID, &a.Platform, &a.PlatformUserID,
		&a.EncryptedAccessToken, &refreshTok, &expiresAt, &a.Scopes,
		&a.Username, &a.DisplayName, &a.ProfileImageURL, &a.FollowerCount, &a.FollowingCount,
		&a.Status, &a.LastSyncedAt, &a.ConnectedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if orgID.Valid {
		v := orgID.String
		a.OrganizationID = &v
	}
	if refreshTok.Valid {
		v := refreshTok.String
		a.EncryptedRefreshToken = &v
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		a.TokenExpiresAt = &t
	}
	return a, nil
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
