package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"social-hub/domain/model"
)

type LinkedAccountRepositoryMSSQL struct{ db *sql.DB }

func NewLinkedAccountRepositoryMSSQL(db *sql.DB) *LinkedAccountRepositoryMSSQL {
	return &LinkedAccountRepositoryMSSQL{db: db}
}

// EnsureLinkedAccountSchemaMSSQL creates the linked_accounts table for SQL Server if it does not exist.
func EnsureLinkedAccountSchemaMSSQL(db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.linked_accounts') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[linked_accounts] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        user_id NVARCHAR(128) NOT NULL,
        organization_id NVARCHAR(128) NULL,
        platform NVARCHAR(64) NOT NULL,
        platform_user_id NVARCHAR(128) NOT NULL,
        encrypted_access_token NVARCHAR(MAX) NOT NULL,
        encrypted_refresh_token NVARCHAR(MAX) NULL,
        token_expires_at DATETIME2 NULL,
        scopes NVARCHAR(MAX) NOT NULL,
        username NVARCHAR(255) NOT NULL,
        display_name NVARCHAR(255) NOT NULL,
        profile_image_url NVARCHAR(1024) NOT NULL,
        follower_count BIGINT NOT NULL,
        following_count BIGINT NOT NULL,
        status NVARCHAR(32) NOT NULL,
        last_synced_at DATETIME2 NOT NULL,
        connected_at DATETIME2 NOT NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_linked_accounts_identity ON dbo.[linked_accounts](user_id, platform, platform_user_id);
END`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create linked_accounts (mssql): %w", err)
	}
	return nil
}

func (r *LinkedAccountRepositoryMSSQL) Upsert(ctx context.Context, a *model.LinkedAccount) (*model.LinkedAccount, error) {
	now := time.Now().UTC()
	if a.ConnectedAt.IsZero() {
		a.ConnectedAt = now
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.LastSyncedAt = now
	a.UpdatedAt = now

	var orgID, refreshTok sql.NullString
	if a.OrganizationID != nil {
		orgID = sql.NullString{String: *a.OrganizationID, Valid: true}
	}
	if a.EncryptedRefreshToken != nil {
		refreshTok = sql.NullString{String: *a.EncryptedRefreshToken, Valid: true}
	}
	var expiresAt sql.NullTime
	if a.TokenExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *a.TokenExpiresAt, Valid: true}
	}

	// MERGE upsert by (user_id, platform, platform_user_id)
	q := `MERGE dbo.[linked_accounts] AS target
USING (VALUES (@p1, @p2, @p3)) AS src(user_id, platform, platform_user_id)
ON target.user_id = src.user_id AND target.platform = src.platform AND target.platform_user_id = src.platform_user_id
WHEN MATCHED THEN UPDATE SET
    organization_id=@p4,
    encrypted_access_token=@p5,
    encrypted_refresh_token=@p6,
    token_expires_at=@p7,
    scopes=@p8,
    username=@p9,
    display_name=@p10,
    profile_image_url=@p11,
    follower_count=@p12,
    following_count=@p13,
    status=@p14,
    last_synced_at=@p15,
    updated_at=@p18
WHEN NOT MATCHED THEN
    INSERT (user_id, platform, platform_user_id, organization_id, encrypted_access_token,
            encrypted_refresh_token, token_expires_at, scopes, username, display_name,
            profile_image_url, follower_count, following_count, status, last_synced_at,
            connected_at, created_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12,@p13,@p14,@p15,@p16,@p17,@p18)
OUTPUT inserted.id, inserted.connected_at, inserted.created_at;`
	row := r.db.QueryRowContext(ctx, q,
		a.UserID, a.Platform, a.PlatformUserID, orgID,
		a.EncryptedAccessToken, refreshTok, expiresAt, a.Scopes,
		a.Username, a.DisplayName, a.ProfileImageURL, a.FollowerCount, a.FollowingCount,
		a.Status, a.LastSyncedAt, a.ConnectedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err := row.Scan(&a.ID, &a.ConnectedAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *LinkedAccountRepositoryMSSQL) GetByID(ctx context.Context, id int64) (*model.LinkedAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+linkedAccountColumns+` FROM dbo.[linked_accounts] WHERE id=@p1`, id)
	return scanLinkedAccount(row)
}

func (r *LinkedAccountRepositoryMSSQL) GetByUniqueKey(ctx context.Context, userID string, platform model.Platform, platformUserID string) (*model.LinkedAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+linkedAccountColumns+` FROM dbo.[linked_accounts] WHERE user_id=@p1 AND platform=@p2 AND platform_user_id=@p3`,
		userID, platform, platformUserID)
	return scanLinkedAccount(row)
}

func (r *LinkedAccountRepositoryMSSQL) ListByUser(ctx context.Context, userID string) ([]*model.LinkedAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+linkedAccountColumns+` FROM dbo.[linked_accounts] WHERE user_id=@p1 ORDER BY connected_at DESC`, userID)
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

func (r *LinkedAccountRepositoryMSSQL) UpdateTokens(ctx context.Context, id int64, encryptedAccess string, encryptedRefresh *string, expiresAt *time.Time, status string) error {
	var refreshTok sql.NullString
	if encryptedRefresh != nil {
		refreshTok = sql.NullString{String: *encryptedRefresh, Valid: true}
	}
	var exp sql.NullTime
	if expiresAt != nil {
		exp = sql.NullTime{Time: *expiresAt, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[linked_accounts] SET encrypted_access_token=@p1, encrypted_refresh_token=@p2, token_expires_at=@p3, status=@p4, updated_at=@p5 WHERE id=@p6`,
		encryptedAccess, refreshTok, exp, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (r *LinkedAccountRepositoryMSSQL) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[linked_accounts] SET status=@p1, updated_at=@p2 WHERE id=@p3`,
		status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (r *LinkedAccountRepositoryMSSQL) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dbo.[linked_accounts] WHERE id=@p1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}
