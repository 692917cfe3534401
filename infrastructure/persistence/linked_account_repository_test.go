package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"social-hub/domain/apperrors"
	"social-hub/domain/model"
)

var accountColumns = []string{
	"id", "user_id", "organization_id", "platform", "platform_user_id",
	"encrypted_access_token", "encrypted_refresh_token", "token_expires_at", "scopes",
	"username", "display_name", "profile_image_url", "follower_count", "following_count",
	"status", "last_synced_at", "connected_at", "created_at", "updated_at",
}

func TestLinkedAccountRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewLinkedAccountRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+linkedAccountColumns+` FROM linked_accounts WHERE id=$1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(7), "u1", nil, "twitter", "p1",
				"enc-access", nil, nil, "tweet.read users.read",
				"alice", "Alice", "https://img.example/alice.png", int64(42), int64(7),
				model.AccountStatusActive, now, now, now, now))

	account, err := repository.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), account.ID)
	require.Equal(t, "u1", account.UserID)
	require.Equal(t, model.PlatformTwitter, account.Platform)
	require.Equal(t, "p1", account.PlatformUserID)
	require.Equal(t, "enc-access", account.EncryptedAccessToken)
	require.Nil(t, account.EncryptedRefreshToken)
	require.Nil(t, account.TokenExpiresAt)
	require.Equal(t, model.AccountStatusActive, account.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkedAccountRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewLinkedAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+linkedAccountColumns+` FROM linked_accounts WHERE id=$1`)).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err = repository.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkedAccountRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewLinkedAccountRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO linked_accounts`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "connected_at", "created_at"}).
			AddRow(int64(11), now, now))

	account := &model.LinkedAccount{
		UserID:               "u1",
		Platform:             model.PlatformTwitter,
		PlatformUserID:       "p1",
		EncryptedAccessToken: "enc-access",
		Scopes:               "tweet.read",
		Username:             "alice",
		Status:               model.AccountStatusActive,
	}
	saved, err := repository.Upsert(context.Background(), account)
	require.NoError(t, err)
	require.Equal(t, int64(11), saved.ID)
	require.False(t, saved.ConnectedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkedAccountRepository_UpdateStatus_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewLinkedAccountRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE linked_accounts SET status=$1, updated_at=$2 WHERE id=$3`)).
		WithArgs(model.AccountStatusExpired, sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repository.UpdateStatus(context.Background(), 9, model.AccountStatusExpired)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkedAccountRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewLinkedAccountRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM linked_accounts WHERE id=$1`)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repository.Delete(context.Background(), 3))
	require.NoError(t, mock.ExpectationsWereMet())
}
