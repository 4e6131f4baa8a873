package repository

import (
	"context"
	"testing"
	"time"

	"duelchat/internal/database"
	"duelchat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTokenTestRepo(t *testing.T) (*gorm.DB, *RefreshTokenRepository) {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	return db, NewRefreshTokenRepository(db)
}

func seedTokenUser(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	user := &domain.User{Email: "tokens@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user.ID
}

func makeToken(userID int64, hash, family string, status domain.RefreshTokenStatus, expiresAt time.Time) *domain.RefreshToken {
	return &domain.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		FamilyID:  family,
		Status:    status,
		ExpiresAt: expiresAt,
	}
}

func TestRefreshTokenRepo_CreateAndGetByHash(t *testing.T) {
	db, repo := newTokenTestRepo(t)
	userID := seedTokenUser(t, db)
	ctx := context.Background()

	tok := makeToken(userID, "hash-1", "fam-1", domain.RefreshStatusActive, time.Now().Add(time.Hour))
	require.NoError(t, repo.Create(ctx, tok))

	got, err := repo.GetByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, tok.ID, got.ID)
	assert.True(t, got.IsActive())

	_, err = repo.GetByHash(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRefreshTokenRepo_MarkRotatedOnlyFromActive(t *testing.T) {
	db, repo := newTokenTestRepo(t)
	userID := seedTokenUser(t, db)
	ctx := context.Background()

	tok := makeToken(userID, "hash-1", "fam-1", domain.RefreshStatusActive, time.Now().Add(time.Hour))
	require.NoError(t, repo.Create(ctx, tok))
	require.NoError(t, repo.MarkRotated(ctx, tok.ID))

	got, err := repo.GetByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RefreshStatusRotated, got.Status)

	// Revoke, then try to rotate: the terminal state wins.
	_, err = repo.RevokeFamily(ctx, "fam-1")
	require.NoError(t, err)
	require.NoError(t, repo.MarkRotated(ctx, tok.ID))

	got, err = repo.GetByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RefreshStatusRevoked, got.Status)
}

func TestRefreshTokenRepo_RevokeFamilyIdempotent(t *testing.T) {
	db, repo := newTokenTestRepo(t)
	userID := seedTokenUser(t, db)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	require.NoError(t, repo.Create(ctx, makeToken(userID, "hash-1", "fam-1", domain.RefreshStatusRotated, exp)))
	require.NoError(t, repo.Create(ctx, makeToken(userID, "hash-2", "fam-1", domain.RefreshStatusActive, exp)))
	require.NoError(t, repo.Create(ctx, makeToken(userID, "hash-3", "fam-2", domain.RefreshStatusActive, exp)))

	n, err := repo.RevokeFamily(ctx, "fam-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Second pass finds nothing left to revoke.
	n, err = repo.RevokeFamily(ctx, "fam-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// Other families are untouched.
	other, err := repo.FindActiveByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "hash-3", other.TokenHash)
}

func TestRefreshTokenRepo_RevokeAllForUser(t *testing.T) {
	db, repo := newTokenTestRepo(t)
	userID := seedTokenUser(t, db)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	require.NoError(t, repo.Create(ctx, makeToken(userID, "hash-1", "fam-1", domain.RefreshStatusActive, exp)))
	require.NoError(t, repo.RevokeAllForUser(ctx, userID))

	_, err := repo.FindActiveByUser(ctx, userID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRefreshTokenRepo_Cleanup(t *testing.T) {
	db, repo := newTokenTestRepo(t)
	userID := seedTokenUser(t, db)
	ctx := context.Background()

	// One expired, one fresh active, one fresh tombstone.
	require.NoError(t, repo.Create(ctx, makeToken(userID, "hash-1", "fam-1", domain.RefreshStatusRotated, time.Now().Add(-time.Hour))))
	require.NoError(t, repo.Create(ctx, makeToken(userID, "hash-2", "fam-2", domain.RefreshStatusActive, time.Now().Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, makeToken(userID, "hash-3", "fam-2", domain.RefreshStatusRevoked, time.Now().Add(time.Hour))))

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// A cutoff in the past keeps the fresh tombstone.
	n, err = repo.DeleteStaleTombstones(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// A cutoff in the future sweeps it, leaving only the active row.
	n, err = repo.DeleteStaleTombstones(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var remaining int64
	require.NoError(t, db.Model(&domain.RefreshToken{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}
