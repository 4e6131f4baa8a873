package repository

import (
	"context"
	"time"

	"duelchat/internal/domain"

	"gorm.io/gorm"
)

// RefreshTokenRepository provides DB access for refresh tokens. Status
// transitions are one-way: rows never return to `active`, so every update
// here filters on the states it is allowed to leave.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *RefreshTokenRepository) GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *RefreshTokenRepository) FindActiveByUser(ctx context.Context, userID int64) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.RefreshStatusActive).
		Order("created_at DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkRotated transitions a single active row to rotated.
func (r *RefreshTokenRepository) MarkRotated(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id = ? AND status = ?", id, domain.RefreshStatusActive).
		Update("status", domain.RefreshStatusRotated).Error
}

// RevokeFamily revokes every non-revoked member of a family, whatever its
// current status. Idempotent: a fully revoked family yields count 0.
func (r *RefreshTokenRepository) RevokeFamily(ctx context.Context, familyID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("family_id = ? AND status <> ?", familyID, domain.RefreshStatusRevoked).
		Update("status", domain.RefreshStatusRevoked)
	return res.RowsAffected, res.Error
}

// RevokeAllForUser revokes the user's active rows. Used on logout; finding
// nothing is not an error.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND status = ?", userID, domain.RefreshStatusActive).
		Update("status", domain.RefreshStatusRevoked).Error
}

// DeleteExpired prunes rows past their expiry. Only the offline cleanup
// binary calls this; request paths never delete.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}

// DeleteStaleTombstones removes rotated and revoked rows created before
// the cutoff. They are kept around as an audit trail of rotations and
// reuse cascades; past the cutoff they are dead weight.
func (r *RefreshTokenRepository) DeleteStaleTombstones(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status <> ? AND created_at < ?", domain.RefreshStatusActive, cutoff).
		Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}
