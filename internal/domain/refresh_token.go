package domain

import "time"

// RefreshTokenStatus is the lifecycle state of a single refresh token row.
// active -> rotated (on successful use) or active -> revoked (logout or
// reuse cascade). rotated and revoked are terminal.
type RefreshTokenStatus string

const (
	RefreshStatusActive  RefreshTokenStatus = "active"
	RefreshStatusRotated RefreshTokenStatus = "rotated"
	RefreshStatusRevoked RefreshTokenStatus = "revoked"
)

// RefreshToken stores refresh tokens for users.
//
// Security notes:
// - We never store the raw token in DB, only its SHA-256-with-pepper hash
//   (TokenHash).
// - On refresh we rotate tokens: the old row becomes `rotated` and a new
//   `active` row is inserted in the same family.
// - FamilyID links every token descended from one login; presenting a
//   non-active member revokes the whole family.
// - Rows are never deleted in request paths; Status is the tombstone.
type RefreshToken struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	UserID int64 `json:"user_id" gorm:"index;not null"`
	User   User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	TokenHash string             `json:"-" gorm:"size:64;uniqueIndex;not null"`
	FamilyID  string             `json:"family_id" gorm:"size:36;index;not null"`
	Status    RefreshTokenStatus `json:"status" gorm:"size:16;index;not null;default:active"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *RefreshToken) IsActive() bool {
	return t.Status == RefreshStatusActive
}
