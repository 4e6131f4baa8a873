package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"duelchat/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type jwtService interface {
	GenerateToken(userID int64, email string) (string, error)
}

// Service contains all business logic for authentication: credentials,
// access-token minting and the refresh-token ledger (issue, rotate,
// reuse detection, family revocation).
type Service struct {
	users              UserRepositoryInterface
	jwt                jwtService
	refreshTokenPepper string
	refreshTTL         time.Duration
}

type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

func NewService(users UserRepositoryInterface, jwt jwtService, refreshTokenPepper string, refreshTTL time.Duration) *Service {
	return &Service{
		users:              users,
		jwt:                jwt,
		refreshTokenPepper: refreshTokenPepper,
		refreshTTL:         refreshTTL,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if req.Password != req.RepeatPassword {
		return nil, ErrPasswordMismatch
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hashedPassword,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.startSession(ctx, user)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Uniform failure: never reveal whether the email exists.
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// startSession mints the access token and issues a refresh token in a new
// family: a fresh login (or registration) starts a fresh lineage.
func (s *Service) startSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	accessToken, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	var refreshRaw string
	err = s.users.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		raw, issueErr := s.issueRefreshToken(tx, user.ID, uuid.NewString(), time.Now())
		if issueErr != nil {
			return issueErr
		}
		refreshRaw = raw
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &AuthResult{User: user, AccessToken: accessToken, RefreshToken: refreshRaw}, nil
}

// issueRefreshToken rotates the caller's current active row (at most one
// exists) to `rotated`, then inserts the new `active` row in the given
// family. Must run inside a transaction: the rotate-then-insert sequence
// is what keeps the single-active-token-per-user invariant.
func (s *Service) issueRefreshToken(tx *gorm.DB, userID int64, familyID string, now time.Time) (string, error) {
	var current domain.RefreshToken
	err := lockForUpdate(tx).
		Where("user_id = ? AND status = ?", userID, domain.RefreshStatusActive).
		Order("created_at DESC").
		First(&current).Error
	switch {
	case err == nil:
		if err := tx.Model(&domain.RefreshToken{}).
			Where("id = ?", current.ID).
			Update("status", domain.RefreshStatusRotated).Error; err != nil {
			return "", err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First token for this user, nothing to rotate.
	default:
		return "", err
	}

	raw, hash, err := generateOpaqueRefreshToken(s.refreshTokenPepper)
	if err != nil {
		return "", err
	}

	if err := tx.Create(&domain.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		FamilyID:  familyID,
		Status:    domain.RefreshStatusActive,
		ExpiresAt: now.Add(s.refreshTTL),
	}).Error; err != nil {
		return "", err
	}
	return raw, nil
}

// RefreshSession validates the presented opaque token and rotates it.
//
// A token that is found but no longer active is treated as replay: the
// legitimate client already rotated past it (or it was revoked), so
// whoever presents it now is holding a stolen copy. The whole family is
// revoked before the error is returned, and the detect-then-cascade runs
// inside one transaction so two concurrent presenters cannot leave the
// family half revoked.
func (s *Service) RefreshSession(ctx context.Context, refreshRaw string) (*AuthResult, error) {
	now := time.Now()
	hash := hashTokenWithPepper(refreshRaw, s.refreshTokenPepper)
	var result *AuthResult

	err := s.users.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.RefreshToken
		if err := lockForUpdate(tx).Where("token_hash = ?", hash).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidRefreshToken
			}
			return err
		}

		if current.IsExpired(now) {
			return ErrInvalidRefreshToken
		}

		if !current.IsActive() {
			if err := revokeFamilyTx(tx, current.FamilyID); err != nil {
				return err
			}
			return ErrRefreshTokenReused
		}

		var user domain.User
		if err := tx.First(&user, current.UserID).Error; err != nil {
			return err
		}

		accessToken, err := s.jwt.GenerateToken(user.ID, user.Email)
		if err != nil {
			return err
		}

		// Rotation reuses the presented token's family so the lineage
		// stays traceable across refreshes.
		newRaw, err := s.issueRefreshToken(tx, user.ID, current.FamilyID, now)
		if err != nil {
			return err
		}

		user.PasswordHash = ""
		result = &AuthResult{User: &user, AccessToken: accessToken, RefreshToken: newRaw}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Logout revokes the presented token's family. Best-effort: a missing or
// unknown token is not an error, the caller clears the cookie regardless.
func (s *Service) Logout(ctx context.Context, refreshRaw string) error {
	hash := hashTokenWithPepper(refreshRaw, s.refreshTokenPepper)

	var token domain.RefreshToken
	if err := s.users.DB().WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	return revokeFamilyTx(s.users.DB().WithContext(ctx), token.FamilyID)
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func revokeFamilyTx(tx *gorm.DB, familyID string) error {
	return tx.Model(&domain.RefreshToken{}).
		Where("family_id = ? AND status <> ?", familyID, domain.RefreshStatusRevoked).
		Update("status", domain.RefreshStatusRevoked).Error
}

// lockForUpdate adds a row lock on engines that support it. SQLite has no
// SELECT ... FOR UPDATE and serializes writers anyway.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// generateOpaqueRefreshToken returns a high-entropy opaque token and its
// keyed hash. Only the hash is ever persisted; the pepper keys the hash so
// a leaked table cannot be matched against candidate tokens offline.
func generateOpaqueRefreshToken(pepper string) (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	hash = hashTokenWithPepper(raw, pepper)
	return raw, hash, nil
}

func hashTokenWithPepper(raw, pepper string) string {
	sum := sha256.Sum256([]byte(raw + pepper))
	return hex.EncodeToString(sum[:])
}
