package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/logger"
	"budgetbook/internal/models"
	"budgetbook/internal/uuid"
)

const maxAPIKeyNameLen = 100

// apiKeyService stores per-user API keys. It only ever sees token hashes;
// generating and hashing tokens is the HTTP layer's job.
type apiKeyService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAPIKeyService creates a new APIKeyServicer.
func NewAPIKeyService(db *gorm.DB) APIKeyServicer {
	return &apiKeyService{db: db, now: time.Now}
}

// CreateAPIKey records a new key for the user.
func (s *apiKeyService) CreateAPIKey(ctx context.Context, userID, name, prefix, tokenHash string) (*models.APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxAPIKeyNameLen {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name must be between 1 and 100 characters")
	}
	if prefix == "" || tokenHash == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "api key token is required")
	}

	key := &models.APIKey{
		UserID:    userID,
		Name:      name,
		TokenHash: tokenHash,
		Prefix:    prefix,
	}
	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return key, nil
}

// ListAPIKeys returns the user's keys, newest first.
func (s *apiKeyService) ListAPIKeys(ctx context.Context, userID string) ([]models.APIKey, error) {
	keys := []models.APIKey{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&keys).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return keys, nil
}

// DeleteAPIKey revokes one of the user's keys. Keys of other users are
// reported as not found.
func (s *apiKeyService) DeleteAPIKey(ctx context.Context, userID, keyID string) error {
	if !uuid.IsValid(keyID) {
		return apperrors.ErrAPIKeyNotFound
	}
	res := s.db.WithContext(ctx).Unscoped().Where("id = ? AND user_id = ?", keyID, userID).Delete(&models.APIKey{})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrAPIKeyNotFound
	}
	return nil
}

// AuthenticateAPIKey looks a key up by its token hash and records the use.
func (s *apiKeyService) AuthenticateAPIKey(ctx context.Context, tokenHash string) (*models.APIKey, error) {
	if tokenHash == "" {
		return nil, apperrors.ErrInvalidAPIKey
	}

	var key models.APIKey
	if err := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidAPIKey
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.APIKey{}).Where("id = ?", key.ID).Update("last_used_at", now).Error; err != nil {
		logger.Get().Warnw("failed to record api key use", "error", err, "api_key_id", key.ID)
	} else {
		key.LastUsedAt = &now
	}
	return &key, nil
}
