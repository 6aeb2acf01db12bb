package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard/internal/model"
)

// SettingRepository is the persisted client-side key-value store.
type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get returns the stored value and whether the key exists.
func (r *SettingRepository) Get(ctx context.Context, name string) (string, bool, error) {
	var setting model.Setting
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&setting).Error
	switch {
	case err == nil:
		return setting.Value, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("find setting %q: %w", name, err)
	}
}

// Set creates or overwrites a key.
func (r *SettingRepository) Set(ctx context.Context, name, value string) error {
	setting := model.Setting{Name: name, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("save setting %q: %w", name, err)
	}
	return nil
}

func (r *SettingRepository) Delete(ctx context.Context, name string) error {
	if err := r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.Setting{}).Error; err != nil {
		return fmt.Errorf("delete setting %q: %w", name, err)
	}
	return nil
}

// TokenStore keeps the API auth token under a fixed settings key.
type TokenStore struct {
	settings *SettingRepository
	key      string
}

func NewTokenStore(settings *SettingRepository, key string) *TokenStore {
	return &TokenStore{settings: settings, key: key}
}

// Token returns the stored token, or "" when none was saved.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	value, _, err := s.settings.Get(ctx, s.key)
	return value, err
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	return s.settings.Set(ctx, s.key, token)
}

func (s *TokenStore) Clear(ctx context.Context) error {
	return s.settings.Delete(ctx, s.key)
}
