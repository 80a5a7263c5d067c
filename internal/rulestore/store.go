// Package rulestore serves active rule definitions to the engine. Rule CRUD
// itself is owned by the platform API; the engine only reads definitions and
// writes aggregate counters.
package rulestore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/models"
)

// Store is the queryable active-rule registry the matcher consults.
type Store interface {
	// ActiveForModel returns active rules bound to a model with one of the
	// given trigger types.
	ActiveForModel(ctx context.Context, model string, types []models.TriggerType) ([]models.Rule, error)

	// ActiveForSignal returns active rules listening on a signal name with
	// one of the given trigger types.
	ActiveForSignal(ctx context.Context, signal string, types []models.TriggerType) ([]models.Rule, error)

	// ActiveScheduled returns all active scheduled rules.
	ActiveScheduled(ctx context.Context) ([]models.Rule, error)

	// Get loads one rule regardless of active state.
	Get(ctx context.Context, id uint64) (*models.Rule, error)

	// Invalidate drops any cached rule sets after external rule CRUD.
	Invalidate(ctx context.Context) error
}

// GormStore reads rules straight from the database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore builds a database-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ActiveForModel implements Store.
func (s *GormStore) ActiveForModel(ctx context.Context, model string, types []models.TriggerType) ([]models.Rule, error) {
	var rules []models.Rule
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND trigger_model = ? AND trigger_type IN ?", true, model, types).
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("rulestore: rules for model %s: %w", model, err)
	}
	return rules, nil
}

// ActiveForSignal implements Store.
func (s *GormStore) ActiveForSignal(ctx context.Context, signal string, types []models.TriggerType) ([]models.Rule, error) {
	var rules []models.Rule
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND signal_name = ? AND trigger_type IN ?", true, signal, types).
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("rulestore: rules for signal %s: %w", signal, err)
	}
	return rules, nil
}

// ActiveScheduled implements Store.
func (s *GormStore) ActiveScheduled(ctx context.Context) ([]models.Rule, error) {
	var rules []models.Rule
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND trigger_type = ?", true, models.TriggerScheduled).
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("rulestore: scheduled rules: %w", err)
	}
	return rules, nil
}

// Get implements Store.
func (s *GormStore) Get(ctx context.Context, id uint64) (*models.Rule, error) {
	var rule models.Rule
	if err := s.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		return nil, fmt.Errorf("rulestore: rule %d: %w", id, err)
	}
	return &rule, nil
}

// Invalidate implements Store. The database store holds no cache.
func (s *GormStore) Invalidate(context.Context) error { return nil }
