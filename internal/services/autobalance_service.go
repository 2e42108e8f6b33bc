package services

import (
	"context"

	"gorm.io/gorm"

	"budgetbook/internal/allocation"
	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/events"
	"budgetbook/internal/models"
)

const maxAutoBalanceWeight = 100

// autoBalanceService manages which budgets cover a budget's deficit at
// payroll time.
type autoBalanceService struct {
	db     *gorm.DB
	events events.Emitter
}

// NewAutoBalanceService creates a new AutoBalanceServicer.
func NewAutoBalanceService(db *gorm.DB, emitter events.Emitter) AutoBalanceServicer {
	return &autoBalanceService{db: db, events: emitter}
}

func loadAutoBalanceSources(db *gorm.DB, budgetID string) ([]allocation.WeightedSource, error) {
	var rows []models.AutoBalanceSource
	if err := db.Where("budget_id = ?", budgetID).Order("source_budget_id ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	sources := make([]allocation.WeightedSource, len(rows))
	for i, r := range rows {
		sources[i] = allocation.WeightedSource{BudgetID: r.SourceBudgetID, Weight: r.Weight}
	}
	return sources, nil
}

// GetConfig returns the auto-balance setting of a budget.
func (s *autoBalanceService) GetConfig(ctx context.Context, userID, budgetID string) (*AutoBalanceConfig, error) {
	budget, err := requireAccess(ctx, s.db, userID, budgetID)
	if err != nil {
		return nil, err
	}
	sources, err := loadAutoBalanceSources(s.db.WithContext(ctx), budgetID)
	if err != nil {
		return nil, err
	}
	return &AutoBalanceConfig{BudgetID: budget.ID, Enabled: budget.AutoBalanceEnabled, Sources: sources}, nil
}

// UpdateConfig replaces the auto-balance setting of a budget. Sources with a
// zero weight are dropped. The caller must be a member of every source.
func (s *autoBalanceService) UpdateConfig(
	ctx context.Context,
	userID, budgetID string,
	enabled bool,
	sources []allocation.WeightedSource,
) (*AutoBalanceConfig, error) {
	if _, err := requireAccess(ctx, s.db, userID, budgetID); err != nil {
		return nil, err
	}

	kept := make([]allocation.WeightedSource, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		switch {
		case src.Weight < 0 || src.Weight > maxAutoBalanceWeight:
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAutoBalance, "weight must be between 0 and 100")
		case src.BudgetID == budgetID:
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAutoBalance, "a budget cannot balance itself")
		case seen[src.BudgetID]:
			return nil, apperrors.WithMessage(apperrors.ErrInvalidAutoBalance, "duplicate source budget")
		}
		seen[src.BudgetID] = true
		if src.Weight > 0 {
			kept = append(kept, src)
		}
	}
	if enabled && len(kept) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAutoBalance, "select at least one source budget")
	}

	ids := make([]string, len(kept))
	for i, src := range kept {
		ids[i] = src.BudgetID
	}
	if _, err := requireAccessAll(ctx, s.db, userID, ids); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Budget{}).Where("id = ?", budgetID).
			Update("auto_balance_enabled", enabled).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("budget_id = ?", budgetID).Delete(&models.AutoBalanceSource{}).Error; err != nil {
			return err
		}
		for _, src := range kept {
			row := &models.AutoBalanceSource{BudgetID: budgetID, SourceBudgetID: src.BudgetID, Weight: src.Weight}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.events.Emit(events.New(events.BudgetUpdated, userID, budgetID))
	return &AutoBalanceConfig{BudgetID: budgetID, Enabled: enabled, Sources: kept}, nil
}
