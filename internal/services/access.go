package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/models"
	"budgetbook/internal/uuid"
)

// requireAccess loads a budget and checks that userID is one of its members.
// A budget that does not exist is reported as not found; one the caller is not
// a member of is reported as forbidden.
func requireAccess(ctx context.Context, db *gorm.DB, userID, budgetID string) (*models.Budget, error) {
	if !uuid.IsValid(budgetID) {
		return nil, apperrors.ErrBudgetNotFound
	}

	var budget models.Budget
	if err := db.WithContext(ctx).Where("id = ?", budgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.BudgetShare{}).
		Where("budget_id = ? AND user_id = ?", budgetID, userID).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return nil, apperrors.ErrForbidden
	}
	return &budget, nil
}

// requireAccessAll checks every budget id with a constant number of queries
// and returns the budgets keyed by id. The first offending id decides the
// error, in the order given.
func requireAccessAll(ctx context.Context, db *gorm.DB, userID string, budgetIDs []string) (map[string]models.Budget, error) {
	ids := distinct(budgetIDs)
	for _, id := range ids {
		if !uuid.IsValid(id) {
			return nil, apperrors.WithMessage(apperrors.ErrBudgetNotFound, "Budget not found: "+id)
		}
	}
	if len(ids) == 0 {
		return map[string]models.Budget{}, nil
	}

	var budgets []models.Budget
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byID := make(map[string]models.Budget, len(budgets))
	for _, b := range budgets {
		byID[b.ID] = b
	}

	var memberOf []string
	if err := db.WithContext(ctx).Model(&models.BudgetShare{}).
		Where("user_id = ? AND budget_id IN ?", userID, ids).
		Pluck("budget_id", &memberOf).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	member := make(map[string]bool, len(memberOf))
	for _, id := range memberOf {
		member[id] = true
	}

	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, apperrors.WithMessage(apperrors.ErrBudgetNotFound, "Budget not found: "+id)
		}
		if !member[id] {
			return nil, apperrors.ErrForbidden
		}
	}
	return byID, nil
}

// loadTransactions returns every transaction of the given budgets grouped by
// budget id.
func loadTransactions(ctx context.Context, db *gorm.DB, budgetIDs []string) (map[string][]models.Transaction, error) {
	grouped := make(map[string][]models.Transaction, len(budgetIDs))
	if len(budgetIDs) == 0 {
		return grouped, nil
	}

	var txns []models.Transaction
	if err := db.WithContext(ctx).Where("budget_id IN ?", budgetIDs).Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, t := range txns {
		grouped[t.BudgetID] = append(grouped[t.BudgetID], t)
	}
	return grouped, nil
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
