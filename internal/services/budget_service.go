package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/events"
	"budgetbook/internal/ledger"
	"budgetbook/internal/models"
	"budgetbook/internal/money"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db     *gorm.DB
	events events.Emitter
	now    func() time.Time
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, emitter events.Emitter) BudgetServicer {
	return &budgetService{db: db, events: emitter, now: time.Now}
}

func normalizeBudgetName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}
	if utf8.RuneCountInString(name) > models.MaxBudgetNameLength {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "name must be at most 50 characters")
	}
	return name, nil
}

// CreateBudget creates a budget and makes the creator its first member.
func (s *budgetService) CreateBudget(ctx context.Context, userID, name string, payroll money.Cents) (*models.Budget, error) {
	name, err := normalizeBudgetName(name)
	if err != nil {
		return nil, err
	}
	if payroll < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payroll must not be negative")
	}

	budget := &models.Budget{Name: name, Payroll: payroll}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(budget).Error; err != nil {
			return err
		}
		return tx.Create(&models.BudgetShare{BudgetID: budget.ID, UserID: userID}).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.events.Emit(events.New(events.BudgetCreated, userID, budget.ID))
	return budget, nil
}

// ListBudgets returns every budget the user is a member of with its balance
// and the credits and debits of the default window.
func (s *budgetService) ListBudgets(ctx context.Context, userID string) ([]BudgetWithBalance, error) {
	var budgets []models.Budget
	err := s.db.WithContext(ctx).
		Joins("JOIN users_budgets ON users_budgets.budget_id = budgets.id").
		Where("users_budgets.user_id = ?", userID).
		Order("budgets.created_at ASC, budgets.id ASC").
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ids := make([]string, len(budgets))
	for i, b := range budgets {
		ids[i] = b.ID
	}
	txns, err := loadTransactions(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	calc := ledger.NewCalculator(s.now())
	out := make([]BudgetWithBalance, len(budgets))
	for i, b := range budgets {
		out[i] = withBalance(calc, b, txns[b.ID])
	}
	return out, nil
}

func withBalance(calc ledger.Calculator, b models.Budget, txns []models.Transaction) BudgetWithBalance {
	return BudgetWithBalance{
		Budget:  b,
		Balance: ledger.Balance(txns),
		Credits: calc.Credits(txns),
		Debits:  calc.Debits(txns),
	}
}

// GetBudget returns a single budget with its balance.
func (s *budgetService) GetBudget(ctx context.Context, userID, budgetID string) (*BudgetWithBalance, error) {
	budget, err := requireAccess(ctx, s.db, userID, budgetID)
	if err != nil {
		return nil, err
	}
	txns, err := loadTransactions(ctx, s.db, []string{budget.ID})
	if err != nil {
		return nil, err
	}
	result := withBalance(ledger.NewCalculator(s.now()), *budget, txns[budget.ID])
	return &result, nil
}

// UpdateBudget updates the name and/or payroll of a budget.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error) {
	budget, err := requireAccess(ctx, s.db, userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.Name != nil {
		name, err := normalizeBudgetName(*update.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if update.Payroll != nil {
		if *update.Payroll < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payroll must not be negative")
		}
		updates["payroll"] = *update.Payroll
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		s.events.Emit(events.New(events.BudgetUpdated, userID, budget.ID))
	}

	return budget, nil
}

// DeleteBudget removes a budget together with its transactions, memberships
// and auto-balance links in one database transaction.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	budget, err := requireAccess(ctx, s.db, userID, budgetID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("budget_id = ?", budget.ID).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().
			Where("budget_id = ? OR source_budget_id = ?", budget.ID, budget.ID).
			Delete(&models.AutoBalanceSource{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("budget_id = ?", budget.ID).Delete(&models.PayrollRun{}).Error; err != nil {
			return err
		}
		if err := tx.Where("budget_id = ?", budget.ID).Delete(&models.BudgetShare{}).Error; err != nil {
			return err
		}
		return tx.Delete(budget).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.events.Emit(events.New(events.BudgetDeleted, userID, budget.ID))
	return nil
}

// GetSummary computes every aggregate for a budget. windowDays <= 0 selects
// the default 30-day window.
func (s *budgetService) GetSummary(ctx context.Context, userID, budgetID string, windowDays int) (*BudgetSummary, error) {
	budget, err := requireAccess(ctx, s.db, userID, budgetID)
	if err != nil {
		return nil, err
	}
	txns, err := loadTransactions(ctx, s.db, []string{budget.ID})
	if err != nil {
		return nil, err
	}

	calc := ledger.NewCalculator(s.now()).WithWindowDays(windowDays)
	return &BudgetSummary{
		Budget:  *budget,
		Summary: calc.Summarize(*budget, txns[budget.ID]),
	}, nil
}
