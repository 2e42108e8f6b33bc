package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"budgetbook/internal/allocation"
	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/events"
	"budgetbook/internal/ledger"
	"budgetbook/internal/logger"
	"budgetbook/internal/models"
)

// PayrollDescription is the description of payroll credits.
const PayrollDescription = "PAYROLL"

var errPayrollPosted = errors.New("payroll already posted for period")

// payrollService posts each budget's recurring monthly income.
type payrollService struct {
	db     *gorm.DB
	events events.Emitter
}

// NewPayrollService creates a new PayrollServicer.
func NewPayrollService(db *gorm.DB, emitter events.Emitter) PayrollServicer {
	return &payrollService{db: db, events: emitter}
}

// RunBudgetPayrollForUser posts payroll for a budget the user is a member of.
func (s *payrollService) RunBudgetPayrollForUser(ctx context.Context, userID, budgetID string, now time.Time) (*PayrollResult, error) {
	if _, err := requireAccess(ctx, s.db, userID, budgetID); err != nil {
		return nil, err
	}
	return s.RunBudgetPayroll(ctx, budgetID, now)
}

// RunBudgetPayroll posts the payroll credit of a budget for the month of now.
// A budget is credited at most once per month; later calls report the skip.
func (s *payrollService) RunBudgetPayroll(ctx context.Context, budgetID string, now time.Time) (*PayrollResult, error) {
	var budget models.Budget
	if err := s.db.WithContext(ctx).Where("id = ?", budgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &PayrollResult{BudgetID: budget.ID, Period: models.PayrollPeriod(now), Amount: budget.Payroll}
	if budget.Payroll <= 0 {
		result.SkipReason = SkipNoPayroll
		return result, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var runs int64
		if err := tx.Model(&models.PayrollRun{}).
			Where("budget_id = ? AND period = ?", budget.ID, result.Period).
			Count(&runs).Error; err != nil {
			return err
		}
		if runs > 0 {
			return errPayrollPosted
		}

		if budget.AutoBalanceEnabled {
			postings, err := autoBalanceTx(tx, budget)
			if err != nil {
				return fmt.Errorf("auto-balance: %w", err)
			}
			result.AutoBalance = postings
		}

		author, err := payrollAuthor(tx, budget.ID)
		if err != nil {
			return err
		}
		txn, err := insertPosting(tx, allocation.Posting{
			BudgetID:    budget.ID,
			Description: PayrollDescription,
			Credit:      true,
			Amount:      budget.Payroll,
		}, author)
		if err != nil {
			return err
		}
		result.TransactionID = txn.ID

		if err := tx.Create(&models.PayrollRun{
			BudgetID:      budget.ID,
			Period:        result.Period,
			TransactionID: txn.ID,
			PostedAt:      now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Budget{}).Where("id = ?", budget.ID).Update("payroll_run_at", now).Error
	})

	switch {
	case err == nil:
		result.Posted = true
	case errors.Is(err, errPayrollPosted), errors.Is(err, gorm.ErrDuplicatedKey):
		result.SkipReason = SkipAlreadyPosted
		result.TransactionID = ""
		result.AutoBalance = nil
		return result, nil
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ids := append([]string{budget.ID}, autoBalanceSourceIDs(result.AutoBalance, budget.ID)...)
	s.events.Emit(events.New(events.PayrollPosted, "", ids...).WithTransactions(result.TransactionID))
	return result, nil
}

// payrollAuthor returns the member who has had access to the budget the
// longest, or nil when the budget has no members.
func payrollAuthor(tx *gorm.DB, budgetID string) (*string, error) {
	var shares []models.BudgetShare
	if err := tx.Where("budget_id = ?", budgetID).
		Order("created_at ASC, user_id ASC").
		Limit(1).
		Find(&shares).Error; err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return nil, nil
	}
	return &shares[0].UserID, nil
}

// autoBalanceTx covers the budget's deficit from its weighted sources and
// returns the postings it wrote.
func autoBalanceTx(tx *gorm.DB, budget models.Budget) ([]allocation.Posting, error) {
	txns, err := loadTransactions(tx.Statement.Context, tx, []string{budget.ID})
	if err != nil {
		return nil, err
	}
	sources, err := loadAutoBalanceSources(tx, budget.ID)
	if err != nil {
		return nil, err
	}

	plan := allocation.PlanAutoBalance(allocation.BudgetBalance{
		BudgetID: budget.ID,
		Name:     budget.Name,
		Balance:  ledger.Balance(txns[budget.ID]),
	}, sources)
	for _, posting := range plan.Postings {
		if _, err := insertPosting(tx, posting, nil); err != nil {
			return nil, err
		}
	}
	return plan.Postings, nil
}

func autoBalanceSourceIDs(postings []allocation.Posting, target string) []string {
	var ids []string
	for _, p := range postings {
		if p.BudgetID != target {
			ids = append(ids, p.BudgetID)
		}
	}
	return ids
}

// RunDuePayrolls posts payroll for every budget that has not been credited
// this month. A failing budget doesn't stop the others; the joined error is
// returned so the caller can retry.
func (s *payrollService) RunDuePayrolls(ctx context.Context, now time.Time) (*PayrollBatchResult, error) {
	period := models.PayrollPeriod(now)
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Budget{}).
		Where("payroll > 0").
		Where("NOT EXISTS (SELECT 1 FROM payroll_runs WHERE payroll_runs.budget_id = budgets.id AND payroll_runs.period = ?)", period).
		Order("created_at ASC, id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	batch := &PayrollBatchResult{Period: period, Results: []PayrollResult{}}
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := s.RunBudgetPayroll(ctx, id, now)
		if err != nil {
			batch.Failed++
			errs = append(errs, fmt.Errorf("budget %s: %w", id, err))
			logger.Get().Errorw("payroll failed", "budget_id", id, "period", period, "error", err)
			continue
		}
		if result.Posted {
			batch.Posted++
		} else {
			batch.Skipped++
		}
		batch.Results = append(batch.Results, *result)
	}
	return batch, errors.Join(errs...)
}
