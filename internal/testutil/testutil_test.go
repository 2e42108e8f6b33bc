package testutil_test

import (
	"testing"

	"budgetbook/internal/errors"
	"budgetbook/internal/models"
	"budgetbook/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"users", "budgets", "users_budgets", "budget_auto_balance_sources", "transactions", "payroll_runs", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestSetupTestDBIsolation(t *testing.T) {
	first := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, first)
	testutil.CreateTestUser(t, first)

	second := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, second)

	var count int64
	second.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Errorf("expected a fresh database, found %d users", count)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" {
		t.Fatal("user should have an ID")
	}
	other := testutil.CreateTestUser(t, db)

	budget := testutil.CreateTestBudgetWithPayroll(t, db, 150000, user.ID, other.ID)
	if budget.Payroll != 150000 {
		t.Errorf("expected payroll 150000, got %d", budget.Payroll)
	}

	var shares []models.BudgetShare
	db.Where("budget_id = ?", budget.ID).Order("created_at").Find(&shares)
	if len(shares) != 2 || shares[0].UserID != user.ID {
		t.Errorf("expected %s to be the first member, got %+v", user.ID, shares)
	}

	tx := testutil.CreateTestTransaction(t, db, budget.ID, true, 1000)
	if tx.Amount != 1000 || !tx.Credit {
		t.Errorf("unexpected transaction %+v", tx)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrBudgetNotFound, "custom message")
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
