package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"budgetbook/internal/models"
	"budgetbook/internal/money"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestBudget creates a budget with no payroll shared with the given users.
func CreateTestBudget(t *testing.T, db *gorm.DB, userIDs ...string) *models.Budget {
	t.Helper()
	return CreateTestBudgetWithPayroll(t, db, 0, userIDs...)
}

// CreateTestBudgetWithPayroll creates a budget with the given payroll (in cents).
// Members are added in argument order, one second apart, so the first user is
// the earliest member.
func CreateTestBudgetWithPayroll(t *testing.T, db *gorm.DB, payroll money.Cents, userIDs ...string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		Name:    fmt.Sprintf("Test Budget %d", nextID()),
		Payroll: payroll,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i, userID := range userIDs {
		share := &models.BudgetShare{
			BudgetID:  budget.ID,
			UserID:    userID,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(share).Error; err != nil {
			t.Fatalf("failed to share test budget: %v", err)
		}
	}
	return budget
}

// CreateTestTransaction creates a transaction for the budget (amount in cents).
func CreateTestTransaction(t *testing.T, db *gorm.DB, budgetID string, credit bool, amount money.Cents) *models.Transaction {
	t.Helper()
	return CreateTestTransactionAt(t, db, budgetID, credit, amount, time.Now())
}

// CreateTestTransactionAt creates a transaction with an explicit creation time.
func CreateTestTransactionAt(t *testing.T, db *gorm.DB, budgetID string, credit bool, amount money.Cents, at time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		BudgetID:    budgetID,
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		Amount:      amount,
		Credit:      credit,
	}
	tx.CreatedAt = at
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
