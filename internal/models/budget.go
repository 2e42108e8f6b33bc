package models

import (
	"time"

	"budgetbook/internal/money"
)

// Budget limits.
const (
	MaxBudgetNameLength = 50
)

// Budget is a named envelope that money is credited to and debited from.
// Access is granted through BudgetShare rows; there is no single owner.
type Budget struct {
	Base
	Name               string      `gorm:"size:50;not null" json:"name"`
	Payroll            money.Cents `gorm:"type:bigint;not null;default:0" json:"payroll"`
	PayrollRunAt       *time.Time  `json:"payroll_run_at,omitempty"`
	AutoBalanceEnabled bool        `gorm:"not null;default:false" json:"auto_balance_enabled"`

	// Relationships
	Shares             []BudgetShare       `gorm:"foreignKey:BudgetID" json:"-"`
	AutoBalanceSources []AutoBalanceSource `gorm:"foreignKey:BudgetID" json:"auto_balance_sources,omitempty"`
}

// BudgetShare grants a user access to a budget.
type BudgetShare struct {
	BudgetID  string    `gorm:"type:uuid;primaryKey" json:"budget_id"`
	UserID    string    `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName keeps the membership table name used by existing databases.
func (BudgetShare) TableName() string { return "users_budgets" }

// AutoBalanceSource is a budget that covers another budget's deficit at
// payroll time, in proportion to its weight.
type AutoBalanceSource struct {
	Base
	BudgetID       string `gorm:"type:uuid;not null;uniqueIndex:uq_auto_balance_source" json:"budget_id"`
	SourceBudgetID string `gorm:"type:uuid;not null;uniqueIndex:uq_auto_balance_source" json:"source_budget_id"`
	Weight         int    `gorm:"not null" json:"weight"`
}

// TableName returns the auto-balance source table name.
func (AutoBalanceSource) TableName() string { return "budget_auto_balance_sources" }
