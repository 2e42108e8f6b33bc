package models

import "time"

// PayrollRun records that payroll was posted for a budget in a period
// (YYYY-MM). The unique index makes repeated runs for the same month a no-op.
type PayrollRun struct {
	Base
	BudgetID      string    `gorm:"type:uuid;not null;uniqueIndex:uq_payroll_runs_budget_period" json:"budget_id"`
	Period        string    `gorm:"size:7;not null;uniqueIndex:uq_payroll_runs_budget_period" json:"period"`
	TransactionID string    `gorm:"type:uuid;not null" json:"transaction_id"`
	PostedAt      time.Time `gorm:"not null" json:"posted_at"`
}

// PayrollPeriod returns the period key for t.
func PayrollPeriod(t time.Time) string {
	return t.Format("2006-01")
}
