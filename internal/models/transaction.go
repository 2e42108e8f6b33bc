package models

import "budgetbook/internal/money"

// Transaction limits.
const (
	MaxDescriptionLength = 500
)

// Transaction is a single credit or debit against a budget. Amount is always
// positive; Credit decides the sign when balances are computed.
type Transaction struct {
	Base
	BudgetID    string      `gorm:"type:uuid;not null;index" json:"budget_id"`
	UserID      *string     `gorm:"type:uuid" json:"user_id,omitempty"`
	Description string      `gorm:"size:500;not null" json:"description"`
	Amount      money.Cents `gorm:"type:bigint;not null" json:"amount"`
	Credit      bool        `gorm:"not null" json:"credit"`
}

// Signed returns the amount as it contributes to a balance.
func (t Transaction) Signed() money.Cents {
	if t.Credit {
		return t.Amount
	}
	return -t.Amount
}
