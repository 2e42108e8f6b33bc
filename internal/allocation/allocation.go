// Package allocation plans how one amount is spread across several budgets
// and posts the resulting transactions one at a time.
//
// Planning is pure: PlanItemize, PlanRebalance and PlanAutoBalance validate
// their input and return the full list of postings before anything is
// written. Execute then submits the postings in order through a Sink.
// Posting is not atomic across the list; see Execute.
package allocation

import (
	"fmt"
	"unicode/utf8"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/models"
	"budgetbook/internal/money"
)

// Posting is a pending transaction create.
type Posting struct {
	BudgetID    string      `json:"budget_id"`
	Description string      `json:"description"`
	Credit      bool        `json:"credit"`
	Amount      money.Cents `json:"amount"`
}

// Plan is the validated outcome of an allocation request.
type Plan struct {
	Postings []Posting `json:"postings"`
	// BudgetIDs lists every budget touched by the plan in first-touch order.
	BudgetIDs []string `json:"budget_ids"`
	Warnings  []string `json:"warnings,omitempty"`
}

// BudgetBalance is a budget and its balance as read from a single snapshot.
type BudgetBalance struct {
	BudgetID string      `json:"budget_id"`
	Name     string      `json:"name,omitempty"`
	Balance  money.Cents `json:"balance"`
}

func (b BudgetBalance) label() string {
	if b.Name != "" {
		return b.Name
	}
	return b.BudgetID
}

func (p *Plan) add(posting Posting) {
	p.Postings = append(p.Postings, posting)
	for _, id := range p.BudgetIDs {
		if id == posting.BudgetID {
			return
		}
	}
	p.BudgetIDs = append(p.BudgetIDs, posting.BudgetID)
}

// Total returns the sum of the plan's debits and credits.
func (p Plan) Total() (debits, credits money.Cents) {
	for _, posting := range p.Postings {
		if posting.Credit {
			credits += posting.Amount
		} else {
			debits += posting.Amount
		}
	}
	return debits, credits
}

func invalid(format string, args ...any) error {
	return apperrors.WithMessage(apperrors.ErrInvalidAllocation, fmt.Sprintf(format, args...))
}

func validateDescriptions(postings []Posting) error {
	for _, p := range postings {
		if utf8.RuneCountInString(p.Description) > models.MaxDescriptionLength {
			return invalid("description %q exceeds %d characters", truncate(p.Description, 40), models.MaxDescriptionLength)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
