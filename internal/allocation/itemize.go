package allocation

import (
	"strings"

	"budgetbook/internal/money"
)

// DefaultItemizeDescription is used when an itemized receipt has no description.
const DefaultItemizeDescription = "Itemized receipt"

// LineItem is one line of a receipt charged to a budget.
type LineItem struct {
	BudgetID    string      `json:"budget_id"`
	Description string      `json:"description"`
	Amount      money.Cents `json:"amount"`
}

// ItemizeRequest splits one receipt across the budgets named by its lines.
// Whatever the lines don't cover is charged to CatchAllBudgetID.
type ItemizeRequest struct {
	Total            money.Cents
	Description      string
	Items            []LineItem
	CatchAllBudgetID string
}

// PlanItemize turns a receipt into one debit per line item plus a catch-all
// debit for the unallocated remainder.
//
// Lines without a budget or with a non-positive amount are ignored. The
// request is rejected when the total is not positive, when any amount exceeds
// money.MaxCents, when no lines remain, or when the lines add up to more than
// the total. A catch-all budget is only
// required when there is a remainder to post.
func PlanItemize(req ItemizeRequest) (Plan, error) {
	if req.Total <= 0 {
		return Plan{}, invalid("total must be greater than zero")
	}
	if !req.Total.InRange() {
		return Plan{}, invalid("total exceeds the maximum amount %s", money.MaxCents)
	}

	base := strings.TrimSpace(req.Description)
	if base == "" {
		base = DefaultItemizeDescription
	}

	lines := make([]LineItem, 0, len(req.Items))
	var allocated money.Cents
	for _, item := range req.Items {
		item.BudgetID = strings.TrimSpace(item.BudgetID)
		if item.BudgetID == "" || item.Amount <= 0 {
			continue
		}
		if !item.Amount.InRange() {
			return Plan{}, invalid("line item amount exceeds the maximum amount %s", money.MaxCents)
		}
		item.Description = strings.TrimSpace(item.Description)
		lines = append(lines, item)
		// Both operands are bounded, so the sum can't wrap before this check.
		allocated += item.Amount
		if allocated > req.Total {
			return Plan{}, invalid("line items exceed the receipt total %s", req.Total)
		}
	}
	if len(lines) == 0 {
		return Plan{}, invalid("add at least one line item with a budget and amount")
	}

	remainder := req.Total - allocated
	var plan Plan
	for _, line := range lines {
		desc := base
		if line.Description != "" {
			desc = base + " - " + line.Description
		}
		plan.add(Posting{BudgetID: line.BudgetID, Description: desc, Amount: line.Amount})
	}

	if remainder > 0 {
		catchAll := strings.TrimSpace(req.CatchAllBudgetID)
		if catchAll == "" {
			return Plan{}, invalid("a catch-all budget is required for the unallocated %s", remainder)
		}
		plan.add(Posting{BudgetID: catchAll, Description: base + " - catch-all", Amount: remainder})
	}

	if err := validateDescriptions(plan.Postings); err != nil {
		return Plan{}, err
	}
	return plan, nil
}
