package allocation

import (
	"budgetbook/internal/money"
)

// WeightedSource is a budget that contributes to covering a deficit.
type WeightedSource struct {
	BudgetID string `json:"source_budget_id"`
	Weight   int    `json:"weight"`
}

// AutoBalanceDescription is the description used for auto-balance postings.
func AutoBalanceDescription(budgetName string) string {
	return "Auto-balance for " + budgetName
}

// PlanAutoBalance covers target's deficit from its weighted sources. Each
// source is debited its share and the target is credited the total. A target
// that is not in deficit, or that has no usable sources, yields an empty plan.
func PlanAutoBalance(target BudgetBalance, sources []WeightedSource) Plan {
	var plan Plan
	if target.Balance >= 0 || len(sources) == 0 {
		return plan
	}

	weights := make([]int, len(sources))
	for i, s := range sources {
		if s.BudgetID == target.BudgetID {
			continue
		}
		weights[i] = s.Weight
	}

	description := AutoBalanceDescription(target.label())
	var covered money.Cents
	for i, amount := range money.SplitWeighted(target.Balance.Abs(), weights) {
		if amount <= 0 {
			continue
		}
		plan.add(Posting{BudgetID: sources[i].BudgetID, Description: description, Amount: amount})
		covered += amount
	}
	if covered > 0 {
		plan.add(Posting{BudgetID: target.BudgetID, Description: description, Credit: true, Amount: covered})
	}
	return plan
}
