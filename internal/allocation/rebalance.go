package allocation

import (
	"fmt"
	"strings"
	"time"

	"budgetbook/internal/money"
)

// RebalanceRequest moves money from budgets with a positive balance to cover
// budgets in deficit. Balances must come from one snapshot.
type RebalanceRequest struct {
	Deficits    []BudgetBalance
	Surpluses   []BudgetBalance
	Description string
	Now         time.Time
}

// RebalanceDescription is the default description for a rebalance on day now.
func RebalanceDescription(now time.Time) string {
	return "Balance wizard " + now.Format("2006-01-02")
}

// PlanRebalance zeroes every deficit and charges the total evenly to the
// surplus budgets, in the order given.
//
// Deficits must have a negative balance and surpluses a positive one; others
// are dropped. Insufficient coverage produces warnings but never blocks.
func PlanRebalance(req RebalanceRequest) (Plan, error) {
	deficits := filterBalances(req.Deficits, func(b money.Cents) bool { return b < 0 })
	surpluses := filterBalances(req.Surpluses, func(b money.Cents) bool { return b > 0 })
	if len(deficits) == 0 || len(surpluses) == 0 {
		return Plan{}, invalid("select at least one budget in deficit and one with a positive balance")
	}

	var total money.Cents
	for _, d := range deficits {
		total += d.Balance.Abs()
	}
	if total <= 0 {
		return Plan{}, invalid("nothing to balance")
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		now := req.Now
		if now.IsZero() {
			now = time.Now()
		}
		description = RebalanceDescription(now)
	}

	var plan Plan
	var coverage money.Cents
	allocations := money.SplitEven(total, len(surpluses))
	for i, s := range surpluses {
		coverage += s.Balance
		amount := allocations[i]
		if amount <= 0 {
			continue
		}
		if amount > s.Balance {
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("%s is debited %s but only holds %s", s.label(), amount, s.Balance))
		}
		plan.add(Posting{BudgetID: s.BudgetID, Description: description, Amount: amount})
	}
	for _, d := range deficits {
		plan.add(Posting{BudgetID: d.BudgetID, Description: description, Credit: true, Amount: d.Balance.Abs()})
	}

	if coverage < total {
		plan.Warnings = append([]string{
			fmt.Sprintf("selected budgets hold %s but deficits total %s", coverage, total),
		}, plan.Warnings...)
	}

	if err := validateDescriptions(plan.Postings); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func filterBalances(in []BudgetBalance, keep func(money.Cents) bool) []BudgetBalance {
	seen := make(map[string]struct{}, len(in))
	out := make([]BudgetBalance, 0, len(in))
	for _, b := range in {
		if _, dup := seen[b.BudgetID]; dup || b.BudgetID == "" || !keep(b.Balance) {
			continue
		}
		seen[b.BudgetID] = struct{}{}
		out = append(out, b)
	}
	return out
}
