// Package ledger computes budget aggregates from a materialized list of
// transactions. Nothing here touches the database; callers load the rows
// once and ask for whatever figures they need.
package ledger

import (
	"time"

	"budgetbook/internal/models"
	"budgetbook/internal/money"

	"github.com/shopspring/decimal"
)

// DefaultWindow is the look-back period for recent credits and debits.
const DefaultWindow = 30 * 24 * time.Hour

// Filter selects the transactions an aggregate is computed over.
type Filter func(models.Transaction) bool

// All matches every transaction.
func All(models.Transaction) bool { return true }

// Credit matches credit transactions.
func Credit(t models.Transaction) bool { return t.Credit }

// Debit matches debit transactions.
func Debit(t models.Transaction) bool { return !t.Credit }

// Since matches transactions created strictly after start.
func Since(start time.Time) Filter {
	return func(t models.Transaction) bool { return t.CreatedAt.After(start) }
}

// From matches transactions created at or after start.
func From(start time.Time) Filter {
	return func(t models.Transaction) bool { return !t.CreatedAt.Before(start) }
}

// And matches transactions accepted by every filter.
func And(filters ...Filter) Filter {
	return func(t models.Transaction) bool {
		for _, f := range filters {
			if !f(t) {
				return false
			}
		}
		return true
	}
}

// Sum adds the amounts of the matching transactions.
func Sum(txns []models.Transaction, f Filter) money.Cents {
	var total money.Cents
	for _, t := range txns {
		if f(t) {
			total += t.Amount
		}
	}
	return total
}

// Average returns the mean amount of the matching transactions rounded half
// away from zero to the cent, or zero when nothing matches.
func Average(txns []models.Transaction, f Filter) money.Cents {
	var total money.Cents
	count := 0
	for _, t := range txns {
		if f(t) {
			total += t.Amount
			count++
		}
	}
	if count == 0 {
		return 0
	}
	avg := decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(count)))
	return money.Cents(avg.Round(0).IntPart())
}

// Max returns the largest amount among the matching transactions, or zero
// when nothing matches.
func Max(txns []models.Transaction, f Filter) money.Cents {
	var max money.Cents
	for _, t := range txns {
		if f(t) && t.Amount > max {
			max = t.Amount
		}
	}
	return max
}

// Balance is the sum of all credits minus the sum of all debits.
func Balance(txns []models.Transaction) money.Cents {
	return Sum(txns, Credit) - Sum(txns, Debit)
}

// MonthStart returns the first instant of the calendar month containing t,
// in t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Summary holds the derived figures for one budget.
type Summary struct {
	Balance          money.Cents `json:"balance"`
	Credits          money.Cents `json:"credits"`
	Debits           money.Cents `json:"debits"`
	AvgDebit         money.Cents `json:"avg_debit"`
	MaxDebit         money.Cents `json:"max_debit"`
	CreditsThisMonth money.Cents `json:"credits_this_month"`
	DebitsThisMonth  money.Cents `json:"debits_this_month"`
	Payroll          money.Cents `json:"payroll"`
	WindowDays       int         `json:"window_days"`
}

// Calculator evaluates aggregates relative to a fixed point in time.
type Calculator struct {
	Now    time.Time
	Window time.Duration
}

// NewCalculator returns a Calculator using DefaultWindow.
func NewCalculator(now time.Time) Calculator {
	return Calculator{Now: now, Window: DefaultWindow}
}

// WithWindowDays returns a copy of c using a window of the given number of
// days. Non-positive values keep the current window.
func (c Calculator) WithWindowDays(days int) Calculator {
	if days > 0 {
		c.Window = time.Duration(days) * 24 * time.Hour
	}
	return c
}

func (c Calculator) window() time.Duration {
	if c.Window <= 0 {
		return DefaultWindow
	}
	return c.Window
}

func (c Calculator) recent() Filter {
	return Since(c.Now.Add(-c.window()))
}

func (c Calculator) thisMonth() Filter {
	return From(MonthStart(c.Now))
}

// Credits sums credits inside the window.
func (c Calculator) Credits(txns []models.Transaction) money.Cents {
	return Sum(txns, And(Credit, c.recent()))
}

// Debits sums debits inside the window.
func (c Calculator) Debits(txns []models.Transaction) money.Cents {
	return Sum(txns, And(Debit, c.recent()))
}

// AvgDebit is the average debit inside the window.
func (c Calculator) AvgDebit(txns []models.Transaction) money.Cents {
	return Average(txns, And(Debit, c.recent()))
}

// MaxDebit is the largest debit inside the window.
func (c Calculator) MaxDebit(txns []models.Transaction) money.Cents {
	return Max(txns, And(Debit, c.recent()))
}

// CreditsThisMonth sums credits since the start of the current month.
func (c Calculator) CreditsThisMonth(txns []models.Transaction) money.Cents {
	return Sum(txns, And(Credit, c.thisMonth()))
}

// DebitsThisMonth sums debits since the start of the current month.
func (c Calculator) DebitsThisMonth(txns []models.Transaction) money.Cents {
	return Sum(txns, And(Debit, c.thisMonth()))
}

// Summarize computes every figure for a budget.
func (c Calculator) Summarize(budget models.Budget, txns []models.Transaction) Summary {
	return Summary{
		Balance:          Balance(txns),
		Credits:          c.Credits(txns),
		Debits:           c.Debits(txns),
		AvgDebit:         c.AvgDebit(txns),
		MaxDebit:         c.MaxDebit(txns),
		CreditsThisMonth: c.CreditsThisMonth(txns),
		DebitsThisMonth:  c.DebitsThisMonth(txns),
		Payroll:          budget.Payroll,
		WindowDays:       int(c.window() / (24 * time.Hour)),
	}
}
