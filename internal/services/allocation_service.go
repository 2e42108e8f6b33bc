package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"budgetbook/internal/allocation"
	"budgetbook/internal/events"
	"budgetbook/internal/ledger"
)

// allocationService posts transactions that spread one amount across
// several budgets.
type allocationService struct {
	db     *gorm.DB
	events events.Emitter
	now    func() time.Time
}

// NewAllocationService creates a new AllocationServicer.
func NewAllocationService(db *gorm.DB, emitter events.Emitter) AllocationServicer {
	return &allocationService{db: db, events: emitter, now: time.Now}
}

// Itemize splits a receipt into one debit per line item plus a catch-all
// debit for whatever the items don't cover.
func (s *allocationService) Itemize(ctx context.Context, userID string, req allocation.ItemizeRequest) (*AllocationResult, error) {
	ids := make([]string, 0, len(req.Items)+1)
	for _, item := range req.Items {
		ids = append(ids, item.BudgetID)
	}
	ids = append(ids, req.CatchAllBudgetID)
	if _, err := requireAccessAll(ctx, s.db, userID, ids); err != nil {
		return nil, err
	}

	plan, err := allocation.PlanItemize(req)
	if err != nil {
		return nil, err
	}
	return s.post(ctx, userID, plan)
}

// Rebalance reads the balances of the selected budgets from one snapshot and
// moves money from the surpluses to zero the deficits.
func (s *allocationService) Rebalance(ctx context.Context, userID string, input RebalanceInput) (*AllocationResult, error) {
	ids := append(append([]string{}, input.DeficitBudgetIDs...), input.SurplusBudgetIDs...)
	budgets, err := requireAccessAll(ctx, s.db, userID, ids)
	if err != nil {
		return nil, err
	}
	txns, err := loadTransactions(ctx, s.db, distinct(ids))
	if err != nil {
		return nil, err
	}

	balances := func(ids []string) []allocation.BudgetBalance {
		out := make([]allocation.BudgetBalance, 0, len(ids))
		for _, id := range ids {
			out = append(out, allocation.BudgetBalance{
				BudgetID: id,
				Name:     budgets[id].Name,
				Balance:  ledger.Balance(txns[id]),
			})
		}
		return out
	}

	plan, err := allocation.PlanRebalance(allocation.RebalanceRequest{
		Deficits:    balances(input.DeficitBudgetIDs),
		Surpluses:   balances(input.SurplusBudgetIDs),
		Description: input.Description,
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	return s.post(ctx, userID, plan)
}

func (s *allocationService) post(ctx context.Context, userID string, plan allocation.Plan) (*AllocationResult, error) {
	author := userID
	sink := allocation.SinkFunc(func(ctx context.Context, posting allocation.Posting) (string, error) {
		txn, err := insertPosting(s.db.WithContext(ctx), posting, &author)
		if err != nil {
			return "", err
		}
		return txn.ID, nil
	})

	report, err := allocation.Execute(ctx, sink, plan.Postings)
	result := &AllocationResult{Plan: plan, Report: report}

	if len(report.Succeeded) > 0 {
		txnIDs := make([]string, len(report.Succeeded))
		for i, p := range report.Succeeded {
			txnIDs[i] = p.TransactionID
		}
		s.events.Emit(events.New(events.AllocationPosted, userID, plan.BudgetIDs...).WithTransactions(txnIDs...))
	}
	return result, err
}
