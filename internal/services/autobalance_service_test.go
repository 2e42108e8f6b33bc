package services

import (
	"testing"

	"budgetbook/internal/allocation"
	"budgetbook/internal/events"
	"budgetbook/internal/models"
	"budgetbook/internal/testutil"
)

func TestAutoBalanceConfig(t *testing.T) {
	t.Run("replace_and_read_back", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAutoBalanceService(db, events.Discard)
		user := testutil.CreateTestUser(t, db)
		target := testutil.CreateTestBudget(t, db, user.ID)
		savings := testutil.CreateTestBudget(t, db, user.ID)
		fun := testutil.CreateTestBudget(t, db, user.ID)
		spare := testutil.CreateTestBudget(t, db, user.ID)

		_, err := svc.UpdateConfig(ctx, user.ID, target.ID, true, []allocation.WeightedSource{
			{BudgetID: spare.ID, Weight: 100},
		})
		testutil.AssertNoError(t, err)

		cfg, err := svc.UpdateConfig(ctx, user.ID, target.ID, true, []allocation.WeightedSource{
			{BudgetID: savings.ID, Weight: 70},
			{BudgetID: fun.ID, Weight: 30},
			{BudgetID: spare.ID, Weight: 0},
		})
		testutil.AssertNoError(t, err)
		if len(cfg.Sources) != 2 {
			t.Fatalf("expected zero weights to be dropped, got %+v", cfg.Sources)
		}

		got, err := svc.GetConfig(ctx, user.ID, target.ID)
		testutil.AssertNoError(t, err)
		if !got.Enabled {
			t.Error("expected auto-balance to be enabled")
		}
		if len(got.Sources) != 2 {
			t.Fatalf("expected previous sources to be replaced, got %+v", got.Sources)
		}
		weights := map[string]int{}
		for _, s := range got.Sources {
			weights[s.BudgetID] = s.Weight
		}
		if weights[savings.ID] != 70 || weights[fun.ID] != 30 {
			t.Errorf("unexpected weights %v", weights)
		}
	})

	t.Run("disable_clears_sources", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAutoBalanceService(db, events.Discard)
		user := testutil.CreateTestUser(t, db)
		target := testutil.CreateTestBudget(t, db, user.ID)
		source := testutil.CreateTestBudget(t, db, user.ID)

		_, err := svc.UpdateConfig(ctx, user.ID, target.ID, true, []allocation.WeightedSource{{BudgetID: source.ID, Weight: 50}})
		testutil.AssertNoError(t, err)
		_, err = svc.UpdateConfig(ctx, user.ID, target.ID, false, nil)
		testutil.AssertNoError(t, err)

		var stored models.Budget
		db.First(&stored, "id = ?", target.ID)
		if stored.AutoBalanceEnabled {
			t.Error("expected auto-balance to be disabled")
		}
		var count int64
		db.Unscoped().Model(&models.AutoBalanceSource{}).Where("budget_id = ?", target.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected no sources, got %d", count)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAutoBalanceService(db, events.Discard)
		user := testutil.CreateTestUser(t, db)
		target := testutil.CreateTestBudget(t, db, user.ID)
		source := testutil.CreateTestBudget(t, db, user.ID)

		tests := []struct {
			name    string
			enabled bool
			sources []allocation.WeightedSource
		}{
			{"weight_above_100", true, []allocation.WeightedSource{{BudgetID: source.ID, Weight: 101}}},
			{"negative_weight", true, []allocation.WeightedSource{{BudgetID: source.ID, Weight: -1}}},
			{"self_source", true, []allocation.WeightedSource{{BudgetID: target.ID, Weight: 10}}},
			{"duplicate", true, []allocation.WeightedSource{{BudgetID: source.ID, Weight: 10}, {BudgetID: source.ID, Weight: 20}}},
			{"enabled_without_sources", true, nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.UpdateConfig(ctx, user.ID, target.ID, tt.enabled, tt.sources)
				testutil.AssertAppError(t, err, "INVALID_AUTO_BALANCE")
			})
		}
	})

	t.Run("source_not_accessible", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAutoBalanceService(db, events.Discard)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		target := testutil.CreateTestBudget(t, db, user.ID)
		foreign := testutil.CreateTestBudget(t, db, other.ID)

		_, err := svc.UpdateConfig(ctx, user.ID, target.ID, true, []allocation.WeightedSource{{BudgetID: foreign.ID, Weight: 10}})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}
