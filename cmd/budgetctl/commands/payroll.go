package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"budgetbook/internal/events"
	"budgetbook/internal/logger"
	"budgetbook/internal/services"
)

var (
	payrollBudgetID string
	payrollAsOf     string
)

var payrollCmd = &cobra.Command{
	Use:   "payroll",
	Short: "Post recurring payroll",
}

var payrollRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Post payroll for every due budget, or for one budget with --budget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		if payrollAsOf != "" {
			t, err := time.Parse(time.RFC3339, payrollAsOf)
			if err != nil {
				return fmt.Errorf("invalid --as-of, expected RFC3339: %w", err)
			}
			now = t
		}

		cfg, manager, err := openDatabase()
		if err != nil {
			return err
		}
		defer manager.Close()

		var publisher events.Publisher = events.Discard
		if cfg.AMQPURL != "" {
			amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
			if err != nil {
				return fmt.Errorf("failed to connect to event broker: %w", err)
			}
			publisher = amqpPublisher
		}
		defer publisher.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		dispatcher := events.NewDispatcher(publisher, cfg.EventBuffer)
		defer flushEvents(dispatcher)

		svc := services.NewPayrollService(manager.DB(), dispatcher)
		log := logger.Named("payroll")

		if payrollBudgetID != "" {
			result, err := svc.RunBudgetPayroll(ctx, payrollBudgetID, now)
			if err != nil {
				return err
			}
			log.Infow("payroll run", "budget_id", result.BudgetID, "posted", result.Posted, "period", result.Period)
			return nil
		}

		batch, err := svc.RunDuePayrolls(ctx, now)
		if batch != nil {
			log.Infow("payroll batch", "period", batch.Period, "posted", batch.Posted, "skipped", batch.Skipped, "failed", batch.Failed)
		}
		return err
	},
}

// flushEvents publishes everything the run emitted. Run drains the buffer and
// returns when its context is already done.
func flushEvents(d *events.Dispatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = d.Run(ctx)
}

func init() {
	payrollRunCmd.Flags().StringVar(&payrollBudgetID, "budget", "", "only run payroll for this budget ID")
	payrollRunCmd.Flags().StringVar(&payrollAsOf, "as-of", "", "treat this RFC3339 time as now")
	payrollCmd.AddCommand(payrollRunCmd)
	rootCmd.AddCommand(payrollCmd)
}
