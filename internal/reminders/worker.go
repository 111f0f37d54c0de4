package reminders

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/errandsexpress/backend/internal/metrics"
)

type BalanceSweepArgs struct{}

func (BalanceSweepArgs) Kind() string { return "balance_sweep" }

// BalanceService is the contract the sweep worker needs from the workflow.
type BalanceService interface {
	SweepBalanceStatuses(ctx context.Context) (int, error)
}

// BalanceSweepWorker periodically re-derives runner balance statuses and
// overdue reminder/warning flags. Delivery of reminders is out of scope; the
// sweep only records what is due.
type BalanceSweepWorker struct {
	river.WorkerDefaults[BalanceSweepArgs]
	balances BalanceService
	log      *slog.Logger
}

func NewBalanceSweepWorker(balances BalanceService, log *slog.Logger) *BalanceSweepWorker {
	if log == nil {
		log = slog.Default()
	}
	return &BalanceSweepWorker{balances: balances, log: log}
}

func (w *BalanceSweepWorker) Work(ctx context.Context, job *river.Job[BalanceSweepArgs]) error {
	changed, err := w.balances.SweepBalanceStatuses(ctx)
	if err != nil {
		return err
	}
	metrics.RecordBalanceSweep(changed)
	if changed > 0 {
		w.log.Info("balance sweep complete", "changed", changed)
	}
	return nil
}
