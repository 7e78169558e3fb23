package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/asc360/operator-portal/internal/ledger"
)

const sweepTimeout = 2 * time.Minute

// Reconciler periodically recomputes every wallet balance from its
// transaction history and reports drift. It never repairs; mismatches are
// surfaced for operators to investigate.
type Reconciler struct {
	ledger *ledger.Service
	cron   *cron.Cron
	spec   string
	logger *slog.Logger
}

// New builds a reconciler sweeping on the given cron spec, for example
// "@every 10m".
func New(ledgerSvc *ledger.Service, spec string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		ledger: ledgerSvc,
		cron:   cron.New(),
		spec:   spec,
		logger: logger,
	}
}

// Start schedules the sweep. The first run happens after one interval, not
// immediately.
func (r *Reconciler) Start() error {
	if _, err := r.cron.AddFunc(r.spec, r.sweep); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("reconciler started", slog.String("schedule", r.spec))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (r *Reconciler) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("reconciler stopped")
}

func (r *Reconciler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	accounts, err := r.ledger.AccountIDs(ctx)
	if err != nil {
		r.logger.Error("reconcile sweep: list accounts", slog.Any("error", err))
		return
	}

	var mismatches int
	for _, id := range accounts {
		report, err := r.ledger.Reconcile(ctx, id)
		if err != nil {
			r.logger.Error("reconcile sweep: account failed",
				slog.String("account_id", id),
				slog.Any("error", err))
			continue
		}
		if !report.Consistent {
			mismatches++
		}
	}

	if mismatches > 0 {
		r.logger.Error("reconcile sweep found drift",
			slog.Int("accounts", len(accounts)),
			slog.Int("mismatches", mismatches))
		return
	}
	r.logger.Info("reconcile sweep clean", slog.Int("accounts", len(accounts)))
}

// SweepOnce runs a single sweep synchronously, mainly for tests and manual
// invocations.
func (r *Reconciler) SweepOnce() {
	r.sweep()
}
