package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/insights"
	"gastos/internal/sheets"
)

const (
	DefaultSchedule    = "@daily"
	DefaultConcurrency = 4
	refreshTimeout     = 10 * time.Minute
)

// Snapshotter analyzes one user's month and stores the result.
type Snapshotter interface {
	Snapshot(ctx context.Context, userID int64, month time.Time) (core.Snapshot, insights.Analysis, error)
}

type UserLister interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// SnapshotWorker keeps stored monthly analyses current, on transaction
// events and on a schedule.
type SnapshotWorker struct {
	analysis    Snapshotter
	users       UserLister
	exporter    sheets.SnapshotExporter
	concurrency int
	now         func() time.Time
}

// NewSnapshotWorker returns a worker. exporter may be nil.
func NewSnapshotWorker(analysis Snapshotter, users UserLister, exporter sheets.SnapshotExporter, concurrency int) *SnapshotWorker {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &SnapshotWorker{
		analysis:    analysis,
		users:       users,
		exporter:    exporter,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// HandleTransactionChanged re-snapshots the month the event touched. An
// error makes the consumer requeue the message.
func (w *SnapshotWorker) HandleTransactionChanged(ctx context.Context, evt *amqp.TransactionChangedEvent) error {
	month, err := evt.MonthStart()
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Processing transaction event",
		"event_id", evt.ID,
		"user_id", evt.UserID,
		"action", evt.Action,
		"month", evt.Month)

	return w.snapshotUser(ctx, evt.UserID, month)
}

// RefreshAll snapshots the current month for every user with transactions.
// One user's failure does not stop the others.
func (w *SnapshotWorker) RefreshAll(ctx context.Context) error {
	ids, err := w.users.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(ids) == 0 {
		slog.InfoContext(ctx, "No users to refresh")
		return nil
	}

	month := w.now()
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := w.snapshotUser(gctx, id, month); err != nil {
				failed.Add(1)
				slog.ErrorContext(gctx, "Snapshot refresh failed", "user_id", id, "error", err)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Snapshot refresh completed",
		"users", len(ids),
		"failed", failed.Load())

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d snapshot refreshes failed", n, len(ids))
	}
	return nil
}

// Schedule registers RefreshAll on spec. The caller starts and stops the
// returned scheduler.
func (w *SnapshotWorker) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()
		if err := w.RefreshAll(runCtx); err != nil {
			slog.ErrorContext(runCtx, "Scheduled snapshot refresh failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot schedule %q: %w", spec, err)
	}
	return c, nil
}

func (w *SnapshotWorker) snapshotUser(ctx context.Context, userID int64, month time.Time) error {
	snap, res, err := w.analysis.Snapshot(ctx, userID, month)
	if err != nil {
		return fmt.Errorf("snapshot user %d: %w", userID, err)
	}

	headline := res.Headline()
	slog.InfoContext(ctx, "Snapshot saved",
		"user_id", userID,
		"period", snap.Period,
		"policy", snap.Policy,
		"insight_count", headline.InsightCount)

	if w.exporter == nil {
		return nil
	}
	// The snapshot is already stored; export failures are only logged.
	if err := w.exporter.ExportSnapshot(ctx, snap, headline); err != nil {
		slog.ErrorContext(ctx, "Failed to export snapshot",
			"user_id", userID,
			"period", snap.Period,
			"error", err)
	}
	return nil
}
