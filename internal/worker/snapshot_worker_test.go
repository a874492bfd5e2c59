package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/insights"
)

type fakeSnapshotter struct {
	mu     sync.Mutex
	calls  map[int64]time.Time
	failOn int64
}

func (f *fakeSnapshotter) Snapshot(_ context.Context, userID int64, month time.Time) (core.Snapshot, insights.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[int64]time.Time{}
	}
	f.calls[userID] = month
	if userID == f.failOn {
		return core.Snapshot{}, insights.Analysis{}, errors.New("store down")
	}
	rep := insights.Analyze(nil, month.Format("2006-01"), insights.DefaultThresholds())
	return core.Snapshot{UserID: userID, Period: month.Format("2006-01"), Policy: "rules"},
		insights.Analysis{Policy: insights.PolicyRules, Rules: &rep}, nil
}

type fakeUsers []int64

func (u fakeUsers) ListUserIDs(context.Context) ([]int64, error) { return u, nil }

type fakeExporter struct {
	mu       sync.Mutex
	exported []core.Snapshot
	err      error
}

func (e *fakeExporter) ExportSnapshot(_ context.Context, snap core.Snapshot, _ insights.Headline) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exported = append(e.exported, snap)
	return e.err
}

func TestHandleTransactionChanged(t *testing.T) {
	snap := &fakeSnapshotter{}
	exp := &fakeExporter{err: errors.New("sheets quota")}
	w := NewSnapshotWorker(snap, fakeUsers{}, exp, 1)

	evt := amqp.NewTransactionChangedEvent(3, 10, amqp.ActionCreated, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC))
	if err := w.HandleTransactionChanged(context.Background(), evt); err != nil {
		t.Fatalf("export failure must not fail the event: %v", err)
	}
	if got := snap.calls[3]; !got.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("snapshotted month %v", got)
	}
	if len(exp.exported) != 1 || exp.exported[0].Period != "2025-02" {
		t.Fatalf("unexpected exports %+v", exp.exported)
	}

	snap.failOn = 3
	if err := w.HandleTransactionChanged(context.Background(), evt); err == nil {
		t.Fatalf("snapshot failure must be returned for requeue")
	}
}

func TestRefreshAll(t *testing.T) {
	snap := &fakeSnapshotter{failOn: 2}
	w := NewSnapshotWorker(snap, fakeUsers{1, 2, 3}, nil, 2)
	now := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	err := w.RefreshAll(context.Background())
	if err == nil {
		t.Fatalf("expected summary error for failed user")
	}
	if len(snap.calls) != 3 {
		t.Fatalf("every user must be attempted, got %v", snap.calls)
	}
	if !snap.calls[1].Equal(now) {
		t.Fatalf("refresh used month %v", snap.calls[1])
	}
}

func TestSchedule(t *testing.T) {
	w := NewSnapshotWorker(&fakeSnapshotter{}, fakeUsers{}, nil, 0)
	c, err := w.Schedule(context.Background(), "")
	if err != nil || len(c.Entries()) != 1 {
		t.Fatalf("default schedule: %v", err)
	}
	if _, err := w.Schedule(context.Background(), "every now and then"); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}
