package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"gastos/internal/cache"
	"gastos/internal/categorize"
	"gastos/internal/core"
	"gastos/internal/insights"
	"gastos/internal/log"
	"gastos/internal/repository"
)

var ErrInvalidPeriod = errors.New("invalid period")

var monthPeriod = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Window is a resolved analysis period. Zero bounds are open.
type Window struct {
	Label string
	Start time.Time
	End   time.Time
}

// ResolvePeriod maps "7d", "30d", "90d", "1y", "all" or "YYYY-MM" to a
// window relative to now. An empty period means insights.DefaultPeriod.
func ResolvePeriod(period string, now time.Time) (Window, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		period = insights.DefaultPeriod
	}
	w := Window{Label: period}
	switch period {
	case "7d":
		w.Start = now.AddDate(0, 0, -7)
	case "30d":
		w.Start = now.AddDate(0, 0, -30)
	case "90d":
		w.Start = now.AddDate(0, 0, -90)
	case "1y":
		w.Start = now.AddDate(-1, 0, 0)
	case "all":
	default:
		if !monthPeriod.MatchString(period) {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
		}
		start, err := time.Parse("2006-01", period)
		if err != nil {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
		}
		w.Start, w.End = start, start.AddDate(0, 1, 0)
	}
	return w, nil
}

// AnalysisService runs the insight engine over submitted or stored
// transactions and caches per-user results.
type AnalysisService struct {
	txs         repository.TransactionLister
	snapshots   repository.SnapshotStore
	engine      *insights.Engine
	categorizer *categorize.Categorizer
	cache       cache.Cache[insights.Analysis]
	group       singleflight.Group
	now         func() time.Time

	// generations counts invalidations per user. Loads started under an
	// older generation are not cached.
	genMu       sync.Mutex
	generations map[int64]uint64
}

// NewAnalysisService wires the engine to its collaborators. snapshots and c
// may be nil.
func NewAnalysisService(txs repository.TransactionLister, snapshots repository.SnapshotStore, engine *insights.Engine, categorizer *categorize.Categorizer, c cache.Cache[insights.Analysis]) *AnalysisService {
	if categorizer == nil {
		categorizer = categorize.New(nil)
	}
	return &AnalysisService{
		txs:         txs,
		snapshots:   snapshots,
		engine:      engine,
		categorizer: categorizer,
		cache:       c,
		now:         time.Now,
		generations: make(map[int64]uint64),
	}
}

func (s *AnalysisService) Policy() insights.Policy { return s.engine.Policy() }

// Analyze runs the engine over caller-supplied transactions. period is only
// echoed back.
func (s *AnalysisService) Analyze(ctx context.Context, txs []core.Transaction, period string) insights.Analysis {
	res := s.engine.Run(txs, period)
	slog.DebugContext(ctx, "Analyzed submitted transactions",
		"count", len(txs), "policy", res.Policy, "period", period)
	return res
}

// AnalyzeUser loads the user's transactions for period and analyzes them.
// Concurrent identical requests share one load.
func (s *AnalysisService) AnalyzeUser(ctx context.Context, userID int64, period string) (insights.Analysis, error) {
	w, err := ResolvePeriod(period, s.now())
	if err != nil {
		return insights.Analysis{}, err
	}

	key := s.cacheKey(userID, w.Label)
	if s.cache != nil {
		if res, ok := s.cache.Get(key); ok {
			s.logAnalysis(ctx, userID, w.Label, res, true)
			return res, nil
		}
	}

	gen := s.generation(userID)
	v, err, shared := s.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		return s.analyzeWindow(ctx, userID, w)
	})
	if err != nil {
		return insights.Analysis{}, err
	}
	res := v.(insights.Analysis)
	if s.cache != nil {
		s.setIfCurrent(userID, gen, key, res)
	}

	if shared {
		slog.DebugContext(ctx, "Analysis load shared with concurrent request", "user_id", userID, "period", w.Label)
	}
	s.logAnalysis(ctx, userID, w.Label, res, false)
	return res, nil
}

func (s *AnalysisService) logAnalysis(ctx context.Context, userID int64, period string, res insights.Analysis, cacheHit bool) {
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogAnalysis(ctx, userID, period, string(res.Policy), res.Headline().InsightCount, cacheHit)
}

// AnalyzeMonth analyzes one calendar month, bypassing the cache.
func (s *AnalysisService) AnalyzeMonth(ctx context.Context, userID int64, month time.Time) (insights.Analysis, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.analyzeWindow(ctx, userID, Window{
		Label: start.Format("2006-01"),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	})
}

func (s *AnalysisService) analyzeWindow(ctx context.Context, userID int64, w Window) (insights.Analysis, error) {
	txs, err := s.txs.ListTransactions(ctx, userID, repository.Filter{Start: w.Start, End: w.End})
	if err != nil {
		return insights.Analysis{}, fmt.Errorf("load transactions: %w", err)
	}
	return s.engine.Run(txs, w.Label), nil
}

// Snapshot analyzes month and stores the result.
func (s *AnalysisService) Snapshot(ctx context.Context, userID int64, month time.Time) (core.Snapshot, insights.Analysis, error) {
	if s.snapshots == nil {
		return core.Snapshot{}, insights.Analysis{}, errors.New("snapshot store not configured")
	}
	res, err := s.AnalyzeMonth(ctx, userID, month)
	if err != nil {
		return core.Snapshot{}, insights.Analysis{}, err
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return core.Snapshot{}, insights.Analysis{}, fmt.Errorf("encode analysis: %w", err)
	}
	snap, err := s.snapshots.SaveSnapshot(ctx, core.Snapshot{
		UserID:  userID,
		Period:  month.Format("2006-01"),
		Policy:  string(res.Policy),
		Payload: payload,
	})
	if err != nil {
		return core.Snapshot{}, insights.Analysis{}, err
	}
	return snap, res, nil
}

func (s *AnalysisService) LatestSnapshot(ctx context.Context, userID int64) (core.Snapshot, error) {
	if s.snapshots == nil {
		return core.Snapshot{}, repository.ErrNotFound
	}
	return s.snapshots.LatestSnapshot(ctx, userID)
}

func (s *AnalysisService) Categorize(description string) categorize.Suggestion {
	return s.categorizer.Suggest(description)
}

// Invalidate implements Invalidator. Loads already in flight for the user
// still return to their callers but no longer reach the cache, and later
// callers start a fresh load instead of joining them.
func (s *AnalysisService) Invalidate(userID int64) {
	s.genMu.Lock()
	s.generations[userID]++
	s.genMu.Unlock()

	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(s.userPrefix(userID))
}

func (s *AnalysisService) generation(userID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[userID]
}

// setIfCurrent caches res unless the user was invalidated after gen was
// read. The lock is held across Set so Invalidate cannot slip in between.
func (s *AnalysisService) setIfCurrent(userID int64, gen uint64, key string, res insights.Analysis) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[userID] != gen {
		return
	}
	s.cache.Set(key, res)
}

func (s *AnalysisService) userPrefix(userID int64) string {
	return fmt.Sprintf("analysis:%d:", userID)
}

func (s *AnalysisService) cacheKey(userID int64, label string) string {
	return s.userPrefix(userID) + string(s.engine.Policy()) + ":" + label
}
