// Package memory is an in-process backend for tests and local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gastos/internal/core"
	"gastos/internal/repository"
)

type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	nextTx    int64
	nextUser  int64
	nextSnap  int64
	txs       []core.Transaction
	users     []core.User
	snapshots []core.Snapshot
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// CreateTransaction stores tx and assigns ID and timestamps.
func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTx++
	now := s.now()
	tx.ID = s.nextTx
	tx.CreatedAt, tx.UpdatedAt = now, now
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return core.Transaction{}, repository.ErrNotFound
	}
	return s.txs[i], nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(tx.UserID, tx.ID)
	if i < 0 {
		return core.Transaction{}, repository.ErrNotFound
	}
	tx.CreatedAt = s.txs[i].CreatedAt
	tx.UpdatedAt = s.now()
	s.txs[i] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return repository.ErrNotFound
	}
	s.txs = append(s.txs[:i], s.txs[i+1:]...)
	return nil
}

// ListTransactions returns matches ordered by date then creation, newest first.
func (s *Store) ListTransactions(_ context.Context, userID int64, f repository.Filter) ([]core.Transaction, error) {
	s.mu.Lock()
	out := s.matching(userID, f)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []core.Transaction{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CountTransactions(_ context.Context, userID int64, f repository.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matching(userID, f.Unpaged())), nil
}

func (s *Store) Categories(_ context.Context, userID int64, typ core.TransactionType) ([]string, error) {
	s.mu.Lock()
	var names []string
	for _, tx := range s.txs {
		if tx.UserID == userID && tx.Type == typ {
			names = append(names, tx.Category)
		}
	}
	s.mu.Unlock()
	out := dedupe(names)
	sort.Strings(out)
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return core.User{}, repository.ErrEmailTaken
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	u.CreatedAt = s.now()
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, repository.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, repository.ErrNotFound
}

func (s *Store) SaveSnapshot(_ context.Context, snap core.Snapshot) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSnap++
	snap.ID = s.nextSnap
	snap.CreatedAt = s.now()
	snap.Payload = append([]byte(nil), snap.Payload...)
	s.snapshots = append(s.snapshots, snap)
	return snap, nil
}

// LatestSnapshot returns the most recently saved snapshot for userID.
func (s *Store) LatestSnapshot(_ context.Context, userID int64) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].UserID == userID {
			return s.snapshots[i], nil
		}
	}
	return core.Snapshot{}, repository.ErrNotFound
}

// ListUserIDs returns every user that owns at least one transaction.
func (s *Store) ListUserIDs(context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int64]struct{}{}
	var ids []int64
	for _, tx := range s.txs {
		if _, ok := seen[tx.UserID]; ok {
			continue
		}
		seen[tx.UserID] = struct{}{}
		ids = append(ids, tx.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) indexOf(userID, id int64) int {
	for i, tx := range s.txs {
		if tx.ID == id && tx.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *Store) matching(userID int64, f repository.Filter) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range s.txs {
		if tx.UserID == userID && f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
