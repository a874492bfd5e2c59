package repository

import (
	"context"
	"errors"
	"time"

	"gastos/internal/core"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Filter narrows a transaction listing. Zero values disable a clause.
// Start is inclusive and End is exclusive.
type Filter struct {
	Type     core.TransactionType
	Category string
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}

// Match reports whether tx satisfies every clause except paging.
func (f Filter) Match(tx core.Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if !f.Start.IsZero() && tx.Date.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && !tx.Date.Before(f.End) {
		return false
	}
	return true
}

// Unpaged returns f without limit and offset, as used for counting.
func (f Filter) Unpaged() Filter {
	f.Limit, f.Offset = 0, 0
	return f
}

// Ports for storage adapters.
type (
	// TransactionLister returns a user's transactions, newest first.
	TransactionLister interface {
		ListTransactions(ctx context.Context, userID int64, f Filter) ([]core.Transaction, error)
	}

	TransactionStore interface {
		TransactionLister
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id int64) error
		CountTransactions(ctx context.Context, userID int64, f Filter) (int, error)
		// Categories returns the distinct categories the user has used for typ,
		// sorted by name.
		Categories(ctx context.Context, userID int64, typ core.TransactionType) ([]string, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		GetUserByID(ctx context.Context, id int64) (core.User, error)
	}

	SnapshotStore interface {
		SaveSnapshot(ctx context.Context, s core.Snapshot) (core.Snapshot, error)
		LatestSnapshot(ctx context.Context, userID int64) (core.Snapshot, error)
		ListUserIDs(ctx context.Context) ([]int64, error)
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionStore
		UserStore
		SnapshotStore
		Ping(ctx context.Context) error
		Close() error
	}
)
