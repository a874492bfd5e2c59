package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gastos/internal/core"
	"gastos/internal/repository"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "gastos.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Name: "Test", Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gastos.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "ana@example.com")

	date := time.Date(2025, 5, 10, 15, 30, 0, 0, time.UTC)
	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:      u.ID,
		Type:        core.Expense,
		Amount:      core.Money{Cents: 8950},
		Category:    "Alimentação",
		Description: "Supermercado",
		Date:        date,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.ID == 0 || !tx.Date.Equal(date) || tx.Amount.Cents != 8950 || tx.CreatedAt.IsZero() {
		t.Fatalf("unexpected stored transaction %+v", tx)
	}

	tx.Amount = core.Money{Cents: 9000}
	tx.Description = "Feira"
	updated, err := repo.UpdateTransaction(ctx, tx)
	if err != nil || updated.Amount.Cents != 9000 || updated.Description != "Feira" {
		t.Fatalf("update: %+v %v", updated, err)
	}

	other := newTestUser(t, repo, "bia@example.com")
	if _, err := repo.GetTransaction(ctx, other.ID, tx.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("cross-user get = %v, want ErrNotFound", err)
	}
	tx.UserID = other.ID
	if _, err := repo.UpdateTransaction(ctx, tx); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("cross-user update = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteTransaction(ctx, u.ID, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, u.ID, tx.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second delete = %v", err)
	}
}

func TestListFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "ana@example.com")

	add := func(day int, typ core.TransactionType, cents int64, category string) {
		t.Helper()
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID: u.ID, Type: typ, Amount: core.Money{Cents: cents}, Category: category,
			Date: time.Date(2025, 5, day, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	add(1, core.Income, 500000, "Salário")
	add(2, core.Expense, 1000, "Lazer")
	add(20, core.Expense, 2000, "Moradia")
	add(31, core.Expense, 3000, "Lazer")

	all, err := repo.ListTransactions(ctx, u.ID, repository.Filter{})
	if err != nil || len(all) != 4 || all[0].Date.Day() != 31 {
		t.Fatalf("list all: %d %v", len(all), err)
	}

	window := repository.Filter{
		Type:  core.Expense,
		Start: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
	}
	got, _ := repo.ListTransactions(ctx, u.ID, window)
	if len(got) != 2 || got[0].Category != "Moradia" || got[1].Category != "Lazer" {
		t.Fatalf("window returned %+v", got)
	}

	page, _ := repo.ListTransactions(ctx, u.ID, repository.Filter{Limit: 2, Offset: 1})
	if len(page) != 2 || page[0].Date.Day() != 20 {
		t.Fatalf("page returned %+v", page)
	}
	skipped, _ := repo.ListTransactions(ctx, u.ID, repository.Filter{Offset: 3})
	if len(skipped) != 1 || skipped[0].Category != "Salário" {
		t.Fatalf("offset-only returned %+v", skipped)
	}

	n, _ := repo.CountTransactions(ctx, u.ID, repository.Filter{Category: "Lazer", Limit: 1})
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	cats, _ := repo.Categories(ctx, u.ID, core.Expense)
	if len(cats) != 2 || cats[0] != "Lazer" || cats[1] != "Moradia" {
		t.Fatalf("categories = %v", cats)
	}

	ids, _ := repo.ListUserIDs(ctx)
	if len(ids) != 1 || ids[0] != u.ID {
		t.Fatalf("user ids = %v", ids)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "ana@example.com")

	if _, err := repo.CreateUser(ctx, core.User{Name: "Dup", Email: "ANA@example.com", PasswordHash: "x"}); !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("duplicate email err = %v", err)
	}
	got, err := repo.GetUserByEmail(ctx, "Ana@Example.com")
	if err != nil || got.ID != u.ID || got.PasswordHash != "hash" {
		t.Fatalf("by email: %+v %v", got, err)
	}
	if _, err := repo.GetUserByID(ctx, u.ID+100); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "ana@example.com")

	if _, err := repo.LatestSnapshot(ctx, u.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("empty latest err = %v", err)
	}
	for _, period := range []string{"2025-04", "2025-05"} {
		if _, err := repo.SaveSnapshot(ctx, core.Snapshot{UserID: u.ID, Period: period, Policy: "rules", Payload: []byte(`{"ok":true}`)}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	latest, err := repo.LatestSnapshot(ctx, u.ID)
	if err != nil || latest.Period != "2025-05" || string(latest.Payload) != `{"ok":true}` {
		t.Fatalf("latest: %+v %v", latest, err)
	}
}
