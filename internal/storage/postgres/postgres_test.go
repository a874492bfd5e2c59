package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"gastos/internal/core"
	"gastos/internal/repository"
)

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/gastos":   "pgx5://u:p@db:5432/gastos",
		"postgresql://u:p@db:5432/gastos": "pgx5://u:p@db:5432/gastos",
		"pgx5://already":                  "pgx5://already",
	}
	for in, want := range tests {
		if got := migrateURL(in); got != want {
			t.Errorf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilterClause(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	where, args := filterClause(7, repository.Filter{Type: core.Expense, Start: start, Limit: 10})
	if where != "user_id = $1 AND type = $2 AND date >= $3" {
		t.Fatalf("where = %q", where)
	}
	if len(args) != 3 || args[0] != int64(7) || args[1] != "expense" {
		t.Fatalf("args = %v", args)
	}
}

// Runs only against a disposable database.
func TestRepositoryIntegration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	repo, err := New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer repo.Close()

	email := fmt.Sprintf("it-%d@example.com", time.Now().UnixNano())
	u, err := repo.CreateUser(ctx, core.User{Name: "IT", Email: email, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := repo.CreateUser(ctx, core.User{Name: "IT", Email: email, PasswordHash: "x"}); !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("duplicate err = %v", err)
	}

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, Type: core.Expense, Amount: core.Money{Cents: 1234}, Category: "Lazer", Date: time.Now(),
	})
	if err != nil {
		t.Fatalf("create tx: %v", err)
	}
	list, err := repo.ListTransactions(ctx, u.ID, repository.Filter{Limit: 5})
	if err != nil || len(list) != 1 || list[0].ID != tx.ID {
		t.Fatalf("list: %+v %v", list, err)
	}
	if err := repo.DeleteTransaction(ctx, u.ID, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
