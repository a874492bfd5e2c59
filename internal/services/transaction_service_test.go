package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/repository"
	"gastos/internal/repository/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.TransactionChangedEvent
	err    error
}

func (p *recordingPublisher) PublishTransactionChanged(_ context.Context, evt *amqp.TransactionChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

type recordingInvalidator struct{ users []int64 }

func (r *recordingInvalidator) Invalidate(userID int64) { r.users = append(r.users, userID) }

var fixedNow = time.Date(2025, 5, 15, 12, 0, 0, 0, time.UTC)

func newTransactionService(pub EventPublisher, inv Invalidator) (*TransactionService, *memory.Store) {
	store := memory.New()
	svc := NewTransactionService(store, pub, inv)
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func TestTransactionService_CreateNormalizes(t *testing.T) {
	pub := &recordingPublisher{}
	inv := &recordingInvalidator{}
	svc, _ := newTransactionService(pub, inv)

	tx, err := svc.Create(context.Background(), 1, TransactionInput{
		Type:     core.Expense,
		Amount:   core.Money{Cents: -2500},
		Category: "  aLIMENTAÇÃO ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.Amount.Cents != 2500 {
		t.Errorf("amount = %d, want absolute 2500", tx.Amount.Cents)
	}
	if tx.Category != "Alimentação" {
		t.Errorf("category = %q", tx.Category)
	}
	if !tx.Date.Equal(fixedNow) {
		t.Errorf("date = %v, want now", tx.Date)
	}
	if len(pub.events) != 1 || pub.events[0].Action != amqp.ActionCreated || pub.events[0].Month != "2025-05" {
		t.Errorf("unexpected events %+v", pub.events)
	}
	if len(inv.users) != 1 || inv.users[0] != 1 {
		t.Errorf("cache not invalidated: %v", inv.users)
	}
}

func TestTransactionService_CreateValidation(t *testing.T) {
	svc, _ := newTransactionService(nil, nil)
	tests := []struct {
		name string
		in   TransactionInput
		want error
	}{
		{"bad type", TransactionInput{Type: "transfer", Amount: core.Money{Cents: 1}, Category: "X"}, core.ErrInvalidType},
		{"zero amount", TransactionInput{Type: core.Income, Category: "X"}, core.ErrInvalidAmount},
		{"blank category", TransactionInput{Type: core.Income, Amount: core.Money{Cents: 1}, Category: "  "}, core.ErrEmptyCategory},
		{"long description", TransactionInput{Type: core.Income, Amount: core.Money{Cents: 1}, Category: "X", Description: strings.Repeat("a", 256)}, core.ErrDescriptionTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), 1, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTransactionService_PublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, store := newTransactionService(pub, nil)

	tx, err := svc.Create(context.Background(), 1, TransactionInput{Type: core.Income, Amount: core.Money{Cents: 100}, Category: "Venda"})
	if err != nil {
		t.Fatalf("create must succeed when publishing fails: %v", err)
	}
	if _, err := store.GetTransaction(context.Background(), 1, tx.ID); err != nil {
		t.Fatalf("transaction not stored: %v", err)
	}
}

func TestTransactionService_UpdateDeleteDuplicate(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newTransactionService(pub, nil)

	tx, _ := svc.Create(ctx, 1, TransactionInput{
		Type: core.Expense, Amount: core.Money{Cents: 1000}, Category: "lazer", Description: "Cinema",
		Date: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
	})

	cat := "MORADIA"
	amount := core.Money{Cents: -1500}
	updated, err := svc.Update(ctx, 1, tx.ID, TransactionPatch{Category: &cat, Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Category != "Moradia" || updated.Amount.Cents != 1500 || updated.Description != "Cinema" {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := svc.Update(ctx, 2, tx.ID, TransactionPatch{Category: &cat}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("other user's update err = %v", err)
	}

	dup, err := svc.Duplicate(ctx, 1, tx.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if dup.ID == tx.ID || dup.Description != "Cinema (cópia)" || !dup.Date.Equal(fixedNow) || dup.Amount.Cents != 1500 {
		t.Fatalf("unexpected duplicate %+v", dup)
	}

	if err := svc.Delete(ctx, 1, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, 1, tx.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}

	actions := []amqp.Action{}
	for _, e := range pub.events {
		actions = append(actions, e.Action)
	}
	want := []amqp.Action{amqp.ActionCreated, amqp.ActionUpdated, amqp.ActionCreated, amqp.ActionDeleted}
	if len(actions) != len(want) {
		t.Fatalf("actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("actions = %v, want %v", actions, want)
		}
	}
}

func TestTransactionService_UpdateAcrossMonthsAnnouncesBoth(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newTransactionService(pub, nil)

	tx, err := svc.Create(ctx, 1, TransactionInput{
		Type: core.Expense, Amount: core.Money{Cents: 1000}, Category: "lazer",
		Date: time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	moved := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Update(ctx, 1, tx.ID, TransactionPatch{Date: &moved}); err != nil {
		t.Fatalf("update: %v", err)
	}

	months := map[string]bool{}
	for _, e := range pub.events[1:] {
		if e.Action != amqp.ActionUpdated {
			t.Fatalf("unexpected action %q", e.Action)
		}
		months[e.Month] = true
	}
	if len(pub.events) != 3 || !months["2025-04"] || !months["2025-06"] {
		t.Fatalf("update events cover %v, want 2025-04 and 2025-06", months)
	}
}

func TestTransactionService_ListPagination(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTransactionService(nil, nil)
	for i := 0; i < 5; i++ {
		svc.Create(ctx, 1, TransactionInput{Type: core.Expense, Amount: core.Money{Cents: 100}, Category: "lazer",
			Date: fixedNow.AddDate(0, 0, -i)})
	}

	page, err := svc.List(ctx, 1, repository.Filter{Limit: 2, Offset: 2, Category: "LAZER"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Transactions) != 2 || page.Pagination.Total != 5 || !page.Pagination.HasMore {
		t.Fatalf("unexpected page %+v", page.Pagination)
	}

	last, _ := svc.List(ctx, 1, repository.Filter{Limit: 2, Offset: 4})
	if len(last.Transactions) != 1 || last.Pagination.HasMore {
		t.Fatalf("unexpected last page %+v", last.Pagination)
	}

	def, _ := svc.List(ctx, 1, repository.Filter{})
	if def.Pagination.Limit != DefaultPageSize {
		t.Fatalf("default limit = %d", def.Pagination.Limit)
	}
}

func TestTransactionService_SummaryAndCategories(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTransactionService(nil, nil)
	add := func(typ core.TransactionType, cents int64, cat string) {
		if _, err := svc.Create(ctx, 1, TransactionInput{Type: typ, Amount: core.Money{Cents: cents}, Category: cat}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	add(core.Income, 500000, "Salário")
	for i, cat := range []string{"A", "B", "C", "D", "E", "F"} {
		add(core.Expense, int64(1000*(i+1)), cat)
	}

	sum, err := svc.Summary(ctx, 1, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalIncome != 5000 || sum.TotalExpense != 210 || sum.Balance != 4790 || sum.TransactionCount != 7 {
		t.Fatalf("unexpected totals %+v", sum)
	}
	if sum.AverageExpense != 35 || sum.AverageIncome != 5000 {
		t.Fatalf("unexpected averages %+v", sum)
	}
	if len(sum.TopCategories.Expense) != 5 || sum.TopCategories.Expense[0].Category != "F" {
		t.Fatalf("unexpected top expense %+v", sum.TopCategories.Expense)
	}

	cats, err := svc.Categories(ctx, 1)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats.UserCategories) != 7 || cats.UserCategories[0] != "A" {
		t.Fatalf("unexpected categories %v", cats.UserCategories)
	}
	if len(cats.Suggestions.Expense) != 9 || len(cats.Suggestions.Income) != 6 {
		t.Fatalf("unexpected suggestions %+v", cats.Suggestions)
	}
}

func TestTransactionService_MonthlyStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTransactionService(nil, nil)
	in := func(typ core.TransactionType, cents int64, month time.Month) TransactionInput {
		return TransactionInput{Type: typ, Amount: core.Money{Cents: cents}, Category: "X",
			Date: time.Date(2025, month, 10, 0, 0, 0, 0, time.UTC)}
	}
	svc.Create(ctx, 1, in(core.Income, 300000, time.March))
	svc.Create(ctx, 1, in(core.Expense, 100000, time.March))
	svc.Create(ctx, 1, in(core.Expense, 5000, time.December))
	svc.Create(ctx, 1, TransactionInput{Type: core.Expense, Amount: core.Money{Cents: 999}, Category: "X",
		Date: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)})

	stats, err := svc.MonthlyStats(ctx, 1, 2025)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 12 {
		t.Fatalf("len = %d", len(stats))
	}
	mar := stats[2]
	if mar.Month != 3 || mar.MonthName != "Março" || mar.Income != 3000 || mar.Expense != 1000 || mar.Balance != 2000 || mar.TransactionCount != 2 {
		t.Fatalf("unexpected March %+v", mar)
	}
	if stats[11].Expense != 50 || stats[0].TransactionCount != 0 {
		t.Fatalf("unexpected Dec/Jan %+v %+v", stats[11], stats[0])
	}
}
