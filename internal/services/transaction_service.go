package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/insights"
	"gastos/internal/log"
	"gastos/internal/repository"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
	topCategories   = 5
	duplicateSuffix = " (cópia)"
)

// DefaultCategories are offered to users with little history.
var DefaultCategories = CategorySuggestions{
	Income:  []string{"Salário", "Freelance", "Investimentos", "Venda", "Presente", "Outros"},
	Expense: []string{"Alimentação", "Transporte", "Moradia", "Saúde", "Educação", "Lazer", "Roupas", "Tecnologia", "Outros"},
}

var actionOps = map[amqp.Action]string{
	amqp.ActionCreated: log.OpCreate,
	amqp.ActionUpdated: log.OpUpdate,
	amqp.ActionDeleted: log.OpDelete,
}

var monthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishTransactionChanged(ctx context.Context, evt *amqp.TransactionChangedEvent) error
}

// Invalidator drops cached results for a user.
type Invalidator interface {
	Invalidate(userID int64)
}

type (
	// TransactionInput is a create request. A zero Date means now.
	TransactionInput struct {
		Type        core.TransactionType
		Amount      core.Money
		Category    string
		Description string
		Date        time.Time
	}

	// TransactionPatch updates only the non-nil fields.
	TransactionPatch struct {
		Type        *core.TransactionType
		Amount      *core.Money
		Category    *string
		Description *string
		Date        *time.Time
	}

	Pagination struct {
		Limit   int  `json:"limit"`
		Offset  int  `json:"offset"`
		Total   int  `json:"total"`
		HasMore bool `json:"hasMore"`
	}

	TransactionPage struct {
		Transactions []core.Transaction
		Pagination   Pagination
	}

	CategoryTotal struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
	}

	FinancialSummary struct {
		TotalIncome      float64 `json:"totalIncome"`
		TotalExpense     float64 `json:"totalExpense"`
		Balance          float64 `json:"balance"`
		TransactionCount int     `json:"transactionCount"`
		AverageIncome    float64 `json:"averageIncome"`
		AverageExpense   float64 `json:"averageExpense"`
		TopCategories    struct {
			Income  []CategoryTotal `json:"income"`
			Expense []CategoryTotal `json:"expense"`
		} `json:"topCategories"`
	}

	MonthStats struct {
		Month            int     `json:"month"`
		MonthName        string  `json:"monthName"`
		Income           float64 `json:"income"`
		Expense          float64 `json:"expense"`
		Balance          float64 `json:"balance"`
		TransactionCount int     `json:"transactionCount"`
	}

	CategorySuggestions struct {
		Income  []string `json:"income"`
		Expense []string `json:"expense"`
	}

	Categories struct {
		UserCategories []string            `json:"userCategories"`
		Suggestions    CategorySuggestions `json:"suggestions"`
	}
)

// TransactionService owns transaction writes and the reports built from
// stored transactions.
type TransactionService struct {
	store       repository.TransactionStore
	publisher   EventPublisher
	invalidator Invalidator
	now         func() time.Time
}

func NewTransactionService(store repository.TransactionStore, publisher EventPublisher, invalidator Invalidator) *TransactionService {
	return &TransactionService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		now:         time.Now,
	}
}

func (s *TransactionService) Create(ctx context.Context, userID int64, in TransactionInput) (core.Transaction, error) {
	tx := core.Transaction{
		UserID:      userID,
		Type:        in.Type,
		Amount:      in.Amount.Abs(),
		Category:    core.NormalizeCategory(in.Category),
		Description: in.Description,
		Date:        in.Date,
	}
	if tx.Date.IsZero() {
		tx.Date = s.now()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.changed(ctx, created, amqp.ActionCreated)
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

// List pages through a user's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, userID int64, f repository.Filter) (TransactionPage, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Category != "" {
		f.Category = core.NormalizeCategory(f.Category)
	}

	txs, err := s.store.ListTransactions(ctx, userID, f)
	if err != nil {
		return TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	total, err := s.store.CountTransactions(ctx, userID, f.Unpaged())
	if err != nil {
		return TransactionPage{}, fmt.Errorf("count transactions: %w", err)
	}

	return TransactionPage{
		Transactions: txs,
		Pagination: Pagination{
			Limit:   f.Limit,
			Offset:  f.Offset,
			Total:   total,
			HasMore: f.Offset+len(txs) < total,
		},
	}, nil
}

func (s *TransactionService) Update(ctx context.Context, userID, id int64, p TransactionPatch) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	prevDate := tx.Date
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Amount != nil {
		tx.Amount = p.Amount.Abs()
	}
	if p.Category != nil {
		tx.Category = core.NormalizeCategory(*p.Category)
	}
	if p.Description != nil {
		tx.Description = *p.Description
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.changed(ctx, updated, amqp.ActionUpdated)
	if !sameMonth(prevDate, updated.Date) {
		// The month the transaction left needs re-analysis too.
		s.publish(ctx, updated, amqp.ActionUpdated, prevDate)
	}
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	tx, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.changed(ctx, tx, amqp.ActionDeleted)
	return nil
}

// Duplicate copies a transaction, dated now, with a marked description.
func (s *TransactionService) Duplicate(ctx context.Context, userID, id int64) (core.Transaction, error) {
	orig, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	desc := orig.Description + duplicateSuffix
	if r := []rune(desc); len(r) > core.MaxDescriptionLength {
		desc = string(r[:core.MaxDescriptionLength])
	}
	return s.Create(ctx, userID, TransactionInput{
		Type:        orig.Type,
		Amount:      orig.Amount,
		Category:    orig.Category,
		Description: desc,
	})
}

// Categories merges the user's categories of both types with the defaults.
func (s *TransactionService) Categories(ctx context.Context, userID int64) (Categories, error) {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, typ := range []core.TransactionType{core.Income, core.Expense} {
		names, err := s.store.Categories(ctx, userID, typ)
		if err != nil {
			return Categories{}, fmt.Errorf("list categories: %w", err)
		}
		for _, n := range names {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return Categories{UserCategories: out, Suggestions: DefaultCategories}, nil
}

// Summary reports totals, averages and the top categories in [start, end).
func (s *TransactionService) Summary(ctx context.Context, userID int64, start, end time.Time) (FinancialSummary, error) {
	txs, err := s.store.ListTransactions(ctx, userID, repository.Filter{Start: start, End: end})
	if err != nil {
		return FinancialSummary{}, fmt.Errorf("list transactions: %w", err)
	}
	agg := insights.Aggregate(txs)

	sum := FinancialSummary{
		TotalIncome:      agg.TotalIncome.Float(),
		TotalExpense:     agg.TotalExpense.Float(),
		Balance:          agg.Balance.Float(),
		TransactionCount: agg.TransactionCount,
		AverageIncome:    agg.AverageIncome,
		AverageExpense:   agg.AverageExpense,
	}
	sum.TopCategories.Income = topN(agg.Income, topCategories)
	sum.TopCategories.Expense = topN(agg.Expense, topCategories)
	return sum, nil
}

// MonthlyStats returns twelve entries, January first, for year.
func (s *TransactionService) MonthlyStats(ctx context.Context, userID int64, year int) ([]MonthStats, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	txs, err := s.store.ListTransactions(ctx, userID, repository.Filter{Start: start, End: start.AddDate(1, 0, 0)})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	var byMonth [12][]core.Transaction
	for _, tx := range txs {
		m := tx.Date.UTC().Month() - 1
		byMonth[m] = append(byMonth[m], tx)
	}

	stats := make([]MonthStats, 12)
	for i := range stats {
		agg := insights.Aggregate(byMonth[i])
		stats[i] = MonthStats{
			Month:            i + 1,
			MonthName:        monthNames[i],
			Income:           agg.TotalIncome.Float(),
			Expense:          agg.TotalExpense.Float(),
			Balance:          agg.Balance.Float(),
			TransactionCount: agg.TransactionCount,
		}
	}
	return stats, nil
}

// changed invalidates cached analyses and publishes an event. Neither can
// fail the write that already succeeded.
func (s *TransactionService) changed(ctx context.Context, tx core.Transaction, action amqp.Action) {
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogTransaction(ctx, actionOps[action], tx.UserID, tx.ID, string(tx.Type), tx.Amount.Cents, tx.Category)

	if s.invalidator != nil {
		s.invalidator.Invalidate(tx.UserID)
	}
	s.publish(ctx, tx, action, tx.Date)
}

// publish announces a change to tx affecting the month of date.
func (s *TransactionService) publish(ctx context.Context, tx core.Transaction, action amqp.Action, date time.Time) {
	if s.publisher == nil {
		return
	}
	evt := amqp.NewTransactionChangedEvent(tx.UserID, tx.ID, action, date)
	if err := s.publisher.PublishTransactionChanged(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"user_id", tx.UserID,
			"transaction_id", tx.ID,
			"action", action,
			"error", err)
	}
}

func sameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func topN(shares []insights.CategoryShare, n int) []CategoryTotal {
	if len(shares) > n {
		shares = shares[:n]
	}
	out := make([]CategoryTotal, len(shares))
	for i, s := range shares {
		out[i] = CategoryTotal{Category: s.Category, Total: s.Amount.Float()}
	}
	return out
}
