// Package insights turns a user's transaction list into a financial summary,
// per-category breakdowns, and a deterministic set of insights and
// suggestions. Every function here is pure: no I/O and no shared state.
package insights

import (
	"sort"

	"gastos/internal/core"
)

// Summary holds the totals for one transaction list.
type Summary struct {
	TotalIncome      core.Money
	TotalExpense     core.Money
	Balance          core.Money // may be negative
	TransactionCount int
	IncomeCount      int
	ExpenseCount     int

	// SavingsRate is Balance/TotalIncome*100, or 0 when there is no income.
	SavingsRate float64
	// AverageIncome and AverageExpense are in currency units, 0 when the
	// corresponding partition is empty.
	AverageIncome  float64
	AverageExpense float64
}

// CategoryShare is one category's total within a transaction type.
type CategoryShare struct {
	Category   string
	Amount     core.Money
	Percentage float64
}

// Aggregation is the Aggregator output consumed by the insight engines.
type Aggregation struct {
	Summary
	Income  []CategoryShare
	Expense []CategoryShare
}

// Aggregate partitions txs by type and computes totals and category
// breakdowns. The input is treated as already filtered to one user and one
// time window. It never fails; an empty list yields a zero Aggregation with
// empty (non-nil) breakdowns.
func Aggregate(txs []core.Transaction) Aggregation {
	var (
		agg     Aggregation
		income  = newGrouper()
		expense = newGrouper()
	)

	for _, t := range txs {
		switch t.Type {
		case core.Income:
			agg.TotalIncome.Cents += t.Amount.Cents
			agg.IncomeCount++
			income.add(t.Category, t.Amount.Cents)
		case core.Expense:
			agg.TotalExpense.Cents += t.Amount.Cents
			agg.ExpenseCount++
			expense.add(t.Category, t.Amount.Cents)
		}
	}

	agg.TransactionCount = len(txs)
	agg.Balance = core.Money{Cents: agg.TotalIncome.Cents - agg.TotalExpense.Cents}
	agg.SavingsRate = percent(agg.Balance.Cents, agg.TotalIncome.Cents)
	agg.AverageIncome = average(agg.TotalIncome.Cents, agg.IncomeCount)
	agg.AverageExpense = average(agg.TotalExpense.Cents, agg.ExpenseCount)
	agg.Income = income.shares(agg.TotalIncome.Cents)
	agg.Expense = expense.shares(agg.TotalExpense.Cents)

	return agg
}

// TopExpense returns the largest expense category, if any.
func (a Aggregation) TopExpense() (CategoryShare, bool) {
	if len(a.Expense) == 0 {
		return CategoryShare{}, false
	}
	return a.Expense[0], true
}

// grouper sums amounts per category while remembering first-seen order,
// which breaks ties when sorting.
type grouper struct {
	index map[string]int
	names []string
	sums  []int64
}

func newGrouper() *grouper {
	return &grouper{index: make(map[string]int)}
}

func (g *grouper) add(category string, cents int64) {
	i, ok := g.index[category]
	if !ok {
		i = len(g.names)
		g.index[category] = i
		g.names = append(g.names, category)
		g.sums = append(g.sums, 0)
	}
	g.sums[i] += cents
}

func (g *grouper) shares(total int64) []CategoryShare {
	out := make([]CategoryShare, len(g.names))
	for i, name := range g.names {
		out[i] = CategoryShare{
			Category:   name,
			Amount:     core.Money{Cents: g.sums[i]},
			Percentage: percent(g.sums[i], total),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// percent returns part/total*100, or 0 when total is 0. The multiplication
// happens before the division so exact ratios such as 40% stay exact.
func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

// average returns cents/count in currency units, or 0 when count is 0.
func average(cents int64, count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(cents) / float64(count) / 100
}
