package insights

import (
	"encoding/json"
	"strings"
	"testing"

	"gastos/internal/core"
)

func TestAnalyze_EmptyList(t *testing.T) {
	rep := Analyze([]core.Transaction{}, "", DefaultThresholds())

	s := rep.Summary
	if s.TotalIncome != 0 || s.TotalExpenses != 0 || s.Balance != 0 || s.TransactionCount != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Period != DefaultPeriod {
		t.Fatalf("period = %q, want %q", s.Period, DefaultPeriod)
	}
	if s.TopExpenseCategory != NoCategory || s.AverageExpense != 0 {
		t.Fatalf("unexpected top/average %q/%v", s.TopExpenseCategory, s.AverageExpense)
	}
	if len(rep.Insights) != 0 || len(rep.Suggestions) != 4 {
		t.Fatalf("insights=%v suggestions=%v", rep.Insights, rep.Suggestions)
	}

	body, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, part := range []string{`"insights":[]`, `"expenses":{}`, `"income":{}`, `"totalExpenses":0`} {
		if !strings.Contains(string(body), part) {
			t.Errorf("JSON missing %s: %s", part, body)
		}
	}
}

func TestAnalyze_Scenario(t *testing.T) {
	rep := Analyze([]core.Transaction{
		{Type: core.Income, Amount: core.Money{Cents: 500000}, Category: "Work"},
		{Type: core.Expense, Amount: core.Money{Cents: 215000}, Category: "Food"},
	}, "2025-05", DefaultThresholds())

	s := rep.Summary
	if s.TotalIncome != 5000 || s.TotalExpenses != 2150 || s.Balance != 2850 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if s.Period != "2025-05" || s.TopExpenseCategory != "Food" || s.SavingsRate != 57 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if rep.CategoryBreakdown.Expenses["Food"] != 2150 || rep.CategoryBreakdown.Income["Work"] != 5000 {
		t.Fatalf("unexpected breakdown %+v", rep.CategoryBreakdown)
	}
	if len(rep.Suggestions) != DefaultMaxSuggestions {
		t.Fatalf("expected capped suggestions, got %d", len(rep.Suggestions))
	}
}

func TestEngine_PolicySelection(t *testing.T) {
	txs := []core.Transaction{
		{Type: core.Income, Amount: core.Money{Cents: 10000}, Category: "Salário"},
		{Type: core.Expense, Amount: core.Money{Cents: 1000}, Category: "Lazer"},
	}

	rules := NewEngine(PolicyRules, DefaultThresholds()).Run(txs, "30d")
	if rules.Rules == nil || rules.Bands != nil || rules.Policy != PolicyRules {
		t.Fatalf("rules engine produced %+v", rules)
	}
	bands := NewEngine(PolicyBands, DefaultThresholds()).Run(txs, "30d")
	if bands.Bands == nil || bands.Rules != nil || bands.Policy != PolicyBands {
		t.Fatalf("bands engine produced %+v", bands)
	}

	body, err := json.Marshal(bands)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(body), `"riskLevel":"Baixo"`) {
		t.Fatalf("bands JSON missing risk level: %s", body)
	}

	h := bands.Headline()
	if h.TopCategory != "Lazer" || h.SavingsRate != 90 || h.TotalIncome != 100 {
		t.Fatalf("unexpected headline %+v", h)
	}
	if rh := rules.Headline(); rh.TopCategory != "Lazer" || rh.Balance != 90 {
		t.Fatalf("unexpected rules headline %+v", rh)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PolicyRules, "rules": PolicyRules, "bands": PolicyBands} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("ml"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
