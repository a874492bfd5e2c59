package insights

import (
	"strings"
	"testing"

	"gastos/internal/core"
)

func TestEvaluateBands(t *testing.T) {
	table := DefaultBandTable()
	tests := []struct {
		name        string
		expense     int64
		insight     string
		pattern     string
		risk        string
		roundedRate int
	}{
		{"80 percent", 2000, "Excelente taxa de poupança de 80.0%!", "Conservador - Gasta pouco e economiza muito", "Baixo", 80},
		{"just below 80", 2001, "Boa taxa de poupança de 80.0%!", "Conservador - Gasta pouco e economiza muito", "Baixo", 80},
		{"70 percent", 3000, "Boa taxa de poupança de 70.0%!", "Conservador - Gasta pouco e economiza muito", "Baixo", 70},
		{"just below 70", 3001, "Boa taxa de poupança de 70.0%!", "Equilibrado - Boa relação entre gastos e poupança", "Baixo", 70},
		{"40 percent", 6000, "Taxa de poupança moderada de 40.0%.", "Equilibrado - Boa relação entre gastos e poupança", "Baixo", 40},
		{"10 percent", 9000, "Taxa de poupança baixa de 10.0%.", "Moderado - Gasta a maior parte da renda", "Médio", 10},
		{"zero", 10000, "Seus gastos estão superiores à sua renda.", "Alto risco - Gastos próximos ou superiores à renda", "Alto", 0},
		{"negative", 12000, "Seus gastos estão superiores à sua renda.", "Alto risco - Gastos próximos ou superiores à renda", "Alto", -20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := Aggregate([]core.Transaction{
				tx(core.Income, 10000, "Salário"),
				tx(core.Expense, tt.expense, "Moradia"),
			})
			rep := EvaluateBands(agg, table)

			if rep.Insights[0] != tt.insight {
				t.Errorf("insight = %q, want %q", rep.Insights[0], tt.insight)
			}
			if rep.SpendingPattern != tt.pattern {
				t.Errorf("pattern = %q, want %q", rep.SpendingPattern, tt.pattern)
			}
			if rep.RiskLevel != tt.risk {
				t.Errorf("risk = %q, want %q", rep.RiskLevel, tt.risk)
			}
			if rep.Summary.SavingsRate != tt.roundedRate {
				t.Errorf("savingsRate = %d, want %d", rep.Summary.SavingsRate, tt.roundedRate)
			}
			if len(rep.Suggestions) != 1 {
				t.Errorf("expected one suggestion, got %v", rep.Suggestions)
			}
		})
	}
}

func TestEvaluateBands_FlatBreakdownAndTopShare(t *testing.T) {
	agg := Aggregate([]core.Transaction{
		tx(core.Income, 100000, "Salário"),
		tx(core.Expense, 2500, "Lazer"),
		tx(core.Expense, 7500, "Moradia"),
	})
	rep := EvaluateBands(agg, DefaultBandTable())

	if len(rep.CategoryBreakdown) != 2 {
		t.Fatalf("expected expense-only breakdown, got %+v", rep.CategoryBreakdown)
	}
	if rep.CategoryBreakdown[0].Category != "Moradia" || rep.CategoryBreakdown[0].Percentage != 75 {
		t.Fatalf("unexpected ranking %+v", rep.CategoryBreakdown)
	}
	if len(rep.Insights) != 2 || !strings.Contains(rep.Insights[1], "Moradia representam 75.0%") {
		t.Fatalf("expected top-share insight, got %v", rep.Insights)
	}
}

func TestEvaluateBands_Empty(t *testing.T) {
	table := DefaultBandTable()
	rep := EvaluateBands(Aggregate(nil), table)

	if rep.SpendingPattern != table.EmptyPattern || rep.RiskLevel != table.EmptyRisk {
		t.Fatalf("unexpected empty classification %q/%q", rep.SpendingPattern, rep.RiskLevel)
	}
	if len(rep.Insights) != 3 || len(rep.Suggestions) != 3 {
		t.Fatalf("expected starter insights and suggestions, got %v / %v", rep.Insights, rep.Suggestions)
	}
	if rep.CategoryBreakdown == nil {
		t.Fatalf("breakdown must be non-nil for JSON output")
	}
}
