package insights

import (
	"fmt"
	"math"
	"strings"
)

// Savings-rate floors for the alternate banding policy.
const (
	ExcellentSavingsRate = 80.0
	GoodSavingsRate      = 50.0
	ModerateSavingsRate  = 20.0
	LowSavingsRate       = 0.0

	ConservativePatternRate = 70.0
	BalancedPatternRate     = 40.0
	ModeratePatternRate     = 10.0
)

// SavingsBand maps a savings-rate floor to an insight and a suggestion.
// InsightFormat receives the rate as its only verb. When Exclusive is set the
// floor itself does not match.
type SavingsBand struct {
	Floor         float64
	Exclusive     bool
	InsightFormat string
	Suggestion    string
}

func (b SavingsBand) matches(rate float64) bool {
	if b.Exclusive {
		return rate > b.Floor
	}
	return rate >= b.Floor
}

// RiskBand maps a savings-rate floor to a spending pattern and risk level.
type RiskBand struct {
	Floor   float64
	Pattern string
	Risk    string
}

// BandTable is an ordered rule set; the first matching band wins and the
// fallbacks apply when none match.
type BandTable struct {
	Savings          []SavingsBand
	SavingsFallback  SavingsBand
	Risk             []RiskBand
	RiskFallback     RiskBand
	EmptyPattern     string
	EmptyRisk        string
	EmptyInsights    []string
	EmptySuggestions []string
}

func DefaultBandTable() BandTable {
	return BandTable{
		Savings: []SavingsBand{
			{Floor: ExcellentSavingsRate, InsightFormat: "Excelente taxa de poupança de %.1f%%!", Suggestion: "Continue mantendo essa excelente disciplina financeira"},
			{Floor: GoodSavingsRate, InsightFormat: "Boa taxa de poupança de %.1f%%!", Suggestion: "Mantenha o foco no controle de gastos"},
			{Floor: ModerateSavingsRate, InsightFormat: "Taxa de poupança moderada de %.1f%%.", Suggestion: "Tente identificar gastos que podem ser reduzidos"},
			{Floor: LowSavingsRate, Exclusive: true, InsightFormat: "Taxa de poupança baixa de %.1f%%.", Suggestion: "Revise seus gastos e identifique onde pode economizar"},
		},
		SavingsFallback: SavingsBand{
			InsightFormat: "Seus gastos estão superiores à sua renda.",
			Suggestion:    "URGENTE: Revise todos os seus gastos e corte supérfluos",
		},
		Risk: []RiskBand{
			{Floor: ConservativePatternRate, Pattern: "Conservador - Gasta pouco e economiza muito", Risk: "Baixo"},
			{Floor: BalancedPatternRate, Pattern: "Equilibrado - Boa relação entre gastos e poupança", Risk: "Baixo"},
			{Floor: ModeratePatternRate, Pattern: "Moderado - Gasta a maior parte da renda", Risk: "Médio"},
		},
		RiskFallback: RiskBand{Pattern: "Alto risco - Gastos próximos ou superiores à renda", Risk: "Alto"},
		EmptyPattern: "Iniciante - Sem dados suficientes",
		EmptyRisk:    "Neutro",
		EmptyInsights: []string{
			"Você ainda não possui transações registradas.",
			"Comece adicionando suas receitas e despesas para obter insights personalizados.",
			"O controle financeiro é o primeiro passo para alcançar seus objetivos!",
		},
		EmptySuggestions: []string{
			"Registre sua primeira transação para começar",
			"Defina categorias para organizar melhor seus gastos",
			"Estabeleça metas financeiras mensais",
		},
	}
}

// RankedCategory is one entry of the flat, expense-only breakdown.
type RankedCategory struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

type BandSummary struct {
	TotalIncome   float64 `json:"totalIncome"`
	TotalExpenses float64 `json:"totalExpenses"`
	Balance       float64 `json:"balance"`
	SavingsRate   int     `json:"savingsRate"`
}

// BandReport is the response shape of the savings-band policy.
type BandReport struct {
	Summary           BandSummary      `json:"summary"`
	CategoryBreakdown []RankedCategory `json:"categoryBreakdown"`
	Insights          []string         `json:"insights"`
	Suggestions       []string         `json:"suggestions"`
	SpendingPattern   string           `json:"spendingPattern"`
	RiskLevel         string           `json:"riskLevel"`
}

// EvaluateBands classifies an aggregation by savings rate alone.
func EvaluateBands(agg Aggregation, table BandTable) BandReport {
	rep := BandReport{
		Summary: BandSummary{
			TotalIncome:   agg.TotalIncome.Float(),
			TotalExpenses: agg.TotalExpense.Float(),
			Balance:       agg.Balance.Float(),
			SavingsRate:   int(math.Round(agg.SavingsRate)),
		},
		CategoryBreakdown: make([]RankedCategory, 0, len(agg.Expense)),
	}

	if agg.TransactionCount == 0 {
		rep.Insights = append([]string{}, table.EmptyInsights...)
		rep.Suggestions = append([]string{}, table.EmptySuggestions...)
		rep.SpendingPattern = table.EmptyPattern
		rep.RiskLevel = table.EmptyRisk
		return rep
	}

	for _, c := range agg.Expense {
		rep.CategoryBreakdown = append(rep.CategoryBreakdown, RankedCategory{
			Category:   c.Category,
			Amount:     c.Amount.Float(),
			Percentage: c.Percentage,
		})
	}

	band := table.savingsBand(agg.SavingsRate)
	rep.Insights = []string{formatBand(band.InsightFormat, agg.SavingsRate)}
	rep.Suggestions = []string{band.Suggestion}

	if top, ok := agg.TopExpense(); ok {
		rep.Insights = append(rep.Insights,
			fmt.Sprintf("Seus gastos com %s representam %.1f%% dos gastos totais.", top.Category, top.Percentage))
	}

	risk := table.riskBand(agg.SavingsRate)
	rep.SpendingPattern = risk.Pattern
	rep.RiskLevel = risk.Risk
	return rep
}

func (t BandTable) savingsBand(rate float64) SavingsBand {
	for _, b := range t.Savings {
		if b.matches(rate) {
			return b
		}
	}
	return t.SavingsFallback
}

func (t BandTable) riskBand(rate float64) RiskBand {
	for _, b := range t.Risk {
		if rate >= b.Floor {
			return b
		}
	}
	return t.RiskFallback
}

func formatBand(format string, rate float64) string {
	// Fallback messages carry no verb.
	if !strings.Contains(format, "%.1f") {
		return format
	}
	return fmt.Sprintf(format, rate)
}
