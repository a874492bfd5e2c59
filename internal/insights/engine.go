package insights

import (
	"fmt"

	"gastos/internal/core"
)

const (
	Warning    InsightType = "warning"
	Positive   InsightType = "positive"
	Suggestion InsightType = "suggestion"
)

// NoCategory is reported as the top expense category when there are no
// expenses.
const NoCategory = "N/A"

// Fixed labels for insights that are not about a specific category.
const (
	LabelBalance  = "Balanço"
	LabelSavings  = "Economia"
	LabelBehavior = "Comportamento"
	LabelIncome   = "Renda"
)

// Suggestion texts. Rule-derived ones come first; GeneralSuggestions are
// always appended last, in order.
const (
	SuggestReviewExpenses    = "Revise seus gastos para equilibrar o orçamento"
	SuggestCutNonEssential   = "Considere cortar gastos desnecessários"
	SuggestKeepDiscipline    = "Continue mantendo esse controle financeiro"
	SuggestInvestSurplus     = "Considere investir o valor economizado"
	SuggestSmallerPurchases  = "Considere fazer mais compras de menor valor para melhor controle"
	SuggestDiversifyIncome   = "Considere diversificar suas fontes de renda"
	SuggestExtraIncome       = "Explore oportunidades de renda extra"
	SuggestLogMore           = "Registre mais transações para análises mais precisas"
	suggestReduceCategoryFmt = "Analise se os gastos com %s podem ser reduzidos"
	suggestBudgetCategoryFmt = "Defina um orçamento mensal para %s"
)

var GeneralSuggestions = []string{
	"Use a categorização automática para organizar melhor seus gastos",
	"Defina metas mensais para cada categoria de gasto",
	"Revise seus gastos semanalmente para manter o controle",
}

type InsightType string

type Insight struct {
	Type     InsightType `json:"type"`
	Message  string      `json:"message"`
	Category string      `json:"category"`
}

// Result is the Insight Engine output.
type Result struct {
	Insights           []Insight
	Suggestions        []string
	TopExpenseCategory string
}

// GenerateInsights evaluates the rules in a fixed order; every matching rule
// fires. Suggestions keep insertion order and are truncated to
// th.MaxSuggestions, so rule-derived suggestions win over the general tail.
func GenerateInsights(agg Aggregation, th Thresholds) Result {
	res := Result{
		Insights:           []Insight{},
		Suggestions:        []string{},
		TopExpenseCategory: NoCategory,
	}

	// Balance sign. Zero balance emits nothing.
	switch {
	case agg.Balance.Cents < 0:
		res.add(Warning, LabelBalance,
			fmt.Sprintf("Atenção! Seus gastos superaram sua renda em %s", agg.Balance.Abs().Format()))
		res.suggest(SuggestReviewExpenses, SuggestCutNonEssential)
	case agg.Balance.Cents > 0:
		res.add(Positive, LabelSavings,
			fmt.Sprintf("Parabéns! Você conseguiu economizar %s este período", agg.Balance.Format()))
		res.suggest(SuggestKeepDiscipline, SuggestInvestSurplus)
	}

	// Top expense category concentration.
	if top, ok := agg.TopExpense(); ok {
		res.TopExpenseCategory = top.Category
		if agg.TotalExpense.Cents > 0 {
			switch pct := top.Percentage; {
			case pct > th.TopCategoryWarningPct:
				res.add(Warning, top.Category,
					fmt.Sprintf("%s representa %.1f%% dos seus gastos (%s)", top.Category, pct, top.Amount.Format()))
				res.suggest(fmt.Sprintf(suggestReduceCategoryFmt, top.Category))
			case pct > th.TopCategorySuggestionPct:
				res.add(Suggestion, top.Category,
					fmt.Sprintf("%s é sua maior categoria de gasto (%s)", top.Category, top.Amount.Format()))
				res.suggest(fmt.Sprintf(suggestBudgetCategoryFmt, top.Category))
			}
		}
	}

	// Average expense magnitude.
	if agg.ExpenseCount > 0 && agg.AverageExpense > th.HighAverageExpense {
		res.add(Suggestion, LabelBehavior,
			fmt.Sprintf("Suas transações têm valor médio alto (%s)", core.FormatAmount(agg.AverageExpense)))
		res.suggest(SuggestSmallerPurchases)
	}

	// Income diversification.
	if len(agg.Income) == 1 {
		res.add(Suggestion, LabelIncome, "Você possui apenas uma fonte de renda")
		res.suggest(SuggestDiversifyIncome, SuggestExtraIncome)
	}

	// Low activity.
	if agg.TransactionCount < th.LowActivityCount {
		res.suggest(SuggestLogMore)
	}

	res.suggest(GeneralSuggestions...)

	if th.MaxSuggestions > 0 && len(res.Suggestions) > th.MaxSuggestions {
		res.Suggestions = res.Suggestions[:th.MaxSuggestions]
	}
	return res
}

func (r *Result) add(t InsightType, category, message string) {
	r.Insights = append(r.Insights, Insight{Type: t, Message: message, Category: category})
}

func (r *Result) suggest(s ...string) {
	r.Suggestions = append(r.Suggestions, s...)
}
