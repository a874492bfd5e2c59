package insights

import (
	"encoding/json"
	"fmt"

	"gastos/internal/core"
)

// DefaultPeriod is echoed back when the caller does not label the window.
const DefaultPeriod = "30d"

const (
	PolicyRules Policy = "rules"
	PolicyBands Policy = "bands"
)

// Policy selects which insight engine a deployment runs. Exactly one is
// active per Engine.
type Policy string

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyRules, "":
		return PolicyRules, nil
	case PolicyBands:
		return PolicyBands, nil
	default:
		return "", fmt.Errorf("unknown insight policy %q", s)
	}
}

type ReportSummary struct {
	TotalIncome        float64 `json:"totalIncome"`
	TotalExpenses      float64 `json:"totalExpenses"`
	Balance            float64 `json:"balance"`
	Period             string  `json:"period"`
	TransactionCount   int     `json:"transactionCount"`
	AverageExpense     float64 `json:"averageExpense"`
	TopExpenseCategory string  `json:"topExpenseCategory"`
	SavingsRate        float64 `json:"savingsRate"`
}

type Breakdown struct {
	Expenses map[string]float64 `json:"expenses"`
	Income   map[string]float64 `json:"income"`
}

// Report is the response payload of the rule-based policy.
type Report struct {
	Summary           ReportSummary `json:"summary"`
	Insights          []Insight     `json:"insights"`
	Suggestions       []string      `json:"suggestions"`
	CategoryBreakdown Breakdown     `json:"categoryBreakdown"`
}

// Analyze runs the Aggregator and the rule engine and shapes the result.
func Analyze(txs []core.Transaction, period string, th Thresholds) Report {
	if period == "" {
		period = DefaultPeriod
	}
	agg := Aggregate(txs)
	res := GenerateInsights(agg, th)

	return Report{
		Summary: ReportSummary{
			TotalIncome:        agg.TotalIncome.Float(),
			TotalExpenses:      agg.TotalExpense.Float(),
			Balance:            agg.Balance.Float(),
			Period:             period,
			TransactionCount:   agg.TransactionCount,
			AverageExpense:     agg.AverageExpense,
			TopExpenseCategory: res.TopExpenseCategory,
			SavingsRate:        agg.SavingsRate,
		},
		Insights:    res.Insights,
		Suggestions: res.Suggestions,
		CategoryBreakdown: Breakdown{
			Expenses: toMap(agg.Expense),
			Income:   toMap(agg.Income),
		},
	}
}

func toMap(shares []CategoryShare) map[string]float64 {
	m := make(map[string]float64, len(shares))
	for _, s := range shares {
		m[s.Category] = s.Amount.Float()
	}
	return m
}

// Analysis is the output of whichever policy produced it. It marshals to
// the policy's own response shape.
type Analysis struct {
	Policy Policy
	Rules  *Report
	Bands  *BandReport
}

func (a Analysis) MarshalJSON() ([]byte, error) {
	if a.Bands != nil {
		return json.Marshal(a.Bands)
	}
	return json.Marshal(a.Rules)
}

// Headline is the policy-independent view used by exporters and logs.
type Headline struct {
	TotalIncome   float64
	TotalExpenses float64
	Balance       float64
	SavingsRate   float64
	TopCategory   string
	InsightCount  int
}

func (a Analysis) Headline() Headline {
	if a.Bands != nil {
		h := Headline{
			TotalIncome:   a.Bands.Summary.TotalIncome,
			TotalExpenses: a.Bands.Summary.TotalExpenses,
			Balance:       a.Bands.Summary.Balance,
			SavingsRate:   float64(a.Bands.Summary.SavingsRate),
			TopCategory:   NoCategory,
			InsightCount:  len(a.Bands.Insights),
		}
		if len(a.Bands.CategoryBreakdown) > 0 {
			h.TopCategory = a.Bands.CategoryBreakdown[0].Category
		}
		return h
	}
	if a.Rules == nil {
		return Headline{TopCategory: NoCategory}
	}
	return Headline{
		TotalIncome:   a.Rules.Summary.TotalIncome,
		TotalExpenses: a.Rules.Summary.TotalExpenses,
		Balance:       a.Rules.Summary.Balance,
		SavingsRate:   a.Rules.Summary.SavingsRate,
		TopCategory:   a.Rules.Summary.TopExpenseCategory,
		InsightCount:  len(a.Rules.Insights),
	}
}

// Engine binds a policy to its configuration.
type Engine struct {
	policy     Policy
	thresholds Thresholds
	bands      BandTable
}

func NewEngine(policy Policy, th Thresholds) *Engine {
	if policy == "" {
		policy = PolicyRules
	}
	return &Engine{policy: policy, thresholds: th, bands: DefaultBandTable()}
}

func (e *Engine) Policy() Policy { return e.policy }

func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Run analyzes txs with the configured policy.
func (e *Engine) Run(txs []core.Transaction, period string) Analysis {
	if e.policy == PolicyBands {
		rep := EvaluateBands(Aggregate(txs), e.bands)
		return Analysis{Policy: PolicyBands, Bands: &rep}
	}
	rep := Analyze(txs, period, e.thresholds)
	return Analysis{Policy: PolicyRules, Rules: &rep}
}
