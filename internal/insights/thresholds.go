package insights

import "fmt"

// Default rule thresholds. Percentages are 0-100; the average expense is in
// currency units.
const (
	DefaultTopCategoryWarningPct    = 40.0
	DefaultTopCategorySuggestionPct = 25.0
	DefaultHighAverageExpense       = 200.0
	DefaultLowActivityCount         = 5
	DefaultMaxSuggestions           = 6
)

// Thresholds tunes the rule engine without touching its control flow.
type Thresholds struct {
	TopCategoryWarningPct    float64
	TopCategorySuggestionPct float64
	HighAverageExpense       float64
	LowActivityCount         int
	MaxSuggestions           int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		TopCategoryWarningPct:    DefaultTopCategoryWarningPct,
		TopCategorySuggestionPct: DefaultTopCategorySuggestionPct,
		HighAverageExpense:       DefaultHighAverageExpense,
		LowActivityCount:         DefaultLowActivityCount,
		MaxSuggestions:           DefaultMaxSuggestions,
	}
}

func (t Thresholds) Validate() error {
	if t.TopCategorySuggestionPct < 0 || t.TopCategoryWarningPct > 100 {
		return fmt.Errorf("category thresholds must be within 0-100")
	}
	if t.TopCategorySuggestionPct >= t.TopCategoryWarningPct {
		return fmt.Errorf("suggestion threshold %.2f must be below warning threshold %.2f",
			t.TopCategorySuggestionPct, t.TopCategoryWarningPct)
	}
	if t.HighAverageExpense < 0 {
		return fmt.Errorf("high average expense must not be negative")
	}
	if t.LowActivityCount < 0 {
		return fmt.Errorf("low activity count must not be negative")
	}
	if t.MaxSuggestions < 1 {
		return fmt.Errorf("max suggestions must be at least 1")
	}
	return nil
}
