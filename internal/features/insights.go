package features

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"bankdash/internal/dataset"
	"bankdash/pkg/contracts/domain"
)

// DebtRiskThreshold is the debt-to-income ratio above which a customer is
// counted as higher risk.
const DebtRiskThreshold = 0.5

// notAvailable replaces a statistic computed over no values.
const notAvailable = "n/a"

// Insight is a sentence summarising one derived column. It is the
// response contract type, so results pass to the API without copying.
type Insight = domain.Insight

type insightFunc func(ds dataset.Dataset) string

// insightCatalogue lists the insight-eligible columns in derivation order.
var insightCatalogue = []struct {
	column string
	render insightFunc
}{
	{domain.ColCustomerTenure, func(ds dataset.Dataset) string {
		return fmt.Sprintf("The average Customer Tenure is %s years.", formatMean(ds, domain.ColCustomerTenure, 1))
	}},
	{domain.ColDebtToIncomeRatio, func(ds dataset.Dataset) string {
		return fmt.Sprintf("About %s%% of customers have a Debt-to-Income Ratio above %g, indicating higher financial risk.",
			formatShareAbove(ds, domain.ColDebtToIncomeRatio, DebtRiskThreshold), DebtRiskThreshold)
	}},
	{domain.ColDepositToLoanRatio, func(ds dataset.Dataset) string {
		return fmt.Sprintf("The average Deposit-to-Loan Ratio is %s, showing overall liquidity strength.", formatMean(ds, domain.ColDepositToLoanRatio, 2))
	}},
	{domain.ColWealthIndicator, func(ds dataset.Dataset) string {
		return fmt.Sprintf("The wealthiest customer has a Wealth Indicator of %s.", formatMax(ds, domain.ColWealthIndicator))
	}},
	{domain.ColProductConcentration, func(ds dataset.Dataset) string {
		return fmt.Sprintf("On average, customers hold %s products with the bank.", formatMean(ds, domain.ColProductConcentration, 1))
	}},
	{domain.ColAgeGroup, func(ds dataset.Dataset) string {
		return fmt.Sprintf("The most common Age Group is %s.", formatMode(ds, domain.ColAgeGroup, AgeGroups()))
	}},
	{domain.ColIncomeGroup, func(ds dataset.Dataset) string {
		return fmt.Sprintf("The majority of customers fall under the %s segment.", formatMode(ds, domain.ColIncomeGroup, IncomeGroups()))
	}},
}

// generateInsights renders one insight per eligible column in newCols.
func generateInsights(ds dataset.Dataset, newCols []string) []Insight {
	added := make(map[string]bool, len(newCols))
	for _, c := range newCols {
		added[c] = true
	}
	insights := []Insight{}
	for _, entry := range insightCatalogue {
		if !added[entry.column] {
			continue
		}
		insights = append(insights, Insight{Column: entry.column, Text: entry.render(ds)})
	}
	return insights
}

// present returns the finite values of a numeric column.
func present(ds dataset.Dataset, name string) []float64 {
	vals, err := ds.Floats(name)
	if err != nil {
		return nil
	}
	out := vals[:0]
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func formatMean(ds dataset.Dataset, name string, decimals int) string {
	vals := present(ds, name)
	if len(vals) == 0 {
		return notAvailable
	}
	return fmt.Sprintf("%.*f", decimals, stat.Mean(vals, nil))
}

// formatShareAbove returns the percentage of all rows above threshold.
// Missing cells count as not above.
func formatShareAbove(ds dataset.Dataset, name string, threshold float64) string {
	if ds.Nrow() == 0 {
		return notAvailable
	}
	above := 0
	for _, v := range present(ds, name) {
		if v > threshold {
			above++
		}
	}
	return fmt.Sprintf("%.1f", float64(above)/float64(ds.Nrow())*100)
}

func formatMax(ds dataset.Dataset, name string) string {
	vals := present(ds, name)
	if len(vals) == 0 {
		return notAvailable
	}
	return humanize.Commaf(math.RoundToEven(floats.Max(vals)))
}

// formatMode returns the most frequent label. Ties go to the label that
// comes first in order.
func formatMode(ds dataset.Dataset, name string, order []string) string {
	vals, err := ds.Strings(name)
	if err != nil {
		return notAvailable
	}
	counts := make(map[string]int, len(order))
	for _, v := range vals {
		if !dataset.IsMissingText(v) {
			counts[v]++
		}
	}
	best, bestCount := "", 0
	for _, label := range order {
		if counts[label] > bestCount {
			best, bestCount = label, counts[label]
		}
	}
	if bestCount == 0 {
		return notAvailable
	}
	return best
}
