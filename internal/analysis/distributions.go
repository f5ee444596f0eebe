package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"

	"bankdash/internal/dataset"
	"bankdash/pkg/contracts/domain"
)

// NumericProfile describes the shape of one numeric column.
type NumericProfile struct {
	Column   string
	Count    int
	Mean     float64
	Median   float64
	Min      float64
	Max      float64
	Q1       float64
	Q3       float64
	IQR      float64
	Skew     float64
	Kurtosis float64 // excess kurtosis, 0 for a normal distribution
	Outliers int     // values beyond 1.5 IQR from the quartiles
}

// CategoryProfile describes the most common value of a text column.
type CategoryProfile struct {
	Column   string
	Top      string
	Count    int
	Share    float64 // percent of all rows, missing cells included
	Distinct int
}

// DistributionReport profiles the demographic, financial and categorical
// columns one at a time. Profiles of absent columns are nil or omitted.
type DistributionReport struct {
	Age          *NumericProfile
	Financials   []NumericProfile
	Nationality  *CategoryProfile
	Loyalty      *CategoryProfile
	FeeStructure *CategoryProfile
	Insights     []string
}

// DistributionColumns are the inputs of Distributions. Any subset is enough.
var DistributionColumns = append([]string{
	domain.ColAge,
	domain.ColNationality,
	domain.ColLoyaltyClassification,
	domain.ColFeeStructure,
}, domain.FinancialColumns...)

// Distributions profiles Age, Nationality, Loyalty Classification, the
// financial columns and Fee Structure, and renders an insight per profile.
// It reports false when none of those columns is usable.
func Distributions(ds dataset.Dataset) (DistributionReport, bool) {
	var rep DistributionReport
	rows := ds.Nrow()

	if vals, ok := numericColumn(ds, domain.ColAge); ok {
		if p, ok := profileNumeric(domain.ColAge, vals); ok {
			rep.Age = &p
			rep.Insights = append(rep.Insights, ageInsight(p))
		}
	}
	if p, ok := profileCategory(ds, domain.ColNationality, rows); ok {
		rep.Nationality = &p
		rep.Insights = append(rep.Insights, fmt.Sprintf(
			"Top nationality: %s (%.1f%% of dataset). Remaining customers show diversity across %d other nationalities. "+
				"Opportunities exist for targeted marketing to less-represented nationalities.",
			p.Top, p.Share, p.Distinct-1))
	}
	if p, ok := profileCategory(ds, domain.ColLoyaltyClassification, rows); ok {
		rep.Loyalty = &p
		rep.Insights = append(rep.Insights, fmt.Sprintf(
			"Dominant loyalty tier: %s (%.1f%%). Other tiers constitute %.1f%% of customers. "+
				"Potential to convert mid-tier customers to higher loyalty through targeted campaigns.",
			p.Top, p.Share, 100-p.Share))
	}
	for _, col := range domain.FinancialColumns {
		vals, ok := numericColumn(ds, col)
		if !ok {
			continue
		}
		if p, ok := profileNumeric(col, vals); ok {
			rep.Financials = append(rep.Financials, p)
			rep.Insights = append(rep.Insights, financialInsight(p))
		}
	}
	if p, ok := profileCategory(ds, domain.ColFeeStructure, rows); ok {
		rep.FeeStructure = &p
		rep.Insights = append(rep.Insights, fmt.Sprintf(
			"Most customers are on %s (%.1f%%). Other fee structures cover %.1f%% of customers. "+
				"Opportunities exist to upsell premium fee plans to low-tier customers.",
			p.Top, p.Share, 100-p.Share))
	}

	ok := rep.Age != nil || rep.Nationality != nil || rep.Loyalty != nil ||
		rep.FeeStructure != nil || len(rep.Financials) > 0
	return rep, ok
}

// profileNumeric reports false when vals holds no finite value. Skew needs
// three values and kurtosis four, both with a non-zero spread; otherwise
// they are NaN.
func profileNumeric(column string, vals []float64) (NumericProfile, bool) {
	sorted := sortedCopy(vals)
	if len(sorted) == 0 {
		return NumericProfile{}, false
	}
	p := NumericProfile{
		Column:   column,
		Count:    len(sorted),
		Mean:     stat.Mean(sorted, nil),
		Median:   quantile(sorted, 0.5),
		Min:      sorted[0],
		Max:      sorted[len(sorted)-1],
		Q1:       quantile(sorted, 0.25),
		Q3:       quantile(sorted, 0.75),
		Skew:     math.NaN(),
		Kurtosis: math.NaN(),
	}
	p.IQR = p.Q3 - p.Q1

	spread := p.Max > p.Min
	if spread && p.Count > 2 {
		p.Skew = stat.Skew(sorted, nil)
	}
	if spread && p.Count > 3 {
		p.Kurtosis = stat.ExKurtosis(sorted, nil)
	}

	lower, upper := p.Q1-1.5*p.IQR, p.Q3+1.5*p.IQR
	for _, v := range sorted {
		if v < lower || v > upper {
			p.Outliers++
		}
	}
	return p, true
}

// profileCategory finds the most frequent value of a column. Ties go to the
// value that sorts first. It reports false when the column is absent or
// every cell is missing.
func profileCategory(ds dataset.Dataset, column string, rows int) (CategoryProfile, bool) {
	vals, err := ds.Strings(column)
	if err != nil {
		return CategoryProfile{}, false
	}
	counts := map[string]int{}
	for _, v := range vals {
		if !dataset.IsMissingText(v) {
			counts[v]++
		}
	}
	if len(counts) == 0 || rows == 0 {
		return CategoryProfile{}, false
	}

	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Strings(values)
	top := values[0]
	for _, v := range values[1:] {
		if counts[v] > counts[top] {
			top = v
		}
	}
	return CategoryProfile{
		Column:   column,
		Top:      top,
		Count:    counts[top],
		Share:    float64(counts[top]) / float64(rows) * 100,
		Distinct: len(counts),
	}, true
}

func ageInsight(p NumericProfile) string {
	text := fmt.Sprintf("Customers are aged %s-%s. Mean: %.1f, Median: %.1f. Distribution is %s",
		dataset.FormatFloat(p.Min), dataset.FormatFloat(p.Max), p.Mean, p.Median, skewDirection(p.Skew))
	if math.IsNaN(p.Kurtosis) {
		return text + "."
	}
	tails := "light tails"
	if p.Kurtosis > 0 {
		tails = "heavy tails"
	}
	return fmt.Sprintf("%s with kurtosis %.2f, indicating %s.", text, p.Kurtosis, tails)
}

func financialInsight(p NumericProfile) string {
	text := fmt.Sprintf("%s: Mean=%s, Median=%s, Range=%s-%s, 25th-75th percentile=%s-%s.",
		p.Column, commas(p.Mean), commas(p.Median), commas(p.Min), commas(p.Max), commas(p.Q1), commas(p.Q3))
	if !math.IsNaN(p.Skew) {
		text += fmt.Sprintf(" Skew=%.2f (%s)", p.Skew, skewDirection(p.Skew))
		if !math.IsNaN(p.Kurtosis) {
			text += fmt.Sprintf(", Kurtosis=%.2f", p.Kurtosis)
		}
		text += "."
	}
	return fmt.Sprintf("%s Detected %d potential outliers.", text, p.Outliers)
}

// skewDirection names the side of the longer tail. NaN reads as symmetric.
func skewDirection(skew float64) string {
	switch {
	case skew > 0:
		return "right-skewed"
	case skew < 0:
		return "left-skewed"
	default:
		return "symmetric"
	}
}

// commas rounds v to a whole number with thousands separators.
func commas(v float64) string {
	r := math.RoundToEven(v)
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return humanize.Commaf(r)
}
