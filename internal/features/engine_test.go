package features

import (
	"bytes"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankdash/internal/dataset"
	"bankdash/pkg/contracts/domain"
)

var refDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func nan() float64 { return math.NaN() }

func build(t *testing.T, cols ...series.Series) dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(cols...)
	require.NoError(t, err)
	return ds
}

// customers is a four row dataset exercising every rule.
func customers(t *testing.T) dataset.Dataset {
	return build(t,
		dataset.TextColumn(domain.ColJoinedBank, []string{"01-01-2020", "2021-07-01", "15/06/2022", "bad"}),
		dataset.NumericColumn(domain.ColCheckingAccounts, []float64{1000, 0, 500, nan()}),
		dataset.NumericColumn(domain.ColSavingAccounts, []float64{2000, 0, 0, 100}),
		dataset.NumericColumn(domain.ColBankLoans, []float64{60000, 0, 2000, 500}),
		dataset.NumericColumn(domain.ColCreditCardBalance, []float64{500, 0, 0, 0}),
		dataset.NumericColumn(domain.ColEstimatedIncome, []float64{100000, 0, 250000, 450000}),
		dataset.NumericColumn(domain.ColBankDeposits, []float64{30000, 100, 4000, 10}),
		dataset.NumericColumn(domain.ColSuperannuationSavings, []float64{10000, 0, 5000, 0}),
		dataset.NumericColumn(domain.ColPropertiesOwned, []float64{1, 0, 2, 0}),
		dataset.NumericColumn(domain.ColAge, []float64{25, 26, 1000, nan()}),
	)
}

func mustFloats(t *testing.T, ds dataset.Dataset, name string) []float64 {
	t.Helper()
	vals, err := ds.Floats(name)
	require.NoError(t, err)
	return vals
}

func mustStrings(t *testing.T, ds dataset.Dataset, name string) []string {
	t.Helper()
	vals, err := ds.Strings(name)
	require.NoError(t, err)
	return vals
}

func TestDerive_FullDataset(t *testing.T) {
	in := customers(t)
	res := NewEngine(WithReferenceDate(refDate)).Derive(in)
	out := res.Dataset

	assert.Equal(t, []string{
		domain.ColCustomerTenure,
		domain.ColForeignCurrencyAccount,
		domain.ColTotalRelationshipBalance,
		domain.ColDebtToIncomeRatio,
		domain.ColDepositToLoanRatio,
		domain.ColWealthIndicator,
		domain.ColProductConcentration,
		domain.ColAgeXBalance,
		domain.ColAgeGroup,
		domain.ColIncomeGroup,
	}, res.NewColumns)
	assert.Empty(t, res.Skipped)
	assert.Len(t, res.Applied, len(Rules()))
	assert.Equal(t, refDate, res.ReferenceDate)

	assert.Equal(t, []string{"2020-01-01", "2021-07-01", "2022-06-15", dataset.MissingText},
		mustStrings(t, out, domain.ColJoinedBank))

	tenure := mustFloats(t, out, domain.ColCustomerTenure)
	assert.Equal(t, []float64{4.0, 2.5, 1.5}, tenure[:3])
	assert.True(t, math.IsNaN(tenure[3]))

	assert.Equal(t, []float64{3000, 0, 500, 100}, mustFloats(t, out, domain.ColTotalRelationshipBalance))
	assert.Equal(t, []float64{0, 0, 0, 0}, mustFloats(t, out, domain.ColForeignCurrencyAccount))

	dti := mustFloats(t, out, domain.ColDebtToIncomeRatio)
	assert.InDelta(t, 0.605, dti[0], 1e-12)
	assert.True(t, math.IsNaN(dti[1]), "zero income is missing")
	assert.InDelta(t, 0.008, dti[2], 1e-12)

	dtl := mustFloats(t, out, domain.ColDepositToLoanRatio)
	assert.InDelta(t, 0.5, dtl[0], 1e-12)
	assert.True(t, math.IsNaN(dtl[1]), "zero loans is missing")
	assert.InDelta(t, 2.0, dtl[2], 1e-12)
	assert.InDelta(t, 0.02, dtl[3], 1e-12)

	assert.Equal(t, []float64{513000, 0, 1005500, 100}, mustFloats(t, out, domain.ColWealthIndicator))
	assert.Equal(t, []float64{5, 1, 3, 3}, mustFloats(t, out, domain.ColProductConcentration))

	axb := mustFloats(t, out, domain.ColAgeXBalance)
	assert.Equal(t, []float64{75000, 0, 500000}, axb[:3])
	assert.True(t, math.IsNaN(axb[3]))

	assert.Equal(t, []string{"Gen Z", "Millennial", "Silent Generation", dataset.MissingText},
		mustStrings(t, out, domain.ColAgeGroup))
	assert.Equal(t, []string{"Low Net Worth", "Low Net Worth", "Medium Net Worth", "Premium Customers"},
		mustStrings(t, out, domain.ColIncomeGroup))

	assert.Equal(t, []string{
		"The average Customer Tenure is 2.7 years.",
		"About 25.0% of customers have a Debt-to-Income Ratio above 0.5, indicating higher financial risk.",
		"The average Deposit-to-Loan Ratio is 0.84, showing overall liquidity strength.",
		"The wealthiest customer has a Wealth Indicator of 1,005,500.",
		"On average, customers hold 3.0 products with the bank.",
		"The most common Age Group is Gen Z.",
		"The majority of customers fall under the Low Net Worth segment.",
	}, res.InsightTexts())

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "1 of 4")
}

func TestDerive_InputUnchanged(t *testing.T) {
	in := customers(t)
	names := in.Names()
	joined := mustStrings(t, in, domain.ColJoinedBank)

	_ = NewEngine(WithReferenceDate(refDate)).Derive(in)

	assert.Equal(t, names, in.Names())
	assert.Equal(t, joined, mustStrings(t, in, domain.ColJoinedBank))
}

func TestDerive_SkipsRulesWithMissingInputs(t *testing.T) {
	tests := []struct {
		name    string
		cols    []series.Series
		absent  []string
		skipped []string
	}{
		{
			name:    "no inputs",
			cols:    []series.Series{dataset.TextColumn("Name", []string{"a", "b"})},
			absent:  []string{domain.ColCustomerTenure, domain.ColDebtToIncomeRatio, domain.ColDepositToLoanRatio, domain.ColWealthIndicator, domain.ColAgeXBalance, domain.ColAgeGroup, domain.ColIncomeGroup},
			skipped: []string{"customer_tenure", "debt_to_income", "deposit_to_loan", "wealth_indicator", "age_x_balance", "age_group", "income_group"},
		},
		{
			name: "debt to income needs all three inputs",
			cols: []series.Series{
				dataset.NumericColumn(domain.ColBankLoans, []float64{1, 2}),
				dataset.NumericColumn(domain.ColEstimatedIncome, []float64{10, 20}),
			},
			absent:  []string{domain.ColDebtToIncomeRatio, domain.ColDepositToLoanRatio},
			skipped: []string{"customer_tenure", "debt_to_income", "deposit_to_loan", "wealth_indicator", "age_x_balance", "age_group"},
		},
		{
			name: "wealth needs properties",
			cols: []series.Series{
				dataset.NumericColumn(domain.ColSuperannuationSavings, []float64{1, 2}),
				dataset.NumericColumn(domain.ColAge, []float64{30, 40}),
			},
			absent:  []string{domain.ColWealthIndicator, domain.ColIncomeGroup},
			skipped: []string{"customer_tenure", "debt_to_income", "deposit_to_loan", "wealth_indicator", "income_group"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewEngine(WithReferenceDate(refDate)).Derive(build(t, tt.cols...))
			for _, col := range tt.absent {
				assert.False(t, res.Dataset.Has(col), "%s must not appear", col)
				assert.NotContains(t, res.NewColumns, col)
			}
			assert.Equal(t, tt.skipped, res.Skipped)
			assert.True(t, res.Dataset.Has(domain.ColTotalRelationshipBalance))
			assert.True(t, res.Dataset.Has(domain.ColProductConcentration))
		})
	}
}

func TestDerive_TotalRelationshipBalanceAlwaysPresent(t *testing.T) {
	tests := []struct {
		name string
		cols []series.Series
		want []float64
	}{
		{
			name: "all components",
			cols: []series.Series{
				dataset.NumericColumn(domain.ColCheckingAccounts, []float64{1, 2}),
				dataset.NumericColumn(domain.ColSavingAccounts, []float64{10, 20}),
				dataset.NumericColumn(domain.ColForeignCurrencyAccount, []float64{100, 200}),
			},
			want: []float64{111, 222},
		},
		{
			name: "savings only",
			cols: []series.Series{dataset.NumericColumn(domain.ColSavingAccounts, []float64{5, 7})},
			want: []float64{5, 7},
		},
		{
			name: "no components",
			cols: []series.Series{dataset.TextColumn("Name", []string{"a", "b"})},
			want: []float64{0, 0},
		},
		{
			name: "missing cell counts as zero",
			cols: []series.Series{
				dataset.NumericColumn(domain.ColCheckingAccounts, []float64{nan(), 3}),
				dataset.NumericColumn(domain.ColSavingAccounts, []float64{4, nan()}),
			},
			want: []float64{4, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewEngine(WithReferenceDate(refDate)).Derive(build(t, tt.cols...))
			assert.Equal(t, tt.want, mustFloats(t, res.Dataset, domain.ColTotalRelationshipBalance))
			assert.Contains(t, res.NewColumns, domain.ColTotalRelationshipBalance)
			for _, c := range domain.BalanceColumns {
				assert.True(t, res.Dataset.Has(c))
			}
		})
	}
}

func TestDerive_ProductConcentrationBounded(t *testing.T) {
	ds := build(t,
		dataset.NumericColumn(domain.ColCheckingAccounts, []float64{1, 0, -5, 9}),
		dataset.NumericColumn(domain.ColBankLoans, []float64{1, 0, nan(), 9}),
		dataset.NumericColumn(domain.ColBankDeposits, []float64{1, 0, 3, 9}),
	)
	res := NewEngine(WithReferenceDate(refDate)).Derive(ds)

	got := mustFloats(t, res.Dataset, domain.ColProductConcentration)
	assert.Equal(t, []float64{3, 0, 1, 3}, got)
	for _, v := range got {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 3.0)
	}
}

func TestDerive_DebtToIncomeMissingWhereIncomeZero(t *testing.T) {
	ds := build(t,
		dataset.NumericColumn(domain.ColBankLoans, []float64{100, 0, 50}),
		dataset.NumericColumn(domain.ColCreditCardBalance, []float64{0, 0, 50}),
		dataset.NumericColumn(domain.ColEstimatedIncome, []float64{0, 0, 200}),
	)
	res := NewEngine(WithReferenceDate(refDate)).Derive(ds)

	dti := mustFloats(t, res.Dataset, domain.ColDebtToIncomeRatio)
	assert.True(t, math.IsNaN(dti[0]))
	assert.True(t, math.IsNaN(dti[1]))
	assert.Equal(t, 0.5, dti[2])
	for _, v := range dti {
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestDerive_AgeGroupBoundaries(t *testing.T) {
	ages := []float64{0, 25, 26, 40, 40.5, 60, 75, 76, 1000, -1, nan()}
	want := []string{
		"Gen Z", "Gen Z", "Millennial", "Millennial", "Gen X", "Gen X",
		"Baby Boomer", "Silent Generation", "Silent Generation",
		dataset.MissingText, dataset.MissingText,
	}
	res := NewEngine(WithReferenceDate(refDate)).Derive(build(t, dataset.NumericColumn(domain.ColAge, ages)))
	assert.Equal(t, want, mustStrings(t, res.Dataset, domain.ColAgeGroup))
}

func TestDerive_IncomeGroupBoundaries(t *testing.T) {
	income := []float64{0, 200000, 200001, 300000, 300001, 400000, 400001}
	want := []string{
		"Low Net Worth", "Low Net Worth", "Medium Net Worth", "Medium Net Worth",
		"High Net Worth", "High Net Worth", "Premium Customers",
	}
	res := NewEngine(WithReferenceDate(refDate)).Derive(build(t, dataset.NumericColumn(domain.ColEstimatedIncome, income)))
	assert.Equal(t, want, mustStrings(t, res.Dataset, domain.ColIncomeGroup))
}

func TestDerive_IncomeGroupMode(t *testing.T) {
	ds := build(t, dataset.NumericColumn(domain.ColEstimatedIncome, []float64{100, 200, 300, 1_000_000}))
	res := NewEngine(WithReferenceDate(refDate)).Derive(ds)
	assert.Contains(t, res.InsightTexts(), "The majority of customers fall under the Low Net Worth segment.")
}

func TestDerive_ModeTieGoesToLowestBin(t *testing.T) {
	ds := build(t, dataset.NumericColumn(domain.ColAge, []float64{80, 30, 80, 30}))
	res := NewEngine(WithReferenceDate(refDate)).Derive(ds)
	assert.Contains(t, res.InsightTexts(), "The most common Age Group is Millennial.")
}

func TestDerive_WealthInsightBeyondInt64(t *testing.T) {
	ds := build(t,
		dataset.NumericColumn(domain.ColSuperannuationSavings, []float64{1e20, 5}),
		dataset.NumericColumn(domain.ColPropertiesOwned, []float64{0, 0}),
	)
	res := NewEngine(WithReferenceDate(refDate)).Derive(ds)
	assert.Contains(t, res.InsightTexts(), "The wealthiest customer has a Wealth Indicator of 100,000,000,000,000,000,000.")
}

func TestDerive_NewColumnsExcludeCollisions(t *testing.T) {
	ds := build(t,
		dataset.NumericColumn(domain.ColAge, []float64{30, 50}),
		dataset.TextColumn(domain.ColAgeGroup, []string{"sentinel", "sentinel"}),
	)
	res := NewEngine(WithReferenceDate(refDate)).Derive(ds)

	assert.Equal(t, []string{"Millennial", "Gen X"}, mustStrings(t, res.Dataset, domain.ColAgeGroup), "value is overwritten")
	assert.NotContains(t, res.NewColumns, domain.ColAgeGroup)
	for _, in := range res.Insights {
		assert.NotEqual(t, domain.ColAgeGroup, in.Column)
	}

	inputs := map[string]bool{}
	for _, n := range ds.Names() {
		inputs[n] = true
	}
	var want []string
	for _, n := range res.Dataset.Names() {
		if !inputs[n] {
			want = append(want, n)
		}
	}
	assert.Equal(t, want, res.NewColumns)
}

func TestDerive_InsightCountMatchesEligibleColumns(t *testing.T) {
	eligible := map[string]bool{}
	for _, entry := range insightCatalogue {
		eligible[entry.column] = true
	}

	inputs := []dataset.Dataset{
		customers(t),
		build(t, dataset.TextColumn("Name", []string{"a"})),
		build(t, dataset.NumericColumn(domain.ColAge, []float64{nan()})),
		build(t,
			dataset.TextColumn(domain.ColJoinedBank, []string{"garbage"}),
			dataset.NumericColumn(domain.ColEstimatedIncome, []float64{1}),
		),
	}
	for i, ds := range inputs {
		res := NewEngine(WithReferenceDate(refDate)).Derive(ds)
		want := 0
		for _, c := range res.NewColumns {
			if eligible[c] {
				want++
			}
		}
		assert.Len(t, res.Insights, want, "dataset %d", i)
		assert.LessOrEqual(t, len(res.Insights), len(insightCatalogue))
	}
}

func TestDerive_EmptyStatisticsRenderNotAvailable(t *testing.T) {
	ds := build(t,
		dataset.TextColumn(domain.ColJoinedBank, []string{"garbage"}),
		dataset.NumericColumn(domain.ColAge, []float64{nan()}),
	)
	res := NewEngine(WithReferenceDate(refDate)).Derive(ds)

	assert.Contains(t, res.InsightTexts(), "The average Customer Tenure is n/a years.")
	assert.Contains(t, res.InsightTexts(), "The most common Age Group is n/a.")
}

func TestDerive_TenureFromDayMonthYear(t *testing.T) {
	ds := build(t, dataset.TextColumn(domain.ColJoinedBank, []string{"01-01-2020"}))
	res := NewEngine(WithReferenceDate(refDate)).Derive(ds)
	assert.InDelta(t, 4.0, mustFloats(t, res.Dataset, domain.ColCustomerTenure)[0], 1e-9)
}

func TestDerive_ClockDrivesReferenceDate(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 1, 1, 18, 30, 0, 0, time.UTC) }
	ds := build(t, dataset.TextColumn(domain.ColJoinedBank, []string{"2024-01-01"}))

	res := NewEngine(WithClock(clock)).Derive(ds)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), res.ReferenceDate)
	assert.Equal(t, 1.0, mustFloats(t, res.Dataset, domain.ColCustomerTenure)[0])
}

func TestDerive_LogsSkippedRules(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewEngine(WithReferenceDate(refDate), WithLogger(logger)).
		Derive(build(t, dataset.TextColumn("Name", []string{"a"})))

	assert.Contains(t, buf.String(), `"msg":"rule skipped"`)
	assert.Contains(t, buf.String(), `"rule":"customer_tenure"`)
	assert.Contains(t, buf.String(), `"component":"feature_engine"`)
}

func TestDeriveHelper(t *testing.T) {
	res := Derive(customers(t), refDate)
	assert.Len(t, res.Insights, 7)
}
