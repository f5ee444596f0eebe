package features

import (
	"math"
	"time"

	"bankdash/internal/dataset"
	"bankdash/pkg/contracts/domain"
)

// PropertyValue is the assumed value of one owned property.
const PropertyValue = 500000

// Env carries the inputs a rule needs beyond the dataset itself.
type Env struct {
	// Today is the reference date tenure is measured against.
	Today time.Time
}

// Rule derives columns from a dataset. Apply is only called when every
// column in Requires is present, and must not modify its input.
type Rule struct {
	Name     string
	Requires []string
	Outputs  []string
	Apply    func(ds dataset.Dataset, env Env) dataset.Dataset
}

// Rules returns the derivation catalogue in application order.
func Rules() []Rule {
	return []Rule{
		{
			Name:     "customer_tenure",
			Requires: []string{domain.ColJoinedBank},
			Outputs:  []string{domain.ColJoinedBank, domain.ColCustomerTenure},
			Apply:    customerTenure,
		},
		{
			Name:    "total_relationship_balance",
			Outputs: append(append([]string{}, domain.BalanceColumns...), domain.ColTotalRelationshipBalance),
			Apply:   totalRelationshipBalance,
		},
		{
			Name:     "debt_to_income",
			Requires: []string{domain.ColBankLoans, domain.ColCreditCardBalance, domain.ColEstimatedIncome},
			Outputs:  []string{domain.ColDebtToIncomeRatio},
			Apply:    debtToIncome,
		},
		{
			Name:     "deposit_to_loan",
			Requires: []string{domain.ColBankDeposits, domain.ColBankLoans},
			Outputs:  []string{domain.ColDepositToLoanRatio},
			Apply:    depositToLoan,
		},
		{
			Name:     "wealth_indicator",
			Requires: []string{domain.ColSuperannuationSavings, domain.ColPropertiesOwned, domain.ColTotalRelationshipBalance},
			Outputs:  []string{domain.ColWealthIndicator},
			Apply:    wealthIndicator,
		},
		{
			Name:    "product_concentration",
			Outputs: []string{domain.ColProductConcentration},
			Apply:   productConcentration,
		},
		{
			Name:     "age_x_balance",
			Requires: []string{domain.ColAge, domain.ColTotalRelationshipBalance},
			Outputs:  []string{domain.ColAgeXBalance},
			Apply:    ageXBalance,
		},
		{
			Name:     "age_group",
			Requires: []string{domain.ColAge},
			Outputs:  []string{domain.ColAgeGroup},
			Apply:    binRule(domain.ColAge, domain.ColAgeGroup, ageBins),
		},
		{
			Name:     "income_group",
			Requires: []string{domain.ColEstimatedIncome},
			Outputs:  []string{domain.ColIncomeGroup},
			Apply:    binRule(domain.ColEstimatedIncome, domain.ColIncomeGroup, incomeBins),
		},
	}
}

// requiredFloats reads a column the rule requires. Requires guarantees presence.
func requiredFloats(ds dataset.Dataset, name string) []float64 {
	vals, err := ds.Floats(name)
	if err != nil {
		return nanSlice(ds.Nrow())
	}
	return vals
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func customerTenure(ds dataset.Dataset, env Env) dataset.Dataset {
	raw, err := ds.Strings(domain.ColJoinedBank)
	if err != nil {
		return ds
	}
	joined := make([]string, len(raw))
	tenure := make([]float64, len(raw))
	for i, v := range raw {
		t, ok := parseJoinDate(v)
		if !ok || dataset.IsMissingText(v) {
			joined[i] = dataset.MissingText
			tenure[i] = math.NaN()
			continue
		}
		joined[i] = t.Format(isoDate)
		tenure[i] = tenureYears(daysBetween(t, env.Today))
	}
	return ds.
		WithStrings(domain.ColJoinedBank, joined).
		WithFloats(domain.ColCustomerTenure, tenure)
}

func totalRelationshipBalance(ds dataset.Dataset, _ Env) dataset.Dataset {
	total := make([]float64, ds.Nrow())
	for _, col := range domain.BalanceColumns {
		if !ds.Has(col) {
			ds = ds.WithFloats(col, make([]float64, ds.Nrow()))
		}
		for i, v := range ds.FloatsOrZero(col) {
			total[i] += v
		}
	}
	return ds.WithFloats(domain.ColTotalRelationshipBalance, total)
}

func debtToIncome(ds dataset.Dataset, _ Env) dataset.Dataset {
	loans := requiredFloats(ds, domain.ColBankLoans)
	cards := requiredFloats(ds, domain.ColCreditCardBalance)
	income := requiredFloats(ds, domain.ColEstimatedIncome)
	out := make([]float64, len(income))
	for i := range out {
		out[i] = safeDiv(loans[i]+cards[i], income[i])
	}
	return ds.WithFloats(domain.ColDebtToIncomeRatio, out)
}

func depositToLoan(ds dataset.Dataset, _ Env) dataset.Dataset {
	deposits := requiredFloats(ds, domain.ColBankDeposits)
	loans := requiredFloats(ds, domain.ColBankLoans)
	out := make([]float64, len(loans))
	for i := range out {
		out[i] = safeDiv(deposits[i], loans[i])
	}
	return ds.WithFloats(domain.ColDepositToLoanRatio, out)
}

func wealthIndicator(ds dataset.Dataset, _ Env) dataset.Dataset {
	trb := requiredFloats(ds, domain.ColTotalRelationshipBalance)
	pension := requiredFloats(ds, domain.ColSuperannuationSavings)
	props := requiredFloats(ds, domain.ColPropertiesOwned)
	out := make([]float64, len(trb))
	for i := range out {
		out[i] = trb[i] + pension[i] + props[i]*PropertyValue
	}
	return ds.WithFloats(domain.ColWealthIndicator, out)
}

func productConcentration(ds dataset.Dataset, _ Env) dataset.Dataset {
	count := make([]float64, ds.Nrow())
	for _, col := range domain.ProductColumns {
		if !ds.Has(col) {
			continue
		}
		for i, v := range requiredFloats(ds, col) {
			if v > 0 {
				count[i]++
			}
		}
	}
	return ds.WithFloats(domain.ColProductConcentration, count)
}

func ageXBalance(ds dataset.Dataset, _ Env) dataset.Dataset {
	age := requiredFloats(ds, domain.ColAge)
	trb := requiredFloats(ds, domain.ColTotalRelationshipBalance)
	out := make([]float64, len(age))
	for i := range out {
		out[i] = age[i] * trb[i]
	}
	return ds.WithFloats(domain.ColAgeXBalance, out)
}

func binRule(src, dst string, bins []bin) func(dataset.Dataset, Env) dataset.Dataset {
	return func(ds dataset.Dataset, _ Env) dataset.Dataset {
		vals := requiredFloats(ds, src)
		out := make([]string, len(vals))
		for i, v := range vals {
			label, ok := assign(bins, v)
			if !ok {
				label = dataset.MissingText
			}
			out[i] = label
		}
		return ds.WithStrings(dst, out)
	}
}

// safeDiv divides, mapping zero denominators and non-finite results to NaN.
func safeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) {
		return math.NaN()
	}
	q := num / den
	if math.IsInf(q, 0) {
		return math.NaN()
	}
	return q
}
