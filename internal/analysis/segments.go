package analysis

import (
	"fmt"
	"sort"

	"bankdash/internal/dataset"
	"bankdash/pkg/contracts/domain"
)

// TierIncome is the median income of one loyalty tier.
type TierIncome struct {
	Tier      string
	Median    float64
	Customers int
}

// IncomeByLoyaltyReport compares estimated income across loyalty tiers.
type IncomeByLoyaltyReport struct {
	Tiers   []TierIncome
	Highest string
	Lowest  string
	Insight string
}

// IncomeByLoyalty computes the median estimated income per loyalty tier,
// sorted by tier name. It reports false when a required column is absent.
func IncomeByLoyalty(ds dataset.Dataset) (IncomeByLoyaltyReport, bool) {
	if !ds.HasAll(domain.ColLoyaltyClassification, domain.ColEstimatedIncome) {
		return IncomeByLoyaltyReport{}, false
	}
	tiers, _ := ds.Strings(domain.ColLoyaltyClassification)
	income, _ := ds.Floats(domain.ColEstimatedIncome)

	byTier := map[string][]float64{}
	for i, t := range tiers {
		if dataset.IsMissingText(t) {
			continue
		}
		byTier[t] = append(byTier[t], income[i])
	}

	var rep IncomeByLoyaltyReport
	for t, vals := range byTier {
		sorted := sortedCopy(vals)
		if len(sorted) == 0 {
			continue
		}
		rep.Tiers = append(rep.Tiers, TierIncome{Tier: t, Median: quantile(sorted, 0.5), Customers: len(sorted)})
	}
	sort.Slice(rep.Tiers, func(i, j int) bool { return rep.Tiers[i].Tier < rep.Tiers[j].Tier })
	if len(rep.Tiers) == 0 {
		return rep, true
	}

	hi, lo := rep.Tiers[0], rep.Tiers[0]
	for _, t := range rep.Tiers[1:] {
		if t.Median > hi.Median {
			hi = t
		}
		if t.Median < lo.Median {
			lo = t
		}
	}
	rep.Highest, rep.Lowest = hi.Tier, lo.Tier
	rep.Insight = fmt.Sprintf("Median income is highest for %s and lowest for %s.", hi.Tier, lo.Tier)
	return rep, true
}
