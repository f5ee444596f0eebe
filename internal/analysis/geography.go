package analysis

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"bankdash/internal/dataset"
	"bankdash/pkg/contracts/domain"
)

// GroupMean is the average deposit of one nationality and loyalty tier.
type GroupMean struct {
	Nationality string
	Loyalty     string
	Mean        float64
	Customers   int
}

// LoyaltyGap is the spread between the best and worst loyalty tier of a
// nationality.
type LoyaltyGap struct {
	Nationality string
	Gap         float64
}

// GeographyReport aggregates bank deposits by nationality and loyalty tier.
type GeographyReport struct {
	Groups       []GroupMean
	Highest      GroupMean
	Lowest       GroupMean
	OverallMean  float64
	WidestGap    LoyaltyGap
	NarrowestGap LoyaltyGap
	Insights     []string
}

// DepositsByGeography computes mean deposits per (nationality, loyalty)
// pair, sorted by nationality then loyalty. Rows with a missing key or
// deposit are ignored. It reports false when a required column is absent.
func DepositsByGeography(ds dataset.Dataset) (GeographyReport, bool) {
	if !ds.HasAll(domain.ColNationality, domain.ColBankDeposits, domain.ColLoyaltyClassification) {
		return GeographyReport{}, false
	}
	nat, _ := ds.Strings(domain.ColNationality)
	loy, _ := ds.Strings(domain.ColLoyaltyClassification)
	dep, _ := ds.Floats(domain.ColBankDeposits)

	type key struct{ nat, loy string }
	sums := map[key][]float64{}
	for i := range dep {
		if dataset.IsMissingText(nat[i]) || dataset.IsMissingText(loy[i]) {
			continue
		}
		k := key{nat[i], loy[i]}
		sums[k] = append(sums[k], dep[i])
	}

	var rep GeographyReport
	for k, vals := range sums {
		vals = finite(vals)
		if len(vals) == 0 {
			continue
		}
		rep.Groups = append(rep.Groups, GroupMean{
			Nationality: k.nat,
			Loyalty:     k.loy,
			Mean:        stat.Mean(vals, nil),
			Customers:   len(vals),
		})
	}
	sort.Slice(rep.Groups, func(i, j int) bool {
		if rep.Groups[i].Nationality != rep.Groups[j].Nationality {
			return rep.Groups[i].Nationality < rep.Groups[j].Nationality
		}
		return rep.Groups[i].Loyalty < rep.Groups[j].Loyalty
	})
	if len(rep.Groups) == 0 {
		return rep, true
	}

	rep.Highest, rep.Lowest = rep.Groups[0], rep.Groups[0]
	for _, g := range rep.Groups[1:] {
		if g.Mean > rep.Highest.Mean {
			rep.Highest = g
		}
		if g.Mean < rep.Lowest.Mean {
			rep.Lowest = g
		}
	}
	rep.OverallMean = stat.Mean(finite(dep), nil)

	gaps := loyaltyGaps(rep.Groups)
	rep.WidestGap, rep.NarrowestGap = gaps[0], gaps[0]
	for _, g := range gaps[1:] {
		if g.Gap > rep.WidestGap.Gap {
			rep.WidestGap = g
		}
		if g.Gap < rep.NarrowestGap.Gap {
			rep.NarrowestGap = g
		}
	}

	rep.Insights = []string{
		fmt.Sprintf("Highest average deposit: %s - %s with %.2f.", rep.Highest.Nationality, rep.Highest.Loyalty, rep.Highest.Mean),
		fmt.Sprintf("Lowest average deposit: %s - %s with %.2f.", rep.Lowest.Nationality, rep.Lowest.Loyalty, rep.Lowest.Mean),
		fmt.Sprintf("Overall average deposit: %.2f.", rep.OverallMean),
		fmt.Sprintf("Widest gap: %s shows the largest difference between loyalty tiers (%.2f).", rep.WidestGap.Nationality, rep.WidestGap.Gap),
		fmt.Sprintf("Most consistent: %s has the smallest gap between loyalty tiers (%.2f).", rep.NarrowestGap.Nationality, rep.NarrowestGap.Gap),
	}
	return rep, true
}

// loyaltyGaps returns max-min of the tier means per nationality. groups must
// be sorted by nationality.
func loyaltyGaps(groups []GroupMean) []LoyaltyGap {
	var gaps []LoyaltyGap
	for i := 0; i < len(groups); {
		j := i
		lo, hi := groups[i].Mean, groups[i].Mean
		for j < len(groups) && groups[j].Nationality == groups[i].Nationality {
			if groups[j].Mean < lo {
				lo = groups[j].Mean
			}
			if groups[j].Mean > hi {
				hi = groups[j].Mean
			}
			j++
		}
		gaps = append(gaps, LoyaltyGap{Nationality: groups[i].Nationality, Gap: hi - lo})
		i = j
	}
	return gaps
}
