package services

import (
	"github.com/dustin/go-humanize"

	"bankdash/internal/analysis"
	"bankdash/internal/dataset"
	"bankdash/pkg/contracts/domain"
)

// datasetInfo converts store metadata to its response form.
func datasetInfo(d StoredDataset) domain.DatasetInfo {
	return domain.DatasetInfo{
		ID:         d.ID,
		Name:       d.Name,
		Format:     string(d.Format),
		Rows:       d.Data.Nrow(),
		Columns:    d.Data.Names(),
		SizeBytes:  d.SizeBytes,
		SizeHuman:  humanize.IBytes(uint64(d.SizeBytes)),
		UploadedAt: d.UploadedAt,
		Revision:   d.Revision,
	}
}

// preview renders the first n rows. Numeric cells are numbers and missing
// cells are nil.
func preview(ds dataset.Dataset, n int) domain.Preview {
	head := ds.Head(n)
	names := head.Names()

	columns := make([][]interface{}, len(names))
	for j, name := range names {
		kind, _ := head.Kind(name)
		col := make([]interface{}, head.Nrow())
		if kind == dataset.KindNumeric {
			vals, _ := head.Floats(name)
			for i, v := range vals {
				if f := domain.Float(v); f != nil {
					col[i] = *f
				}
			}
		} else {
			vals, _ := head.Strings(name)
			for i, v := range vals {
				if !dataset.IsMissingText(v) {
					col[i] = v
				}
			}
		}
		columns[j] = col
	}

	rows := make([][]interface{}, head.Nrow())
	for i := range rows {
		row := make([]interface{}, len(names))
		for j := range names {
			row[j] = columns[j][i]
		}
		rows[i] = row
	}

	return domain.Preview{Columns: names, Rows: rows, Total: ds.Nrow()}
}

func columnSummaries(s analysis.Summary) []domain.ColumnSummary {
	out := make([]domain.ColumnSummary, len(s.ColumnSummaries))
	for i, c := range s.ColumnSummaries {
		out[i] = domain.ColumnSummary{
			Name:   c.Name,
			Kind:   c.Kind.String(),
			Nulls:  c.Nulls,
			Unique: c.Unique,
		}
		if st := c.Stats; st != nil {
			out[i].Stats = &domain.NumericStats{
				Count:  st.Count,
				Mean:   domain.Float(st.Mean),
				Std:    domain.Float(st.Std),
				Min:    domain.Float(st.Min),
				Q1:     domain.Float(st.Q1),
				Median: domain.Float(st.Median),
				Q3:     domain.Float(st.Q3),
				Max:    domain.Float(st.Max),
				Skew:   domain.Float(st.Skew),
			}
		}
	}
	return out
}

func outlierReports(reports []analysis.OutlierReport) ([]domain.OutlierReport, int) {
	out := make([]domain.OutlierReport, len(reports))
	total := 0
	for i, r := range reports {
		out[i] = domain.OutlierReport{
			Column: r.Column,
			Q1:     domain.Float(r.Q1),
			Q3:     domain.Float(r.Q3),
			IQR:    domain.Float(r.IQR),
			Lower:  domain.Float(r.Lower),
			Upper:  domain.Float(r.Upper),
			Capped: r.Capped,
		}
		total += r.Capped
	}
	return out, total
}

func groupMean(g analysis.GroupMean) domain.GroupMean {
	return domain.GroupMean{
		Nationality: g.Nationality,
		Loyalty:     g.Loyalty,
		Mean:        domain.Float(g.Mean),
		Customers:   g.Customers,
	}
}

func geographyGroups(r analysis.GeographyReport) []domain.GroupMean {
	out := make([]domain.GroupMean, len(r.Groups))
	for i, g := range r.Groups {
		out[i] = groupMean(g)
	}
	return out
}

func loyaltyGap(g analysis.LoyaltyGap) *domain.LoyaltyGap {
	if g.Nationality == "" {
		return nil
	}
	return &domain.LoyaltyGap{Nationality: g.Nationality, Gap: domain.Float(g.Gap)}
}

func tierIncomes(r analysis.IncomeByLoyaltyReport) []domain.TierIncome {
	out := make([]domain.TierIncome, len(r.Tiers))
	for i, t := range r.Tiers {
		out[i] = domain.TierIncome{Tier: t.Tier, Median: domain.Float(t.Median), Customers: t.Customers}
	}
	return out
}

func correlationPairs(pairs []analysis.CorrelationPair) []domain.CorrelationPair {
	out := make([]domain.CorrelationPair, len(pairs))
	for i, p := range pairs {
		out[i] = domain.CorrelationPair{A: p.A, B: p.B, R: domain.Float(p.R)}
	}
	return out
}

func numericDistribution(p analysis.NumericProfile) domain.NumericDistribution {
	return domain.NumericDistribution{
		Column:   p.Column,
		Count:    p.Count,
		Mean:     domain.Float(p.Mean),
		Median:   domain.Float(p.Median),
		Min:      domain.Float(p.Min),
		Max:      domain.Float(p.Max),
		Q1:       domain.Float(p.Q1),
		Q3:       domain.Float(p.Q3),
		IQR:      domain.Float(p.IQR),
		Skew:     domain.Float(p.Skew),
		Kurtosis: domain.Float(p.Kurtosis),
		Outliers: p.Outliers,
	}
}

func categoryDistribution(p *analysis.CategoryProfile) *domain.CategoryDistribution {
	if p == nil {
		return nil
	}
	return &domain.CategoryDistribution{
		Column:   p.Column,
		Top:      p.Top,
		Count:    p.Count,
		Share:    p.Share,
		Distinct: p.Distinct,
	}
}
