package domain

import (
	"math"
	"time"
)

// DatasetInfo describes a stored dataset
type DatasetInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Format     string    `json:"format"`
	Rows       int       `json:"rows"`
	Columns    []string  `json:"columns"`
	SizeBytes  int64     `json:"size_bytes"`
	SizeHuman  string    `json:"size_human"`
	UploadedAt time.Time `json:"uploaded_at"`
	// Revision increases every time an operation replaces the stored data.
	Revision int `json:"revision"`
}

// DatasetList is the response of the dataset listing endpoint
type DatasetList struct {
	Datasets []DatasetInfo `json:"datasets"`
	Count    int           `json:"count"`
	Capacity int           `json:"capacity"`
}

// Preview is a bounded slice of dataset rows. Missing cells are null.
type Preview struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
	Total   int             `json:"total_rows"`
}

// NumericStats mirrors descriptive statistics of a numeric column.
// Undefined values (for example the deviation of a single value) are null.
type NumericStats struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q1     *float64 `json:"q1"`
	Median *float64 `json:"median"`
	Q3     *float64 `json:"q3"`
	Max    *float64 `json:"max"`
	Skew   *float64 `json:"skew"`
}

// ColumnSummary describes one column of a dataset
type ColumnSummary struct {
	Name   string        `json:"name"`
	Kind   string        `json:"kind"`
	Nulls  int           `json:"nulls"`
	Unique int           `json:"unique"`
	Stats  *NumericStats `json:"stats,omitempty"`
}

// DatasetOverview is the response of the dataset detail endpoint
type DatasetOverview struct {
	Dataset        DatasetInfo     `json:"dataset"`
	NumericColumns int             `json:"numeric_columns"`
	TextColumns    int             `json:"text_columns"`
	Columns        []ColumnSummary `json:"column_summaries"`
	Preview        Preview         `json:"preview"`
}

// OutlierReport describes the capping of one column
type OutlierReport struct {
	Column string   `json:"column"`
	Q1     *float64 `json:"q1"`
	Q3     *float64 `json:"q3"`
	IQR    *float64 `json:"iqr"`
	Lower  *float64 `json:"lower_fence"`
	Upper  *float64 `json:"upper_fence"`
	Capped int      `json:"capped"`
}

// OutlierResponse is returned after outliers were capped in place
type OutlierResponse struct {
	Dataset     DatasetInfo     `json:"dataset"`
	Reports     []OutlierReport `json:"reports"`
	Skipped     []string        `json:"skipped,omitempty"`
	TotalCapped int             `json:"total_capped"`
}

// Insight is a sentence summarising one derived column
type Insight struct {
	Column string `json:"column"`
	Text   string `json:"text"`
}

// FeaturesResponse is the outcome of a derivation run. The augmented data
// replaces the stored dataset.
type FeaturesResponse struct {
	Dataset       DatasetInfo `json:"dataset"`
	NewColumns    []string    `json:"new_columns"`
	Insights      []Insight   `json:"insights"`
	AppliedRules  []string    `json:"applied_rules"`
	SkippedRules  []string    `json:"skipped_rules"`
	Warnings      []string    `json:"warnings,omitempty"`
	ReferenceDate string      `json:"reference_date"`
	Preview       Preview     `json:"preview"`
}

// GroupMean is the average deposit of one nationality and loyalty tier
type GroupMean struct {
	Nationality string   `json:"nationality"`
	Loyalty     string   `json:"loyalty"`
	Mean        *float64 `json:"mean_deposit"`
	Customers   int      `json:"customers"`
}

// LoyaltyGap is the deposit spread across tiers of one nationality
type LoyaltyGap struct {
	Nationality string   `json:"nationality"`
	Gap         *float64 `json:"gap"`
}

// TierIncome is the median income of a loyalty tier
type TierIncome struct {
	Tier      string   `json:"tier"`
	Median    *float64 `json:"median_income"`
	Customers int      `json:"customers"`
}

// GeographyResponse aggregates deposits by nationality and loyalty, and
// income by loyalty when the columns exist.
type GeographyResponse struct {
	DatasetID    string       `json:"dataset_id"`
	Groups       []GroupMean  `json:"groups"`
	Highest      *GroupMean   `json:"highest,omitempty"`
	Lowest       *GroupMean   `json:"lowest,omitempty"`
	OverallMean  *float64     `json:"overall_mean"`
	WidestGap    *LoyaltyGap  `json:"widest_gap,omitempty"`
	NarrowestGap *LoyaltyGap  `json:"narrowest_gap,omitempty"`
	IncomeTiers  []TierIncome `json:"income_tiers,omitempty"`
	Insights     []string     `json:"insights"`
}

// NumericDistribution profiles one numeric column. Kurtosis is excess
// kurtosis; skew and kurtosis are null when too few distinct values exist.
type NumericDistribution struct {
	Column   string   `json:"column"`
	Count    int      `json:"count"`
	Mean     *float64 `json:"mean"`
	Median   *float64 `json:"median"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Q1       *float64 `json:"q1"`
	Q3       *float64 `json:"q3"`
	IQR      *float64 `json:"iqr"`
	Skew     *float64 `json:"skew"`
	Kurtosis *float64 `json:"kurtosis"`
	Outliers int      `json:"outliers"`
}

// CategoryDistribution is the most common value of a categorical column
type CategoryDistribution struct {
	Column   string  `json:"column"`
	Top      string  `json:"top"`
	Count    int     `json:"count"`
	Share    float64 `json:"share_pct"`
	Distinct int     `json:"distinct"`
}

// DistributionResponse profiles demographic, financial and categorical
// columns one at a time.
type DistributionResponse struct {
	DatasetID    string                `json:"dataset_id"`
	Age          *NumericDistribution  `json:"age,omitempty"`
	Financials   []NumericDistribution `json:"financials"`
	Nationality  *CategoryDistribution `json:"nationality,omitempty"`
	Loyalty      *CategoryDistribution `json:"loyalty,omitempty"`
	FeeStructure *CategoryDistribution `json:"fee_structure,omitempty"`
	Insights     []string              `json:"insights"`
}

// CorrelationPair is one off-diagonal matrix entry
type CorrelationPair struct {
	A string   `json:"a"`
	B string   `json:"b"`
	R *float64 `json:"r"`
}

// CorrelationResponse carries the full matrix and its strongest pairs
type CorrelationResponse struct {
	DatasetID string            `json:"dataset_id"`
	Columns   []string          `json:"columns"`
	Matrix    [][]*float64      `json:"matrix"`
	TopPairs  []CorrelationPair `json:"top_pairs"`
	Insights  []string          `json:"insights"`
}

// Float converts a float to a JSON-safe pointer. NaN and infinities
// become nil.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Floats converts a slice with Float.
func Floats(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = Float(v)
	}
	return out
}
