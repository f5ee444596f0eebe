package features

import "math"

// bin is a right-closed interval (previous upper, upper] with a label. The
// first bin of a table also includes zero.
type bin struct {
	upper float64
	label string
}

var ageBins = []bin{
	{25, "Gen Z"},
	{40, "Millennial"},
	{60, "Gen X"},
	{75, "Baby Boomer"},
	{math.Inf(1), "Silent Generation"},
}

var incomeBins = []bin{
	{200000, "Low Net Worth"},
	{300000, "Medium Net Worth"},
	{400000, "High Net Worth"},
	{math.Inf(1), "Premium Customers"},
}

// AgeGroups returns the age group labels in bin order.
func AgeGroups() []string { return labels(ageBins) }

// IncomeGroups returns the income group labels in bin order.
func IncomeGroups() []string { return labels(incomeBins) }

func labels(bins []bin) []string {
	out := make([]string, len(bins))
	for i, b := range bins {
		out[i] = b.label
	}
	return out
}

// assign returns the label of the bin holding v. Negative and NaN values
// fall outside every bin.
func assign(bins []bin, v float64) (string, bool) {
	if math.IsNaN(v) || v < 0 {
		return "", false
	}
	for _, b := range bins {
		if v <= b.upper {
			return b.label, true
		}
	}
	return "", false
}
