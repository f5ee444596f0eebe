package dataset

import "bankdash/pkg/contracts/domain"

// Preprocess drops the surrogate identifier columns that carry no
// analytical signal. The other columns keep their order.
func Preprocess(d Dataset) Dataset {
	return d.Drop(domain.IdentifierColumns...)
}
