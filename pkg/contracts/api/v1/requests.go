// Package api contains the bankdash HTTP API request contracts.
// Version v1 represents the current stable API version.
package api

// DeriveFeaturesRequest asks for the derived banking features of a stored
// dataset. ReferenceDate pins "today" for Customer Tenure; empty means the
// server clock.
type DeriveFeaturesRequest struct {
	ReferenceDate string `json:"reference_date,omitempty" validate:"omitempty,isodate"`
	PreviewRows   *int   `json:"preview_rows,omitempty" validate:"omitempty,gte=0,lte=500"`
}

// CapOutliersRequest selects the numeric columns to clip to their IQR
// fences. An empty list means the first numeric columns of the dataset.
type CapOutliersRequest struct {
	Columns []string `json:"columns,omitempty" validate:"omitempty,max=64,unique,dive,required,column"`
}

// ExportFormats lists the accepted values of the export format parameter.
var ExportFormats = []string{"csv", "xlsx"}
