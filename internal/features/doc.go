// Package features derives customer level metrics from a banking dataset
// and summarises them as narrative insights.
//
// The derivations form an ordered rule table. Each Rule names the columns it
// requires and is skipped when any of them is absent, so the output schema
// adapts to whatever the uploaded file contains. Two rules always run:
// Total Relationship Balance (absent balance columns are added as zeros) and
// Product Concentration.
//
//	engine := features.NewEngine(features.WithReferenceDate(asOf))
//	res := engine.Derive(ds)
//	for _, in := range res.Insights {
//		fmt.Println(in.Text)
//	}
//
// Customer Tenure depends on a reference date. It defaults to the current
// date; tests and batch runs pin it with WithReferenceDate or WithClock.
//
// Derived column names are part of the contract with reporting and modeling
// consumers and are defined in pkg/contracts/domain. A derived column that
// already exists in the input is overwritten and is not reported as new.
package features
