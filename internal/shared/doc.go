// Package shared holds helpers used across bankdash packages that belong to
// no single layer.
//
// The testutil subpackage provides a capturing slog handler and banking
// dataset fixtures:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteCustomersCSV(t)
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "dataset uploaded")
//	}
//
// Nothing here may import business packages.
package shared
