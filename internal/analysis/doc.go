// Package analysis holds the exploratory computations run on uploaded
// datasets: the overview summary, IQR outlier capping, deposit aggregates by
// nationality and loyalty tier, income by loyalty tier and the correlation
// matrix.
//
// All functions are pure. They take a dataset.Dataset and never modify it;
// CapOutliers returns a new dataset alongside its report. Missing values are
// skipped by every statistic.
package analysis
