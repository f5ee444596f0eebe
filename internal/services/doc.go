// Package services implements the business logic layer of bankdash. It sits
// between the HTTP handlers and the dataset, analysis and features packages,
// so that every operation has one place for tracing, metrics and error
// translation.
//
// # Architecture
//
//	1. Context propagation for cancellation and tracing
//	2. Dependency injection for loose coupling
//	3. Value semantics for datasets, so readers never hold a lock
//
// # Available Services
//
//	- AnalysisService: uploads, overview, outlier capping, feature
//	  derivation, geography, correlations, export and delete
//	- DatasetStore: the capacity-bounded in-memory store behind it
//	- HealthService: liveness, readiness and version reporting
//
// # Common Service Pattern
//
// Every AnalysisService operation opens a span and records its duration:
//
//	func (s *AnalysisService) Overview(ctx context.Context, id string) (res domain.DatasetOverview, err error) {
//	    _, done := s.startOperation(ctx, "overview", id)
//	    defer func() { done(err) }()
//	    ...
//	}
//
// Operations that transform a dataset (CapOutliers, DeriveFeatures) write
// the result back with DatasetStore.Replace, which refuses the write when
// another request replaced the dataset in between.
//
// # Error Handling
//
// Services return sentinel errors that handlers map to problem details:
//
//	- ErrDatasetNotFound for unknown or evicted ids
//	- ErrDatasetConflict for lost concurrent updates
//	- ErrUnreadableDataset wrapping the parser error
//	- MissingColumnsError when an analysis lacks its columns
//	- validation and dataset errors for rejected uploads
package services
