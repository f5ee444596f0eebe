// Package http implements the HTTP handlers of the bankdash API. Handlers are
// thin: they decode and validate the request, call the analysis service and
// translate its errors into RFC 7807 problem responses.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → AnalysisService → DatasetStore
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Routes
//
//	GET    /api/datasets                    list stored datasets
//	POST   /api/datasets                    upload a CSV or XLSX file (multipart "file")
//	GET    /api/datasets/{id}               overview and preview
//	DELETE /api/datasets/{id}               remove a dataset
//	POST   /api/datasets/{id}/outliers      cap outliers with IQR fences
//	POST   /api/datasets/{id}/features      derive the engineered features
//	GET    /api/datasets/{id}/geography     deposits by nationality and loyalty
//	GET    /api/datasets/{id}/distributions one-column profiles and insights
//	GET    /api/datasets/{id}/correlations  Pearson matrix and strongest pairs
//	GET    /api/datasets/{id}/export        download as csv or xlsx
//	GET    /api/health[/ready|/live]        health checks
//	GET    /api/version                     build information
//
// # Error Handling
//
// Service errors map to problem types:
//
//	services.ErrDatasetNotFound     404 /errors/dataset/not-found
//	services.ErrDatasetConflict     409 /errors/dataset/conflict
//	services.MissingColumnsError    422 /errors/dataset/missing-columns
//	services.ErrUnreadableDataset   422 /errors/dataset/unparseable
//
// Loader and validator failures arrive as errors.AppError and map by type:
//
//	PARSING                         422 /errors/dataset/unparseable
//	UNSUPPORTED                     415 /errors/dataset/unsupported-format
//	LIMIT                           413 /errors/payload-too-large
//	VALIDATION                      400 /errors/validation
//	STORAGE, CONFIG                 500 /errors/internal
package http
