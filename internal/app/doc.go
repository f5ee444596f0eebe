// Package app wires bankdash together: configuration, logging, OpenTelemetry,
// the dataset store, the analysis service and the HTTP router.
//
// # Initialization Flow
//
//	1. Resolve and create the data, logs and exports directories
//	2. Initialize the JSON logger and OpenTelemetry providers
//	3. Create the dataset store and the analysis and health services
//	4. Build the chi router and its middleware chain
//	5. Create the HTTP server
//
// # Usage
//
//	cfg, err := config.Load()
//	...
//	application, err := app.NewApplication(cfg)
//	...
//	if err := application.Run(ctx); err != nil {
//	    ...
//	}
//
// # Graceful Shutdown
//
// Run returns when its context is cancelled or SIGINT/SIGTERM arrives. The
// server drains in-flight requests for up to Server.ShutdownTimeout, then
// telemetry is flushed and the log file closed. Stored datasets live only in
// memory and are dropped.
//
// # Error Handling
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
