// Package app wires the seasonal adjustment server together and manages
// its lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, an optional YAML file and environment
//  2. Initialize logging and OpenTelemetry
//  3. Resolve the x13ashtml binary for the current platform
//  4. Build the adjuster, services and handlers
//  5. Set up the router and middleware chain
//  6. Create the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM: in-flight requests finish within the
// configured shutdown timeout, then telemetry is flushed. Each adjustment
// removes its own temporary directory, so nothing is left to clean up.
//
// All initialization errors are returned to the caller; the package never
// calls os.Exit.
package app
