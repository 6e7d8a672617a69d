// Package app wires the dashboard together and owns its lifecycle.
//
// New builds every component from a loaded configuration: data sources and
// backups feed the dashboard service, which publishes snapshots to the
// websocket hub and serves the HTTP API. Start performs the first load and
// starts the periodic refresher; Run adds the HTTP server and blocks until
// the context is cancelled or the process receives SIGINT or SIGTERM.
//
//	application, err := app.NewApplication(frontendFS)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
