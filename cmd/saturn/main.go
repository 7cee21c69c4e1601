// Saturn is the rate-limit and tenant-isolation core of a multi-tenant
// document-ingestion and retrieval service.
//
// It runs the shared admission gates that keep every upstream service within
// its per-minute request and token budgets, the bounded pool of per-tenant
// engine instances, and the job store that tracks ingestion work.
//
// Usage:
//
//	# Start with defaults and SATURN_* environment overrides
//	saturn run
//
//	# Start with a configuration file
//	saturn run --config /etc/saturn/config.yaml
//
//	# Check a configuration file
//	saturn validate --config config.yaml
//
//	# Show effective concurrency per upstream service
//	saturn concurrency --tenant acme
//
//	# Inspect jobs
//	saturn jobs list --tenant acme --status processing
package main

import "os"

func main() {
	os.Exit(Execute())
}
