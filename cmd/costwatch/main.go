// Costwatch monitors AWS spending across profiles from the command line.
//
// It keeps month-to-date cost data fresh through a tiered cache (a shared
// S3 tier for teams, a local in-memory tier, and the Cost Explorer API as
// the source of truth), refreshes on a schedule, and flags spending
// anomalies.
//
// Usage:
//
//	# Start the monitor with the default configuration file
//	costwatch run
//
//	# Start with a custom configuration
//	costwatch run --config /etc/costwatch/config.yaml
//
//	# Validate configuration without starting
//	costwatch run --dry-run
//
//	# Show version information
//	costwatch version
package main

func main() {
	Execute()
}
