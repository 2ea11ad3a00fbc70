// Command cyclone-relay polls the NHC active-storm feeds and relays storm
// updates to Discord.
//
// Usage:
//
//	cyclone-relay run      # one run, exit non-zero on failure (cron)
//	cyclone-relay serve    # run every POLL_INTERVAL, serve /healthz /readyz /status /metrics
//	cyclone-relay history  # list recent runs from HISTORY_DB
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
