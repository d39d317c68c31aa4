// Command cybermap turns a spreadsheet of cyberattack incidents into a
// self-contained Leaflet map, geocoding places through a persistent cache.
//
// Usage:
//
//	cybermap [generate] [--input cyber_ndl.csv] [--output map.html] [--cache geo_cache.json] [--offline]
//	cybermap validate [--strict]
//	cybermap cache list|forget <place>...|prune
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
