// Package server exposes the monitoring HTTP API: health, statistics, the
// current result rows, the active configuration and Prometheus metrics.
package server
