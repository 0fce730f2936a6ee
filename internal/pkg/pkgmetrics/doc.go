// Package pkgmetrics registers the Prometheus collectors used by the ingestion
// pipeline. Recording helpers are safe to call before Init; they do nothing
// until the collectors exist.
package pkgmetrics
