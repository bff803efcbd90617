// Package tapkanbanize is a Singer tap that extracts tasks from the Kanbanize
// API.
//
// The tap runs in two modes. Discovery prints the catalog of available streams
// with their JSON schemas and field metadata:
//
//	tap-kanbanize --config config.json --discover > catalog.json
//
// Sync reads a catalog with the streams to extract marked as selected and
// writes SCHEMA, RECORD and STATE messages to stdout, one JSON object per
// line:
//
//	tap-kanbanize --config config.json --catalog catalog.json | target-jsonl
//
// Logs, metrics and traces go to stderr so stdout stays a clean message
// stream.
//
// # Layout
//
//   - cmd/tap-kanbanize: command line entry point
//   - pkg/connector/sources/kanbanize: streams, discovery, API client and sync
//   - pkg/singer: schemas, metadata, catalogs, record transform and messages
//   - pkg/config: configuration loading and validation
//   - pkg/clients: HTTP transport
//   - pkg/errors, pkg/logger, pkg/metrics, pkg/observability, pkg/json: shared
//     infrastructure
package tapkanbanize
