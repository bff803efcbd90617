// Package kanbanize implements the Kanbanize tap: stream discovery, the
// per-run tap context and the sync of selected streams.
//
// Discovery is driven by the bundled schemas:
//
//	catalog, err := kanbanize.Discover(kanbanize.Schemas)
//	singer.WriteCatalog(os.Stdout, catalog)
//
// Sync emits SCHEMA, RECORD and STATE messages for every selected stream:
//
//	tap := kanbanize.NewTap(cfg, state, catalog, kanbanize.Options{Logger: logger})
//	err := tap.Sync(ctx, singer.NewWriter(os.Stdout))
package kanbanize
