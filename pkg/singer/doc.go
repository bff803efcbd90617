// Package singer implements the Singer tap protocol pieces shared by streams:
// the JSON-schema model, field metadata and breadcrumbs, the catalog and its
// stream selection, record transformation against a schema, and the
// line-delimited SCHEMA/RECORD/STATE message writer.
//
// # Discovery
//
//	schema, err := singer.LoadSchema(schemas, "schemas/task.json")
//	md, err := singer.BuildMetadata(schema, []string{"taskid"})
//
// # Sync
//
//	w := singer.NewWriter(os.Stdout)
//	_ = w.WriteSchema("tasks", schema, []string{"taskid"})
//	_ = w.WriteRecord("tasks", record, time.Now())
//	_ = w.WriteState(state)
package singer
