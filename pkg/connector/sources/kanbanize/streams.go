package kanbanize

import "embed"

// Schemas holds the bundled stream schemas
//
//go:embed schemas/*.json
var Schemas embed.FS

// Stream declares a stream the tap knows how to sync
type Stream struct {
	// ID is both the stream name and its tap_stream_id
	ID string
	// SchemaFile is the schema path inside the schema filesystem
	SchemaFile string
	// KeyProperties are the primary-key fields
	KeyProperties []string
	// Function is the Kanbanize API function returning the stream records
	Function string
}

// Streams lists the known streams in discovery order
var Streams = []Stream{
	{
		ID:            "tasks",
		SchemaFile:    "schemas/task.json",
		KeyProperties: []string{"taskid"},
		Function:      "get_all_tasks",
	},
}

// LookupStream returns the declaration of a stream id
func LookupStream(id string) (Stream, bool) {
	for _, s := range Streams {
		if s.ID == id {
			return s, true
		}
	}
	return Stream{}, false
}
