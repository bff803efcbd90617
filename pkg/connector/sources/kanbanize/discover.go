package kanbanize

import (
	"io/fs"

	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
	"github.com/ajitpratap0/tap-kanbanize/pkg/singer"
)

// LoadSchema loads the schema of a known stream from fsys
func LoadSchema(fsys fs.FS, streamID string) (*singer.Schema, error) {
	stream, ok := LookupStream(streamID)
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "unknown stream").
			WithDetail("stream", streamID)
	}

	schema, err := singer.LoadSchema(fsys, stream.SchemaFile)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNotFound, "failed to load stream schema").
			WithDetail("stream", streamID)
	}
	return schema, nil
}

// Discover builds the catalog of every known stream, in declaration order
func Discover(fsys fs.FS) (*singer.Catalog, error) {
	catalog := &singer.Catalog{Streams: make([]*singer.CatalogEntry, 0, len(Streams))}

	for _, stream := range Streams {
		schema, err := LoadSchema(fsys, stream.ID)
		if err != nil {
			return nil, err
		}

		metadata, err := singer.BuildMetadata(schema, stream.KeyProperties)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid stream schema").
				WithDetail("stream", stream.ID)
		}

		catalog.Streams = append(catalog.Streams, &singer.CatalogEntry{
			Stream:        stream.ID,
			TapStreamID:   stream.ID,
			Schema:        schema,
			Metadata:      metadata,
			KeyProperties: singer.KeyProperties(stream.KeyProperties),
		})
	}

	return catalog, nil
}
