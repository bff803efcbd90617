package singer

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
	"github.com/ajitpratap0/tap-kanbanize/pkg/json"
)

// KeyProperties lists the primary-key fields of a stream. Older catalogs wrote
// a single field name as a bare string; both forms decode.
type KeyProperties []string

// MarshalJSON implements json.Marshaler; an empty list encodes as []
func (k KeyProperties) MarshalJSON() ([]byte, error) {
	if k == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(k))
}

// UnmarshalJSON implements json.Unmarshaler
func (k *KeyProperties) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*k = KeyProperties{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*k = KeyProperties(many)
	return nil
}

// CatalogEntry describes one stream
type CatalogEntry struct {
	Stream        string        `json:"stream"`
	TapStreamID   string        `json:"tap_stream_id"`
	Schema        *Schema       `json:"schema"`
	Metadata      Metadata      `json:"metadata"`
	KeyProperties KeyProperties `json:"key_properties"`
}

// Catalog is the ordered list of streams a tap can sync
type Catalog struct {
	Streams []*CatalogEntry `json:"streams"`
}

// Get returns the entry with the given tap_stream_id
func (c *Catalog) Get(tapStreamID string) (*CatalogEntry, bool) {
	for _, entry := range c.Streams {
		if entry.TapStreamID == tapStreamID {
			return entry, true
		}
	}
	return nil, false
}

// Validate checks that every entry can be synced and that tap_stream_id is
// unique, so each stream is synced at most once per run.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Streams))
	for i, entry := range c.Streams {
		if entry == nil {
			return errors.Newf(errors.ErrorTypeValidation, "catalog stream %d is empty", i)
		}
		if entry.TapStreamID == "" {
			return errors.Newf(errors.ErrorTypeValidation, "catalog stream %d has no tap_stream_id", i)
		}
		if entry.Schema == nil {
			return errors.New(errors.ErrorTypeValidation, "catalog stream has no schema").
				WithDetail("stream", entry.TapStreamID)
		}
		if _, ok := seen[entry.TapStreamID]; ok {
			return errors.New(errors.ErrorTypeValidation, "catalog lists a stream more than once").
				WithDetail("stream", entry.TapStreamID)
		}
		seen[entry.TapStreamID] = struct{}{}
	}
	return nil
}

// SelectedStreams returns the tap_stream_id of every selected stream in catalog order.
//
// A stream is selected when its schema carries selected=true or its root
// metadata entry has a truthy selected annotation. When both are present and
// disagree the metadata value is used and a warning is logged.
func SelectedStreams(catalog *Catalog, logger *zap.Logger) []string {
	selected := make([]string, 0)
	for _, entry := range catalog.Streams {
		if isSelected(entry, logger) {
			selected = append(selected, entry.TapStreamID)
		}
	}
	return selected
}

func isSelected(entry *CatalogEntry, logger *zap.Logger) bool {
	var fromSchema *bool
	if entry.Schema != nil {
		fromSchema = entry.Schema.Selected
	}

	root, hasRoot := entry.Metadata.Root()
	fromMetadata, hasMetadata := false, false
	if hasRoot {
		fromMetadata, hasMetadata = root.Selected()
	}

	switch {
	case hasMetadata && fromSchema != nil && *fromSchema != fromMetadata:
		logger.Warn("schema and metadata selection disagree, using metadata",
			zap.String("stream", entry.TapStreamID),
			zap.Bool("schema_selected", *fromSchema),
			zap.Bool("metadata_selected", fromMetadata))
		return fromMetadata
	case hasMetadata && fromMetadata:
		return true
	case fromSchema != nil:
		return *fromSchema
	default:
		return false
	}
}

// ReadCatalog decodes a catalog document
func ReadCatalog(r io.Reader) (*Catalog, error) {
	catalog := &Catalog{}
	if err := json.NewDecoder(r).Decode(catalog); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to parse catalog")
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// LoadCatalog reads a catalog file
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open catalog").
			WithDetail("path", path)
	}
	defer f.Close()

	return ReadCatalog(f)
}

// WriteCatalog writes the catalog as an indented JSON document
func WriteCatalog(w io.Writer, catalog *Catalog) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode catalog")
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write catalog")
	}
	return nil
}
