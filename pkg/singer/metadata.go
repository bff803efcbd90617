package singer

import (
	"strings"

	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
	"github.com/ajitpratap0/tap-kanbanize/pkg/json"
)

// Inclusion values for field metadata
const (
	InclusionAutomatic   = "automatic"
	InclusionAvailable   = "available"
	InclusionUnsupported = "unsupported"
)

// Breadcrumb locates a node in a schema tree as
// ["properties", name, "properties", name, ...]. It is empty for the stream root.
type Breadcrumb []string

// IsRoot reports whether the breadcrumb addresses the stream itself
func (b Breadcrumb) IsRoot() bool {
	return len(b) == 0
}

// Child returns a new breadcrumb one property deeper. The receiver is never
// modified, so sibling breadcrumbs do not share storage.
func (b Breadcrumb) Child(property string) Breadcrumb {
	child := make(Breadcrumb, len(b), len(b)+2)
	copy(child, b)
	return append(child, "properties", property)
}

// Resolve walks the breadcrumb from schema and returns the node it names
func (b Breadcrumb) Resolve(schema *Schema) (*Schema, bool) {
	if len(b)%2 != 0 {
		return nil, false
	}
	node := schema
	for i := 0; i < len(b); i += 2 {
		if b[i] != "properties" || node == nil {
			return nil, false
		}
		node = node.Property(b[i+1])
	}
	return node, node != nil
}

// Equal reports whether two breadcrumbs name the same node
func (b Breadcrumb) Equal(other Breadcrumb) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the breadcrumb as a dotted field path
func (b Breadcrumb) String() string {
	parts := make([]string, 0, len(b)/2)
	for i := 1; i < len(b); i += 2 {
		parts = append(parts, b[i])
	}
	return strings.Join(parts, ".")
}

// MarshalJSON implements json.Marshaler; the root encodes as [] rather than null
func (b Breadcrumb) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(b))
}

// Annotations is the metadata map attached to a breadcrumb
type Annotations map[string]interface{}

// Inclusion returns the inclusion annotation, or "" when unset
func (a Annotations) Inclusion() string {
	v, _ := a["inclusion"].(string)
	return v
}

// Selected returns the truthiness of the selected annotation and whether it is set
func (a Annotations) Selected() (bool, bool) {
	v, ok := a["selected"]
	if !ok {
		return false, false
	}
	return truthy(v), true
}

// MetadataEntry pairs a breadcrumb with its annotations
type MetadataEntry struct {
	Metadata   Annotations `json:"metadata"`
	Breadcrumb Breadcrumb  `json:"breadcrumb"`
}

// Metadata is the ordered list of entries of one catalog stream
type Metadata []MetadataEntry

// Get returns the annotations of the entry at breadcrumb
func (m Metadata) Get(breadcrumb Breadcrumb) (Annotations, bool) {
	for _, entry := range m {
		if entry.Breadcrumb.Equal(breadcrumb) {
			return entry.Metadata, true
		}
	}
	return nil, false
}

// Root returns the annotations of the stream-level entry
func (m Metadata) Root() (Annotations, bool) {
	return m.Get(nil)
}

// BuildMetadata produces one automatic-inclusion entry per leaf of schema,
// depth first in declared property order. The root must be an object.
// keyProperties is accepted for future annotations and is not used yet.
func BuildMetadata(schema *Schema, keyProperties []string) (Metadata, error) {
	if schema == nil || schema.Kind() != KindObject {
		return nil, errors.New(errors.ErrorTypeValidation, "stream schema root must be an object")
	}
	return populateMetadata(schema, make(Metadata, 0), nil, keyProperties), nil
}

func populateMetadata(schema *Schema, metadata Metadata, breadcrumb Breadcrumb, keyProperties []string) Metadata {
	switch schema.Kind() {
	case KindObject:
		for _, p := range schema.Properties {
			metadata = populateMetadata(p.Schema, metadata, breadcrumb.Child(p.Name), keyProperties)
		}
	case KindLeaf:
		metadata = append(metadata, MetadataEntry{
			Metadata:   Annotations{"inclusion": InclusionAutomatic},
			Breadcrumb: breadcrumb,
		})
	}
	return metadata
}
