package singer

import (
	"bytes"
	"io"
	"io/fs"
	"sort"

	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
	"github.com/ajitpratap0/tap-kanbanize/pkg/json"
)

// Kind classifies a schema node for traversal
type Kind int

const (
	// KindLeaf is any node whose type does not include "object"
	KindLeaf Kind = iota
	// KindObject is a node whose type includes "object"
	KindObject
)

// TypeSet holds the JSON-schema type names of a node in declared order.
// A single type encodes as a string, several as an array.
type TypeSet []string

// Has reports whether the set contains the type name
func (t TypeSet) Has(name string) bool {
	for _, v := range t {
		if v == name {
			return true
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler
func (t TypeSet) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// UnmarshalJSON implements json.Unmarshaler
func (t *TypeSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = TypeSet{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*t = TypeSet(many)
	return nil
}

// Property is a named child of an object schema
type Property struct {
	Name   string
	Schema *Schema
}

// Schema is a JSON-schema node. Object nodes keep their properties in the
// order they were declared; keywords the tap does not interpret are kept in
// Extra and written back unchanged.
type Schema struct {
	Type       TypeSet
	Properties []Property
	Items      *Schema
	Format     string

	// Selected is the legacy schema-level selection flag
	Selected *bool

	Extra map[string]json.RawMessage
}

// Kind reports whether the node is an object or a leaf
func (s *Schema) Kind() Kind {
	if s.Type.Has("object") {
		return KindObject
	}
	return KindLeaf
}

// Property returns the named child schema, or nil
func (s *Schema) Property(name string) *Schema {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema
		}
	}
	return nil
}

// PropertyNames returns the child names in declared order
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for _, p := range s.Properties {
		names = append(names, p.Name)
	}
	return names
}

// MarshalJSON implements json.Marshaler
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, value interface{}) error {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		writeKey(&buf, key, &first)
		buf.Write(data)
		return nil
	}

	if len(s.Type) > 0 {
		if err := field("type", s.Type); err != nil {
			return nil, err
		}
	}
	if s.Properties != nil {
		writeKey(&buf, "properties", &first)
		buf.WriteByte('{')
		for i, p := range s.Properties {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(p.Name)
			if err != nil {
				return nil, err
			}
			child, err := json.Marshal(p.Schema)
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(child)
		}
		buf.WriteByte('}')
	}
	if s.Items != nil {
		if err := field("items", s.Items); err != nil {
			return nil, err
		}
	}
	if s.Format != "" {
		if err := field("format", s.Format); err != nil {
			return nil, err
		}
	}
	if s.Selected != nil {
		if err := field("selected", *s.Selected); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeKey(&buf, k, &first)
		buf.Write(s.Extra[k])
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string, first *bool) {
	if !*first {
		buf.WriteByte(',')
	}
	*first = false
	name, _ := json.Marshal(key)
	buf.Write(name)
	buf.WriteByte(':')
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Schema) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Schema{}
	for key, value := range raw {
		switch key {
		case "type":
			if err := json.Unmarshal(value, &s.Type); err != nil {
				return errors.Wrap(err, errors.ErrorTypeValidation, "invalid schema type")
			}
		case "properties":
			props, err := decodeProperties(value)
			if err != nil {
				return err
			}
			s.Properties = props
		case "items":
			s.Items = &Schema{}
			if err := json.Unmarshal(value, s.Items); err != nil {
				return err
			}
		case "format":
			if err := json.Unmarshal(value, &s.Format); err != nil {
				return errors.Wrap(err, errors.ErrorTypeValidation, "invalid schema format")
			}
		case "selected":
			var v interface{}
			if err := json.Unmarshal(value, &v); err != nil {
				return err
			}
			selected := truthy(v)
			s.Selected = &selected
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}
			s.Extra[key] = append(json.RawMessage(nil), value...)
		}
	}
	return nil
}

// decodeProperties walks the properties object token by token so that the
// declared order survives decoding.
func decodeProperties(data []byte) ([]Property, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New(errors.ErrorTypeValidation, "schema properties must be an object")
	}

	props := make([]Property, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, errors.New(errors.ErrorTypeValidation, "schema property name must be a string")
		}
		child := &Schema{}
		if err := dec.Decode(child); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid schema for property "+name)
		}
		props = append(props, Property{Name: name, Schema: child})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return props, nil
}

// LoadSchema reads and parses the schema file at path within fsys.
// A missing or malformed file is reported as not_found.
func LoadSchema(fsys fs.FS, path string) (*Schema, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNotFound, "schema file not found").
			WithDetail("path", path)
	}

	schema := &Schema{}
	if err := json.Unmarshal(data, schema); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNotFound, "schema file is malformed").
			WithDetail("path", path)
	}
	return schema, nil
}

// truthy follows JSON truthiness for loosely typed selection flags
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		switch t {
		case "", "false", "False", "FALSE", "0":
			return false
		}
		return true
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}
