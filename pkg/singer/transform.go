package singer

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
	"github.com/ajitpratap0/tap-kanbanize/pkg/json"
)

// dateTimeLayouts are tried in order when normalizing date-time strings
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Transformer coerces records to their stream schema. It remembers the paths
// of fields dropped because the schema does not declare them so they can be
// reported once per run.
type Transformer struct {
	logger  *zap.Logger
	removed map[string]struct{}
}

// NewTransformer creates a transformer
func NewTransformer(logger *zap.Logger) *Transformer {
	return &Transformer{
		logger:  logger,
		removed: make(map[string]struct{}),
	}
}

// Transform returns a copy of record coerced to schema. Fields whose metadata
// marks them unsupported or deselected are dropped. All coercion failures of
// the record are reported in a single data error.
func (t *Transformer) Transform(record map[string]interface{}, schema *Schema, metadata Metadata) (map[string]interface{}, error) {
	var failures []string
	out, ok := t.transformObject(record, schema, metadata, nil, &failures)
	if !ok || len(failures) > 0 {
		sort.Strings(failures)
		return nil, errors.New(errors.ErrorTypeData, "record does not match schema: "+strings.Join(failures, "; ")).
			WithDetail("paths", failures)
	}
	return out, nil
}

// RemovedPaths returns the undeclared field paths dropped so far, sorted
func (t *Transformer) RemovedPaths() []string {
	paths := make([]string, 0, len(t.removed))
	for p := range t.removed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// LogRemoved logs the dropped field paths, if any
func (t *Transformer) LogRemoved(stream string) {
	if len(t.removed) == 0 {
		return
	}
	t.logger.Warn("removed fields not declared in schema",
		zap.String("stream", stream),
		zap.Strings("paths", t.RemovedPaths()))
}

func (t *Transformer) transformObject(record map[string]interface{}, schema *Schema, metadata Metadata, breadcrumb Breadcrumb, failures *[]string) (map[string]interface{}, bool) {
	if schema.Properties == nil {
		return record, true
	}

	out := make(map[string]interface{}, len(record))
	for key, value := range record {
		child := breadcrumb.Child(key)
		propSchema := schema.Property(key)
		if propSchema == nil {
			t.removed[child.String()] = struct{}{}
			continue
		}
		if !fieldIncluded(metadata, child) {
			continue
		}
		converted, ok := t.transformValue(value, propSchema, metadata, child, failures)
		if !ok {
			*failures = append(*failures, child.String()+": expected "+strings.Join(propSchema.Type, "|"))
			continue
		}
		out[key] = converted
	}
	return out, true
}

func fieldIncluded(metadata Metadata, breadcrumb Breadcrumb) bool {
	annotations, ok := metadata.Get(breadcrumb)
	if !ok {
		return true
	}
	inclusion := annotations.Inclusion()
	if inclusion == InclusionUnsupported {
		return false
	}
	if selected, set := annotations.Selected(); set && !selected && inclusion != InclusionAutomatic {
		return false
	}
	return true
}

func (t *Transformer) transformValue(value interface{}, schema *Schema, metadata Metadata, breadcrumb Breadcrumb, failures *[]string) (interface{}, bool) {
	if len(schema.Type) == 0 {
		return value, true
	}
	for _, typ := range schema.Type {
		if converted, ok := t.convert(value, typ, schema, metadata, breadcrumb, failures); ok {
			return converted, true
		}
	}
	return nil, false
}

func (t *Transformer) convert(value interface{}, typ string, schema *Schema, metadata Metadata, breadcrumb Breadcrumb, failures *[]string) (interface{}, bool) {
	if value == nil {
		return nil, typ == "null"
	}

	switch typ {
	case "object":
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		return t.transformObject(m, schema, metadata, breadcrumb, failures)
	case "array":
		items, ok := value.([]interface{})
		if !ok {
			return nil, false
		}
		if schema.Items == nil {
			return items, true
		}
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			converted, ok := t.transformValue(item, schema.Items, metadata, breadcrumb, failures)
			if !ok {
				return nil, false
			}
			out = append(out, converted)
		}
		return out, true
	case "integer":
		return toInteger(value)
	case "number":
		return toNumber(value)
	case "string":
		s, ok := toString(value)
		if !ok {
			return nil, false
		}
		if schema.Format == "date-time" {
			return toDateTime(s)
		}
		return s, true
	case "boolean":
		return toBoolean(value)
	default:
		return nil, false
	}
}

func toInteger(value interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		f, err := v.Float64()
		if err != nil {
			return nil, false
		}
		return floatToInteger(f)
	case float64:
		return floatToInteger(v)
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, false
		}
		return i, true
	default:
		return nil, false
	}
}

// floatToInteger accepts integral values that fit in an int64
func floatToInteger(f float64) (interface{}, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, false
	}
	return int64(f), true
}

func toNumber(value interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case json.Number:
		if _, err := v.Float64(); err != nil {
			return nil, false
		}
		return v, true
	case float64:
		return v, true
	case int:
		return v, true
	case int64:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil, false
		}
		return json.Number(s), true
	default:
		return nil, false
	}
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func toDateTime(s string) (interface{}, bool) {
	for _, layout := range dateTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return FormatTime(parsed), true
		}
	}
	return nil, false
}

func toBoolean(value interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true"), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, false
		}
		return f != 0, true
	case float64:
		return v != 0, true
	default:
		return nil, false
	}
}
