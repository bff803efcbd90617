package singer

import (
	"io"
	"os"
	"time"

	"github.com/ajitpratap0/tap-kanbanize/pkg/errors"
	"github.com/ajitpratap0/tap-kanbanize/pkg/json"
)

// Message types of the line-delimited output stream
const (
	MessageTypeSchema = "SCHEMA"
	MessageTypeRecord = "RECORD"
	MessageTypeState  = "STATE"
)

// TimeExtractedLayout formats extraction timestamps in UTC with microseconds
const TimeExtractedLayout = "2006-01-02T15:04:05.000000Z"

// State is the opaque persisted state carried between runs
type State map[string]interface{}

// SchemaMessage declares the schema of a stream before its records
type SchemaMessage struct {
	Type          string        `json:"type"`
	Stream        string        `json:"stream"`
	Schema        *Schema       `json:"schema"`
	KeyProperties KeyProperties `json:"key_properties"`
}

// RecordMessage carries one record of a stream
type RecordMessage struct {
	Type          string                 `json:"type"`
	Stream        string                 `json:"stream"`
	Record        map[string]interface{} `json:"record"`
	TimeExtracted string                 `json:"time_extracted,omitempty"`
}

// StateMessage carries the state to persist
type StateMessage struct {
	Type  string `json:"type"`
	Value State  `json:"value"`
}

// Writer emits messages as one JSON object per line. Every message is written
// through immediately, so output produced before a failure is kept.
type Writer struct {
	enc *json.Encoder
}

// NewWriter creates a message writer on w
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// WriteSchema emits a SCHEMA message
func (w *Writer) WriteSchema(stream string, schema *Schema, keyProperties []string) error {
	return w.write(&SchemaMessage{
		Type:          MessageTypeSchema,
		Stream:        stream,
		Schema:        schema,
		KeyProperties: KeyProperties(keyProperties),
	})
}

// WriteRecord emits a RECORD message stamped with timeExtracted
func (w *Writer) WriteRecord(stream string, record map[string]interface{}, timeExtracted time.Time) error {
	msg := &RecordMessage{
		Type:   MessageTypeRecord,
		Stream: stream,
		Record: record,
	}
	if !timeExtracted.IsZero() {
		msg.TimeExtracted = FormatTime(timeExtracted)
	}
	return w.write(msg)
}

// WriteState emits a STATE message
func (w *Writer) WriteState(state State) error {
	if state == nil {
		state = State{}
	}
	return w.write(&StateMessage{Type: MessageTypeState, Value: state})
}

func (w *Writer) write(msg interface{}) error {
	if err := w.enc.Encode(msg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write message")
	}
	return nil
}

// FormatTime renders t in the extraction timestamp layout
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeExtractedLayout)
}

// ReadState decodes a state document
func ReadState(r io.Reader) (State, error) {
	state := State{}
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to parse state")
	}
	return state, nil
}

// LoadState reads a state file. An empty path yields an empty state.
func LoadState(path string) (State, error) {
	if path == "" {
		return State{}, nil
	}
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open state").
			WithDetail("path", path)
	}
	defer f.Close()

	return ReadState(f)
}
