// Package json wraps goccy/go-json with the encoder and decoder settings used
// for Singer messages, catalogs and API responses.
package json

import (
	"bytes"
	"errors"
	"io"

	gojson "github.com/goccy/go-json"
)

// ErrTrailingContent is returned when data holds more than one JSON value
var ErrTrailingContent = errors.New("unexpected content after JSON value")

// Number is a JSON number literal kept as text
type Number = gojson.Number

// RawMessage is a raw encoded JSON value
type RawMessage = gojson.RawMessage

// Delim is a JSON array or object delimiter token
type Delim = gojson.Delim

// Encoder writes JSON values to an output stream
type Encoder = gojson.Encoder

// Decoder reads JSON values from an input stream
type Decoder = gojson.Decoder

// NewEncoder returns an encoder that does not escape HTML characters.
// Each Encode call writes one value followed by a newline.
func NewEncoder(w io.Writer) *Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// NewDecoder returns a decoder that keeps numbers as Number
func NewDecoder(r io.Reader) *Decoder {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// Marshal is a drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// UnmarshalNumbers decodes data keeping numbers as Number. Data must hold
// exactly one JSON value, otherwise ErrTrailingContent is returned.
func UnmarshalNumbers(data []byte, v interface{}) error {
	dec := NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return err
	}
	var extra interface{}
	if err := dec.Decode(&extra); err != io.EOF {
		return ErrTrailingContent
	}
	return nil
}

// MarshalIndent is a drop-in replacement for json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}
