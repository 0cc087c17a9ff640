// Package wire implements Tide's message serialization: encoding
// typed Go values to opaque payload bytes and back, over a single codec
// selected per deployment.
package wire

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec encodes and decodes messages to/from the wire format. A process
// picks exactly one codec for its transport session; mixing codecs
// within a deployment is a configuration error, not something this
// package arbitrates.
type Codec interface {
	// Name identifies the codec for error messages and logs.
	Name() string
	// Encode serializes msg to bytes.
	Encode(msg any) ([]byte, error)
	// Decode parses data into a new value of the same type as schema,
	// returning it as any. schema is a zero value or pointer used only
	// to describe the target type.
	Decode(data []byte, schema any) (any, error)
}

// CBORCodec is the default wire codec: concise binary object
// representation, self-describing.
type CBORCodec struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

// NewCBORCodec builds a CBORCodec using canonical encoding options, so
// that two processes encoding the same map always produce identical
// bytes (useful for recorder fixtures and tests).
func NewCBORCodec() (*CBORCodec, error) {
	encOpts := cbor.CanonicalEncOptions()
	encMode, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("wire: build cbor encode mode: %w", err)
	}
	decOpts := cbor.DecOptions{
		// Decode a CBOR map into an interface{} target as
		// map[string]interface{} rather than cbor's own default of
		// map[interface{}]interface{} — keeps decoded dictionaries
		// shaped the same way encoding/json would produce them, which
		// is what internal/node and internal/components expect.
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
		// Decode CBOR integers into an interface{} target as int64, so an
		// int published by a node comes back signed rather than as uint64.
		IntDec: cbor.IntDecConvertSigned,
	}
	decMode, err := decOpts.DecMode()
	if err != nil {
		return nil, fmt.Errorf("wire: build cbor decode mode: %w", err)
	}
	return &CBORCodec{encMode: encMode, decMode: decMode}, nil
}

func (c *CBORCodec) Name() string { return "cbor" }

func (c *CBORCodec) Encode(msg any) ([]byte, error) {
	data, err := c.encMode.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: cbor encode: %w", err)
	}
	return data, nil
}

func (c *CBORCodec) Decode(data []byte, schema any) (any, error) {
	out := newLike(schema)
	if err := c.decMode.Unmarshal(data, out); err != nil {
		return nil, &DecodeError{Codec: c.Name(), Err: err}
	}
	return reflect.ValueOf(out).Elem().Interface(), nil
}

// JSONCodec is the alternative Codec for deployments that want payloads
// inspectable with plain-text tooling. The recorder's fallback payload
// conversion does not go through it; it calls encoding/json directly.
type JSONCodec struct{}

func NewJSONCodec() *JSONCodec { return &JSONCodec{} }

func (c *JSONCodec) Name() string { return "json" }

func (c *JSONCodec) Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: json encode: %w", err)
	}
	return data, nil
}

func (c *JSONCodec) Decode(data []byte, schema any) (any, error) {
	out := newLike(schema)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, &DecodeError{Codec: c.Name(), Err: err}
	}
	return reflect.ValueOf(out).Elem().Interface(), nil
}

// newLike returns a pointer to a fresh zero value of schema's type, so
// Unmarshal always has an addressable target regardless of whether the
// caller passed a value or a pointer.
func newLike(schema any) any {
	t := reflect.TypeOf(schema)
	if t == nil {
		var m map[string]any
		return &m
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return reflect.New(t).Interface()
}

// Default is the process-wide codec used by Encode/Decode/ToPayload/
// FromPayload when no explicit Codec is threaded through. Nodes may
// override this per-instance through node.Config.Codec; most callers use
// the package-level helpers below.
var Default Codec = mustDefaultCBOR()

func mustDefaultCBOR() Codec {
	c, err := NewCBORCodec()
	if err != nil {
		// CanonicalEncOptions is a fixed, valid configuration; this can
		// only fail if the cbor library itself is broken.
		panic(err)
	}
	return c
}

// Encode serializes msg using the default codec.
func Encode(msg any) ([]byte, error) {
	return Default.Encode(msg)
}

// Decode parses data into schema's type using the default codec.
func Decode(data []byte, schema any) (any, error) {
	return Default.Decode(data, schema)
}

// ToPayload serializes msg to bytes for publication, except that a
// []byte value passes through unchanged — callers that already hold
// wire bytes (e.g. forwarding a recorded message) skip a redundant
// encode/decode round trip.
func ToPayload(msg any) ([]byte, error) {
	if b, ok := msg.([]byte); ok {
		return b, nil
	}
	return Encode(msg)
}

// FromPayload decodes bytes into schema's type. If schema is nil, the
// raw bytes are returned unchanged.
func FromPayload(data []byte, schema any) (any, error) {
	if schema == nil {
		return data, nil
	}
	return Decode(data, schema)
}
