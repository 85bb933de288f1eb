// Package persist stores typed documents in files through pluggable codecs.
package persist

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	yamlExtension = ".yaml"
	lz4Extension  = ".lz4"
)

const defaultIndent = "  "

// Codec defines how a document is serialized and deserialized.
type Codec interface {
	Encode(w io.Writer, doc any) error
	Decode(r io.Reader, doc any) error
	// Extension returns the file extension for this codec (e.g. ".json").
	Extension() string
}

// JSONCodec implements Codec using JSON encoding with optional indentation.
type JSONCodec struct {
	// Indent is the indentation string. Empty means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with 2-space indentation.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.
func (c *JSONCodec) Encode(w io.Writer, doc any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(doc)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c *JSONCodec) Decode(r io.Reader, doc any) error {
	err := json.NewDecoder(r).Decode(doc)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// YAMLCodec implements Codec using YAML encoding.
type YAMLCodec struct{}

// Encode implements Codec.
func (YAMLCodec) Encode(w io.Writer, doc any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(len(defaultIndent))

	err := encoder.Encode(doc)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	return encoder.Close()
}

// Decode implements Codec.
func (YAMLCodec) Decode(r io.Reader, doc any) error {
	err := yaml.NewDecoder(r).Decode(doc)
	if err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (YAMLCodec) Extension() string {
	return yamlExtension
}

// LZ4Codec compresses the output of an inner codec with LZ4 frames.
type LZ4Codec struct {
	Inner Codec
}

// NewLZ4Codec wraps inner.
func NewLZ4Codec(inner Codec) *LZ4Codec {
	return &LZ4Codec{Inner: inner}
}

// Encode implements Codec.
func (c *LZ4Codec) Encode(w io.Writer, doc any) error {
	zw := lz4.NewWriter(w)

	err := c.Inner.Encode(zw, doc)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c *LZ4Codec) Decode(r io.Reader, doc any) error {
	return c.Inner.Decode(lz4.NewReader(r), doc)
}

// Extension implements Codec, e.g. ".json.lz4".
func (c *LZ4Codec) Extension() string {
	return c.Inner.Extension() + lz4Extension
}
