package persist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaViolation is returned when a document does not match its schema.
var ErrSchemaViolation = errors.New("document does not match schema")

// SchemaCodec is a JSON codec validating documents against a JSON schema
// before decoding them.
type SchemaCodec struct {
	JSONCodec

	schema *gojsonschema.Schema
}

// NewSchemaCodec compiles schema, a JSON schema document.
func NewSchemaCodec(schema []byte) (*SchemaCodec, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &SchemaCodec{JSONCodec: JSONCodec{Indent: defaultIndent}, schema: compiled}, nil
}

// MustSchemaCodec is NewSchemaCodec for embedded schemas.
func MustSchemaCodec(schema []byte) *SchemaCodec {
	codec, err := NewSchemaCodec(schema)
	if err != nil {
		panic(err)
	}

	return codec
}

// Validate checks raw against the schema.
func (c *SchemaCodec) Validate(raw []byte) error {
	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		details = append(details, verr.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(details, "; "))
}

// Decode implements Codec.
func (c *SchemaCodec) Decode(r io.Reader, doc any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	err = c.Validate(raw)
	if err != nil {
		return err
	}

	return c.JSONCodec.Decode(bytes.NewReader(raw), doc)
}
