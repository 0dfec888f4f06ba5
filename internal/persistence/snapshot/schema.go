package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks snapshot documents against territory.schema.json.
type Validator struct {
	schema *jsonschema.Schema
}

func LoadValidator(path string) (*Validator, error) {
	s, err := jsonschema.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return &Validator{schema: s}, nil
}

// ValidateParts validates a header line and state body as one document.
func (v *Validator) ValidateParts(header, body []byte) error {
	var doc bytes.Buffer
	doc.WriteString(`{"header":`)
	doc.Write(header)
	doc.WriteString(`,"state":`)
	doc.Write(body)
	doc.WriteString(`}`)
	return v.Validate(doc.Bytes())
}

func (v *Validator) Validate(raw []byte) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
