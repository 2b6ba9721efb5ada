package engine

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed commands.schema.json
var commandSchema []byte

// Validator checks command batches against the embedded schema before they
// reach the engine.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("commands.schema.json", bytes.NewReader(commandSchema)); err != nil {
		return nil, fmt.Errorf("load command schema: %w", err)
	}
	s, err := c.Compile("commands.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile command schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

func (v *Validator) Validate(cmds []Command) error {
	payload, err := MarshalBatch(cmds)
	if err != nil {
		return err
	}
	return v.ValidateJSON(payload)
}

func (v *Validator) ValidateJSON(payload []byte) error {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return err
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid command batch: %w", err)
	}
	return nil
}
