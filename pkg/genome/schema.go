package genome

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed genome_schema.json
var genomeSchemaJSON string

var (
	compileOnce  sync.Once
	genomeSchema *jsonschema.Schema
	compileErr   error
)

// Schema returns the compiled JSON Schema for a single genome.
func Schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("genome_schema.json", strings.NewReader(genomeSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("genome_schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile genome schema: %w", err)
			return
		}
		genomeSchema = schema
	})
	return genomeSchema, compileErr
}

// Validate checks g against the genome schema.
func Validate(g Genome) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return ValidateJSON(data)
}

// ValidateJSON checks raw genome JSON against the schema.
func ValidateJSON(data []byte) error {
	schema, err := Schema()
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("genome is not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("genome does not match schema: %w", err)
	}
	return nil
}

// Merge overlays a model proposal onto base. Fields the proposal omits keep
// their base values.
func Merge(base Genome, proposal map[string]any) (Genome, error) {
	raw, err := json.Marshal(proposal)
	if err != nil {
		return base, fmt.Errorf("proposal is not serializable: %w", err)
	}
	out := base
	if err := json.Unmarshal(raw, &out); err != nil {
		return base, fmt.Errorf("proposal has wrong field types: %w", err)
	}
	return out, nil
}
