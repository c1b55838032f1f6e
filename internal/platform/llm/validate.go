package llm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiled schemas keyed by Schema.Name
var schemaCache sync.Map

// validateResponse is a no-op without a schema and returns
// *InvalidResponseError on any parse or validation failure.
func validateResponse(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return invalid(raw, "invalid json: %w", err)
	}
	compiled, err := compileSchema(schema)
	if err != nil {
		return invalid(raw, "compile schema %q: %w", schema.Name, err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return invalid(raw, "schema validation failed: %w", err)
	}
	return nil
}

func compileSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}
	// The compiler wants plain decoded JSON, not Go maps with typed slices.
	b, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}

// Decode validates resp against schema (again, providers may skip it for
// mock content) and unmarshals it into out.
func Decode(resp *Response, schema *Schema, out any) error {
	if resp == nil {
		return invalid(nil, "empty response")
	}
	if err := validateResponse(schema, resp.Content); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Content, out); err != nil {
		return invalid(resp.Content, "decode: %w", err)
	}
	return nil
}
