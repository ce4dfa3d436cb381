package snippets

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// librarySchema describes a JSON snippet library. TOML and YAML go
// through their decoders' own strictness; JSON gets a schema pass so
// GUI-generated libraries fail with a field-level message.
const librarySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["snippets"],
  "properties": {
    "snippets": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["trigger", "template"],
        "properties": {
          "name": {"type": "string"},
          "trigger": {"type": "string", "minLength": 1},
          "template": {"type": "string"},
          "category": {"type": "string"},
          "enabled": {"type": "boolean"},
          "require_delimiter": {"type": "boolean"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("library.schema.json", strings.NewReader(librarySchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("library.schema.json")
	})
	return compiledSchema, schemaErr
}

// ValidateJSON checks a JSON library document against the schema.
func ValidateJSON(data []byte) error {
	sch, err := schema()
	if err != nil {
		return err
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return err
	}
	return sch.Validate(instance)
}
