package tasks

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const listSchemaURL = "voxtodo://tasks.schema.json"

// listSchema describes the persisted task array.
const listSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "text", "completed"],
    "properties": {
      "id": {"type": "number"},
      "text": {"type": "string"},
      "completed": {"type": "boolean"},
      "alarm": {
        "anyOf": [
          {"type": "null"},
          {"type": "string", "format": "date-time"}
        ]
      }
    }
  }
}`

var compiledSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(listSchemaURL, strings.NewReader(listSchema)); err != nil {
		panic(err)
	}
	compiledSchema = compiler.MustCompile(listSchemaURL)
}

// ValidationError describes one schema violation.
type ValidationError struct {
	Path string
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	}
	return e.Msg
}

// Validate checks raw persisted data against the list schema.
// It returns the leaf violations, or nil when data is valid.
func Validate(data []byte) []error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return []error{&ValidationError{Msg: err.Error()}}
	}
	err := compiledSchema.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []error{err}
	}
	var errs []error
	collectSchemaErrors(&errs, ve)
	return errs
}

func collectSchemaErrors(errs *[]error, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		*errs = append(*errs, &ValidationError{
			Path: strings.TrimPrefix(err.InstanceLocation, "/"),
			Msg:  err.Message,
		})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(errs, cause)
	}
}
