package schema

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	jsoniter "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/grovetools/fleetview/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const snapshotResource = "snapshot.json"

// GenerateSnapshotSchema reflects the JSON Schema of SnapshotPayload.
func GenerateSnapshotSchema() ([]byte, error) {
	r := &invopop.Reflector{
		// Backends may add fields; only the documented ones are checked.
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	s := r.Reflect(&SnapshotPayload{})
	s.Title = "Fleet dashboard snapshot"
	s.Description = "Response of GET /api/dashboard/current."
	return json.MarshalIndent(s, "", "  ")
}

// Validator validates snapshot payloads against the reflected schema.
type Validator struct {
	schema *jsonschema.Schema
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// Default returns a process-wide snapshot validator.
func Default() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	return defaultValidator, defaultErr
}

// NewValidator creates a new schema validator for snapshot payloads.
func NewValidator() (*Validator, error) {
	data, err := GenerateSnapshotSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to generate snapshot schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(snapshotResource, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add snapshot schema resource: %w", err)
	}
	schema, err := compiler.Compile(snapshotResource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile snapshot schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks a raw JSON document. Failures are MALFORMED_SNAPSHOT errors
// listing every violated location.
func (v *Validator) Validate(raw []byte) error {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return errors.Wrap(err, errors.ErrCodeMalformedSnapshot, "snapshot is not valid JSON")
	}

	if err := v.schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			var messages []string
			collectErrors(validationErr, &messages)
			return errors.MalformedSnapshot("schema validation failed:\n" + strings.Join(messages, "\n")).
				WithDetail("violations", len(messages))
		}
		return errors.Wrap(err, errors.ErrCodeMalformedSnapshot, "schema validation failed")
	}
	return nil
}

// collectErrors recursively collects all leaf validation errors.
func collectErrors(err *jsonschema.ValidationError, messages *[]string) {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*messages = append(*messages, fmt.Sprintf("- %s: %s", loc, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
