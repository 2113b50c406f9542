package async

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/teranos/maestro/errors"
)

// descriptorSchema is the shape of a NewJob payload.
const descriptorSchema = `{
  "type": "object",
  "required": ["jobType", "arguments", "retries"],
  "properties": {
    "jobType":   {"type": "string", "minLength": 1},
    "arguments": {"type": "array"},
    "retries":   {"type": "integer"}
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func descriptorValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("newjob.json", strings.NewReader(descriptorSchema)); err != nil {
			compileErr = errors.Wrap(err, "add job descriptor schema")
			return
		}
		compiled, compileErr = compiler.Compile("newjob.json")
		if compileErr != nil {
			compileErr = errors.Wrap(compileErr, "compile job descriptor schema")
		}
	})
	return compiled, compileErr
}

// ParseDescriptor decodes and validates a NewJob payload. Failures are
// marked ErrMalformedJobDescriptor. The job type is not checked here.
func ParseDescriptor(payload string) (*Job, error) {
	payload = strings.TrimSpace(payload)

	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.NewMalformedJobError(err, payload)
	}

	schema, err := descriptorValidator()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(raw); err != nil {
		return nil, errors.NewMalformedJobError(err, payload)
	}

	var d struct {
		JobType   string            `json:"jobType"`
		Arguments []json.RawMessage `json:"arguments"`
		Retries   int               `json:"retries"`
	}
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return nil, errors.NewMalformedJobError(err, payload)
	}
	return NewJob(d.JobType, d.Arguments, d.Retries), nil
}
