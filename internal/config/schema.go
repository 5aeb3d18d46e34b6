package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed job.schema.json
var jobSchemaJSON []byte

var (
	jobSchema     *gojsonschema.Schema
	jobSchemaOnce sync.Once
	jobSchemaErr  error
)

func getJobSchema() (*gojsonschema.Schema, error) {
	jobSchemaOnce.Do(func() {
		jobSchema, jobSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jobSchemaJSON))
	})
	return jobSchema, jobSchemaErr
}

// SchemaError lists the violations of a job document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "invalid job: " + strings.Join(e.Problems, "; ")
}

// validateJob checks a decoded job document against the job schema.
func validateJob(doc any) error {
	schema, err := getJobSchema()
	if err != nil {
		return fmt.Errorf("compiling job schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating job: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return &SchemaError{Problems: problems}
}
