package config

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/getmockd/entityd/pkg/entity"
	"github.com/getmockd/entityd/pkg/logging"
)

// ErrSchema is wrapped by errors for documents that do not match the
// configuration schema.
var ErrSchema = errors.New("configuration does not match schema")

//go:embed config.schema.json
var schemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Schema returns the embedded JSON Schema for configuration files.
func Schema() string {
	return schemaJSON
}

// ValidationError is a single configuration problem.
type ValidationError struct {
	Path    string // config path, e.g. "server.port" or "/seed/inline/0/id"
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationResult collects every problem found in a configuration.
type ValidationResult struct {
	Errors []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Error returns a combined error message.
func (r *ValidationResult) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(path, message string) {
	r.Errors = append(r.Errors, ValidationError{Path: path, Message: message})
}

// Err returns the result as an error, or nil when valid.
func (r *ValidationResult) Err() error {
	if r.IsValid() {
		return nil
	}
	return r
}

// ValidateSchema checks a decoded document (as produced by encoding/json with
// UseNumber) against the embedded schema. Failures wrap ErrSchema.
func ValidateSchema(doc any) error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("config.schema.json", strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("config.schema.json")
	})
	if schemaErr != nil {
		return schemaErr
	}

	err := compiledSchema.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	result := &ValidationResult{}
	collectSchemaErrors(verr, result)
	return fmt.Errorf("%w:\n%w", ErrSchema, result)
}

func collectSchemaErrors(err *jsonschema.ValidationError, result *ValidationResult) {
	if len(err.Causes) == 0 {
		path := err.InstanceLocation
		if path == "" {
			path = "/"
		}
		result.AddError(path, err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, result)
	}
}

// Validate performs semantic checks the schema cannot express. It returns a
// *ValidationResult listing every problem, or nil.
func (c *Config) Validate() error {
	result := &ValidationResult{}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		result.AddError("server.port", fmt.Sprintf("must be between 0 and 65535, got %d", c.Server.Port))
	}
	if bp := c.Server.BasePath; bp != "" && (!strings.HasPrefix(bp, "/") || strings.HasSuffix(bp, "/")) {
		result.AddError("server.basePath", fmt.Sprintf("must start with / and not end with /, got %q", bp))
	}
	if c.Server.MaxBodySize <= 0 {
		result.AddError("server.maxBodySize", "must be positive")
	}

	if c.Store.Name == "" || strings.ContainsAny(c.Store.Name, "/{} ") {
		result.AddError("store.name", fmt.Sprintf("must be a single path segment, got %q", c.Store.Name))
	} else if path := c.Server.BasePath + "/" + c.Store.Name; slices.Contains(reservedPaths, path) {
		result.AddError("store.name", fmt.Sprintf("resource path %s collides with a built-in route", path))
	} else if c.Store.Name == "openapi.json" || c.Store.Name == "openapi.yaml" {
		result.AddError("store.name", fmt.Sprintf("%q is reserved for the OpenAPI document", c.Store.Name))
	}
	if _, err := entity.ParseScope(c.Store.Scope); err != nil {
		result.AddError("store.scope", err.Error())
	}
	if c.Store.MaxPageSize < 1 {
		result.AddError("store.maxPageSize", "must be at least 1")
	}
	if c.Store.EventBuffer < 1 {
		result.AddError("store.eventBuffer", "must be at least 1")
	}

	if !validLevel(c.Log.Level) {
		result.AddError("log.level", fmt.Sprintf("unknown level %q (valid: debug, info, warn, error)", c.Log.Level))
	}
	if f := strings.ToLower(c.Log.Format); f != string(logging.FormatText) && f != string(logging.FormatJSON) {
		result.AddError("log.format", fmt.Sprintf("unknown format %q (valid: text, json)", c.Log.Format))
	}

	seen := make(map[int64]int, len(c.Seed.Inline))
	for i, m := range c.Seed.Inline {
		path := fmt.Sprintf("seed.inline[%d]", i)
		e, err := entity.FromMap(m)
		if err != nil {
			result.AddError(path, err.Error())
			continue
		}
		if prev, dup := seen[e.ID]; dup {
			result.AddError(path, fmt.Sprintf("duplicate id %d (first at seed.inline[%d])", e.ID, prev))
			continue
		}
		seen[e.ID] = i
	}
	for i, pattern := range c.Seed.Files {
		if strings.TrimSpace(pattern) == "" {
			result.AddError(fmt.Sprintf("seed.files[%d]", i), "must not be empty")
		}
	}

	return result.Err()
}

// reservedPaths are served by the server itself and cannot host a resource.
var reservedPaths = []string{"/health", "/metrics", "/admin/stats", "/admin/reset", "/admin/entities"}

func validLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
