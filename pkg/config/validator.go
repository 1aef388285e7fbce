package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError lists every schema violation found in a configuration
type ValidationError struct {
	Source string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration %s is not valid:\n  - %s", e.Source, strings.Join(e.Issues, "\n  - "))
}

// Validate validates a configuration file against the JSON schema
func Validate(configFile string) error {
	abs, err := filepath.Abs(configFile)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	return validate(configFile, gojsonschema.NewReferenceLoader("file://"+filepath.ToSlash(abs)))
}

// ValidateConfig validates an already loaded configuration, including values
// that came from the environment rather than the file
func ValidateConfig(cfg *Config) error {
	return validate("settings", gojsonschema.NewGoLoader(cfg))
}

func validate(source string, document gojsonschema.JSONLoader) error {
	schemaLoader := gojsonschema.NewStringLoader(Schema)

	result, err := gojsonschema.Validate(schemaLoader, document)
	if err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}

	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return &ValidationError{Source: source, Issues: issues}
	}

	return nil
}
