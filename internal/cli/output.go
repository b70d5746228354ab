package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Structured output formats.
const (
	OutputYAML = "yaml"
	OutputJSON = "json"
)

func checkOutputFormat(format string) error {
	if format != OutputYAML && format != OutputJSON {
		return fmt.Errorf("unknown output format %q, expected yaml or json", format)
	}
	return nil
}

// writeStructured encodes v as YAML or indented JSON.
func writeStructured(w io.Writer, format string, v any) error {
	if err := checkOutputFormat(format); err != nil {
		return err
	}
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
