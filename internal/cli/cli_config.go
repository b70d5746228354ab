package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied before the config file and environment are read.
const (
	DefaultOutput = OutputYAML
	DefaultListen = ":8080"
)

// CLIConfig represents the configuration for the CLI
type CLIConfig struct {
	// Output is the default structured output format (yaml or json)
	Output string `yaml:"output"`
	// CloudInit is the default cloud-init storage for parse, validate and render
	CloudInit string `yaml:"cloudInit"`
	// Node is the default Proxmox node name
	Node string `yaml:"node"`
	// Listen is the API listen address for serve
	Listen string `yaml:"listen"`
}

// LoadCLIConfig loads configuration from multiple sources in order of precedence:
// 1. Flags (handled by caller)
// 2. Environment variables
// 3. Config file (~/.pveconf/config.yaml)
func LoadCLIConfig() (*CLIConfig, error) {
	config := &CLIConfig{
		Output: DefaultOutput,
		Listen: DefaultListen,
	}

	// 1. Load from config file
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".pveconf", "config.yaml")
		if data, err := os.ReadFile(configPath); err == nil {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		}
	}

	// 2. Load from environment variables (override config file)
	if env := os.Getenv("PVECONF_OUTPUT"); env != "" {
		config.Output = env
	}
	if env := os.Getenv("PVECONF_CLOUD_INIT"); env != "" {
		config.CloudInit = env
	}
	if env := os.Getenv("PVECONF_NODE"); env != "" {
		config.Node = env
	}
	if env := os.Getenv("PVECONF_LISTEN"); env != "" {
		config.Listen = env
	}

	if err := checkOutputFormat(config.Output); err != nil {
		return nil, err
	}
	return config, nil
}
