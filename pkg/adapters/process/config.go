package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ToolConfig describes an external alignment command.
//
// The chain is written to the command's stdin as FASTA. Args may reference
// {chain_id} and {library_version}; the same values are exported as
// DOMAINDETECT_CHAIN_ID and DOMAINDETECT_LIBRARY_VERSION.
type ToolConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`

	// Format of stdout: "tsv" (default) or "json".
	Format   string `yaml:"format" json:"format"`
	JSONPath string `yaml:"jsonpath" json:"jsonpath"`

	// Rate caps invocations per second across all chains. Zero means unlimited.
	Rate    float64 `yaml:"rate" json:"rate"`
	Burst   int     `yaml:"burst" json:"burst"`
	Timeout string  `yaml:"timeout" json:"timeout"`
}

// ConfigFile represents the structure of tools.yaml
type ConfigFile struct {
	Tools []ToolConfig `yaml:"tools" json:"tools"`
}

// LoadTools reads a configuration file (YAML or JSON) and returns a map of tool names to configs.
// A missing file yields an empty map.
func LoadTools(path string) (map[string]ToolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ToolConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	toolMap := make(map[string]ToolConfig)
	for _, tool := range cfg.Tools {
		if tool.Name == "" {
			continue
		}
		if err := tool.Validate(); err != nil {
			return nil, err
		}
		toolMap[tool.Name] = tool
	}
	return toolMap, nil
}

// Validate checks that the tool can be run.
func (t ToolConfig) Validate() error {
	if t.Command == "" {
		return fmt.Errorf("tool %q: command is required", t.Name)
	}
	if t.Rate < 0 || t.Burst < 0 {
		return fmt.Errorf("tool %q: rate and burst must not be negative", t.Name)
	}
	if _, err := t.timeout(); err != nil {
		return fmt.Errorf("tool %q: %w", t.Name, err)
	}
	return nil
}

func (t ToolConfig) timeout() (time.Duration, error) {
	if t.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(t.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout: %w", err)
	}
	return d, nil
}
