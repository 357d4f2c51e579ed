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

// Tool declares a local command that stories may call as a function.
type Tool struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// Params maps argument names to type strings ("string", "int?", ...).
	Params  map[string]string `yaml:"params" json:"params"`
	Timeout time.Duration     `yaml:"timeout" json:"timeout"`
}

// ConfigFile is the layout of tools.yaml.
type ConfigFile struct {
	Tools []Tool `yaml:"tools" json:"tools"`
}

// LoadTools reads a YAML or JSON tool list. A missing file means no tools.
func LoadTools(path string) ([]Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	var tools []Tool
	for _, t := range cfg.Tools {
		if t.Name == "" || t.Command == "" {
			continue
		}
		tools = append(tools, t)
	}
	return tools, nil
}
