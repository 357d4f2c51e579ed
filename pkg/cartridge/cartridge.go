// Package cartridge decodes compiled stories.
//
// A cartridge is accepted as JSON, YAML or story markup (an XML dialect
// with optional YAML front matter). Decoding always yields a tree whose
// nodes carry stable addresses.
package cartridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/tree"
	"gopkg.in/yaml.v3"
)

// Format names a cartridge encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatMarkup Format = "markup"
)

// FormatFor guesses the format from a file name.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatMarkup
	}
}

// Decode parses data in the given format and assigns addresses.
func Decode(data []byte, format Format) (*domain.Cartridge, error) {
	var (
		c   *domain.Cartridge
		err error
	)
	switch format {
	case FormatJSON:
		c, err = decodeStructured(data, json.Unmarshal)
	case FormatYAML:
		c, err = decodeStructured(data, yaml.Unmarshal)
	case FormatMarkup:
		c, err = ParseMarkup(data)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", domain.ErrInvalidCartridge, format)
	}
	if err != nil {
		return nil, err
	}
	Prepare(c)
	return c, nil
}

// LoadFile reads and decodes a cartridge from disk.
func LoadFile(path string) (*domain.Cartridge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cartridge: %w", err)
	}
	c, err := Decode(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return c, nil
}

// Prepare normalizes a cartridge built in code: the root is forced to the
// root tag and addresses are assigned when missing.
func Prepare(c *domain.Cartridge) {
	if c.Root == nil {
		c.Root = &domain.Node{Type: domain.TagRoot}
	}
	if c.Root.Type == "" {
		c.Root.Type = domain.TagRoot
	}
	if !tree.Addressed(c.Root) {
		tree.AssignAddresses(c.Root)
	}
}

func decodeStructured(data []byte, unmarshal func([]byte, any) error) (*domain.Cartridge, error) {
	data = bytes.TrimSpace(data)
	var c domain.Cartridge
	if err := unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCartridge, err)
	}
	if c.Root != nil {
		return &c, nil
	}

	// A bare node document.
	var root domain.Node
	if err := unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCartridge, err)
	}
	if root.Type == "" && len(root.Children) == 0 {
		return nil, fmt.Errorf("%w: no root node", domain.ErrInvalidCartridge)
	}
	return &domain.Cartridge{Root: &root}, nil
}

// Encode serializes a cartridge as indented JSON.
func Encode(c *domain.Cartridge) ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
