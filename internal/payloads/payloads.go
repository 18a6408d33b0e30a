// Package payloads holds the probe strings injected into parameters and the
// database error signatures used to recognize SQL error leakage.
package payloads

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/raysh454/vulnprobe/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Catalog is an ordered set of payloads per kind plus SQL error signatures.
type Catalog struct {
	SQL        []string `yaml:"sql" json:"sql"`
	XSS        []string `yaml:"xss" json:"xss"`
	Signatures []string `yaml:"signatures" json:"signatures"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("payloads: embedded catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile reads a YAML catalog from path. Lists left empty in the file fall
// back to the built-in ones.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	def := Default()
	if len(c.SQL) == 0 {
		c.SQL = def.SQL
	}
	if len(c.XSS) == 0 {
		c.XSS = def.XSS
	}
	if len(c.Signatures) == 0 {
		c.Signatures = def.Signatures
	}
	return &c, nil
}

// Validate rejects a catalog with no payloads or no signatures.
func (c *Catalog) Validate() error {
	if len(c.SQL) == 0 && len(c.XSS) == 0 {
		return errors.New("catalog has no payloads")
	}
	if len(c.Signatures) == 0 {
		return errors.New("catalog has no sql error signatures")
	}
	return nil
}

// For returns the payloads of one kind, in catalog order.
func (c *Catalog) For(kind model.Kind) []string {
	switch kind {
	case model.KindSQL:
		return c.SQL
	case model.KindXSS:
		return c.XSS
	}
	return nil
}

// Len counts the payloads across all kinds.
func (c *Catalog) Len() int {
	return len(c.SQL) + len(c.XSS)
}
