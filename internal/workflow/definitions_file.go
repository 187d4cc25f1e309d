package workflow

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk form of a definitions file.
//
//	roles:
//	  supervisor: [supervisor, manager, admin]
//	definitions:
//	  - category: standard
//	    steps:
//	      - {order: 1, name: Supervisor Review, approver_role: supervisor, required: true}
type Catalog struct {
	Roles       map[Role][]Role `yaml:"roles"`
	Definitions []Definition    `yaml:"definitions"`
}

// ParseCatalog decodes a YAML catalog. Unknown fields are rejected.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("definitions: empty catalog")
		}
		return nil, fmt.Errorf("definitions: parse catalog: %w", err)
	}
	if len(c.Definitions) == 0 {
		return nil, fmt.Errorf("definitions: catalog has no definitions")
	}
	return &c, nil
}

// LoadCatalogFile reads and parses the catalog at path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("definitions: open %s: %w", path, err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

// Provider builds a validated StaticProvider from the catalog.
func (c *Catalog) Provider() (*StaticProvider, error) {
	return NewStaticProvider(c.Definitions)
}

// RoleTable returns the catalog's role table, or nil when it does not
// override the default one.
func (c *Catalog) RoleTable() RoleTable {
	if len(c.Roles) == 0 {
		return nil
	}
	return RoleTable(c.Roles)
}
