package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/meshflow/core"
)

// Format selects the serialization used by Export and Import.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps "json", "yaml" or "yml" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported catalog format %q", s)
	}
}

// document is the on-disk shape of an exported catalog.
type document struct {
	Agents []core.AgentDefinition `json:"agents" yaml:"agents"`
}

// ImportOptions controls how Import treats ids that already exist.
type ImportOptions struct {
	// Replace discards the current definition set before importing.
	Replace bool
}

// Export writes the full definition set to w.
func (c *Catalog) Export(w io.Writer, format Format) error {
	doc := document{Agents: c.List()}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported catalog format %q", format)
	}
}

// Import reads a definition set from r. The whole document is validated
// before anything is registered: an invalid entry, an id repeated within the
// document, or (without Replace) an id already in the catalog aborts the
// import and leaves the catalog unchanged.
func (c *Catalog) Import(r io.Reader, format Format, opts ImportOptions) error {
	defs, err := decode(r, format)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: %s", core.ErrDuplicateAgent, d.ID)
		}
		seen[d.ID] = struct{}{}
	}

	if opts.Replace {
		c.replaceAll(defs)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range defs {
		if _, exists := c.defs[d.ID]; exists {
			return fmt.Errorf("%w: %s", core.ErrDuplicateAgent, d.ID)
		}
	}
	for _, d := range defs {
		c.defs[d.ID] = d.Clone()
		c.order = append(c.order, d.ID)
	}
	return nil
}

// LoadFile builds a catalog from a JSON or YAML file, chosen by extension.
func LoadFile(path string) (*Catalog, error) {
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	c := New()
	if err := c.Import(f, format, ImportOptions{}); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

func decode(r io.Reader, format Format) ([]core.AgentDefinition, error) {
	var doc document

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode catalog json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode catalog yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}

	return doc.Agents, nil
}
