// Package catalog - Product-line catalog
// Holds the configured product lines, each validated before it is registered.
package catalog

import (
	"sort"
	"strings"

	"apparel-pricing/core/pricing"
	apperr "apparel-pricing/internal/errors"
)

// Entry is a catalog entry for a product line
type Entry struct {
	Line pricing.ProductLine
	// Styles lists the style numbers sold on this line; empty matches any style
	Styles []string
	// Source is the file the entry was loaded from
	Source string
}

// Matches reports whether the entry serves a style for a decoration method
func (e *Entry) Matches(styleNumber string, method pricing.Method) bool {
	if method != "" && e.Line.Method != method {
		return false
	}
	if len(e.Styles) == 0 {
		return true
	}
	for _, s := range e.Styles {
		if strings.EqualFold(s, styleNumber) {
			return true
		}
	}
	return false
}

// Catalog is the set of product lines the engine can price
type Catalog struct {
	entries map[string]*Entry
}

// NewCatalog creates a new catalog
func NewCatalog() *Catalog {
	return &Catalog{
		entries: make(map[string]*Entry),
	}
}

// Register validates and adds a product line. Names must be unique.
func (c *Catalog) Register(entry Entry) error {
	if err := entry.Line.Validate(); err != nil {
		return err
	}
	if existing, ok := c.entries[entry.Line.Name]; ok {
		return apperr.Configf("product line %q defined twice (%s, %s)", entry.Line.Name, existing.Source, entry.Source)
	}
	c.entries[entry.Line.Name] = &entry
	return nil
}

// Get returns a catalog entry
func (c *Catalog) Get(name string) (*Entry, bool) {
	entry, ok := c.entries[name]
	return entry, ok
}

// Line returns the product line with the given name
func (c *Catalog) Line(name string) (pricing.ProductLine, error) {
	entry, ok := c.entries[name]
	if !ok {
		return pricing.ProductLine{}, apperr.NotFound("product line", name)
	}
	return entry.Line, nil
}

// Engine builds a pricing engine for a named line
func (c *Catalog) Engine(name string) (*pricing.Engine, error) {
	line, err := c.Line(name)
	if err != nil {
		return nil, err
	}
	return pricing.NewEngine(line)
}

// Find returns the first line, by name, that serves the style and method
func (c *Catalog) Find(styleNumber string, method pricing.Method) (*Entry, bool) {
	for _, name := range c.Names() {
		entry := c.entries[name]
		if entry.Matches(styleNumber, method) {
			return entry, true
		}
	}
	return nil, false
}

// Names returns the product line names in sorted order
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of product lines
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Stats returns catalog statistics
func (c *Catalog) Stats() Stats {
	stats := Stats{
		ByMethod: make(map[pricing.Method]int),
	}
	for _, entry := range c.entries {
		stats.Total++
		stats.ByMethod[entry.Line.Method]++
		if entry.Line.LTM.Enabled() {
			stats.WithLTM++
		}
	}
	return stats
}

// Stats holds catalog statistics
type Stats struct {
	Total    int
	ByMethod map[pricing.Method]int
	WithLTM  int
}
