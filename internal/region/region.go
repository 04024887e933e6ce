// Package region maps region identifiers to the one-byte codes embedded in
// file ids.
package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
)

type Region struct {
	ID   string `json:"id"`
	Code byte   `json:"code"`
	Name string `json:"name,omitempty"`
}

// Catalog is immutable once built.
type Catalog struct {
	regions map[string]Region
}

func NewCatalog(regions ...Region) (*Catalog, error) {
	c := &Catalog{regions: make(map[string]Region, len(regions))}
	seen := make(map[byte]string, len(regions))
	for _, r := range regions {
		if r.ID == "" {
			return nil, errors.New("region id is required")
		}
		if _, dup := c.regions[r.ID]; dup {
			return nil, fmt.Errorf("duplicate region %q", r.ID)
		}
		if other, dup := seen[r.Code]; dup {
			return nil, fmt.Errorf("regions %q and %q share code %d", other, r.ID, r.Code)
		}
		seen[r.Code] = r.ID
		c.regions[r.ID] = r
	}
	return c, nil
}

// Load reads a JSON array of regions. A missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewCatalog()
	}
	if err != nil {
		return nil, fmt.Errorf("read regions: %w", err)
	}
	var regions []Region
	if err := json.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("parse regions %s: %w", path, err)
	}
	return NewCatalog(regions...)
}

// Code returns the configured code for id, or a stable hash-derived code
// when the region is not listed.
func (c *Catalog) Code(id string) byte {
	r, ok := c.regions[id]
	if ok {
		return r.Code
	}
	h := fnv.New32a()
	h.Write([]byte(id))
	return byte(h.Sum32())
}

func (c *Catalog) Lookup(id string) (Region, bool) {
	r, ok := c.regions[id]
	return r, ok
}

func (c *Catalog) List() []Region {
	out := make([]Region, 0, len(c.regions))
	for _, r := range c.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
