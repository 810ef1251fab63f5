// Package geo resolves free-text geographic hints and raw coordinates to a
// catalog of named regions of interest. No geocoding API is involved: the
// catalog is a fixed set of bounding boxes with keyword aliases, built in for
// the default watch areas and overridable from a YAML file.
package geo

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Region is a named watch area with a bounding box and the keywords that map
// a narrative's free-text geographic focus onto it.
type Region struct {
	Name     string   `yaml:"name"`
	LatMin   float64  `yaml:"lat_min"`
	LatMax   float64  `yaml:"lat_max"`
	LonMin   float64  `yaml:"lon_min"`
	LonMax   float64  `yaml:"lon_max"`
	Keywords []string `yaml:"keywords"`
}

// Contains reports whether the coordinate falls inside the bounding box.
// Boundaries are inclusive.
func (r *Region) Contains(lat, lon float64) bool {
	return lat >= r.LatMin && lat <= r.LatMax && lon >= r.LonMin && lon <= r.LonMax
}

// Registry holds the ordered region catalog. Order matters: when a focus
// string or coordinate matches more than one region, the first wins.
type Registry struct {
	regions []Region
}

// DefaultRegions is the built-in watch area catalog. The Taiwan Strait box
// matches the upstream classifier's training distribution (23-26N, 118-122E).
func DefaultRegions() []Region {
	return []Region{
		{
			Name:     "Taiwan Strait",
			LatMin:   23.0,
			LatMax:   26.0,
			LonMin:   118.0,
			LonMax:   122.0,
			Keywords: []string{"taiwan", "strait", "fujian"},
		},
		{
			Name:     "South China Sea",
			LatMin:   5.0,
			LatMax:   22.0,
			LonMin:   108.0,
			LonMax:   120.0,
			Keywords: []string{"south china sea", "spratly", "paracel", "scarborough"},
		},
		{
			Name:     "East China Sea",
			LatMin:   26.0,
			LatMax:   33.0,
			LonMin:   120.0,
			LonMax:   130.0,
			Keywords: []string{"east china sea", "senkaku", "diaoyu", "ryukyu"},
		},
	}
}

// NewRegistry creates a registry from the given regions
func NewRegistry(regions []Region) (*Registry, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("region catalog is empty")
	}
	seen := make(map[string]bool, len(regions))
	for _, r := range regions {
		if r.Name == "" {
			return nil, fmt.Errorf("region with empty name")
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate region name %q", r.Name)
		}
		seen[r.Name] = true
		if r.LatMin >= r.LatMax || r.LonMin >= r.LonMax {
			return nil, fmt.Errorf("region %q has an invalid bounding box", r.Name)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("region %q has no keywords", r.Name)
		}
	}
	return &Registry{regions: regions}, nil
}

// NewDefaultRegistry creates a registry with the built-in catalog
func NewDefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultRegions())
	if err != nil {
		// The built-in catalog is validated by tests; this cannot happen.
		panic(err)
	}
	return reg
}

// LoadRegistry reads a region catalog from a YAML file
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region catalog: %w", err)
	}
	var regions []Region
	if err := yaml.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("failed to parse region catalog: %w", err)
	}
	return NewRegistry(regions)
}

// Regions returns the catalog in priority order
func (g *Registry) Regions() []Region {
	return g.regions
}

// Resolve maps a free-text geographic focus onto a region via
// case-insensitive keyword substring matching. An empty or unrecognized
// focus resolves to nil; that is not an error, just no match.
func (g *Registry) Resolve(focus string) *Region {
	if focus == "" {
		return nil
	}
	lowered := strings.ToLower(focus)
	for i := range g.regions {
		for _, kw := range g.regions[i].Keywords {
			if strings.Contains(lowered, kw) {
				return &g.regions[i]
			}
		}
	}
	return nil
}

// Locate returns the first region whose bounding box contains the coordinate,
// or nil if the point falls outside every watch area.
func (g *Registry) Locate(lat, lon float64) *Region {
	for i := range g.regions {
		if g.regions[i].Contains(lat, lon) {
			return &g.regions[i]
		}
	}
	return nil
}

// Get returns the region with the given name, or nil
func (g *Registry) Get(name string) *Region {
	for i := range g.regions {
		if g.regions[i].Name == name {
			return &g.regions[i]
		}
	}
	return nil
}
