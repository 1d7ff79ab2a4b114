// Package location holds the fixed administrative hierarchy complaints are
// filed against and the category catalogue shown to citizens.
package location

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/civicdesk/complaints-service/internal/domain"
)

//go:embed rwanda.yaml
var rwandaYAML []byte

// CategoryInfo describes a complaint category and the agency usually in charge.
type CategoryInfo struct {
	ID          domain.Category `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Agency      string          `yaml:"agency" json:"agency"`
	Description string          `yaml:"description" json:"description"`
}

// District is a second-level unit with its sectors.
type District struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Sectors []string `yaml:"sectors" json:"sectors"`
}

// Province is a top-level unit.
type Province struct {
	ID        string     `yaml:"id" json:"id"`
	Name      string     `yaml:"name" json:"name"`
	Districts []District `yaml:"districts" json:"districts"`
}

// Hierarchy validates locations against the loaded provinces.
type Hierarchy struct {
	Provinces  []Province
	categories []CategoryInfo
	index      map[string]map[string]map[string]string
}

type document struct {
	Categories []CategoryInfo `yaml:"categories"`
	Provinces  []Province     `yaml:"provinces"`
}

var (
	defaultOnce sync.Once
	defaultH    *Hierarchy
	defaultErr  error
)

// Default returns the embedded hierarchy, parsed once.
func Default() (*Hierarchy, error) {
	defaultOnce.Do(func() {
		defaultH, defaultErr = Parse(rwandaYAML)
	})
	return defaultH, defaultErr
}

// MustDefault is Default for wiring code that cannot continue without it.
func MustDefault() *Hierarchy {
	h, err := Default()
	if err != nil {
		panic(err)
	}
	return h
}

// Parse builds a Hierarchy from YAML.
func Parse(raw []byte) (*Hierarchy, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse hierarchy: %w", err)
	}
	if len(doc.Provinces) == 0 {
		return nil, fmt.Errorf("parse hierarchy: no provinces")
	}
	for _, cat := range doc.Categories {
		if !cat.ID.Valid() {
			return nil, fmt.Errorf("parse hierarchy: unknown category %q", cat.ID)
		}
	}

	h := &Hierarchy{
		Provinces:  doc.Provinces,
		categories: doc.Categories,
		index:      make(map[string]map[string]map[string]string, len(doc.Provinces)),
	}
	for _, province := range doc.Provinces {
		districts := make(map[string]map[string]string, len(province.Districts))
		for _, district := range province.Districts {
			sectors := make(map[string]string, len(district.Sectors))
			for _, sector := range district.Sectors {
				sectors[key(sector)] = sector
			}
			districts[key(district.ID)] = sectors
		}
		h.index[key(province.ID)] = districts
	}
	return h, nil
}

// Categories returns the category catalogue.
func (h *Hierarchy) Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(h.categories))
	copy(out, h.categories)
	return out
}

// Validate reports every violated field of loc keyed by province, district or
// sector. A district is only checked when its province is known, a sector only
// when its district is known.
func (h *Hierarchy) Validate(loc domain.Location) map[string]string {
	violations := map[string]string{}
	if strings.TrimSpace(loc.Province) == "" {
		violations["province"] = "province is required"
	}
	if strings.TrimSpace(loc.District) == "" {
		violations["district"] = "district is required"
	}
	if strings.TrimSpace(loc.Sector) == "" {
		violations["sector"] = "sector is required"
	}

	districts, ok := h.index[key(loc.Province)]
	if !ok {
		if _, missing := violations["province"]; !missing {
			violations["province"] = fmt.Sprintf("unknown province %q", loc.Province)
		}
		return violations
	}
	sectors, ok := districts[key(loc.District)]
	if !ok {
		if _, missing := violations["district"]; !missing {
			violations["district"] = fmt.Sprintf("district %q is not in province %q", loc.District, loc.Province)
		}
		return violations
	}
	if _, ok := sectors[key(loc.Sector)]; !ok {
		if _, missing := violations["sector"]; !missing {
			violations["sector"] = fmt.Sprintf("sector %q is not in district %q", loc.Sector, loc.District)
		}
	}
	return violations
}

// Canonical returns loc with ids lowercased and the sector spelled as in the
// hierarchy. Call it only on a location that passed Validate.
func (h *Hierarchy) Canonical(loc domain.Location) domain.Location {
	out := domain.Location{
		Province: key(loc.Province),
		District: key(loc.District),
		Sector:   strings.TrimSpace(loc.Sector),
	}
	if sectors, ok := h.index[out.Province][out.District]; ok {
		if name, ok := sectors[key(loc.Sector)]; ok {
			out.Sector = name
		}
	}
	return out
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
