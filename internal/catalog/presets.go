package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// HairColor is a named color suggestion for haircolor-rgb.
type HairColor struct {
	Name     string  `yaml:"name" json:"name"`
	Hex      string  `yaml:"hex" json:"hex"`
	Strength float64 `yaml:"strength" json:"strength"`
}

// PaddingDirection documents an expand-photo direction preset.
type PaddingDirection struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Presets is static lookup data shown by the CLI. The job workflow never
// reads it.
type Presets struct {
	HairColors        map[string][]HairColor `yaml:"hair_colors" json:"hair_colors"`
	PaddingDirections []PaddingDirection     `yaml:"padding_directions" json:"padding_directions"`
	Tips              map[string][]string    `yaml:"tips" json:"tips"`
}

// LoadPresets decodes the embedded presets document.
func LoadPresets() (*Presets, error) {
	return ParsePresets(presetsYAML)
}

// ParsePresets decodes a presets document and checks every hair color.
func ParsePresets(data []byte) (*Presets, error) {
	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("catalog: decode presets: %w", err)
	}
	for category, colors := range p.HairColors {
		for _, c := range colors {
			if !hexColorPattern.MatchString(c.Hex) {
				return nil, fmt.Errorf("catalog: preset %s/%s has invalid hex %q", category, c.Name, c.Hex)
			}
			if c.Strength < 0.1 || c.Strength > 1 {
				return nil, fmt.Errorf("catalog: preset %s/%s strength %v out of range", category, c.Name, c.Strength)
			}
		}
	}
	return &p, nil
}

// HairColorCategories returns the category names in sorted order.
func (p *Presets) HairColorCategories() []string {
	out := make([]string, 0, len(p.HairColors))
	for name := range p.HairColors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// TipsFor returns the tips recorded for an operation, if any.
func (p *Presets) TipsFor(operation string) []string {
	return p.Tips[operation]
}
