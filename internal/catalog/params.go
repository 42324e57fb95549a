package catalog

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"imagejobs/internal/lightx"
)

// MaxPromptLength is the longest text prompt the service accepts, counted in
// characters after NFC normalization.
const MaxPromptLength = 500

// ParamKind selects how a raw parameter string is parsed.
type ParamKind string

const (
	KindPrompt   ParamKind = "prompt"
	KindString   ParamKind = "string"
	KindEnum     ParamKind = "enum"
	KindInt      ParamKind = "int"
	KindFloat    ParamKind = "float"
	KindBool     ParamKind = "bool"
	KindHexColor ParamKind = "hex_color"
)

// ParamSpec declares one operation parameter and the payload field it feeds.
type ParamSpec struct {
	Name        string    `json:"name"`
	Kind        ParamKind `json:"kind"`
	Required    bool      `json:"required"`
	Default     string    `json:"default,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Description string    `json:"description,omitempty"`
}

var hexColorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

func bound(v float64) *float64 { return &v }

// NormalizePrompt applies NFC normalization and trims surrounding space.
func NormalizePrompt(raw string) string {
	return strings.TrimSpace(norm.NFC.String(raw))
}

// validateParams checks params against specs and returns the payload fields.
// Keys outside specs and extra are refused.
func validateParams(specs []ParamSpec, params lightx.Params, extra ...string) (map[string]any, error) {
	known := make(map[string]struct{}, len(specs)+len(extra))
	for _, spec := range specs {
		known[spec.Name] = struct{}{}
	}
	for _, name := range extra {
		known[name] = struct{}{}
	}
	var unknown []string
	for name := range params {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, lightx.InvalidParamsf("unknown parameter(s): %s", strings.Join(unknown, ", "))
	}

	out := make(map[string]any, len(specs))
	for _, spec := range specs {
		raw := strings.TrimSpace(params[spec.Name])
		if raw == "" {
			raw = spec.Default
		}
		if raw == "" {
			if spec.Required {
				return nil, lightx.InvalidParamsf("%s is required", spec.Name)
			}
			continue
		}
		value, err := spec.parse(raw)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = value
	}
	return out, nil
}

func (s ParamSpec) parse(raw string) (any, error) {
	switch s.Kind {
	case KindPrompt:
		prompt := NormalizePrompt(raw)
		if n := utf8.RuneCountInString(prompt); n > MaxPromptLength {
			return nil, lightx.InvalidParamsf("%s is %d characters, limit %d", s.Name, n, MaxPromptLength)
		}
		if prompt == "" && s.Required {
			return nil, lightx.InvalidParamsf("%s is required", s.Name)
		}
		return prompt, nil
	case KindString:
		return raw, nil
	case KindEnum:
		if !contains(s.Enum, raw) {
			return nil, lightx.InvalidParamsf("%s must be one of %s", s.Name, strings.Join(s.Enum, ", "))
		}
		return raw, nil
	case KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, lightx.InvalidParamsf("%s must be an integer", s.Name)
		}
		if len(s.Enum) > 0 && !contains(s.Enum, strconv.Itoa(n)) {
			return nil, lightx.InvalidParamsf("%s must be one of %s", s.Name, strings.Join(s.Enum, ", "))
		}
		if err := s.checkRange(float64(n)); err != nil {
			return nil, err
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		// NaN slips past every range comparison and cannot be sent as JSON
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, lightx.InvalidParamsf("%s must be a finite number", s.Name)
		}
		if err := s.checkRange(f); err != nil {
			return nil, err
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, lightx.InvalidParamsf("%s must be true or false", s.Name)
		}
		return b, nil
	case KindHexColor:
		if !hexColorPattern.MatchString(raw) {
			return nil, lightx.InvalidParamsf("%s must be a hex color like #FF0000 or #F00", s.Name)
		}
		return strings.ToUpper(raw), nil
	default:
		return nil, fmt.Errorf("catalog: parameter %s has unknown kind %q", s.Name, s.Kind)
	}
}

func (s ParamSpec) checkRange(v float64) error {
	if s.Min != nil && v < *s.Min {
		return lightx.InvalidParamsf("%s must be at least %s", s.Name, formatBound(*s.Min))
	}
	if s.Max != nil && v > *s.Max {
		return lightx.InvalidParamsf("%s must be at most %s", s.Name, formatBound(*s.Max))
	}
	return nil
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
