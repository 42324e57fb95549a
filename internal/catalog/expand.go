package catalog

import "imagejobs/internal/lightx"

// DefaultExpandAmount is the padding applied by a direction preset when no
// amount is given.
const DefaultExpandAmount = 100

var paddingParams = []ParamSpec{
	{Name: "leftPadding", Kind: KindInt, Min: bound(0), Description: "pixels added on the left"},
	{Name: "rightPadding", Kind: KindInt, Min: bound(0), Description: "pixels added on the right"},
	{Name: "topPadding", Kind: KindInt, Min: bound(0), Description: "pixels added on top"},
	{Name: "bottomPadding", Kind: KindInt, Min: bound(0), Description: "pixels added at the bottom"},
}

var directionParams = []ParamSpec{
	{Name: "direction", Kind: KindEnum, Enum: []string{"horizontal", "vertical", "all", "custom"}, Description: "padding preset"},
	{Name: "amount", Kind: KindInt, Min: bound(1), Description: "preset padding in pixels"},
}

// paddingFor expands a direction preset into the four padding fields.
func paddingFor(direction string, amount int) map[string]any {
	left, right, top, bottom := 0, 0, 0, 0
	switch direction {
	case "horizontal":
		left, right = amount, amount
	case "vertical":
		top, bottom = amount, amount
	case "all":
		left, right, top, bottom = amount, amount, amount, amount
	}
	return map[string]any{
		"leftPadding":   left,
		"rightPadding":  right,
		"topPadding":    top,
		"bottomPadding": bottom,
	}
}

func expandParams(p lightx.Params) (map[string]any, error) {
	preset, err := validateParams(directionParams, pick(p, "direction", "amount"))
	if err != nil {
		return nil, err
	}
	explicit, err := validateParams(paddingParams, omit(p, "direction", "amount"))
	if err != nil {
		return nil, err
	}

	direction, _ := preset["direction"].(string)
	if direction != "" && direction != "custom" {
		if len(explicit) > 0 {
			return nil, lightx.InvalidParamsf("direction %s cannot be combined with explicit padding", direction)
		}
		amount := DefaultExpandAmount
		if n, ok := preset["amount"].(int); ok {
			amount = n
		}
		return paddingFor(direction, amount), nil
	}
	if _, ok := preset["amount"]; ok {
		return nil, lightx.InvalidParamsf("amount requires a horizontal, vertical or all direction")
	}

	out := paddingFor("", 0)
	total := 0
	for name, v := range explicit {
		n := v.(int)
		out[name] = n
		total += n
	}
	if total == 0 {
		return nil, lightx.InvalidParamsf("at least one padding must be greater than zero")
	}
	return out, nil
}

func expandPhotoEntry() Entry {
	specs := append(append([]ParamSpec{}, directionParams...), paddingParams...)
	return Entry{
		Operation: lightx.Operation{
			Name:        "expand-photo",
			Description: "Outpaint a photo beyond its borders",
			Endpoint:    "v1/expand-photo",
			Inputs:      []lightx.InputSlot{imageSlot},
			Params:      expandParams,
		},
		Params: specs,
	}
}

func pick(p lightx.Params, names ...string) lightx.Params {
	out := lightx.Params{}
	for _, name := range names {
		if v, ok := p[name]; ok {
			out[name] = v
		}
	}
	return out
}

func omit(p lightx.Params, names ...string) lightx.Params {
	out := lightx.Params{}
	for k, v := range p {
		if !contains(names, k) {
			out[k] = v
		}
	}
	return out
}
