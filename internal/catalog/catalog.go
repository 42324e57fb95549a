// Package catalog registers the LightX operations: endpoint, asset slots and
// parameter validation for each feature. The job core receives them as plain
// lightx.Operation descriptors.
package catalog

import (
	"sort"
	"strings"

	"imagejobs/internal/lightx"
)

// Entry is a registered operation with the parameter specs behind its
// validator.
type Entry struct {
	Operation lightx.Operation
	Params    []ParamSpec
}

// Descriptor is the listing form of an entry.
type Descriptor struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Endpoint       string         `json:"endpoint"`
	StatusEndpoint string         `json:"status_endpoint"`
	Inputs         []InputSummary `json:"inputs"`
	Params         []ParamSpec    `json:"params"`
}

// InputSummary describes an asset slot in listings.
type InputSummary struct {
	Name     string `json:"name"`
	Field    string `json:"field"`
	Required bool   `json:"required"`
}

// Catalog is an immutable set of operations keyed by name.
type Catalog struct {
	entries map[string]Entry
	names   []string
}

// New builds a catalog from entries. Later entries replace earlier ones with
// the same name.
func New(entries ...Entry) *Catalog {
	c := &Catalog{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if _, exists := c.entries[e.Operation.Name]; !exists {
			c.names = append(c.names, e.Operation.Name)
		}
		c.entries[e.Operation.Name] = e
	}
	sort.Strings(c.names)
	return c
}

// Default returns the catalog of every supported LightX feature.
func Default() *Catalog {
	return New(defaultEntries()...)
}

// Lookup returns the operation registered under name.
func (c *Catalog) Lookup(name string) (lightx.Operation, error) {
	e, ok := c.entries[strings.TrimSpace(name)]
	if !ok {
		return lightx.Operation{}, lightx.InvalidParamsf("unknown operation %q", name)
	}
	return e.Operation, nil
}

// Names lists operation names in sorted order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Describe lists every operation in sorted order.
func (c *Catalog) Describe() []Descriptor {
	out := make([]Descriptor, 0, len(c.names))
	for _, name := range c.names {
		e := c.entries[name]
		inputs := make([]InputSummary, 0, len(e.Operation.Inputs))
		for _, in := range e.Operation.Inputs {
			inputs = append(inputs, InputSummary{Name: in.Name, Field: in.Field, Required: in.Required})
		}
		params := e.Params
		if params == nil {
			params = []ParamSpec{}
		}
		out = append(out, Descriptor{
			Name:           name,
			Description:    e.Operation.Description,
			Endpoint:       e.Operation.Endpoint,
			StatusEndpoint: e.Operation.StatusPath(),
			Inputs:         inputs,
			Params:         params,
		})
	}
	return out
}

var (
	imageSlot     = lightx.InputSlot{Name: "image", Field: "imageUrl", Required: true}
	maskSlot      = lightx.InputSlot{Name: "mask", Field: "maskedImageUrl", Required: true}
	styleSlot     = lightx.InputSlot{Name: "style", Field: "styleImageUrl"}
	styleRequired = lightx.InputSlot{Name: "style", Field: "styleImageUrl", Required: true}
	filterSlot    = lightx.InputSlot{Name: "filterReference", Field: "filterReferenceUrl"}
)

func prompt(required bool, description string) ParamSpec {
	return ParamSpec{Name: "textPrompt", Kind: KindPrompt, Required: required, Description: description}
}

func strengthParams() []ParamSpec {
	return []ParamSpec{
		{Name: "strength", Kind: KindFloat, Required: true, Min: bound(0), Max: bound(1), Description: "how closely the output follows the input image"},
		prompt(true, "description of the desired output"),
		{Name: "styleStrength", Kind: KindFloat, Min: bound(0), Max: bound(1), Description: "influence of the style image"},
	}
}

// entry builds a catalog entry whose validator is derived from params.
func entry(name, endpoint, description string, inputs []lightx.InputSlot, params ...ParamSpec) Entry {
	return Entry{
		Operation: lightx.Operation{
			Name:        name,
			Description: description,
			Endpoint:    endpoint,
			Inputs:      inputs,
			Params: func(p lightx.Params) (map[string]any, error) {
				return validateParams(params, p)
			},
		},
		Params: params,
	}
}

func defaultEntries() []Entry {
	image := []lightx.InputSlot{imageSlot}
	imageStyle := []lightx.InputSlot{imageSlot, styleSlot}

	return []Entry{
		entry("remove-background", "v1/remove-background", "Remove the background of a photo", image,
			ParamSpec{Name: "background", Kind: KindString, Default: "transparent", Description: "replacement background color or keyword"}),
		entry("cleanup-picture", "v1/cleanup-picture", "Erase the masked area of a photo",
			[]lightx.InputSlot{imageSlot, maskSlot}),
		expandPhotoEntry(),
		entry("replace-item", "v1/replace", "Replace the masked item with a described one",
			[]lightx.InputSlot{imageSlot, maskSlot}, prompt(true, "what to place in the masked area")),
		entry("cartoon", "v1/cartoon", "Turn a photo into a cartoon character", imageStyle, prompt(false, "optional style guidance")),
		entry("caricature", "v1/caricature", "Generate a caricature", imageStyle, prompt(false, "optional style guidance")),
		entry("avatar", "v1/avatar", "Generate an avatar", imageStyle, prompt(false, "optional style guidance")),
		entry("product-photoshoot", "v1/product-photoshoot", "Stage a product photo", imageStyle, prompt(false, "optional scene guidance")),
		entry("background-generator", "v1/background-generator", "Generate a new background", image, prompt(true, "background description")),
		entry("portrait", "v1/portrait", "Generate a stylized portrait", imageStyle, prompt(false, "optional style guidance")),
		entry("face-swap", "v1/face-swap", "Swap the face onto a target image",
			[]lightx.InputSlot{imageSlot, styleRequired}),
		entry("outfit", "v1/outfit", "Change the outfit of a person", image, prompt(true, "outfit description")),
		entry("image2image", "v1/image2image", "Transform an image guided by a prompt", imageStyle, strengthParams()...),
		entry("sketch2image", "v1/sketch2image", "Render a sketch as an image", imageStyle, strengthParams()...),
		entry("hairstyle", "v1/hairstyle", "Change the hairstyle", image, prompt(true, "hairstyle description")),
		upscaleEntry(),
		entry("ai-filter", "v2/aifilter", "Apply an AI filter",
			[]lightx.InputSlot{imageSlot, filterSlot}, prompt(true, "filter description")),
		entry("haircolor", "v2/haircolor/", "Recolor hair from a description", image, prompt(true, "hair color description")),
		entry("virtual-tryon", "v2/aivirtualtryon", "Try a garment on a person",
			[]lightx.InputSlot{imageSlot, styleRequired}),
		entry("headshot", "v2/headshot/", "Generate a professional headshot", image, prompt(true, "headshot description")),
		entry("haircolor-rgb", "v2/haircolor-rgb", "Recolor hair with an exact color", image,
			ParamSpec{Name: "hairHexColor", Kind: KindHexColor, Required: true, Description: "#RGB or #RRGGBB"},
			ParamSpec{Name: "colorStrength", Kind: KindFloat, Required: true, Min: bound(0.1), Max: bound(1), Description: "intensity of the color change"}),
		entry("ai-design", "v2/ai-design", "Generate a design from text", nil,
			prompt(true, "design description"),
			ParamSpec{Name: "resolution", Kind: KindEnum, Default: "1:1", Enum: []string{"1:1", "9:16", "3:4", "2:3", "16:9", "4:3"}, Description: "aspect ratio"},
			ParamSpec{Name: "enhancePrompt", Kind: KindBool, Default: "true", Description: "let the service expand the prompt"}),
		entry("logo-generator", "v2/logo-generator", "Generate a logo from text", nil,
			prompt(true, "logo description"),
			ParamSpec{Name: "enhancePrompt", Kind: KindBool, Default: "true", Description: "let the service expand the prompt"}),
		entry("watermark-remover", "v2/watermark-remover/", "Remove watermarks", image),
	}
}
