package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagejobs/internal/lightx"
)

func build(t *testing.T, name string, params lightx.Params) (map[string]any, error) {
	t.Helper()
	op, err := Default().Lookup(name)
	require.NoError(t, err)
	return op.Params(params)
}

func TestDefaultCatalogRegistersEveryOperation(t *testing.T) {
	c := Default()
	assert.Len(t, c.Names(), 24)

	wantEndpoints := map[string]string{
		"remove-background": "v1/remove-background",
		"replace-item":      "v1/replace",
		"upscale":           "v2/upscale/",
		"ai-filter":         "v2/aifilter",
		"virtual-tryon":     "v2/aivirtualtryon",
		"watermark-remover": "v2/watermark-remover/",
	}
	for name, endpoint := range wantEndpoints {
		op, err := c.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, endpoint, op.Endpoint, name)
	}

	for _, d := range c.Describe() {
		want := "v2/order-status"
		if strings.HasPrefix(d.Endpoint, "v1/") {
			want = "v1/order-status"
		}
		assert.Equal(t, want, d.StatusEndpoint, d.Name)
	}
}

func TestLookupUnknownOperation(t *testing.T) {
	_, err := Default().Lookup("teleport")
	require.ErrorIs(t, err, lightx.ErrInvalidParams)
}

func TestInputSlots(t *testing.T) {
	c := Default()

	cleanup, _ := c.Lookup("cleanup-picture")
	require.Len(t, cleanup.Inputs, 2)
	assert.Equal(t, "imageUrl", cleanup.Inputs[0].Field)
	assert.Equal(t, "maskedImageUrl", cleanup.Inputs[1].Field)

	swap, _ := c.Lookup("face-swap")
	style, ok := swap.Input("style")
	require.True(t, ok)
	assert.True(t, style.Required)

	cartoon, _ := c.Lookup("cartoon")
	style, ok = cartoon.Input("style")
	require.True(t, ok)
	assert.False(t, style.Required)

	design, _ := c.Lookup("ai-design")
	assert.Empty(t, design.Inputs)

	filter, _ := c.Lookup("ai-filter")
	ref, ok := filter.Input("filterReference")
	require.True(t, ok)
	assert.Equal(t, "filterReferenceUrl", ref.Field)
}

func TestRemoveBackgroundDefaults(t *testing.T) {
	payload, err := build(t, "remove-background", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"background": "transparent"}, payload)

	payload, err = build(t, "remove-background", lightx.Params{"background": "#FFFFFF"})
	require.NoError(t, err)
	assert.Equal(t, "#FFFFFF", payload["background"])
}

func TestPromptValidation(t *testing.T) {
	_, err := build(t, "outfit", lightx.Params{})
	require.ErrorIs(t, err, lightx.ErrInvalidParams)

	_, err = build(t, "outfit", lightx.Params{"textPrompt": "   "})
	require.ErrorIs(t, err, lightx.ErrInvalidParams)

	payload, err := build(t, "outfit", lightx.Params{"textPrompt": strings.Repeat("a", MaxPromptLength)})
	require.NoError(t, err)
	assert.Len(t, payload["textPrompt"], MaxPromptLength)

	_, err = build(t, "outfit", lightx.Params{"textPrompt": strings.Repeat("a", MaxPromptLength+1)})
	require.ErrorIs(t, err, lightx.ErrInvalidParams)

	payload, err = build(t, "cartoon", nil)
	require.NoError(t, err)
	assert.Empty(t, payload, "optional prompt is omitted")
}

func TestPromptIsNFCNormalized(t *testing.T) {
	decomposed := "cafe\u0301 terrace"
	payload, err := build(t, "background-generator", lightx.Params{"textPrompt": "  " + decomposed + " "})
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9 terrace", payload["textPrompt"])

	// 500 decomposed pairs collapse to 500 characters
	long := strings.Repeat("e\u0301", MaxPromptLength)
	_, err = build(t, "headshot", lightx.Params{"textPrompt": long})
	require.NoError(t, err)
}

func TestUnknownParamsAreRefused(t *testing.T) {
	_, err := build(t, "hairstyle", lightx.Params{"textPrompt": "bob", "prompt": "typo"})
	require.ErrorIs(t, err, lightx.ErrInvalidParams)
	assert.Contains(t, err.Error(), "prompt")
}

func TestStrengthRanges(t *testing.T) {
	payload, err := build(t, "image2image", lightx.Params{"strength": "0.4", "textPrompt": "oil painting", "styleStrength": "1"})
	require.NoError(t, err)
	assert.Equal(t, 0.4, payload["strength"])
	assert.Equal(t, 1.0, payload["styleStrength"])

	for _, bad := range []lightx.Params{
		{"strength": "1.2", "textPrompt": "x"},
		{"strength": "-0.1", "textPrompt": "x"},
		{"strength": "strong", "textPrompt": "x"},
		{"strength": "0.5", "textPrompt": "x", "styleStrength": "2"},
		{"textPrompt": "x"},
	} {
		_, err := build(t, "sketch2image", bad)
		assert.ErrorIs(t, err, lightx.ErrInvalidParams, "%v", bad)
	}
}

func TestFloatParamsMustBeFinite(t *testing.T) {
	for _, v := range []string{"NaN", "nan", "Inf", "-Inf", "+inf", "infinity"} {
		for _, op := range []string{"image2image", "sketch2image"} {
			_, err := build(t, op, lightx.Params{"strength": v, "textPrompt": "a cat"})
			assert.ErrorIs(t, err, lightx.ErrInvalidParams, "%s strength=%s", op, v)
		}

		_, err := build(t, "haircolor-rgb", lightx.Params{"hairHexColor": "#FFD700", "colorStrength": v})
		assert.ErrorIs(t, err, lightx.ErrInvalidParams, "colorStrength=%s", v)
	}

	// optional floats are checked as well
	_, err := build(t, "image2image", lightx.Params{"strength": "0.5", "textPrompt": "a cat", "styleStrength": "NaN"})
	assert.ErrorIs(t, err, lightx.ErrInvalidParams)
}

func TestUpscaleQuality(t *testing.T) {
	payload, err := build(t, "upscale", lightx.Params{"quality": "4"})
	require.NoError(t, err)
	assert.Equal(t, 4, payload["quality"])

	for _, q := range []string{"3", "8", "x", ""} {
		_, err := build(t, "upscale", lightx.Params{"quality": q})
		assert.ErrorIs(t, err, lightx.ErrInvalidParams, q)
	}
}

func TestHairColorRGB(t *testing.T) {
	payload, err := build(t, "haircolor-rgb", lightx.Params{"hairHexColor": "#ffd700", "colorStrength": "0.6"})
	require.NoError(t, err)
	assert.Equal(t, "#FFD700", payload["hairHexColor"])
	assert.Equal(t, 0.6, payload["colorStrength"])

	_, err = build(t, "haircolor-rgb", lightx.Params{"hairHexColor": "#F00", "colorStrength": "0.1"})
	require.NoError(t, err)

	for _, bad := range []lightx.Params{
		{"hairHexColor": "FFD700", "colorStrength": "0.5"},
		{"hairHexColor": "#FFD7", "colorStrength": "0.5"},
		{"hairHexColor": "#GGGGGG", "colorStrength": "0.5"},
		{"hairHexColor": "#FFD700", "colorStrength": "0.05"},
		{"hairHexColor": "#FFD700", "colorStrength": "1.5"},
	} {
		_, err := build(t, "haircolor-rgb", bad)
		assert.ErrorIs(t, err, lightx.ErrInvalidParams, "%v", bad)
	}
}

func TestAIDesign(t *testing.T) {
	payload, err := build(t, "ai-design", lightx.Params{"textPrompt": "poster"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"textPrompt": "poster", "resolution": "1:1", "enhancePrompt": true}, payload)

	payload, err = build(t, "ai-design", lightx.Params{"textPrompt": "poster", "resolution": "16:9", "enhancePrompt": "false"})
	require.NoError(t, err)
	assert.Equal(t, "16:9", payload["resolution"])
	assert.Equal(t, false, payload["enhancePrompt"])

	_, err = build(t, "ai-design", lightx.Params{"textPrompt": "poster", "resolution": "5:4"})
	require.ErrorIs(t, err, lightx.ErrInvalidParams)

	_, err = build(t, "logo-generator", lightx.Params{"textPrompt": "acme", "enhancePrompt": "maybe"})
	require.ErrorIs(t, err, lightx.ErrInvalidParams)
}

func TestNoParamOperations(t *testing.T) {
	for _, name := range []string{"cleanup-picture", "face-swap", "virtual-tryon", "watermark-remover"} {
		payload, err := build(t, name, nil)
		require.NoError(t, err, name)
		assert.Empty(t, payload, name)
	}
}
