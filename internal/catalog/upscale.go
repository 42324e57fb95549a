package catalog

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"imagejobs/internal/lightx"
)

const (
	// MaxUpscaleSide is the longest image side the upscaler accepts.
	MaxUpscaleSide = 2048
	// MaxUpscale4xSide is the longest side still eligible for quality 4.
	MaxUpscale4xSide = 1024
)

func upscaleEntry() Entry {
	e := entry("upscale", "v2/upscale/", "Upscale an image", []lightx.InputSlot{imageSlot},
		ParamSpec{Name: "quality", Kind: KindInt, Required: true, Enum: []string{"2", "4"}, Description: "upscale factor"})
	e.Operation.CheckInputs = checkUpscaleInputs
	return e
}

func checkUpscaleInputs(p lightx.Params, inputs []lightx.CheckedInput) error {
	for _, in := range inputs {
		if in.Slot != imageSlot.Name {
			continue
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Data))
		if err != nil {
			return lightx.InvalidParamsf("cannot read image dimensions: %v", err)
		}
		side := max(cfg.Width, cfg.Height)
		switch {
		case side > MaxUpscaleSide:
			return lightx.InvalidParamsf("image is %dx%d, upscaling needs the longest side at most %d px", cfg.Width, cfg.Height, MaxUpscaleSide)
		case side > MaxUpscale4xSide && p["quality"] == "4":
			return lightx.InvalidParamsf("image is %dx%d, quality 4 needs the longest side at most %d px", cfg.Width, cfg.Height, MaxUpscale4xSide)
		}
	}
	return nil
}
