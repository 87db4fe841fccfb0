package export

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Stage names a best-effort rendering step.
type Stage string

const (
	StageBackground Stage = "background"
	StageQR         Stage = "qr"
)

// ImageAsset is a decoded-and-checked image ready to be placed on the canvas.
type ImageAsset struct {
	Name   string
	Type   string
	Data   []byte
	Width  int
	Height int
}

// StageResult is Ok(image), Fallback(reason), or skipped when the stage had nothing to do.
type StageResult struct {
	Stage  Stage
	Image  *ImageAsset
	Reason string
}

// Ok wraps a usable image.
func Ok(stage Stage, img *ImageAsset) StageResult {
	return StageResult{Stage: stage, Image: img}
}

// Fallback records why the stage degraded.
func Fallback(stage Stage, reason string) StageResult {
	return StageResult{Stage: stage, Reason: reason}
}

// Skipped marks a stage with no input.
func Skipped(stage Stage) StageResult {
	return StageResult{Stage: stage}
}

// OK reports whether an image is available.
func (r StageResult) OK() bool {
	return r.Image != nil
}

// Degraded reports whether a fallback was engaged.
func (r StageResult) Degraded() bool {
	return r.Image == nil && r.Reason != ""
}

// RenderReport lists the stages that fell back while rendering.
type RenderReport struct {
	Fallbacks []StageResult
}

// Degraded reports whether any stage fell back.
func (r RenderReport) Degraded() bool {
	return len(r.Fallbacks) > 0
}

func (r *RenderReport) record(result StageResult) {
	if result.Degraded() {
		r.Fallbacks = append(r.Fallbacks, result)
	}
}

// decodeImage checks that data is an image gofpdf can embed.
func decodeImage(stage Stage, name string, data []byte) StageResult {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Fallback(stage, fmt.Sprintf("decode image: %v", err))
	}
	var imageType string
	switch format {
	case "png":
		imageType = "PNG"
	case "jpeg":
		imageType = "JPG"
	case "gif":
		imageType = "GIF"
	default:
		return Fallback(stage, fmt.Sprintf("unsupported image format %q", format))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Fallback(stage, "image has no pixels")
	}
	return Ok(stage, &ImageAsset{Name: name, Type: imageType, Data: data, Width: cfg.Width, Height: cfg.Height})
}
