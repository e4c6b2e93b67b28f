// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"bytes"
	"fmt"
	"image"

	// Register stdlib decoders for non-WebP source images.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gen2brain/webp"
	"golang.org/x/image/draw"
)

// CodecWebP is the target codec name; it matches the format name the image
// registry reports and the codec metadata recorded on staged objects.
const CodecWebP = "webp"

// # Optimizer Configuration

// Settings carries the image optimization tunables. The live values come
// from a mutable settings record (see settings.go) that the pipeline
// treats as read-only input per invocation.
type Settings struct {
	// UploadQuality is the WebP quality applied at upload time.
	UploadQuality int `json:"upload_quality"`
	// PublishQuality is the WebP quality applied at publish time.
	PublishQuality int `json:"publish_quality"`
	// MaxWidth caps published image width; wider images are scaled down
	// preserving aspect ratio. Smaller images are never enlarged.
	MaxWidth int `json:"max_width"`
	// MaxHeight caps published image height under the same rule.
	MaxHeight int `json:"max_height"`
	// RecompressThreshold is the recorded quality above which a WebP
	// source is re-encoded even though it is already in the target codec.
	RecompressThreshold int `json:"recompress_threshold"`
	// Effort is the WebP encoder effort level (0 fastest, 6 smallest).
	Effort int `json:"effort"`
}

// PriorEncoding describes what is known about a staged object's previous
// processing, recorded as object metadata at upload time. Zero values mean
// the object predates metadata recording.
type PriorEncoding struct {
	// Codec is the recorded codec name ("webp", "jpeg", ...).
	Codec string
	// Quality is the recorded encode quality; 0 when unknown.
	Quality int
}

// OptimizeResult is the outcome of optimizing one page image.
type OptimizeResult struct {
	// Data holds the bytes to publish (re-encoded or the untouched input).
	Data   []byte
	Width  int
	Height int
	// SavedBytes is how many bytes re-encoding shaved off the input.
	// Advisory only; zero for pass-through and for encodes that grew.
	SavedBytes int64
	// CompressionRatio is SavedBytes as a percentage of the input size,
	// clamped to [0, 100].
	CompressionRatio float64
	// PassedThrough is true when the input already met the codec and
	// quality bar and was kept unchanged.
	PassedThrough bool
}

/*
Optimize decides a transcoding strategy for one page image and produces the
bytes to publish.

Decision matrix:

  - Already WebP, recorded quality within the recompress threshold, not
    forced: pass through unchanged.
  - Different codec: decode, resize if oversized, encode at publish quality.
  - WebP above the threshold (or unknown quality): decode, resize if
    needed, re-encode at the stricter of publish quality and threshold.
  - Forced: always decode/resize/re-encode at publish quality.

Parameters:
  - data: []byte (Raw staged image bytes)
  - prior: PriorEncoding (Recorded codec/quality from upload, if any)
  - settings: Settings (Read-only tunables for this invocation)
  - force: bool (Reprocess regardless of prior state)

Returns:
  - *OptimizeResult: Published bytes plus dimensions and savings stats
  - error: Decode or encode failures (fatal to the publish attempt)
*/
func Optimize(data []byte, prior PriorEncoding, settings Settings, force bool) (*OptimizeResult, error) {

	// ── Pass-through ─────────────────────────────────────────────────────
	// Only when the recorded quality is trustworthy (non-zero) and within
	// the threshold. Unknown quality always re-encodes.
	if !force && prior.Codec == CodecWebP && prior.Quality > 0 && prior.Quality <= settings.RecompressThreshold {
		config, err := webp.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("optimizer: failed to read webp header: %w", err)
		}
		return &OptimizeResult{
			Data:          data,
			Width:         config.Width,
			Height:        config.Height,
			PassedThrough: true,
		}, nil
	}

	// ── Decode ───────────────────────────────────────────────────────────
	source, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("optimizer: failed to decode image: %w", err)
	}

	// ── Resize ───────────────────────────────────────────────────────────
	resized := fitWithin(source, settings.MaxWidth, settings.MaxHeight)
	bounds := resized.Bounds()

	// ── Encode ───────────────────────────────────────────────────────────
	quality := settings.PublishQuality
	if format == CodecWebP && !force && settings.RecompressThreshold < quality {
		// Shrinking an over-quality WebP: use the stricter bound.
		quality = settings.RecompressThreshold
	}

	var encoded bytes.Buffer
	err = webp.Encode(&encoded, resized, webp.Options{
		Quality: quality,
		Method:  settings.Effort,
	})
	if err != nil {
		return nil, fmt.Errorf("optimizer: failed to encode webp: %w", err)
	}

	result := &OptimizeResult{
		Data:   encoded.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	// Savings are advisory; an encode that grew the file reports zero.
	if saved := int64(len(data)) - int64(encoded.Len()); saved > 0 {
		result.SavedBytes = saved
		result.CompressionRatio = clampRatio(float64(saved) / float64(len(data)) * 100)
	}

	return result, nil
}

// # Resizing

// fitWithin scales the image down so it fits inside maxWidth×maxHeight,
// preserving aspect ratio. Images already within bounds are returned as-is;
// nothing is ever upscaled. A zero maximum disables that axis.
func fitWithin(source image.Image, maxWidth, maxHeight int) image.Image {
	bounds := source.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return source
	}

	scale := 1.0
	if maxWidth > 0 && width > maxWidth {
		scale = float64(maxWidth) / float64(width)
	}
	if maxHeight > 0 && height > maxHeight {
		if heightScale := float64(maxHeight) / float64(height); heightScale < scale {
			scale = heightScale
		}
	}
	if scale >= 1.0 {
		return source
	}

	newWidth := int(float64(width)*scale + 0.5)
	newHeight := int(float64(height)*scale + 0.5)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	target := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(target, target.Bounds(), source, bounds, draw.Over, nil)
	return target
}

// clampRatio bounds a percentage to [0, 100].
func clampRatio(ratio float64) float64 {
	if ratio < 0 {
		return 0
	}
	if ratio > 100 {
		return 100
	}
	return ratio
}
