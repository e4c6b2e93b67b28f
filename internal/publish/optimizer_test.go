// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish_test

import (
	"bytes"
	"image"
	"testing"

	"github.com/gen2brain/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mirava/internal/publish"
)

// encodeWebP produces a WebP test image via the same encoder the pipeline
// uses.
func encodeWebP(t *testing.T, width, height, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := webp.Encode(&buf, testImage(width, height), webp.Options{Quality: quality})
	require.NoError(t, err)
	return buf.Bytes()
}

/*
TestOptimize_ReencodesForeignCodec checks that JPEG and PNG sources always
come out as WebP at the publish quality.
*/
func TestOptimize_ReencodesForeignCodec(t *testing.T) {
	settings := testSettings()

	tests := []struct {
		name  string
		data  []byte
		prior publish.PriorEncoding
	}{
		{"jpeg", encodeJPEG(t, 800, 1200), publish.PriorEncoding{Codec: "jpeg", Quality: 90}},
		{"png_no_prior", encodePNG(t, 800, 1200), publish.PriorEncoding{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := publish.Optimize(tt.data, tt.prior, settings, false)
			require.NoError(t, err)

			assert.False(t, result.PassedThrough)
			assert.Equal(t, 800, result.Width)
			assert.Equal(t, 1200, result.Height)

			_, format, err := image.DecodeConfig(bytes.NewReader(result.Data))
			require.NoError(t, err)
			assert.Equal(t, "webp", format)
		})
	}
}

/*
TestOptimize_PassThrough checks the skip path: a WebP source whose recorded
quality is within the recompress threshold is returned byte-identical.
*/
func TestOptimize_PassThrough(t *testing.T) {
	settings := testSettings()
	data := encodeWebP(t, 640, 960, 80)

	result, err := publish.Optimize(data, publish.PriorEncoding{Codec: "webp", Quality: 80}, settings, false)
	require.NoError(t, err)

	assert.True(t, result.PassedThrough)
	assert.Equal(t, data, result.Data)
	assert.Equal(t, 640, result.Width)
	assert.Equal(t, 960, result.Height)
	assert.Zero(t, result.SavedBytes)
}

/*
TestOptimize_ReencodesWebP covers the WebP sources that must NOT pass
through: unknown recorded quality, quality above the threshold, and force.
*/
func TestOptimize_ReencodesWebP(t *testing.T) {
	settings := testSettings()
	data := encodeWebP(t, 640, 960, 100)

	tests := []struct {
		name  string
		prior publish.PriorEncoding
		force bool
	}{
		{"unknown_quality", publish.PriorEncoding{Codec: "webp"}, false},
		{"over_threshold", publish.PriorEncoding{Codec: "webp", Quality: 100}, false},
		{"forced", publish.PriorEncoding{Codec: "webp", Quality: 80}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := publish.Optimize(data, tt.prior, settings, tt.force)
			require.NoError(t, err)

			assert.False(t, result.PassedThrough)
			assert.Equal(t, 640, result.Width)
			assert.Equal(t, 960, result.Height)
		})
	}
}

/*
TestOptimize_ResizesOversized checks that images beyond the configured
bounds are scaled down preserving aspect ratio, and that images within
bounds are never enlarged.
*/
func TestOptimize_ResizesOversized(t *testing.T) {
	settings := testSettings() // 1600 x 2400

	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"too_wide", 3200, 2400, 1600, 1200},
		{"too_tall", 1000, 4800, 500, 2400},
		{"both_axes", 3200, 9600, 800, 2400},
		{"within_bounds", 800, 1200, 800, 1200},
		{"never_upscaled", 100, 150, 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := publish.Optimize(encodeJPEG(t, tt.width, tt.height), publish.PriorEncoding{}, settings, false)
			require.NoError(t, err)

			assert.Equal(t, tt.wantW, result.Width)
			assert.Equal(t, tt.wantH, result.Height)
		})
	}
}

/*
TestOptimize_SavingsBounds checks the advisory stats invariants: savings
are never negative and the ratio stays within [0, 100] even when the
encode grows the file.
*/
func TestOptimize_SavingsBounds(t *testing.T) {
	settings := testSettings()

	// A large PNG shrinks dramatically; a tiny JPEG may grow.
	for _, data := range [][]byte{encodePNG(t, 1000, 1500), encodeJPEG(t, 8, 8)} {
		result, err := publish.Optimize(data, publish.PriorEncoding{}, settings, false)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, result.SavedBytes, int64(0))
		assert.GreaterOrEqual(t, result.CompressionRatio, 0.0)
		assert.LessOrEqual(t, result.CompressionRatio, 100.0)
		if result.SavedBytes > 0 {
			assert.Equal(t, int64(len(data))-int64(len(result.Data)), result.SavedBytes)
		}
	}
}

/*
TestOptimize_RejectsGarbage ensures undecodable bytes fail rather than get
published verbatim.
*/
func TestOptimize_RejectsGarbage(t *testing.T) {
	_, err := publish.Optimize([]byte("not an image"), publish.PriorEncoding{}, testSettings(), false)
	assert.Error(t, err)
}
