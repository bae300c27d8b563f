// Package testutil provides shared helpers for package tests.
package testutil

import (
	"bytes"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// JPEGBytes returns an encoded solid-color JPEG of the given dimensions.
func JPEGBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 180, G: 160, B: 90, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}))
	return buf.Bytes()
}
