// Package common contains plain data types and helpers shared across oxy-bind. They are not
// interface-wrapped, just the small structs and functions every other package needs.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureData holds RGBA pixel data for a 2D texture pending GPU upload.
type TextureData struct {
	// Label names the GPU objects created from this data.
	Label string
	// Pixels is RGBA8 data, 4 bytes per pixel, row-major.
	Pixels []byte
	Width  uint32
	Height uint32
}

// SamplerConfig holds the configuration for a sampler pending GPU creation.
// Zero fields fall back to linear filtering and repeat addressing.
type SamplerConfig struct {
	Label string
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode outside [0, 1].
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	MagFilter, MinFilter                     wgpu.FilterMode
	MipmapFilter                             wgpu.MipmapFilterMode
	LodMinClamp, LodMaxClamp                 float32
	// Compare makes this a comparison sampler when set.
	Compare       wgpu.CompareFunction
	MaxAnisotropy uint16
}

// ErrEmptyImage is returned by DecodeTexture when neither data nor a path is supplied.
var ErrEmptyImage = errors.New("texture has neither data nor path")

// DecodeTexture decodes a PNG or JPEG image to RGBA pixel data.
// Uses data when non-empty, otherwise loads path from disk.
// Reference: https://pkg.go.dev/image
//
// Parameters:
//   - label: label stored on the returned TextureData
//   - data: encoded image bytes, may be nil
//   - path: file path used when data is empty
//
// Returns:
//   - TextureData: the decoded pixels and dimensions
//   - error: error if decoding fails
func DecodeTexture(label string, data []byte, path string) (TextureData, error) {
	var img image.Image
	var err error

	switch {
	case len(data) > 0:
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return TextureData{}, fmt.Errorf("failed to decode embedded image: %w", err)
		}
	case path != "":
		file, fileErr := os.Open(path)
		if fileErr != nil {
			return TextureData{}, fmt.Errorf("failed to open texture file %s: %w", path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return TextureData{}, fmt.Errorf("failed to decode texture file %s: %w", path, err)
		}
	default:
		return TextureData{}, ErrEmptyImage
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	return TextureData{
		Label:  label,
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}

// Checkerboard generates an RGBA checkerboard of size x size pixels with cells of cell pixels.
// Useful as a placeholder texture when no image is available.
//
// Parameters:
//   - label: label stored on the returned TextureData
//   - size: edge length in pixels
//   - cell: edge length of one checker cell in pixels
//   - a, b: the two RGBA colors
//
// Returns:
//   - TextureData: the generated pixels
func Checkerboard(label string, size, cell uint32, a, b [4]byte) TextureData {
	if cell == 0 {
		cell = 1
	}
	pix := make([]byte, 0, size*size*4)
	for y := uint32(0); y < size; y++ {
		for x := uint32(0); x < size; x++ {
			c := a
			if (x/cell+y/cell)%2 == 1 {
				c = b
			}
			pix = append(pix, c[:]...)
		}
	}
	return TextureData{Label: label, Pixels: pix, Width: size, Height: size}
}
