// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loaders

import (
	"bytes"
	"image"
	"image/draw"

	// formats decodable through image.Decode
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/devblok/karman/resource"
)

// ImageParams tunes how an image is prepared for upload.
type ImageParams struct {

	// RowPitch aligns pixel rows for optimal textures. Applied only
	// when the decoded image supports it, zero leaves rows packed.
	RowPitch int
}

// Image is a decoded image with its pixels arranged for texture
// upload.
type Image struct {
	Width  int
	Height int
	Stride int
	Pix    []uint8
}

// ImageLoader decodes image files on a background worker. Decoding
// and pixel conversion are the slow part, the finalize step only
// hands the finished value over.
type ImageLoader struct{}

// Dependencies implements resource.AsyncLoader.
func (ImageLoader) Dependencies(path string, file resource.File, params interface{}) ([]resource.ID, error) {
	return nil, nil
}

// Prefetch implements resource.AsyncLoader.
func (ImageLoader) Prefetch(path string, file resource.File, params interface{}) (interface{}, error) {
	data, err := file.ReadAll()
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var rowPitch int
	if p, ok := params.(ImageParams); ok {
		rowPitch = p.RowPitch
	}
	return convertPixels(img, rowPitch), nil
}

// Load implements resource.AsyncLoader.
func (ImageLoader) Load(prefetched interface{}, path string, file resource.File, params interface{}) (interface{}, error) {
	return prefetched, nil
}

// convertPixels transforms a given image into the right arrangement
// of pixels by drawing the decoded image onto a controlled RGBA
// canvas.
func convertPixels(img image.Image, rowPitch int) *Image {
	canvas := image.NewRGBA(img.Bounds())
	if rowPitch > 4*img.Bounds().Dx() {
		// apply the proposed row pitch only if it fits whole rows,
		// as we're using only optimal textures.
		canvas.Stride = rowPitch
		canvas.Pix = make([]uint8, rowPitch*img.Bounds().Dy())
	}
	draw.Draw(canvas, canvas.Bounds(), img, image.Point{}, draw.Src)
	return &Image{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		Stride: canvas.Stride,
		Pix:    canvas.Pix,
	}
}
