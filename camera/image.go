// still-recorder - capture bursts of still images and store them as image stacks
//  Copyright (C) 2018, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package camera describes the capture hardware the recorder drives: the
// sensor, its shots and frames, and the estimators that tune preview
// parameters between frames.
package camera

import (
	"fmt"
	"image"
)

// PixelFormat identifies the memory layout of an Image.
type PixelFormat int

const (
	// YUV420p is planar 8 bit luma followed by the Cb then Cr planes at
	// half resolution in both directions.
	YUV420p PixelFormat = iota
	RGB24
	Raw16
)

func (f PixelFormat) String() string {
	switch f {
	case YUV420p:
		return "yuv420p"
	case RGB24:
		return "rgb24"
	case Raw16:
		return "raw16"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// Image is a tightly packed frame buffer.
type Image struct {
	Width  int
	Height int
	Format PixelFormat
	Pix    []byte
}

// BufferSize returns the number of bytes needed for an image.
func BufferSize(format PixelFormat, width, height int) int {
	switch format {
	case YUV420p:
		cw, ch := chromaSize(width, height)
		return width*height + 2*cw*ch
	case RGB24:
		return width * height * 3
	case Raw16:
		return width * height * 2
	}
	return 0
}

func NewImage(format PixelFormat, width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Format: format,
		Pix:    make([]byte, BufferSize(format, width, height)),
	}
}

// chromaSize rounds up so odd sized images keep a chroma sample for
// their last row and column.
func chromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// ChromaSize returns the size of the Cb and Cr planes of a YUV420p image.
func (img *Image) ChromaSize() (int, int) {
	return chromaSize(img.Width, img.Height)
}

// Planes returns the Y, Cb and Cr planes of a YUV420p image.
func (img *Image) Planes() (y, cb, cr []byte) {
	ysize := img.Width * img.Height
	cw, ch := img.ChromaSize()
	csize := cw * ch
	return img.Pix[:ysize], img.Pix[ysize : ysize+csize], img.Pix[ysize+csize : ysize+2*csize]
}

// SameSize reports whether other has the same dimensions and format.
func (img *Image) SameSize(other *Image) bool {
	return other != nil &&
		img.Width == other.Width &&
		img.Height == other.Height &&
		img.Format == other.Format
}

// CopyFrom copies the pixels of src, which must have the same size.
func (img *Image) CopyFrom(src *Image) error {
	if !img.SameSize(src) {
		return fmt.Errorf("image size mismatch: %dx%d %v vs %dx%d %v",
			img.Width, img.Height, img.Format, src.Width, src.Height, src.Format)
	}
	copy(img.Pix, src.Pix)
	return nil
}

func (img *Image) Clone() *Image {
	c := &Image{Width: img.Width, Height: img.Height, Format: img.Format}
	c.Pix = append([]byte(nil), img.Pix...)
	return c
}

// YCbCr returns a view of a YUV420p image that shares its pixels.
func (img *Image) YCbCr() (*image.YCbCr, error) {
	if img.Format != YUV420p {
		return nil, fmt.Errorf("no YCbCr view for %v", img.Format)
	}
	y, cb, cr := img.Planes()
	cw, _ := img.ChromaSize()
	return &image.YCbCr{
		Y:              y,
		Cb:             cb,
		Cr:             cr,
		YStride:        img.Width,
		CStride:        cw,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, img.Width, img.Height),
	}, nil
}
