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

package imagewriter

import (
	"errors"
	"fmt"

	"github.com/TheCacophonyProject/still-recorder/camera"
)

const (
	ThumbnailWidth   = 384
	ThumbnailHeight  = 288
	ThumbnailQuality = 95

	blurRadius = 5
	blurNorm   = 0x10000 / (blurRadius * blurRadius)
)

var ErrUnsupportedPixelFormat = errors.New("thumbnails need a yuv420p source")

// Thumbnail box filters a YUV420p source into dst, plane by plane.
func Thumbnail(dst, src *camera.Image) error {
	if src.Format != camera.YUV420p || dst.Format != camera.YUV420p {
		return ErrUnsupportedPixelFormat
	}
	if src.Width < 2*blurRadius || src.Height < 2*blurRadius {
		return fmt.Errorf("source %dx%d too small for a thumbnail", src.Width, src.Height)
	}

	sy, scb, scr := src.Planes()
	dy, dcb, dcr := dst.Planes()
	downsample(dy, dst.Width, dst.Height, sy, src.Width, src.Height)
	dcw, dch := dst.ChromaSize()
	scw, sch := src.ChromaSize()
	downsample(dcb, dcw, dch, scb, scw, sch)
	downsample(dcr, dcw, dch, scr, scw, sch)
	return nil
}

// downsample samples a blurRadius square window for each output pixel.
// Source positions advance in 16.16 fixed point and stop short of the
// last window so it never reads past the plane.
func downsample(dst []byte, dw, dh int, src []byte, sw, sh int) {
	ax := ((sw - (blurRadius &^ 1)) << 16) / dw
	ay := ((sh - (blurRadius &^ 1)) << 16) / dh

	di := 0
	ty := 0
	for i := 0; i < dh; i++ {
		row := (ty >> 16) * sw
		tx := 0
		for j := 0; j < dw; j++ {
			sum := 0
			si := row + (tx >> 16)
			for y := 0; y < blurRadius; y++ {
				for _, v := range src[si : si+blurRadius] {
					sum += int(v)
				}
				si += sw
			}
			dst[di] = byte(sum * blurNorm >> 16)
			di++
			tx += ax
		}
		ty += ay
	}
}
