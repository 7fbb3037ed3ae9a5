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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/still-recorder/camera"
)

func uniformImage(w, h int, y, cb, cr byte) *camera.Image {
	img := camera.NewImage(camera.YUV420p, w, h)
	yp, cbp, crp := img.Planes()
	fill(yp, y)
	fill(cbp, cb)
	fill(crp, cr)
	return img
}

func fill(p []byte, v byte) {
	for i := range p {
		p[i] = v
	}
}

func TestDownsampleUniformPlane(t *testing.T) {
	for _, v := range []byte{0, 1, 100, 200, 255} {
		src := make([]byte, 64*64)
		fill(src, v)
		dst := make([]byte, ThumbnailWidth*ThumbnailHeight)

		downsample(dst, ThumbnailWidth, ThumbnailHeight, src, 64, 64)
		for i, got := range dst {
			if !assert.InDelta(t, int(v), int(got), 1, "pixel %d for value %d", i, v) {
				break
			}
		}
	}
}

func TestThumbnailUniformImage(t *testing.T) {
	src := uniformImage(64, 64, 180, 90, 30)
	dst := camera.NewImage(camera.YUV420p, ThumbnailWidth, ThumbnailHeight)

	require.NoError(t, Thumbnail(dst, src))
	y, cb, cr := dst.Planes()
	assertUniform(t, y, 180)
	assertUniform(t, cb, 90)
	assertUniform(t, cr, 30)
}

func TestThumbnailOfLargeImage(t *testing.T) {
	src := uniformImage(2592, 1944, 50, 128, 128)
	y, _, _ := src.Planes()
	// Bright last column must not bleed past the plane.
	for row := 0; row < src.Height; row++ {
		y[row*src.Width+src.Width-1] = 255
	}
	dst := camera.NewImage(camera.YUV420p, ThumbnailWidth, ThumbnailHeight)
	require.NoError(t, Thumbnail(dst, src))

	dy, _, _ := dst.Planes()
	assert.InDelta(t, 50, int(dy[0]), 1)
}

func TestThumbnailOfOddSizedImage(t *testing.T) {
	src := uniformImage(641, 481, 70, 100, 160)
	dst := camera.NewImage(camera.YUV420p, ThumbnailWidth, ThumbnailHeight)

	require.NoError(t, Thumbnail(dst, src))
	y, cb, cr := dst.Planes()
	assertUniform(t, y, 70)
	assertUniform(t, cb, 100)
	assertUniform(t, cr, 160)
}

func TestThumbnailRejectsOtherFormats(t *testing.T) {
	dst := camera.NewImage(camera.YUV420p, ThumbnailWidth, ThumbnailHeight)
	err := Thumbnail(dst, camera.NewImage(camera.RGB24, 64, 64))
	assert.Equal(t, ErrUnsupportedPixelFormat, err)

	assert.Error(t, Thumbnail(dst, uniformImage(8, 8, 0, 0, 0)))
}

func assertUniform(t *testing.T, p []byte, v byte) {
	for i, got := range p {
		if !assert.InDelta(t, int(v), int(got), 1, "pixel %d", i) {
			return
		}
	}
}
