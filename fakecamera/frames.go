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

package fakecamera

import (
	"math"

	"github.com/TheCacophonyProject/still-recorder/camera"
)

const neutralWhiteBalance = 6500

// brightness maps the shot's exposure, gain and flash onto a mean luma
// in [0, 1].
func brightness(shot *camera.Shot, flash float32) float64 {
	gain := float64(shot.Gain)
	if gain <= 0 {
		gain = 1
	}
	b := float64(shot.Exposure) * gain / 100000
	b += 0.5 * float64(flash)
	return math.Min(1, math.Max(0, b))
}

// render draws a horizontal luma ramp around the target brightness with a
// colour cast that follows the white balance error, shifted a little
// every frame so consecutive frames differ.
func render(w, h int, level float64, wb int, n int) *camera.Image {
	img := camera.NewImage(camera.YUV420p, w, h)
	y, cb, cr := img.Planes()

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			ramp := float64((col+n)%w)/float64(w) - 0.5
			v := 255 * (level + 0.25*ramp)
			y[row*w+col] = clampByte(v)
		}
	}

	cast := 0.0
	if wb > 0 {
		cast = float64(wb-neutralWhiteBalance) / 100
	}
	fillPlane(cb, clampByte(128+cast))
	fillPlane(cr, clampByte(128-cast))
	return img
}

func histogram(img *camera.Image) []int {
	bins := make([]int, histogramBins)
	y, _, _ := img.Planes()
	for _, v := range y {
		bins[int(v)*histogramBins/256]++
	}
	return bins
}

// sharpness peaks when the lens is at the focus distance of the scene.
func sharpness(focus float32) int {
	const sceneFocus = 5
	d := float64(focus - sceneFocus)
	return int(1000 / (1 + d*d))
}

func fillPlane(p []byte, v byte) {
	for i := range p {
		p[i] = v
	}
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
