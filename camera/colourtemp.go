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

package camera

import "math"

// TouchPatchSize is the side of the square sampled around a touch point
// when estimating local colour temperature.
const TouchPatchSize = 15

var (
	srgbPrimaries = [9]float64{
		1.939394, 0.500000, 2.500000,
		1.000000, 1.000000, 1.000000,
		0.090909, 0.166667, 13.166667,
	}
	srgbInvPrimaries = [9]float64{
		0.689157, -0.326908, -0.106024,
		-0.693173, 1.341633, 0.029719,
		0.004016, -0.014726, 0.076305,
	}
)

// ColourTemperatureYCbCr estimates the correlated colour temperature in
// kelvin of a YCbCr colour, given the white point currently assumed.
func ColourTemperatureYCbCr(current, y, cb, cr int) int {
	fcb := float64(cb - 128)
	fcr := float64(cr - 128)
	fy := float64(y)
	r := clamp01((fy + 1.402*fcr) / 255)
	g := clamp01((fy - 0.34414*fcb - 0.71414*fcr) / 255)
	b := clamp01((fy + 1.722*fcb) / 255)
	return ColourTemperature(float64(current), r, g, b)
}

// ColourTemperature estimates the correlated colour temperature of a
// normalised sRGB colour. The white point is the CIE D illuminant at temp.
func ColourTemperature(temp, r, g, b float64) int {
	r, g, b = linearise(r), linearise(g), linearise(b)

	var wxc float64
	if temp < 7000 {
		wxc = -4.6070e9/(temp*temp*temp) + 2.9678e6/(temp*temp) + 0.09911e3/temp + 0.244063
	} else {
		wxc = -2.0064e9/(temp*temp*temp) + 1.9018e6/(temp*temp) + 0.24748e3/temp + 0.237040
	}
	wyc := -3*wxc*wxc + 2.870*wxc - 0.275

	wx := wxc / wyc
	wy := 1.0
	wz := (1 - wxc - wyc) / wyc

	ip := srgbInvPrimaries
	r *= ip[0]*wx + ip[1]*wy + ip[2]*wz
	g *= ip[3]*wx + ip[4]*wy + ip[5]*wz
	b *= ip[6]*wx + ip[7]*wy + ip[8]*wz

	p := srgbPrimaries
	x := p[0]*r + p[1]*g + p[2]*b
	y := p[3]*r + p[4]*g + p[5]*b
	z := p[6]*r + p[7]*g + p[8]*b

	sum := x + y + z
	if sum == 0 {
		return int(temp)
	}
	cx := x / sum
	cy := y / sum

	n := (cx - 0.3366) / (cy - 0.1735)
	cct := -949.86315 + 6253.80338*math.Exp(-n/0.92159) + 28.70599*math.Exp(-n/0.20039) + 0.00004*math.Exp(-n/0.07125)
	return int(cct)
}

// LocalColourTemperature estimates the colour temperature of the patch
// centred on (tx, ty) in a YUV420p image. The patch is moved inside the
// image when the point is near an edge. current is returned unchanged for
// images smaller than the patch.
func LocalColourTemperature(current int, img *Image, tx, ty int) int {
	if img.Format != YUV420p || img.Width < TouchPatchSize || img.Height < TouchPatchSize {
		return current
	}
	half := TouchPatchSize >> 1
	if tx < half {
		tx = half
	}
	if ty < half {
		ty = half
	}
	if tx >= img.Width-half {
		tx = img.Width - half - 1
	}
	if ty >= img.Height-half {
		ty = img.Height - half - 1
	}

	yp, cbp, crp := img.Planes()
	y := patchAverage(yp[img.Width*(ty-half)+tx-half:], img.Width, TouchPatchSize)

	quarter := TouchPatchSize >> 2
	cw, _ := img.ChromaSize()
	offset := cw*((ty>>1)-quarter) + (tx >> 1) - quarter
	cb := patchAverage(cbp[offset:], cw, half)
	cr := patchAverage(crp[offset:], cw, half)

	return ColourTemperatureYCbCr(current, y, cb, cr)
}

func patchAverage(p []byte, stride, size int) int {
	sum := 0
	for y := 0; y < size; y++ {
		row := p[y*stride : y*stride+size]
		for _, v := range row {
			sum += int(v)
		}
	}
	return sum / (size * size)
}

func linearise(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
