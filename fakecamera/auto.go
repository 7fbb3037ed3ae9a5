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
	"github.com/TheCacophonyProject/still-recorder/camera"
)

// Exposer scales exposure towards the target mean luma, spilling into
// gain once exposure reaches its limit.
type Exposer struct{}

func (Exposer) AutoExpose(shot *camera.Shot, frame *camera.Frame, limits camera.ExposureLimits) {
	if !frame.Valid() {
		return
	}
	mean := meanLuma(frame.Image) / 255
	if mean <= 0 {
		mean = 1.0 / 255
	}
	total := float32(float64(shot.Exposure)*float64(shot.Gain)) * limits.Target / float32(mean)

	gain := float32(1)
	exposure := total
	if exposure > float32(limits.MaxExposure) {
		exposure = float32(limits.MaxExposure)
		gain = total / exposure
	}
	if exposure < float32(limits.MinExposure) {
		exposure = float32(limits.MinExposure)
	}
	if gain > limits.MaxGain {
		gain = limits.MaxGain
	}
	shot.Exposure = int(exposure)
	shot.Gain = gain
}

// GreyWorld assumes the scene averages to grey and picks the white
// balance that makes it so.
type GreyWorld struct{}

func (GreyWorld) AutoWhiteBalance(shot *camera.Shot, frame *camera.Frame) {
	if !frame.Valid() || frame.Image.Format != camera.YUV420p {
		return
	}
	_, cb, cr := frame.Image.Planes()
	// The rendered cast is (wb - neutral)/100 on Cb.
	cast := mean(cb) - mean(cr)
	shot.WhiteBalance = frame.WhiteBalance - int(cast*50)
}

// Focuser sweeps the lens from near to far and settles on the sharpest
// position seen.
type Focuser struct {
	Near, Far float32
	Steps     int

	step      int
	best      float32
	bestScore int
	sweeping  bool
}

func NewFocuser() *Focuser {
	return &Focuser{Near: 10, Far: 0, Steps: 10}
}

func (f *Focuser) Idle() bool { return !f.sweeping }

func (f *Focuser) StartSweep() {
	f.sweeping = true
	f.step = 0
	f.bestScore = -1
}

func (f *Focuser) Update(frame *camera.Frame, shot *camera.Shot) {
	if !f.sweeping || !frame.Valid() {
		return
	}
	if frame.Sharpness > f.bestScore {
		f.bestScore = frame.Sharpness
		f.best = frame.Focus
	}

	next := f.best
	if f.step < f.Steps {
		next = f.Near + (f.Far-f.Near)*float32(f.step)/float32(f.Steps)
		f.step++
	} else {
		f.sweeping = false
	}
	shot.AddAction(camera.Action{Kind: camera.FocusAction, Value: next})
}

func meanLuma(img *camera.Image) float64 {
	y, _, _ := img.Planes()
	return mean(y)
}

func mean(p []byte) float64 {
	if len(p) == 0 {
		return 0
	}
	sum := 0
	for _, v := range p {
		sum += int(v)
	}
	return float64(sum) / float64(len(p))
}
