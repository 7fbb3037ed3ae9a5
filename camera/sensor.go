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

import (
	"fmt"
	"strings"
)

// Mode selects which physical camera is in use.
type Mode int

const (
	Front Mode = iota
	Back
	Stereo
)

func (m Mode) String() string {
	switch m {
	case Front:
		return "front"
	case Back:
		return "back"
	case Stereo:
		return "stereo"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "front":
		return Front, nil
	case "back":
		return Back, nil
	case "stereo":
		return Stereo, nil
	}
	return 0, fmt.Errorf("unknown camera %q", s)
}

// Sensor is the image sensor of one camera. Stream repeats a shot until
// replaced or stopped. Capture queues a single shot. GetFrame blocks until
// the next frame is ready.
type Sensor interface {
	Stream(shot *Shot) error
	StopStreaming()
	Capture(shot *Shot) error
	ShotsPending() int
	GetFrame() *Frame

	MaxGain() float32
	MinExposure() int
	MaxExposure() int
	MaxImageSize() (width, height int)

	Close() error
}

// AutoFocuser drives the lens.
type AutoFocuser interface {
	Idle() bool
	StartSweep()
	// Update feeds a frame to a running sweep, possibly adding a focus
	// action to the next shot.
	Update(frame *Frame, shot *Shot)
}

// AutoExposer adjusts exposure and gain on shot from the brightness of
// frame, within the sensor limits.
type AutoExposer interface {
	AutoExpose(shot *Shot, frame *Frame, limits ExposureLimits)
}

// AutoWhiteBalancer adjusts the white balance of shot from frame.
type AutoWhiteBalancer interface {
	AutoWhiteBalance(shot *Shot, frame *Frame)
}

type ExposureLimits struct {
	MaxGain     float32
	MinExposure int
	MaxExposure int
	Target      float32
}

// LimitsFor returns the exposure limits of a sensor with the given target
// brightness.
func LimitsFor(s Sensor, target float32) ExposureLimits {
	return ExposureLimits{
		MaxGain:     s.MaxGain(),
		MinExposure: s.MinExposure(),
		MaxExposure: s.MaxExposure(),
		Target:      target,
	}
}

// Flash is a light source fired by a FlashAction.
type Flash interface {
	Fire(brightness float32) error
	MaxBrightness() float32
}

// Device bundles what is needed to drive one camera.
type Device struct {
	Mode          Mode
	Sensor        Sensor
	Focuser       AutoFocuser
	Flash         Flash
	PreviewWidth  int
	PreviewHeight int
}

// Opener creates the device for a camera mode.
type Opener func(mode Mode) (*Device, error)
