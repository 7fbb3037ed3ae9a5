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
	"fmt"

	"github.com/TheCacophonyProject/still-recorder/camera"
)

// Size is an image size in pixels.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Config describes the software cameras.
type Config struct {
	FPS     int
	Capture map[camera.Mode]Size
	Preview map[camera.Mode]Size
	Flash   camera.Flash
}

func DefaultConfig() Config {
	return Config{
		FPS: 30,
		Capture: map[camera.Mode]Size{
			camera.Front:  {1280, 960},
			camera.Back:   {2592, 1944},
			camera.Stereo: {1280, 720},
		},
		Preview: map[camera.Mode]Size{
			camera.Front:  {640, 480},
			camera.Back:   {960, 720},
			camera.Stereo: {640, 360},
		},
	}
}

// Opener returns a camera.Opener creating software devices. Only the back
// camera has a flash.
func Opener(conf Config) camera.Opener {
	return func(mode camera.Mode) (*camera.Device, error) {
		capture, ok := conf.Capture[mode]
		if !ok {
			return nil, fmt.Errorf("no %v camera", mode)
		}
		preview, ok := conf.Preview[mode]
		if !ok {
			preview = capture
		}
		var flash camera.Flash
		if mode == camera.Back {
			flash = conf.Flash
		}
		return &camera.Device{
			Mode:          mode,
			Sensor:        NewSensor(capture.Width, capture.Height, conf.FPS, flash),
			Focuser:       NewFocuser(),
			Flash:         flash,
			PreviewWidth:  preview.Width,
			PreviewHeight: preview.Height,
		}, nil
	}
}
