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

import "time"

// ActionKind selects what an Action does when it fires.
type ActionKind int

const (
	FocusAction ActionKind = iota
	FlashAction
)

// Action is a device event scheduled relative to the start of a shot's
// exposure.
type Action struct {
	Kind  ActionKind
	Time  time.Duration
	Value float32 // dioptres for focus, brightness for flash
}

// Shot is a capture request.
type Shot struct {
	Exposure     int // microseconds
	Gain         float32
	WhiteBalance int // kelvin
	Width        int
	Height       int
	Format       PixelFormat
	Histogram    bool
	Sharpness    bool
	Actions      []Action
}

func (s *Shot) AddAction(a Action) {
	s.Actions = append(s.Actions, a)
}

func (s *Shot) ClearActions() {
	s.Actions = s.Actions[:0]
}

// Frame is what the sensor returns for a shot.
type Frame struct {
	Image           *Image
	Exposure        int
	Gain            float32
	WhiteBalance    int
	Focus           float32
	FlashBrightness float32
	// Histogram holds luminance bin counts when the shot asked for them.
	Histogram []int
	Sharpness int
	Time      time.Time
	Err       error
}

// Valid reports whether the frame carries usable pixels.
func (f *Frame) Valid() bool {
	return f != nil && f.Err == nil && f.Image != nil
}

func (f *Frame) FlashFired() bool {
	return f.FlashBrightness > 0
}
