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

// Package fakecamera is a software camera used when no capture hardware
// is present and in tests. Frames are synthesised from the shot settings
// so exposure, gain, white balance and flash all leave visible traces in
// the pixels and metadata.
package fakecamera

import (
	"errors"
	"sync"
	"time"

	"github.com/TheCacophonyProject/still-recorder/camera"
)

const (
	histogramBins = 64

	maxGain     = 16
	minExposure = 100
	maxExposure = 500000
)

var ErrClosed = errors.New("sensor closed")

// Sensor implements camera.Sensor.
type Sensor struct {
	mu        sync.Mutex
	ready     *sync.Cond
	width     int
	height    int
	period    time.Duration
	flash     camera.Flash
	streaming *camera.Shot
	pending   []camera.Shot
	focus     float32
	frames    int
	closed    bool
	sleep     func(time.Duration)
}

// NewSensor returns a sensor producing frames of at most width x height.
// A zero fps streams as fast as frames are requested.
func NewSensor(width, height, fps int, flash camera.Flash) *Sensor {
	s := &Sensor{
		width:  width,
		height: height,
		flash:  flash,
		sleep:  time.Sleep,
	}
	if fps > 0 {
		s.period = time.Second / time.Duration(fps)
	}
	s.ready = sync.NewCond(&s.mu)
	return s
}

func (s *Sensor) Stream(shot *camera.Shot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	c := copyShot(shot)
	s.streaming = &c
	s.ready.Broadcast()
	return nil
}

func (s *Sensor) StopStreaming() {
	s.mu.Lock()
	s.streaming = nil
	s.mu.Unlock()
}

func (s *Sensor) Capture(shot *camera.Shot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.pending = append(s.pending, copyShot(shot))
	s.ready.Broadcast()
	return nil
}

func (s *Sensor) ShotsPending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// GetFrame returns the next captured frame, or the next streamed frame
// when no captures are queued. It blocks while there is nothing to do.
func (s *Sensor) GetFrame() *camera.Frame {
	s.mu.Lock()
	for len(s.pending) == 0 && s.streaming == nil && !s.closed {
		s.ready.Wait()
	}
	if s.closed {
		s.mu.Unlock()
		return &camera.Frame{Err: ErrClosed, Time: time.Now()}
	}

	var shot camera.Shot
	streamed := len(s.pending) == 0
	if streamed {
		shot = copyShot(s.streaming)
	} else {
		shot = s.pending[0]
		s.pending = s.pending[1:]
	}
	s.frames++
	n := s.frames
	s.mu.Unlock()

	if streamed && s.period > 0 {
		s.sleep(s.period)
	}
	return s.expose(&shot, n)
}

func (s *Sensor) expose(shot *camera.Shot, n int) *camera.Frame {
	w, h := shot.Width, shot.Height
	if w <= 0 || h <= 0 || w > s.width || h > s.height {
		w, h = s.width, s.height
	}

	var flash float32
	for _, a := range shot.Actions {
		switch a.Kind {
		case camera.FocusAction:
			s.mu.Lock()
			s.focus = a.Value
			s.mu.Unlock()
		case camera.FlashAction:
			flash = a.Value
			if s.flash != nil {
				if err := s.flash.Fire(a.Value); err != nil {
					return &camera.Frame{Err: err, Time: time.Now()}
				}
			}
		}
	}

	s.mu.Lock()
	focus := s.focus
	s.mu.Unlock()

	img := render(w, h, brightness(shot, flash), shot.WhiteBalance, n)
	f := &camera.Frame{
		Image:           img,
		Exposure:        shot.Exposure,
		Gain:            shot.Gain,
		WhiteBalance:    shot.WhiteBalance,
		Focus:           focus,
		FlashBrightness: flash,
		Time:            time.Now(),
	}
	if shot.Histogram {
		f.Histogram = histogram(img)
	}
	if shot.Sharpness {
		f.Sharpness = sharpness(focus)
	}
	return f
}

func (s *Sensor) MaxGain() float32 { return maxGain }
func (s *Sensor) MinExposure() int { return minExposure }
func (s *Sensor) MaxExposure() int { return maxExposure }
func (s *Sensor) MaxImageSize() (int, int) {
	return s.width, s.height
}

// Close wakes any goroutine blocked in GetFrame.
func (s *Sensor) Close() error {
	s.mu.Lock()
	s.closed = true
	s.streaming = nil
	s.pending = nil
	s.mu.Unlock()
	s.ready.Broadcast()
	return nil
}

func copyShot(shot *camera.Shot) camera.Shot {
	c := *shot
	c.Actions = append([]camera.Action(nil), shot.Actions...)
	return c
}
