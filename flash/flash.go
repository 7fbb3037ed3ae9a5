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

// Package flash fires a flash wired to a GPIO pin.
package flash

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
)

type levelWriter interface {
	Out(l gpio.Level) error
}

// GPIOFlash drives the pin high for a time proportional to the requested
// brightness.
type GPIOFlash struct {
	mu       sync.Mutex
	pin      levelWriter
	duration time.Duration
	sleep    func(time.Duration)
}

// New returns a flash on the named pin. host.Init must have been called.
// duration is how long the pin stays high at full brightness.
func New(pinName string, duration time.Duration) (*GPIOFlash, error) {
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("could not find flash pin %q", pinName)
	}
	return newFlash(pin, duration)
}

func newFlash(pin levelWriter, duration time.Duration) (*GPIOFlash, error) {
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("could not set flash pin low: %v", err)
	}
	return &GPIOFlash{
		pin:      pin,
		duration: duration,
		sleep:    time.Sleep,
	}, nil
}

func (f *GPIOFlash) MaxBrightness() float32 { return 1 }

// Fire pulses the pin. Brightness is clamped to [0, 1] and zero does
// nothing.
func (f *GPIOFlash) Fire(brightness float32) error {
	if brightness <= 0 {
		return nil
	}
	if brightness > 1 {
		brightness = 1
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pin.Out(gpio.High); err != nil {
		return err
	}
	f.sleep(time.Duration(float32(f.duration) * brightness))
	return f.pin.Out(gpio.Low)
}
