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

package flash

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"
)

type testPin struct {
	levels []gpio.Level
	err    error
}

func (p *testPin) Out(l gpio.Level) error {
	if p.err != nil {
		return p.err
	}
	p.levels = append(p.levels, l)
	return nil
}

func newTestFlash(t *testing.T) (*GPIOFlash, *testPin, *[]time.Duration) {
	pin := new(testPin)
	f, err := newFlash(pin, 100*time.Millisecond)
	require.NoError(t, err)
	var slept []time.Duration
	f.sleep = func(d time.Duration) { slept = append(slept, d) }
	return f, pin, &slept
}

func TestFirePulsesPin(t *testing.T) {
	f, pin, slept := newTestFlash(t)

	require.NoError(t, f.Fire(0.5))
	assert.Equal(t, []gpio.Level{gpio.Low, gpio.High, gpio.Low}, pin.levels)
	assert.Equal(t, []time.Duration{50 * time.Millisecond}, *slept)
}

func TestFireClampsBrightness(t *testing.T) {
	f, _, slept := newTestFlash(t)

	require.NoError(t, f.Fire(3))
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, *slept)
}

func TestZeroBrightnessDoesNothing(t *testing.T) {
	f, pin, slept := newTestFlash(t)

	require.NoError(t, f.Fire(0))
	assert.Equal(t, []gpio.Level{gpio.Low}, pin.levels)
	assert.Empty(t, *slept)
}

func TestPinFailure(t *testing.T) {
	_, err := newFlash(&testPin{err: errors.New("boom")}, time.Millisecond)
	assert.Error(t, err)
}
