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

package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrMalformedPayload = errors.New("malformed command payload")

// Command is a parameter change on its way to the capture loop. The low
// 16 bits of ID hold the Param and the high 16 bits a burst slot.
type Command struct {
	ID      uint32
	Payload []byte
}

// NewCommand copies payload into a new command.
func NewCommand(p Param, slot int, payload []byte) Command {
	return Command{
		ID:      uint32(slot)<<16 | uint32(p),
		Payload: append([]byte(nil), payload...),
	}
}

func IntCommand(p Param, v int) Command {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	return Command{ID: uint32(p), Payload: b}
}

func BoolCommand(p Param, on bool) Command {
	if on {
		return IntCommand(p, 1)
	}
	return IntCommand(p, 0)
}

func FloatCommand(p Param, v float32) Command {
	return FloatsCommand(p, v)
}

func FloatsCommand(p Param, vs ...float32) Command {
	return SlotFloatsCommand(p, 0, vs...)
}

func SlotFloatsCommand(p Param, slot int, vs ...float32) Command {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return Command{ID: uint32(slot)<<16 | uint32(p), Payload: b}
}

func StringCommand(p Param, s string) Command {
	return NewCommand(p, 0, []byte(s))
}

// ShotCommand sets burst slot to the given shot settings.
func ShotCommand(slot int, s ShotParams) Command {
	flash := float32(0)
	if s.Flash {
		flash = 1
	}
	vals := make([]float32, ShotValues)
	vals[ShotExposure] = s.Exposure
	vals[ShotFocus] = s.Focus
	vals[ShotGain] = s.Gain
	vals[ShotWB] = s.WB
	vals[ShotFlash] = flash
	return SlotFloatsCommand(ParamShot, slot, vals...)
}

func (c Command) Param() Param {
	return Param(c.ID & 0xffff)
}

func (c Command) Slot() int {
	return int(c.ID >> 16)
}

func (c Command) Int() (int, error) {
	if len(c.Payload) != 4 {
		return 0, c.malformed("int")
	}
	return int(int32(binary.LittleEndian.Uint32(c.Payload))), nil
}

func (c Command) Bool() (bool, error) {
	v, err := c.Int()
	return v != 0, err
}

func (c Command) Float() (float32, error) {
	vs, err := c.Floats(1)
	if err != nil {
		return 0, err
	}
	return vs[0], nil
}

// Floats decodes exactly n float values.
func (c Command) Floats(n int) ([]float32, error) {
	if len(c.Payload) != 4*n {
		return nil, c.malformed(fmt.Sprintf("%d floats", n))
	}
	vs := make([]float32, n)
	for i := range vs {
		vs[i] = math.Float32frombits(binary.LittleEndian.Uint32(c.Payload[4*i:]))
	}
	return vs, nil
}

// Text decodes the payload as a string, dropping any trailing NUL.
func (c Command) Text() string {
	return strings.TrimRight(string(c.Payload), "\x00")
}

func (c Command) malformed(want string) error {
	return fmt.Errorf("%v: want %s, got %d bytes: %w", c.Param(), want, len(c.Payload), ErrMalformedPayload)
}
