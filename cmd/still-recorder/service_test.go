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

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/still-recorder/capture"
)

func TestServiceSetters(t *testing.T) {
	loop := new(fakeLoop)
	s := &service{loop: loop}

	assert.Nil(t, s.SetParamInt(uint16(capture.ParamBurstSize), 3))
	assert.Nil(t, s.SetParamFloat(uint16(capture.ParamPreviewWB), 5500))
	assert.Nil(t, s.SetParamFloats(uint16(capture.ParamShot), 2, []float64{10000, 5, 1, 5500, 0}))
	assert.Nil(t, s.SetParamString(uint16(capture.ParamOutputDirectory), "/out"))
	assert.Nil(t, s.TakePicture())

	require.Len(t, loop.cmds, 5)
	n, err := loop.cmds[0].Int()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	wb, err := loop.cmds[1].Float()
	require.NoError(t, err)
	assert.Equal(t, float32(5500), wb)

	assert.Equal(t, 2, loop.cmds[2].Slot())
	vs, err := loop.cmds[2].Floats(capture.ShotValues)
	require.NoError(t, err)
	assert.Equal(t, []float32{10000, 5, 1, 5500, 0}, vs)

	assert.Equal(t, "/out", loop.cmds[3].Text())
	assert.Equal(t, capture.ParamTakePicture, loop.cmds[4].Param())
}

func TestServiceRejectsInternalParams(t *testing.T) {
	loop := new(fakeLoop)
	s := &service{loop: loop}

	assert.NotNil(t, s.SetParamInt(102, 1))
	assert.NotNil(t, s.SetParamFloat(100, 1))
	assert.NotNil(t, s.SetParamFloats(101, 0, nil))
	assert.NotNil(t, s.SetParamString(999, "x"))
	assert.NotNil(t, s.SetParamFloats(uint16(capture.ParamShot), capture.MaxBurst, nil))
	assert.Empty(t, loop.cmds)

	dbusErr := s.SetParamInt(102, 1)
	assert.Equal(t, dbusName+".SetParamInt", dbusErr.Name)
}

func TestServiceGetters(t *testing.T) {
	loop := &fakeLoop{snap: capture.DefaultCaptureState()}
	loop.snap.PendingCount = 4
	loop.status.OutputDir = "/out"
	s := &service{loop: loop}

	n, dbusErr := s.GetParamInt(uint16(capture.ParamBurstSize))
	assert.Nil(t, dbusErr)
	assert.Equal(t, int32(4), n)

	gain, dbusErr := s.GetParamFloat(uint16(capture.ParamPreviewGain))
	assert.Nil(t, dbusErr)
	assert.Equal(t, 1.0, gain)

	vs, dbusErr := s.GetParamFloats(uint16(capture.ParamFocusOnTouch), 3)
	assert.Nil(t, dbusErr)
	assert.Equal(t, []float64{0.5, 3}, vs)

	dir, dbusErr := s.GetParamString(uint16(capture.ParamOutputDirectory))
	assert.Nil(t, dbusErr)
	assert.Equal(t, "/out", dir)

	_, dbusErr = s.GetParamInt(uint16(capture.ParamShot))
	assert.NotNil(t, dbusErr)
	_, dbusErr = s.GetParamFloat(uint16(capture.ParamShot))
	assert.NotNil(t, dbusErr)
	_, dbusErr = s.GetParamFloats(uint16(capture.ParamShot), 0)
	assert.NotNil(t, dbusErr)
	_, dbusErr = s.GetParamString(uint16(capture.ParamShot))
	assert.NotNil(t, dbusErr)
}

type emitted struct {
	name   string
	values []interface{}
}

type event struct {
	eventType string
	details   map[string]interface{}
}

type testEvents struct {
	events []event
}

func (e *testEvents) Record(eventType string, details map[string]interface{}) {
	e.events = append(e.events, event{eventType, details})
}

func newTestNotifier() (*notifier, *[]emitted, *testEvents) {
	events := new(testEvents)
	n := newNotifier(events)
	signals := new([]emitted)
	n.emit = func(name string, values ...interface{}) error {
		*signals = append(*signals, emitted{name, values})
		return nil
	}
	return n, signals, events
}

func TestNotifierSignals(t *testing.T) {
	n, signals, events := newTestNotifier()

	n.CaptureStarted()
	n.CaptureCompleted()
	n.CaptureThrottled()
	n.FileSystemChanged()
	n.GalleryChanged()
	n.PreviewParamChanged(capture.ParamPreviewExposure)

	var names []string
	for _, s := range *signals {
		names = append(names, s.name)
	}
	assert.Equal(t, []string{
		"CaptureStarted",
		"CaptureCompleted",
		"CaptureThrottled",
		"FileSystemChanged",
		"GalleryChanged",
		"PreviewParamChanged",
	}, names)
	assert.Equal(t, []interface{}{uint16(capture.ParamPreviewExposure)}, (*signals)[5].values)
	assert.Empty(t, events.events)
}

func TestNotifierRecordsWrites(t *testing.T) {
	n, signals, events := newTestNotifier()

	n.ImageSetWritten(capture.WriteReport{ID: 3, CaptureID: "abc", Written: 2})
	n.ImageSetWritten(capture.WriteReport{ID: 4, Errors: []string{"disk full"}})

	require.Len(t, *signals, 2)
	assert.Equal(t, []interface{}{int32(3), int32(2), []string{}}, (*signals)[0].values)
	assert.Equal(t, []interface{}{int32(4), int32(0), []string{"disk full"}}, (*signals)[1].values)

	require.Len(t, events.events, 2)
	assert.Equal(t, "stillCapture", events.events[0].eventType)
	assert.Equal(t, "abc", events.events[0].details["captureId"])
	assert.Equal(t, 2, events.events[0].details["images"])
	assert.Equal(t, "stillWriteFailed", events.events[1].eventType)
	assert.Equal(t, []string{"disk full"}, events.events[1].details["errors"])
}

func TestNotifierWithoutConnection(t *testing.T) {
	events := new(testEvents)
	n := newNotifier(events)
	n.CaptureStarted()
	n.ImageSetWritten(capture.WriteReport{ID: 1, Written: 1})
	assert.Len(t, events.events, 1)
}

func TestNotifierSurvivesEmitFailure(t *testing.T) {
	n := newNotifier(new(testEvents))
	calls := 0
	n.emit = func(string, ...interface{}) error {
		calls++
		return errors.New("bus gone")
	}
	n.FileSystemChanged()
	n.FileSystemChanged()
	assert.Equal(t, 2, calls)
}

func TestAlive(t *testing.T) {
	assert.True(t, alive(capture.Status{Cycles: 1, ViewerActive: true}, capture.Status{Cycles: 2, ViewerActive: true}))
	assert.False(t, alive(capture.Status{Cycles: 2, ViewerActive: true}, capture.Status{Cycles: 2, ViewerActive: true}))
	assert.True(t, alive(capture.Status{Cycles: 2}, capture.Status{Cycles: 2}), "idle without a viewer")
	assert.False(t, alive(capture.Status{Cycles: 2}, capture.Status{Cycles: 2, Capturing: true}))
}
