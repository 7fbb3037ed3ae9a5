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
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/TheCacophonyProject/still-recorder/capture"
	"github.com/TheCacophonyProject/still-recorder/loglimiter"
	"github.com/TheCacophonyProject/still-recorder/throttle"
)

const (
	dbusName = "org.cacophony.stillrecorder"
	dbusPath = "/org/cacophony/stillrecorder"
)

// commandSink is the part of the capture loop the service drives.
type commandSink interface {
	Submit(cmd capture.Command)
	ParamInt(p capture.Param) (int, error)
	ParamFloat(p capture.Param) (float32, error)
	ParamFloats(p capture.Param, slot int) ([]float32, error)
	ParamString(p capture.Param) (string, error)
}

type service struct {
	loop commandSink
}

func startService(loop commandSink) (*dbus.Conn, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, errors.New("name already taken")
	}

	s := &service{loop: loop}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return conn, nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
			Signals: []introspect.Signal{
				{Name: "CaptureStarted"},
				{Name: "CaptureCompleted"},
				{Name: "CaptureThrottled"},
				{Name: "FileSystemChanged"},
				{Name: "GalleryChanged"},
				{Name: "PreviewParamChanged", Args: []introspect.Arg{{Name: "param", Type: "q"}}},
				{Name: "ImageSetWritten", Args: []introspect.Arg{
					{Name: "id", Type: "i"},
					{Name: "written", Type: "i"},
					{Name: "errors", Type: "as"},
				}},
			},
		}},
	}
	return introspect.NewIntrospectable(node)
}

// param rejects ids outside the public parameter range.
func param(id uint16) (capture.Param, error) {
	p := capture.Param(id)
	if p > capture.ParamSelectCamera {
		return 0, fmt.Errorf("unknown parameter %d", id)
	}
	return p, nil
}

func (s *service) SetParamInt(id uint16, value int32) *dbus.Error {
	p, err := param(id)
	if err != nil {
		return makeDbusError("SetParamInt", err)
	}
	s.loop.Submit(capture.IntCommand(p, int(value)))
	return nil
}

func (s *service) SetParamFloat(id uint16, value float64) *dbus.Error {
	p, err := param(id)
	if err != nil {
		return makeDbusError("SetParamFloat", err)
	}
	s.loop.Submit(capture.FloatCommand(p, float32(value)))
	return nil
}

func (s *service) SetParamFloats(id uint16, slot int32, values []float64) *dbus.Error {
	p, err := param(id)
	if err != nil {
		return makeDbusError("SetParamFloats", err)
	}
	if slot < 0 || slot >= capture.MaxBurst {
		return makeDbusError("SetParamFloats", fmt.Errorf("slot %d out of range", slot))
	}
	vs := make([]float32, len(values))
	for i, v := range values {
		vs[i] = float32(v)
	}
	s.loop.Submit(capture.SlotFloatsCommand(p, int(slot), vs...))
	return nil
}

func (s *service) SetParamString(id uint16, value string) *dbus.Error {
	p, err := param(id)
	if err != nil {
		return makeDbusError("SetParamString", err)
	}
	s.loop.Submit(capture.StringCommand(p, value))
	return nil
}

// TakePicture takes a burst with the current settings.
func (s *service) TakePicture() *dbus.Error {
	s.loop.Submit(capture.BoolCommand(capture.ParamTakePicture, true))
	return nil
}

func (s *service) GetParamInt(id uint16) (int32, *dbus.Error) {
	v, err := s.loop.ParamInt(capture.Param(id))
	if err != nil {
		return 0, makeDbusError("GetParamInt", err)
	}
	return int32(v), nil
}

func (s *service) GetParamFloat(id uint16) (float64, *dbus.Error) {
	v, err := s.loop.ParamFloat(capture.Param(id))
	if err != nil {
		return 0, makeDbusError("GetParamFloat", err)
	}
	return float64(v), nil
}

func (s *service) GetParamFloats(id uint16, slot int32) ([]float64, *dbus.Error) {
	vs, err := s.loop.ParamFloats(capture.Param(id), int(slot))
	if err != nil {
		return nil, makeDbusError("GetParamFloats", err)
	}
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out, nil
}

func (s *service) GetParamString(id uint16) (string, *dbus.Error) {
	v, err := s.loop.ParamString(capture.Param(id))
	if err != nil {
		return "", makeDbusError("GetParamString", err)
	}
	return v, nil
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + "." + name,
		Body: []interface{}{err.Error()},
	}
}

// eventRecorder records device events.
type eventRecorder interface {
	Record(eventType string, details map[string]interface{})
}

// notifier turns capture loop notifications into d-bus signals and
// device events.
type notifier struct {
	events eventRecorder
	logs   *loglimiter.LogLimiter

	mu   sync.Mutex
	emit func(name string, values ...interface{}) error
}

func newNotifier(events eventRecorder) *notifier {
	return &notifier{
		events: events,
		logs:   loglimiter.New(time.Minute),
	}
}

func (n *notifier) setConn(conn *dbus.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emit = func(name string, values ...interface{}) error {
		return conn.Emit(dbusPath, dbusName+"."+name, values...)
	}
}

func (n *notifier) signal(name string, values ...interface{}) {
	n.mu.Lock()
	emit := n.emit
	n.mu.Unlock()
	if emit == nil {
		return
	}
	if err := emit(name, values...); err != nil {
		n.logs.Printf("could not emit %s: %v", name, err)
	}
}

func (n *notifier) CaptureStarted() { n.signal("CaptureStarted") }
func (n *notifier) CaptureCompleted() { n.signal("CaptureCompleted") }
func (n *notifier) CaptureThrottled() { n.signal("CaptureThrottled") }
func (n *notifier) FileSystemChanged() { n.signal("FileSystemChanged") }
func (n *notifier) GalleryChanged() { n.signal("GalleryChanged") }

func (n *notifier) PreviewParamChanged(p capture.Param) {
	n.signal("PreviewParamChanged", uint16(p))
}

func (n *notifier) ImageSetWritten(report capture.WriteReport) {
	errs := report.Errors
	if errs == nil {
		errs = []string{}
	}
	n.signal("ImageSetWritten", int32(report.ID), int32(report.Written), errs)

	details := map[string]interface{}{
		"id":        report.ID,
		"captureId": report.CaptureID,
		"images":    report.Written,
	}
	if report.Failed() {
		details["errors"] = report.Errors
		n.events.Record("stillWriteFailed", details)
		return
	}
	n.events.Record("stillCapture", details)
}

var (
	_ capture.Listener = new(notifier)
	_ eventRecorder    = new(throttle.EventRecorder)
)
