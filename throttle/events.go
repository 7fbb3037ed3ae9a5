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

package throttle

import (
	"encoding/json"
	"log"
	"time"

	"github.com/godbus/dbus"
)

// QueueFunc hands an event to the events service.
type QueueFunc func(details []byte, nanos int64) error

// EventRecorder uses the event api to record what happened at a
// particular time.
type EventRecorder struct {
	queue QueueFunc
	now   func() time.Time
}

func NewEventRecorder() *EventRecorder {
	return NewEventRecorderWithQueue(queueDbusEvent)
}

func NewEventRecorderWithQueue(queue QueueFunc) *EventRecorder {
	return &EventRecorder{queue: queue, now: time.Now}
}

// Record queues an event of eventType. details are added to the event
// description.
func (er *EventRecorder) Record(eventType string, details map[string]interface{}) {
	ts := er.now()
	description := map[string]interface{}{
		"type": eventType,
	}
	if len(details) > 0 {
		description["details"] = details
	}
	eventDetails := map[string]interface{}{
		"description": description,
	}
	detailsJSON, err := json.Marshal(&eventDetails)
	if err != nil {
		log.Printf("Could not record %s event: %s", eventType, err)
		return
	}
	if err := er.queue(detailsJSON, ts.UnixNano()); err != nil {
		log.Printf("Could not record %s event: %s", eventType, err)
	}
}

func (er *EventRecorder) WhenThrottled() {
	er.Record("throttle", nil)
}

func queueDbusEvent(details []byte, nanos int64) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	obj := conn.Object("org.cacophony.Events", "/org/cacophony/Events")
	return obj.Call("org.cacophony.Events.Queue", 0, details, nanos).Err
}
