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
	"github.com/TheCacophonyProject/still-recorder/imagewriter"
)

// Listener receives notifications from the capture loop goroutine.
// Implementations must not block for long.
type Listener interface {
	CaptureStarted()
	CaptureCompleted()
	CaptureThrottled()
	FileSystemChanged()
	PreviewParamChanged(p Param)
	ImageSetWritten(report WriteReport)
}

// WriteReport summarises the storing of one image set.
type WriteReport struct {
	ID         int      `yaml:"id"`
	CaptureID  string   `yaml:"capture-id"`
	Descriptor string   `yaml:"descriptor"`
	Written    int      `yaml:"written"`
	Errors     []string `yaml:"errors,omitempty"`
}

func (r WriteReport) Failed() bool {
	return len(r.Errors) > 0
}

func newWriteReport(res *imagewriter.SetResult) WriteReport {
	r := WriteReport{
		ID:         res.ID,
		CaptureID:  res.CaptureID,
		Descriptor: res.Descriptor,
		Written:    res.Written(),
	}
	for _, err := range res.Errors() {
		r.Errors = append(r.Errors, err.Error())
	}
	return r
}

// Throttler limits how many pictures may be taken.
type Throttler interface {
	Allow(shots int) bool
}

type nullListener struct{}

func (nullListener) CaptureStarted() {}
func (nullListener) CaptureCompleted() {}
func (nullListener) CaptureThrottled() {}
func (nullListener) FileSystemChanged() {}
func (nullListener) PreviewParamChanged(Param) {}
func (nullListener) ImageSetWritten(WriteReport) {}
