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

package imagewriter

import (
	"fmt"
	"html"
	"io"
)

// writeDescriptor lists the valid frames of set, one image element each.
// Frame indices in file names are positions in the set so skipping an
// invalid frame does not rename the ones after it.
func writeDescriptor(w io.Writer, set *ImageSet) error {
	ew := &errWriter{w: w}
	ew.printf("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	ew.printf("<imagestack imagecount=\"%d\"", set.ValidCount())
	if set.captureID != "" {
		ew.printf(" capture=\"%s\"", html.EscapeString(set.captureID))
	}
	if set.deviceName != "" {
		ew.printf(" device=\"%s\"", html.EscapeString(set.deviceName))
	}
	ew.printf(">\n")

	for i, e := range set.entries {
		f := e.frame
		if !f.Valid() {
			continue
		}
		flash := 0
		if f.FlashFired() {
			flash = 1
		}
		ew.printf("<image ")
		ew.printf("name=\"%s\" ", ImageName(set.id, i, e.format.Format))
		ew.printf("thumbnail=\"%s\" ", ThumbnailName(set.id, i))
		ew.printf("flash=\"%d\" ", flash)
		ew.printf("gain=\"%d\" ", int(f.Gain*100))
		ew.printf("exposure=\"%d\" ", f.Exposure)
		ew.printf("wb=\"%d\" ", f.WhiteBalance)
		ew.printf("focus=\"%.2f\" ", f.Focus)
		ew.printf("/>\n")
	}

	ew.printf("</imagestack>\n")
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
