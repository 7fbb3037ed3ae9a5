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
	"strings"
)

// Format is an output file encoding.
type Format int

const (
	JPEG Format = iota
	TIFF
	DNG
	RAW
)

func (f Format) Ext() string {
	switch f {
	case JPEG:
		return "jpg"
	case TIFF:
		return "tif"
	case DNG:
		return "dng"
	case RAW:
		return "raw"
	}
	return "bin"
}

func (f Format) String() string {
	switch f {
	case JPEG:
		return "jpeg"
	case TIFF:
		return "tiff"
	case DNG:
		return "dng"
	case RAW:
		return "raw"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "jpeg", "jpg":
		return JPEG, nil
	case "tiff", "tif":
		return TIFF, nil
	case "dng":
		return DNG, nil
	case "raw":
		return RAW, nil
	}
	return 0, fmt.Errorf("unknown output format %q", s)
}

// FileFormat is how one frame of an ImageSet gets encoded. Quality only
// applies to JPEG.
type FileFormat struct {
	Format  Format
	Quality int
}

func (ff FileFormat) quality() int {
	if ff.Quality <= 0 || ff.Quality > 100 {
		return DefaultQuality
	}
	return ff.Quality
}

const DefaultQuality = 95
