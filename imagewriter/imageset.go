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
	"bufio"
	"errors"
	"fmt"
	"image/jpeg"
	"path/filepath"

	"github.com/TheCacophonyProject/still-recorder/camera"
)

var ErrImageSetPushed = errors.New("image set already pushed")

type entry struct {
	format FileFormat
	frame  *camera.Frame
}

// ImageSet is an ordered batch of frames stored under one sequence
// number. It must not be changed once pushed to a Writer.
type ImageSet struct {
	id         int
	dir        string
	captureID  string
	deviceName string
	entries    []entry
	pushed     bool
}

// NewImageSet returns an empty set stored in dir under id. Writer.NewImageSet
// picks a free id instead.
func NewImageSet(id int, dir string) *ImageSet {
	return &ImageSet{id: id, dir: dir}
}

func (s *ImageSet) ID() int { return s.id }

// CaptureID uniquely identifies the capture that produced the set.
func (s *ImageSet) CaptureID() string { return s.captureID }

func (s *ImageSet) Len() int { return len(s.entries) }

// Add appends a frame to be encoded as ff. Invalid frames keep their slot
// but are not written.
func (s *ImageSet) Add(ff FileFormat, frame *camera.Frame) error {
	if s.pushed {
		return ErrImageSetPushed
	}
	s.entries = append(s.entries, entry{format: ff, frame: frame})
	return nil
}

func (s *ImageSet) ValidCount() int {
	n := 0
	for _, e := range s.entries {
		if e.frame.Valid() {
			n++
		}
	}
	return n
}

// FrameResult reports what happened to one frame of a set.
type FrameResult struct {
	Index        int
	Image        string
	Thumbnail    string
	ImageErr     error
	ThumbnailErr error
}

func (r FrameResult) Err() error {
	if r.ImageErr != nil {
		return r.ImageErr
	}
	return r.ThumbnailErr
}

// SetResult reports the outcome of storing a set. Err is set when the
// descriptor could not be written, in which case nothing else was.
type SetResult struct {
	ID         int
	CaptureID  string
	Descriptor string
	Frames     []FrameResult
	Err        error
}

// Errors returns every error met while storing the set.
func (r *SetResult) Errors() []error {
	var errs []error
	if r.Err != nil {
		errs = append(errs, r.Err)
	}
	for _, f := range r.Frames {
		if f.ImageErr != nil {
			errs = append(errs, fmt.Errorf("frame %d: %v", f.Index, f.ImageErr))
		}
		if f.ThumbnailErr != nil {
			errs = append(errs, fmt.Errorf("frame %d thumbnail: %v", f.Index, f.ThumbnailErr))
		}
	}
	return errs
}

// Written returns the number of frames whose image was stored.
func (r *SetResult) Written() int {
	n := 0
	for _, f := range r.Frames {
		if f.ImageErr == nil {
			n++
		}
	}
	return n
}

// DumpToFileSystem writes the descriptor, then each valid frame and its
// thumbnail. onChange, if set, is called after the descriptor and after
// each frame. A set without valid frames writes nothing.
func (s *ImageSet) DumpToFileSystem(onChange func()) *SetResult {
	res := &SetResult{ID: s.id, CaptureID: s.captureID}
	if s.ValidCount() == 0 {
		return res
	}
	notify := func() {
		if onChange != nil {
			onChange()
		}
	}

	descriptor := filepath.Join(s.dir, DescriptorName(s.id))
	err := writeFile(descriptor, func(w *bufio.Writer) error {
		return writeDescriptor(w, s)
	})
	if err != nil {
		res.Err = fmt.Errorf("writing descriptor: %v", err)
		return res
	}
	res.Descriptor = descriptor
	notify()

	thumb := camera.NewImage(camera.YUV420p, ThumbnailWidth, ThumbnailHeight)
	for i, e := range s.entries {
		if !e.frame.Valid() {
			continue
		}
		fr := FrameResult{Index: i}
		fr.Image, fr.ImageErr = s.writeImage(i, e)
		fr.Thumbnail, fr.ThumbnailErr = s.writeThumbnail(i, e.frame, thumb)
		res.Frames = append(res.Frames, fr)
		notify()
	}
	return res
}

func (s *ImageSet) writeImage(i int, e entry) (string, error) {
	enc, err := encoderFor(e.format.Format, s.deviceName)
	if err != nil {
		return "", err
	}
	name := filepath.Join(s.dir, ImageName(s.id, i, e.format.Format))
	err = writeFile(name, func(w *bufio.Writer) error {
		return enc(w, e.frame, e.format)
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

func (s *ImageSet) writeThumbnail(i int, frame *camera.Frame, thumb *camera.Image) (string, error) {
	if err := Thumbnail(thumb, frame.Image); err != nil {
		return "", err
	}
	view, err := thumb.YCbCr()
	if err != nil {
		return "", err
	}
	name := filepath.Join(s.dir, ThumbnailName(s.id, i))
	err = writeFile(name, func(w *bufio.Writer) error {
		return jpeg.Encode(w, view, &jpeg.Options{Quality: ThumbnailQuality})
	})
	if err != nil {
		return "", err
	}
	return name, nil
}
