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

// Package gallery reads back the image stacks stored by imagewriter.
package gallery

import (
	"encoding/xml"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/TheCacophonyProject/still-recorder/imagewriter"
)

// Image is one picture of a stack.
type Image struct {
	Name      string  `json:"name"`
	Thumbnail string  `json:"thumbnail"`
	Flash     bool    `json:"flash"`
	Gain      float32 `json:"gain"`
	Exposure  int     `json:"exposure"`
	WB        int     `json:"wb"`
	Focus     float32 `json:"focus"`
}

// Stack is an image set as described by its descriptor file.
type Stack struct {
	ID        int     `json:"id"`
	Dir       string  `json:"-"`
	CaptureID string  `json:"captureId,omitempty"`
	Device    string  `json:"device,omitempty"`
	Images    []Image `json:"images"`
}

type xmlStack struct {
	XMLName    xml.Name   `xml:"imagestack"`
	ImageCount int        `xml:"imagecount,attr"`
	Capture    string     `xml:"capture,attr"`
	Device     string     `xml:"device,attr"`
	Images     []xmlImage `xml:"image"`
}

type xmlImage struct {
	Name      string  `xml:"name,attr"`
	Thumbnail string  `xml:"thumbnail,attr"`
	Flash     int     `xml:"flash,attr"`
	Gain      int     `xml:"gain,attr"`
	Exposure  int     `xml:"exposure,attr"`
	WB        int     `xml:"wb,attr"`
	Focus     float32 `xml:"focus,attr"`
}

// Load reads the descriptor at path.
func Load(path string) (*Stack, error) {
	id, ok := imagewriter.ParseDescriptorName(filepath.Base(path))
	if !ok {
		return nil, fmt.Errorf("%s is not a descriptor", path)
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var x xmlStack
	if err := xml.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("could not parse %s: %v", path, err)
	}
	if x.ImageCount != len(x.Images) {
		return nil, fmt.Errorf("%s lists %d images, expected %d", path, len(x.Images), x.ImageCount)
	}

	s := &Stack{
		ID:        id,
		Dir:       filepath.Dir(path),
		CaptureID: x.Capture,
		Device:    x.Device,
		Images:    make([]Image, 0, len(x.Images)),
	}
	for _, xi := range x.Images {
		if !plainName(xi.Name) || !plainName(xi.Thumbnail) {
			return nil, fmt.Errorf("%s refers to files outside its directory", path)
		}
		s.Images = append(s.Images, Image{
			Name:      xi.Name,
			Thumbnail: xi.Thumbnail,
			Flash:     xi.Flash != 0,
			Gain:      float32(xi.Gain) / 100,
			Exposure:  xi.Exposure,
			WB:        xi.WB,
			Focus:     xi.Focus,
		})
	}
	return s, nil
}

func plainName(name string) bool {
	return name != "" && name == filepath.Base(name) && name != "." && name != ".."
}

// List loads every stack in dir, newest first. Descriptors that cannot
// be read are skipped.
func List(dir string) ([]*Stack, error) {
	files, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var stacks []*Stack
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if _, ok := imagewriter.ParseDescriptorName(f.Name()); !ok {
			continue
		}
		s, err := Load(filepath.Join(dir, f.Name()))
		if err != nil {
			continue
		}
		stacks = append(stacks, s)
	}
	sort.Slice(stacks, func(i, j int) bool {
		return stacks[i].ID > stacks[j].ID
	})
	return stacks, nil
}

// Find loads stack id from dir.
func Find(dir string, id int) (*Stack, error) {
	return Load(filepath.Join(dir, imagewriter.DescriptorName(id)))
}

// Path returns the path of a file of the stack.
func (s *Stack) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Remove deletes the images and thumbnails of the stack, then its
// descriptor. Files already gone are not an error.
func Remove(s *Stack) error {
	for _, img := range s.Images {
		for _, name := range []string{img.Name, img.Thumbnail} {
			if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	err := os.Remove(s.Path(imagewriter.DescriptorName(s.ID)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
