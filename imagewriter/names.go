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
	"strconv"
	"strings"
)

// DescriptorName is the file name of the descriptor of image set id.
func DescriptorName(id int) string {
	return fmt.Sprintf("img_%04d.xml", id)
}

// ImageName is the file name of frame index of image set id.
func ImageName(id, index int, format Format) string {
	return fmt.Sprintf("img_%04d_%02d.%s", id, index, format.Ext())
}

// ThumbnailName is the file name of the thumbnail of frame index of image
// set id. Thumbnails are always JPEG.
func ThumbnailName(id, index int) string {
	return fmt.Sprintf("thumb_%04d_%02d.jpg", id, index)
}

// ParseDescriptorName returns the image set id of a descriptor file name.
func ParseDescriptorName(name string) (int, bool) {
	if !strings.HasPrefix(name, "img_") || !strings.HasSuffix(name, ".xml") {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "img_"), ".xml"))
	if err != nil || id < 0 || DescriptorName(id) != name {
		return 0, false
	}
	return id, true
}
