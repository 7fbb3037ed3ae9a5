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
	"sync"

	"github.com/TheCacophonyProject/still-recorder/camera"
	"github.com/TheCacophonyProject/still-recorder/triplebuffer"
)

// PreviewProvider hands preview frames from the capture loop to a
// renderer. Its buffers are replaced when the preview size changes, so
// every access happens under its lock, which the capture loop also holds
// while switching cameras.
type PreviewProvider struct {
	mu     sync.Mutex
	width  int
	height int
	buf    *triplebuffer.Buffer[camera.Image]
}

func NewPreviewProvider() *PreviewProvider {
	return new(PreviewProvider)
}

// Size returns the size of the current camera's preview.
func (p *PreviewProvider) Size() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// Latest returns the most recently published preview frame. The image
// belongs to the caller until its next call to Latest. Before anything
// is published the image is black.
func (p *PreviewProvider) Latest() *camera.Image {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.width <= 0 || p.height <= 0 {
		return nil
	}
	if p.buf == nil || p.buf.Front().Width != p.width || p.buf.Front().Height != p.height {
		p.buf = triplebuffer.New(
			blankPreview(p.width, p.height),
			blankPreview(p.width, p.height),
			blankPreview(p.width, p.height),
		)
	}
	return p.buf.SwapFront()
}

// publish copies img into the back buffer. Nothing happens until a
// renderer has asked for a frame or when img has the wrong size.
func (p *PreviewProvider) publish(img *camera.Image) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.buf == nil {
		return false
	}
	back := p.buf.Back()
	if err := back.CopyFrom(img); err != nil {
		return false
	}
	p.buf.SwapBack()
	return true
}

// resize must be called with p.mu held.
func (p *PreviewProvider) resize(width, height int) {
	if width == p.width && height == p.height {
		return
	}
	p.width = width
	p.height = height
	p.buf = nil
}

func blankPreview(w, h int) *camera.Image {
	img := camera.NewImage(camera.YUV420p, w, h)
	_, cb, cr := img.Planes()
	for i := range cb {
		cb[i] = 128
		cr[i] = 128
	}
	return img
}
