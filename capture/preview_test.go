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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/still-recorder/camera"
)

func newSizedPreview(w, h int) *PreviewProvider {
	p := NewPreviewProvider()
	p.mu.Lock()
	p.resize(w, h)
	p.mu.Unlock()
	return p
}

func grey(w, h int, v byte) *camera.Image {
	img := camera.NewImage(camera.YUV420p, w, h)
	y, _, _ := img.Planes()
	for i := range y {
		y[i] = v
	}
	return img
}

func TestLatestWithoutSize(t *testing.T) {
	assert.Nil(t, NewPreviewProvider().Latest())
}

func TestPublishBeforeRendererIsDropped(t *testing.T) {
	p := newSizedPreview(8, 6)
	assert.False(t, p.publish(grey(8, 6, 50)))

	img := p.Latest()
	require.NotNil(t, img)
	y, cb, _ := img.Planes()
	assert.Equal(t, byte(0), y[0])
	assert.Equal(t, byte(128), cb[0])
}

func TestLatestReturnsNewestFrame(t *testing.T) {
	p := newSizedPreview(8, 6)
	p.Latest()

	assert.True(t, p.publish(grey(8, 6, 50)))
	assert.True(t, p.publish(grey(8, 6, 60)))

	img := p.Latest()
	y, _, _ := img.Planes()
	assert.Equal(t, byte(60), y[0])

	again := p.Latest()
	assert.Same(t, img, again, "nothing new was published")
}

func TestPublishWrongSizeIsDropped(t *testing.T) {
	p := newSizedPreview(8, 6)
	p.Latest()
	assert.False(t, p.publish(grey(16, 12, 50)))
}

func TestResizeReplacesBuffers(t *testing.T) {
	p := newSizedPreview(8, 6)
	p.Latest()

	p.mu.Lock()
	p.resize(4, 2)
	p.mu.Unlock()

	w, h := p.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)
	img := p.Latest()
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 2, img.Height)
	assert.True(t, p.publish(grey(4, 2, 9)))
}
