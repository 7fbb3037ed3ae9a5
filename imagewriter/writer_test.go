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
	"errors"
	"image/jpeg"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/TheCacophonyProject/still-recorder/camera"
)

var jpegFormat = FileFormat{Format: JPEG, Quality: 95}

func testFrame(exposure int, flash float32) *camera.Frame {
	return &camera.Frame{
		Image:           uniformImage(64, 48, 120, 128, 128),
		Exposure:        exposure,
		Gain:            1.5,
		WhiteBalance:    5500,
		Focus:           5,
		FlashBrightness: flash,
		Time:            time.Now(),
	}
}

type results struct {
	mu      sync.Mutex
	sets    []*SetResult
	changes int
}

func (r *results) onChange() {
	r.mu.Lock()
	r.changes++
	r.mu.Unlock()
}

func (r *results) onResult(res *SetResult) {
	r.mu.Lock()
	r.sets = append(r.sets, res)
	r.mu.Unlock()
}

func newTestWriter(t *testing.T) (*Writer, *results, string) {
	dir, err := ioutil.TempDir("", "imagewriter")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	r := new(results)
	w, err := New(Options{
		Dir:        dir,
		DeviceName: "test-device",
		OnChange:   r.onChange,
		OnResult:   r.onResult,
	})
	require.NoError(t, err)
	return w, r, dir
}

func readFile(t *testing.T, name string) string {
	buf, err := ioutil.ReadFile(name)
	require.NoError(t, err)
	return string(buf)
}

func TestDescriptorListsValidFrames(t *testing.T) {
	dir, err := ioutil.TempDir("", "imagewriter")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	set := NewImageSet(7, dir)
	require.NoError(t, set.Add(jpegFormat, testFrame(10000, 0)))
	require.NoError(t, set.Add(jpegFormat, &camera.Frame{Err: errors.New("dropped")}))
	require.NoError(t, set.Add(jpegFormat, testFrame(20000, 1)))

	changes := 0
	res := set.DumpToFileSystem(func() { changes++ })
	require.NoError(t, res.Err)
	assert.Equal(t, 3, changes)
	assert.Equal(t, 2, res.Written())
	assert.Empty(t, res.Errors())

	assert.Equal(t,
		`<?xml version="1.0" encoding="utf-8"?>`+"\n"+
			`<imagestack imagecount="2">`+"\n"+
			`<image name="img_0007_00.jpg" thumbnail="thumb_0007_00.jpg" flash="0" gain="150" exposure="10000" wb="5500" focus="5.00" />`+"\n"+
			`<image name="img_0007_02.jpg" thumbnail="thumb_0007_02.jpg" flash="1" gain="150" exposure="20000" wb="5500" focus="5.00" />`+"\n"+
			`</imagestack>`+"\n",
		readFile(t, filepath.Join(dir, "img_0007.xml")))

	for _, name := range []string{"img_0007_00.jpg", "thumb_0007_00.jpg", "img_0007_02.jpg", "thumb_0007_02.jpg"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, "img_0007_01.jpg"))

	f, err := os.Open(filepath.Join(dir, "thumb_0007_02.jpg"))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, ThumbnailWidth, cfg.Width)
	assert.Equal(t, ThumbnailHeight, cfg.Height)
}

func TestSetWithoutValidFramesWritesNothing(t *testing.T) {
	dir, err := ioutil.TempDir("", "imagewriter")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	set := NewImageSet(1, dir)
	require.NoError(t, set.Add(jpegFormat, nil))
	called := false
	res := set.DumpToFileSystem(func() { called = true })

	assert.False(t, called)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Frames)
	files, _ := ioutil.ReadDir(dir)
	assert.Empty(t, files)
}

func TestSetsAreWrittenInPushOrder(t *testing.T) {
	w, r, dir := newTestWriter(t)

	for _, id := range []int{3, 1, 2} {
		set := NewImageSet(id, dir)
		require.NoError(t, set.Add(jpegFormat, testFrame(1000*id, 0)))
		w.Push(set)
	}
	w.Close()

	require.Len(t, r.sets, 3)
	for i, id := range []int{3, 1, 2} {
		assert.Equal(t, id, r.sets[i].ID)
		assert.Equal(t, filepath.Join(dir, DescriptorName(id)), r.sets[i].Descriptor)
		assert.Contains(t, readFile(t, r.sets[i].Descriptor), `imagecount="1"`)
	}
	assert.Equal(t, 6, r.changes)
}

func TestNewImageSetSkipsExistingDescriptors(t *testing.T) {
	w, _, dir := newTestWriter(t)
	defer w.Close()

	for _, id := range []int{0, 1, 3} {
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, DescriptorName(id)), nil, 0644))
	}

	assert.Equal(t, 2, w.NewImageSet().ID())
	assert.Equal(t, 4, w.NewImageSet().ID())

	w.SetNextID(100)
	set := w.NewImageSet()
	assert.Equal(t, 100, set.ID())
	assert.NotEmpty(t, set.CaptureID())
}

func TestCaptureAndDeviceRecordedInDescriptor(t *testing.T) {
	w, r, _ := newTestWriter(t)

	set := w.NewImageSet()
	require.NoError(t, set.Add(jpegFormat, testFrame(1000, 0)))
	w.Push(set)
	w.Close()

	require.Len(t, r.sets, 1)
	desc := readFile(t, r.sets[0].Descriptor)
	assert.Contains(t, desc, `capture="`+set.CaptureID()+`"`)
	assert.Contains(t, desc, `device="test-device"`)
	assert.Equal(t, set.CaptureID(), r.sets[0].CaptureID)
}

func TestPushedSetIsFrozen(t *testing.T) {
	w, _, _ := newTestWriter(t)
	defer w.Close()

	w.Push(nil)
	set := w.NewImageSet()
	w.Push(set)
	assert.Equal(t, ErrImageSetPushed, set.Add(jpegFormat, testFrame(1, 0)))
}

func TestOtherFormats(t *testing.T) {
	w, r, dir := newTestWriter(t)

	set := w.NewImageSet()
	require.NoError(t, set.Add(FileFormat{Format: TIFF}, testFrame(1000, 0)))
	require.NoError(t, set.Add(FileFormat{Format: RAW}, testFrame(2000, 0)))
	require.NoError(t, set.Add(FileFormat{Format: DNG}, testFrame(3000, 0)))
	w.Push(set)
	w.Close()

	require.Len(t, r.sets, 1)
	res := r.sets[0]
	require.Len(t, res.Frames, 3)

	tif, err := os.Open(res.Frames[0].Image)
	require.NoError(t, err)
	defer tif.Close()
	img, err := tiff.Decode(tif)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	raw := readFile(t, res.Frames[1].Image)
	assert.True(t, strings.HasPrefix(raw, rawMagic))
	assert.True(t, strings.HasSuffix(raw, string(testFrame(0, 0).Image.Pix)))
	assert.Contains(t, raw, "test-device")

	assert.True(t, errors.Is(res.Frames[2].ImageErr, ErrUnsupportedFormat))
	assert.NoError(t, res.Frames[2].ThumbnailErr)
	assert.FileExists(t, filepath.Join(dir, ThumbnailName(set.ID(), 2)))
	assert.Equal(t, 2, res.Written())
	assert.Len(t, res.Errors(), 1)

	desc := readFile(t, res.Descriptor)
	assert.Contains(t, desc, ImageName(set.ID(), 0, TIFF))
	assert.Contains(t, desc, ImageName(set.ID(), 1, RAW))
}

func TestUnsupportedThumbnailSourceIsReported(t *testing.T) {
	w, r, _ := newTestWriter(t)

	frame := testFrame(1000, 0)
	frame.Image = camera.NewImage(camera.RGB24, 64, 48)
	set := w.NewImageSet()
	require.NoError(t, set.Add(jpegFormat, frame))
	w.Push(set)
	w.Close()

	require.Len(t, r.sets, 1)
	fr := r.sets[0].Frames[0]
	assert.NoError(t, fr.ImageErr)
	assert.Equal(t, ErrUnsupportedPixelFormat, fr.ThumbnailErr)
	assert.Empty(t, fr.Thumbnail)
}

func TestDescriptorFailureAbortsSet(t *testing.T) {
	dir, err := ioutil.TempDir("", "imagewriter")
	require.NoError(t, err)
	os.RemoveAll(dir)

	set := NewImageSet(1, dir)
	require.NoError(t, set.Add(jpegFormat, testFrame(1000, 0)))
	changes := 0
	res := set.DumpToFileSystem(func() { changes++ })

	assert.Error(t, res.Err)
	assert.Empty(t, res.Frames)
	assert.Equal(t, 0, changes)
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	w, _, dir := newTestWriter(t)
	set := w.NewImageSet()
	require.NoError(t, set.Add(jpegFormat, testFrame(1000, 0)))
	w.Push(set)
	w.Close()

	files, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	for _, f := range files {
		assert.False(t, strings.HasSuffix(f.Name(), tempExt), f.Name())
	}
	assert.Len(t, files, 3)
}

func TestParseDescriptorName(t *testing.T) {
	id, ok := ParseDescriptorName("img_0042.xml")
	assert.True(t, ok)
	assert.Equal(t, 42, id)

	id, ok = ParseDescriptorName(DescriptorName(12345))
	assert.True(t, ok)
	assert.Equal(t, 12345, id)

	for _, name := range []string{"img_42.xml", "img_0042_00.jpg", "thumb_0042_00.jpg", "img_0042.xml.temp", "img_-001.xml"} {
		_, ok := ParseDescriptorName(name)
		assert.False(t, ok, name)
	}
}

func TestBufferedFileRenamesOnClose(t *testing.T) {
	dir, err := ioutil.TempDir("", "imagewriter")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	name := filepath.Join(dir, "out")
	bf, err := newBufferedFile(name)
	require.NoError(t, err)
	_, err = bf.Write([]byte("hello"))
	require.NoError(t, err)
	assert.NoFileExists(t, name)
	require.NoError(t, bf.Close())

	assert.Equal(t, "hello", readFile(t, name))
	assert.NoFileExists(t, name+tempExt)
}
