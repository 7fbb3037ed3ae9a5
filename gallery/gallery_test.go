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

package gallery

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/still-recorder/camera"
	"github.com/TheCacophonyProject/still-recorder/imagewriter"
)

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "gallery")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func frame(flash float32) *camera.Frame {
	return &camera.Frame{
		Image:           camera.NewImage(camera.YUV420p, 32, 24),
		Exposure:        10000,
		Gain:            1.5,
		WhiteBalance:    5500,
		Focus:           5,
		FlashBrightness: flash,
		Time:            time.Now(),
	}
}

func writeStack(t *testing.T, dir string, id int) {
	set := imagewriter.NewImageSet(id, dir)
	ff := imagewriter.FileFormat{Format: imagewriter.JPEG}
	require.NoError(t, set.Add(ff, frame(0)))
	require.NoError(t, set.Add(ff, frame(1)))
	res := set.DumpToFileSystem(nil)
	require.Empty(t, res.Errors())
}

func TestLoad(t *testing.T) {
	dir := tempDir(t)
	writeStack(t, dir, 3)

	s, err := Load(filepath.Join(dir, imagewriter.DescriptorName(3)))
	require.NoError(t, err)
	assert.Equal(t, 3, s.ID)
	assert.Equal(t, dir, s.Dir)
	require.Len(t, s.Images, 2)

	assert.Equal(t, Image{
		Name:      imagewriter.ImageName(3, 0, imagewriter.JPEG),
		Thumbnail: imagewriter.ThumbnailName(3, 0),
		Flash:     false,
		Gain:      1.5,
		Exposure:  10000,
		WB:        5500,
		Focus:     5,
	}, s.Images[0])
	assert.True(t, s.Images[1].Flash)
}

func TestListNewestFirst(t *testing.T) {
	dir := tempDir(t)
	for _, id := range []int{1, 7, 3} {
		writeStack(t, dir, id)
	}
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "img_0009.xml"), []byte("not xml"), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))

	stacks, err := List(dir)
	require.NoError(t, err)
	var ids []int
	for _, s := range stacks {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int{7, 3, 1}, ids)
}

func TestListMissingDir(t *testing.T) {
	_, err := List(filepath.Join(tempDir(t), "missing"))
	assert.Error(t, err)
}

func TestLoadRejectsForeignPaths(t *testing.T) {
	dir := tempDir(t)
	descriptor := `<?xml version="1.0" encoding="utf-8"?>
<imagestack imagecount="1">
<image name="../secret" thumbnail="thumb_0001_00.jpg" flash="0" gain="100" exposure="1" wb="1" focus="1.00" />
</imagestack>
`
	path := filepath.Join(dir, imagewriter.DescriptorName(1))
	require.NoError(t, ioutil.WriteFile(path, []byte(descriptor), 0644))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "notes.xml"))
	assert.Error(t, err)
}

func TestLoadChecksImageCount(t *testing.T) {
	dir := tempDir(t)
	descriptor := `<imagestack imagecount="2">
<image name="img_0001_00.jpg" thumbnail="thumb_0001_00.jpg" flash="0" gain="100" exposure="1" wb="1" focus="1.00" />
</imagestack>
`
	path := filepath.Join(dir, imagewriter.DescriptorName(1))
	require.NoError(t, ioutil.WriteFile(path, []byte(descriptor), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	dir := tempDir(t)
	writeStack(t, dir, 1)
	writeStack(t, dir, 2)

	s, err := Find(dir, 1)
	require.NoError(t, err)
	require.NoError(t, os.Remove(s.Path(s.Images[0].Thumbnail)))
	require.NoError(t, Remove(s))

	files, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	for _, f := range files {
		assert.Contains(t, f.Name(), "_0002", "only stack 2 is left")
	}
	assert.Len(t, files, 5)

	_, err = Find(dir, 1)
	assert.Error(t, err)
}

func TestWatchReportsChanges(t *testing.T) {
	dir := tempDir(t)
	changed := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Watch(ctx, dir, func() { changed <- struct{}{} })
		close(done)
	}()

	// Give the watcher time to start.
	time.Sleep(50 * time.Millisecond)
	writeStack(t, dir, 1)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return")
	}
}

func TestWatcherCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(tempDir(t), "stills")

	watcher := initWatcher(dir)
	require.NotNil(t, watcher)
	defer watcher.Close()
	assert.DirExists(t, dir)
}

func TestPollReportsChanges(t *testing.T) {
	dir := tempDir(t)
	changed := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poll(ctx, dir, 10*time.Millisecond, func() { changed <- struct{}{} })

	time.Sleep(30 * time.Millisecond)
	select {
	case <-changed:
		t.Fatal("change reported without a change")
	default:
	}

	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "img_0001.xml"), nil, 0644))
	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("no change reported")
	}
}

func TestDirStateIgnoresTempFiles(t *testing.T) {
	dir := tempDir(t)
	before := dirState(dir)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "img_0001.xml.temp"), []byte("x"), 0644))
	assert.Equal(t, before, dirState(dir))
}
