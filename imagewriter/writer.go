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

// Package imagewriter stores image sets on a background goroutine so the
// capture loop never waits on file I/O.
package imagewriter

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/TheCacophonyProject/still-recorder/workqueue"
)

type Options struct {
	Dir        string
	NextID     int
	DeviceName string
	// OnChange is called on the writer goroutine after every file system
	// change.
	OnChange func()
	// OnResult is called on the writer goroutine after every set.
	OnResult func(*SetResult)
}

// job is either a set to store or the request to stop.
type job struct {
	set  *ImageSet
	stop bool
}

// Writer stores pushed image sets in push order.
type Writer struct {
	opts      Options
	mu        sync.Mutex
	nextID    int
	queue     *workqueue.Queue[job]
	done      chan struct{}
	closeOnce sync.Once
}

// New creates the output directory if needed and starts the writer
// goroutine.
func New(opts Options) (*Writer, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("no output directory")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %v", err)
	}
	w := &Writer{
		opts:   opts,
		nextID: opts.NextID,
		queue:  workqueue.New[job](),
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Writer) Dir() string {
	return w.opts.Dir
}

// SetNextID sets where the search for a free set id starts.
func (w *Writer) SetNextID(id int) {
	w.mu.Lock()
	w.nextID = id
	w.mu.Unlock()
}

// NewImageSet returns a set bound to the lowest id, at or after the next
// id, that has no descriptor on disk.
func (w *Writer) NewImageSet() *ImageSet {
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		_, err := os.Stat(filepath.Join(w.opts.Dir, DescriptorName(w.nextID)))
		if os.IsNotExist(err) {
			break
		}
		w.nextID++
	}
	set := NewImageSet(w.nextID, w.opts.Dir)
	set.captureID = uuid.New().String()
	set.deviceName = w.opts.DeviceName
	w.nextID++
	return set
}

// Push hands set over to the writer goroutine. A nil set is ignored.
func (w *Writer) Push(set *ImageSet) {
	if set == nil {
		return
	}
	set.pushed = true
	w.queue.Produce(job{set: set})
}

// Close stores every set pushed so far then stops the writer goroutine.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		w.queue.Produce(job{stop: true})
	})
	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		j, _ := w.queue.Consume(true)
		if j.stop {
			return
		}
		res := j.set.DumpToFileSystem(w.opts.OnChange)
		for _, err := range res.Errors() {
			log.Printf("image set %d: %v", res.ID, err)
		}
		if w.opts.OnResult != nil {
			w.opts.OnResult(res)
		}
	}
}
