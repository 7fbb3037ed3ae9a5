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
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	debounceDuration = 100 * time.Millisecond
	pollInterval     = 2 * time.Second
)

// Watch calls onChange after files in dir change, at most once per burst
// of changes. It watches with fsnotify and falls back to polling when
// that is not available. Watch returns when ctx is done.
func Watch(ctx context.Context, dir string, onChange func()) {
	watcher := initWatcher(dir)
	if watcher == nil {
		poll(ctx, dir, pollInterval, onChange)
		return
	}
	defer watcher.Close()
	runWatcher(ctx, watcher, onChange)
}

func initWatcher(dir string) *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("failed to create watcher: %v (falling back to polling)", err)
		return nil
	}
	// The writer creates dir on its first image set, which may come
	// after the watcher starts.
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		log.Printf("failed to create %s: %v (falling back to polling)", dir, err)
		return nil
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		log.Printf("failed to watch %s: %v (falling back to polling)", dir, err)
		return nil
	}
	return watcher
}

func runWatcher(ctx context.Context, watcher *fsnotify.Watcher, onChange func()) {
	timer := newDebounceTimer()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if strings.HasSuffix(event.Name, ".temp") {
				continue
			}
			resetDebounceTimer(timer)
		case <-timer.C:
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	return timer
}

func resetDebounceTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(debounceDuration)
}

func poll(ctx context.Context, dir string, interval time.Duration, onChange func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := dirState(dir)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := dirState(dir)
			if state != last {
				last = state
				onChange()
			}
		}
	}
}

// dirState summarises the names, sizes and times of the files in dir.
func dirState(dir string) string {
	files, err := ioutil.ReadDir(dir)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".temp") {
			continue
		}
		fmt.Fprintf(&b, "%s %d %d\n", f.Name(), f.Size(), f.ModTime().UnixNano())
	}
	return b.String()
}
