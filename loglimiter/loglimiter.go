// still-recorder - capture bursts of still images and store them as image stacks
// Copyright (C) 2019, The Cacophony Project
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

package loglimiter

import (
	"fmt"
	"log"
	"sync"
	"time"
)

const maxEntries = 64

// New returns a new LogLimiter with the configured minimum log interval.
func New(interval time.Duration) *LogLimiter {
	return &LogLimiter{
		interval: interval,
		nowFunc:  time.Now,
		entries:  make(map[string]*entry),
	}
}

// LogLimiter suppresses a log message seen again within some time
// interval. Printf messages are matched on their format so changing
// arguments don't defeat the limit. When a message is let through again
// it says how many copies were suppressed.
type LogLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	nowFunc  func() time.Time
	entries  map[string]*entry
}

type entry struct {
	last       time.Time
	suppressed int
}

func (limiter *LogLimiter) Printf(format string, v ...interface{}) {
	limiter.print(format, fmt.Sprintf(format, v...))
}

func (limiter *LogLimiter) Print(s string) {
	limiter.print(s, s)
}

func (limiter *LogLimiter) print(key, s string) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.nowFunc()
	e, ok := limiter.entries[key]
	if ok && now.Sub(e.last) < limiter.interval {
		e.suppressed++
		return
	}
	if !ok {
		limiter.prune(now)
		e = new(entry)
		limiter.entries[key] = e
	}

	if e.suppressed > 0 {
		s = fmt.Sprintf("%s (%d similar messages suppressed)", s, e.suppressed)
	}
	log.Print(s)
	e.last = now
	e.suppressed = 0
}

// prune forgets messages whose interval has passed once too many are
// remembered.
func (limiter *LogLimiter) prune(now time.Time) {
	if len(limiter.entries) < maxEntries {
		return
	}
	for key, e := range limiter.entries {
		if now.Sub(e.last) >= limiter.interval {
			delete(limiter.entries, key)
		}
	}
}
