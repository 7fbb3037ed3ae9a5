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

package throttle

import (
	"log"
	"time"

	"github.com/juju/ratelimit"
)

// ThrottledEventListener is told whenever pictures are not taken due to
// throttling.
type ThrottledEventListener interface {
	WhenThrottled()
}

type nullListener struct{}

func (lis *nullListener) WhenThrottled() {}

// CaptureThrottler limits how many pictures can be taken over time. This
// stops a stuck trigger or a busy scene from filling the disk with near
// identical image sets.
//
// The token bucket holds pictures. It starts full and refills at one
// picture per refill interval.
type CaptureThrottler struct {
	listener ThrottledEventListener
	bucket   *ratelimit.Bucket
	apply    bool
}

func NewCaptureThrottler(conf ThrottlerConfig, listener ThrottledEventListener) *CaptureThrottler {
	return NewCaptureThrottlerWithClock(conf, listener, new(realClock))
}

func NewCaptureThrottlerWithClock(
	conf ThrottlerConfig,
	listener ThrottledEventListener,
	clock ratelimit.Clock,
) *CaptureThrottler {
	if listener == nil {
		listener = new(nullListener)
	}
	t := &CaptureThrottler{
		listener: listener,
		apply:    conf.ApplyThrottling,
	}
	if t.apply {
		refillRate := 1 / conf.RefillInterval.Seconds()
		t.bucket = ratelimit.NewBucketWithRateAndClock(refillRate, int64(conf.BucketShots), clock)
	}
	return t
}

// Allow takes shots pictures from the bucket if it holds that many. A
// burst is taken whole or not at all.
func (t *CaptureThrottler) Allow(shots int) bool {
	if !t.apply || shots <= 0 {
		return true
	}
	if t.bucket.Available() < int64(shots) {
		log.Printf("%d pictures not taken due to throttling", shots)
		t.listener.WhenThrottled()
		return false
	}
	t.bucket.TakeAvailable(int64(shots))
	return true
}

// Available returns the number of pictures that can be taken now.
func (t *CaptureThrottler) Available() int64 {
	if !t.apply {
		return -1
	}
	return t.bucket.Available()
}

// realClock implements ratelimit.Clock in terms of standard time functions.
type realClock struct{}

// Now implements Clock.Now by calling time.Now.
func (realClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock.Sleep by calling time.Sleep.
func (realClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
