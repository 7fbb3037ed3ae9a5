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
	"math"
	"time"
)

const (
	fpsUpdatePeriod = 500 * time.Millisecond
	initialFPS      = 30
	// Cycle time errors beyond this are left out of the jitter figures.
	jitterCap = 500 * time.Millisecond
)

// fpsCounter counts frames over fixed windows.
type fpsCounter struct {
	start  time.Time
	frames int
}

func newFPSCounter(now time.Time) fpsCounter {
	return fpsCounter{start: now}
}

// frame records a frame at now and returns the frame rate when a window
// has just closed.
func (c *fpsCounter) frame(now time.Time) (float32, bool) {
	c.frames++
	dt := now.Sub(c.start)
	if dt <= fpsUpdatePeriod {
		return 0, false
	}
	fps := float32(float64(c.frames) / dt.Seconds())
	c.start = now
	c.frames = 0
	return fps, true
}

// runningStat accumulates the mean and standard deviation of a series.
type runningStat struct {
	sum   float64
	sumSq float64
	n     int
}

func (s *runningStat) add(v float64) {
	s.sum += v
	s.sumSq += v * v
	s.n++
}

func (s *runningStat) mean() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / float64(s.n)
}

func (s *runningStat) stdDev() float64 {
	if s.n == 0 {
		return 0
	}
	m := s.mean()
	return math.Sqrt(math.Max(0, s.sumSq/float64(s.n)-m*m))
}

// jitter measures how far frames arrive from where the frame rate says
// they should.
type jitter struct {
	next time.Time
	stat runningStat
}

func (j *jitter) frame(now time.Time, fps float32) {
	if !j.next.IsZero() {
		dt := now.Sub(j.next)
		if dt > -jitterCap && dt < jitterCap {
			j.stat.add(float64(dt) / float64(time.Millisecond))
		}
	}
	if fps <= 0 {
		fps = initialFPS
	}
	j.next = now.Add(time.Duration(float64(time.Second) / float64(fps)))
}
