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
	"errors"
	"fmt"
)

// ErrUnsupportedParam is returned when reading a parameter that has no
// value of the requested type.
var ErrUnsupportedParam = errors.New("unsupported parameter")

// The values read here describe the state as of the last completed cycle,
// so a value just submitted may not be visible yet.

// Snapshot returns a copy of the capture state.
func (l *Loop) Snapshot() CaptureState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prev
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Histogram returns the normalised luminance histogram of the last
// preview frame.
func (l *Loop) Histogram() [HistogramSize]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prev.Preview.Histogram
}

// ShotParams returns the settings of a burst slot.
func (l *Loop) ShotParams(slot int) (ShotParams, error) {
	if slot < 0 || slot >= MaxBurst {
		return ShotParams{}, fmt.Errorf("burst slot %d out of range", slot)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prev.Pending[slot], nil
}

func (l *Loop) ParamInt(p Param) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pv := &l.prev.Preview
	switch p {
	case ParamAutoExposureOn:
		return boolInt(pv.AutoExposure), nil
	case ParamAutoGainOn:
		return boolInt(pv.AutoGain), nil
	case ParamAutoWBOn:
		return boolInt(pv.AutoWB), nil
	case ParamAutoFocusOn:
		return boolInt(pv.AutoFocus), nil
	case ParamBurstSize:
		return l.prev.PendingCount, nil
	case ParamViewerActive:
		return boolInt(l.status.ViewerActive), nil
	case ParamTakePicture:
		return boolInt(l.status.Capturing), nil
	case ParamSelectCamera:
		return int(l.status.Camera), nil
	case ParamOutputFormat:
		return int(l.status.OutputFormat), nil
	}
	return 0, fmt.Errorf("%v: %w", p, ErrUnsupportedParam)
}

// ParamFloat returns the value driving the preview, evaluated or user
// depending on the auto flag.
func (l *Loop) ParamFloat(p Param) (float32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pv := &l.prev.Preview
	switch p {
	case ParamCaptureFPS:
		return l.status.FPS, nil
	case ParamPreviewExposure:
		return pv.Exposure(), nil
	case ParamPreviewFocus:
		return pv.Focus(), nil
	case ParamPreviewGain:
		return pv.Gain(), nil
	case ParamPreviewWB:
		return pv.WB(), nil
	}
	return 0, fmt.Errorf("%v: %w", p, ErrUnsupportedParam)
}

// ParamFloats returns array parameters. slot selects the burst slot of
// ParamShot.
func (l *Loop) ParamFloats(p Param, slot int) ([]float32, error) {
	switch p {
	case ParamShot:
		s, err := l.ShotParams(slot)
		if err != nil {
			return nil, err
		}
		vs := make([]float32, ShotValues)
		vs[ShotExposure] = s.Exposure
		vs[ShotFocus] = s.Focus
		vs[ShotGain] = s.Gain
		vs[ShotWB] = s.WB
		vs[ShotFlash] = float32(boolInt(s.Flash))
		return vs, nil
	case ParamLuminanceHistogram:
		h := l.Histogram()
		return h[:], nil
	}
	return nil, fmt.Errorf("%v: %w", p, ErrUnsupportedParam)
}

// ParamString returns string parameters.
func (l *Loop) ParamString(p Param) (string, error) {
	if p != ParamOutputDirectory {
		return "", fmt.Errorf("%v: %w", p, ErrUnsupportedParam)
	}
	return l.Status().OutputDir, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
