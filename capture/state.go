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

// ShotParams are the settings of one picture.
type ShotParams struct {
	Exposure float32 `yaml:"exposure"` // microseconds
	Focus    float32 `yaml:"focus"`    // dioptres
	Gain     float32 `yaml:"gain"`
	WB       float32 `yaml:"wb"` // kelvin
	Flash    bool    `yaml:"flash"`
}

func DefaultShotParams() ShotParams {
	return ShotParams{
		Exposure: 30000,
		Focus:    10,
		Gain:     1,
		WB:       6500,
	}
}

// PreviewState holds the preview settings. Evaluated values come from
// the auto estimators, User values from commands. Which one drives the
// preview depends on the matching auto flag.
type PreviewState struct {
	Evaluated    ShotParams
	User         ShotParams
	AutoExposure bool
	AutoFocus    bool
	AutoGain     bool
	AutoWB       bool
	Histogram    [HistogramSize]float32
}

// CaptureState is everything the capture loop changes from cycle to
// cycle. It holds no references so assigning it copies it whole.
type CaptureState struct {
	Preview      PreviewState
	Pending      [MaxBurst]ShotParams
	PendingCount int
}

func DefaultCaptureState() CaptureState {
	var s CaptureState
	s.Preview.Evaluated = DefaultShotParams()
	s.Preview.User = DefaultShotParams()
	s.Preview.AutoExposure = true
	s.Preview.AutoGain = true
	s.Preview.AutoWB = true
	for i := range s.Pending {
		s.Pending[i] = DefaultShotParams()
	}
	return s
}

// Exposure is the exposure driving the preview.
func (p *PreviewState) Exposure() float32 {
	if p.AutoExposure {
		return p.Evaluated.Exposure
	}
	return p.User.Exposure
}

func (p *PreviewState) Gain() float32 {
	if p.AutoGain {
		return p.Evaluated.Gain
	}
	return p.User.Gain
}

func (p *PreviewState) WB() float32 {
	if p.AutoWB {
		return p.Evaluated.WB
	}
	return p.User.WB
}

func (p *PreviewState) Focus() float32 {
	if p.AutoFocus {
		return p.Evaluated.Focus
	}
	return p.User.Focus
}

// toggleAuto switches an auto flag. Leaving auto mode carries the
// evaluated value over to the user value and entering it seeds the
// evaluated value from the user value, so the preview does not jump.
// Setting a flag to its current value changes nothing.
func toggleAuto(flag *bool, on bool, evaluated, user *float32) {
	if *flag == on {
		return
	}
	*flag = on
	if on {
		*evaluated = *user
	} else {
		*user = *evaluated
	}
}
