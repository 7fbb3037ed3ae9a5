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

import "fmt"

// Param identifies a capture parameter.
type Param uint16

const (
	ParamShot               Param = 0
	ParamResolution         Param = 1
	ParamBurstSize          Param = 2
	ParamOutputFormat       Param = 3
	ParamViewerActive       Param = 4
	ParamOutputDirectory    Param = 5
	ParamOutputFileID       Param = 6
	ParamLuminanceHistogram Param = 7
	ParamPreviewExposure    Param = 8
	ParamPreviewFocus       Param = 9
	ParamPreviewGain        Param = 10
	ParamPreviewWB          Param = 11
	ParamAutoExposureOn     Param = 12
	ParamAutoFocusOn        Param = 13
	ParamAutoGainOn         Param = 14
	ParamAutoWBOn           Param = 15
	ParamCaptureFPS         Param = 16
	ParamTakePicture        Param = 17
	ParamFocusOnTouch       Param = 18
	ParamWBOnTouch          Param = 19
	ParamSelectCamera       Param = 20

	// Sent by the capture loop to itself.
	paramFileSystemChanged Param = 100
	paramWriteResult       Param = 101
	paramStop              Param = 102
)

var paramNames = map[Param]string{
	ParamShot:               "shot",
	ParamResolution:         "resolution",
	ParamBurstSize:          "burst-size",
	ParamOutputFormat:       "output-format",
	ParamViewerActive:       "viewer-active",
	ParamOutputDirectory:    "output-directory",
	ParamOutputFileID:       "output-file-id",
	ParamLuminanceHistogram: "luminance-histogram",
	ParamPreviewExposure:    "preview-exposure",
	ParamPreviewFocus:       "preview-focus",
	ParamPreviewGain:        "preview-gain",
	ParamPreviewWB:          "preview-wb",
	ParamAutoExposureOn:     "auto-exposure",
	ParamAutoFocusOn:        "auto-focus",
	ParamAutoGainOn:         "auto-gain",
	ParamAutoWBOn:           "auto-wb",
	ParamCaptureFPS:         "capture-fps",
	ParamTakePicture:        "take-picture",
	ParamFocusOnTouch:       "focus-on-touch",
	ParamWBOnTouch:          "wb-on-touch",
	ParamSelectCamera:       "select-camera",
	paramFileSystemChanged:  "fs-changed",
	paramWriteResult:        "write-result",
	paramStop:               "stop",
}

func (p Param) String() string {
	if name, ok := paramNames[p]; ok {
		return name
	}
	return fmt.Sprintf("param(%d)", uint16(p))
}

// ParseParam looks a parameter up by name.
func ParseParam(name string) (Param, bool) {
	for p, n := range paramNames {
		if n == name && p < paramFileSystemChanged {
			return p, true
		}
	}
	return 0, false
}

// Positions of the values of a ParamShot command.
const (
	ShotExposure = iota
	ShotFocus
	ShotGain
	ShotWB
	ShotFlash
	ShotValues
)

const (
	// HistogramSize is the number of bins of the published histogram.
	HistogramSize = 256
	// MaxBurst is the largest number of pictures taken by one request.
	MaxBurst = 16
)
