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
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"golang.org/x/image/tiff"

	"github.com/TheCacophonyProject/still-recorder/camera"
)

// ErrUnsupportedFormat is reported for output formats with no encoder.
var ErrUnsupportedFormat = errors.New("unsupported output format")

type encoder func(w io.Writer, frame *camera.Frame, ff FileFormat) error

func encoderFor(f Format, deviceName string) (encoder, error) {
	switch f {
	case JPEG:
		return encodeJPEG, nil
	case TIFF:
		return encodeTIFF, nil
	case RAW:
		return rawEncoder{deviceName: deviceName}.encode, nil
	}
	return nil, fmt.Errorf("%v: %w", f, ErrUnsupportedFormat)
}

func encodeJPEG(w io.Writer, frame *camera.Frame, ff FileFormat) error {
	img, err := toImage(frame.Image)
	if err != nil {
		return err
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: ff.quality()})
}

func encodeTIFF(w io.Writer, frame *camera.Frame, _ FileFormat) error {
	img, err := toImage(frame.Image)
	if err != nil {
		return err
	}
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

func toImage(img *camera.Image) (image.Image, error) {
	switch img.Format {
	case camera.YUV420p:
		return img.YCbCr()
	case camera.RGB24:
		rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		for i, j := 0, 0; i+2 < len(img.Pix); i, j = i+3, j+4 {
			rgba.Pix[j] = img.Pix[i]
			rgba.Pix[j+1] = img.Pix[i+1]
			rgba.Pix[j+2] = img.Pix[i+2]
			rgba.Pix[j+3] = 0xff
		}
		return rgba, nil
	}
	return nil, fmt.Errorf("cannot encode %v pixels", img.Format)
}
