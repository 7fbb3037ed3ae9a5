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
	"io"

	"github.com/TheCacophonyProject/go-cptv"

	"github.com/TheCacophonyProject/still-recorder/camera"
)

// Raw files hold one frame of unprocessed pixels behind a header using
// the CPTV field encoding.
const (
	rawMagic        = "CPSR"
	rawVersion byte = 0x01

	headerSection = 'H'
	frameSection  = 'F'

	pixelFormatField  byte = 'P'
	exposureField     byte = 'E'
	gainField         byte = 'G'
	whiteBalanceField byte = 'W'
	focusField        byte = 'L'
	flashField        byte = 'B'
)

type rawEncoder struct {
	deviceName string
}

func (e rawEncoder) encode(w io.Writer, frame *camera.Frame, _ FileFormat) error {
	b := newBuilder(w)

	img := frame.Image
	fields := cptv.NewFieldWriter()
	fields.Timestamp(cptv.Timestamp, frame.Time)
	fields.Uint32(cptv.XResolution, uint32(img.Width))
	fields.Uint32(cptv.YResolution, uint32(img.Height))
	fields.Uint8(cptv.Compression, 0)
	fields.Uint8(pixelFormatField, uint8(img.Format))
	if e.deviceName != "" {
		if err := fields.String(cptv.DeviceName, e.deviceName); err != nil {
			return err
		}
	}
	if err := b.WriteHeader(fields); err != nil {
		return err
	}

	fields = cptv.NewFieldWriter()
	fields.Uint32(exposureField, uint32(frame.Exposure))
	fields.Uint32(gainField, uint32(frame.Gain*100))
	fields.Uint32(whiteBalanceField, uint32(frame.WhiteBalance))
	fields.Uint32(focusField, uint32(frame.Focus*100))
	fields.Uint32(flashField, uint32(frame.FlashBrightness*100))
	fields.Uint32(cptv.FrameSize, uint32(len(img.Pix)))
	return b.WriteFrame(fields, img.Pix)
}

func newBuilder(w io.Writer) *builder {
	return &builder{w: w}
}

// builder writes raw file sections.
type builder struct {
	w io.Writer
}

func (b *builder) WriteHeader(f *cptv.FieldWriter) error {
	fieldData, numFields := f.Bytes()
	_, err := b.w.Write(append(
		[]byte(rawMagic),
		rawVersion,
		headerSection,
		byte(numFields),
	))
	if err != nil {
		return err
	}

	_, err = b.w.Write(fieldData)
	return err
}

func (b *builder) WriteFrame(f *cptv.FieldWriter, pix []byte) error {
	fieldData, numFields := f.Bytes()
	if _, err := b.w.Write([]byte{frameSection, byte(numFields)}); err != nil {
		return err
	}
	if _, err := b.w.Write(fieldData); err != nil {
		return err
	}
	_, err := b.w.Write(pix)
	return err
}
