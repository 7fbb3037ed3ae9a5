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
	"bufio"
	"os"
)

const tempExt = ".temp"

// newBufferedFile writes to filename plus a temp extension. Close renames
// the file into place once all data is flushed so readers of the output
// directory never see partial files.
func newBufferedFile(filename string) (*bufferedFile, error) {
	f, err := os.Create(filename + tempExt)
	if err != nil {
		return nil, err
	}
	return &bufferedFile{
		name: filename,
		f:    f,
		w:    bufio.NewWriterSize(f, 1024*1024),
	}, nil
}

type bufferedFile struct {
	name string
	f    *os.File
	w    *bufio.Writer
}

func (bf *bufferedFile) Write(p []byte) (int, error) {
	return bf.w.Write(p)
}

func (bf *bufferedFile) Close() error {
	if err := bf.w.Flush(); err != nil {
		bf.Abort()
		return err
	}
	if err := bf.f.Close(); err != nil {
		os.Remove(bf.f.Name())
		return err
	}
	return os.Rename(bf.f.Name(), bf.name)
}

// Abort discards the partially written file.
func (bf *bufferedFile) Abort() {
	bf.f.Close()
	os.Remove(bf.f.Name())
}

// writeFile creates filename with the output of write.
func writeFile(filename string, write func(*bufio.Writer) error) error {
	bf, err := newBufferedFile(filename)
	if err != nil {
		return err
	}
	if err := write(bf.w); err != nil {
		bf.Abort()
		return err
	}
	return bf.Close()
}
