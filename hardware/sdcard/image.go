// This file is part of Waffle2e.
//
// Waffle2e is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Waffle2e is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Waffle2e.  If not, see <https://www.gnu.org/licenses/>.

package sdcard

import (
	"io"
	"os"

	"github.com/waffle2e/waffle2e/curated"
	"github.com/waffle2e/waffle2e/logger"
)

// Sentinel error patterns returned by image functions.
const (
	ImageNotFound = "sdcard: image not found: %v"
	ImageError    = "sdcard: image: %v"
)

// image is the random-access backing store for the card. The format is raw:
// sector N lives at byte offset N*512, no header, no metadata.
type image struct {
	file *os.File
	path string
	size int64
}

func mountImage(path string) (*image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, curated.Errorf(ImageNotFound, path)
		}
		return nil, curated.Errorf(ImageError, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, curated.Errorf(ImageError, err)
	}

	return &image{
		file: f,
		path: path,
		size: fi.Size(),
	}, nil
}

// readSector fills buf with sector data. A read that runs past the end of
// the file leaves the tail of buf at 0xff.
func (img *image) readSector(sector int64, buf []byte) error {
	for i := range buf {
		buf[i] = 0xff
	}

	if _, err := img.file.ReadAt(buf, sector*SectorSize); err != nil && err != io.EOF {
		return curated.Errorf(ImageError, err)
	}

	return nil
}

// writeSector writes buf at the sector offset.
func (img *image) writeSector(sector int64, buf []byte) error {
	if _, err := img.file.WriteAt(buf, sector*SectorSize); err != nil {
		return curated.Errorf(ImageError, err)
	}
	return nil
}

// unmount flushes and closes the underlying file.
func (img *image) unmount() {
	if err := img.file.Sync(); err != nil {
		logger.Logf("sdcard", "sync on unmount: %v", err)
	}
	if err := img.file.Close(); err != nil {
		logger.Logf("sdcard", "close on unmount: %v", err)
	}
}
