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

package video

// The four pixel modes. Mode 0 is the text mode.
//
//	mode 1: 640x480, 1 bit per pixel, 2 pages
//	mode 2: 640x480, 2 bits per pixel, 1 page
//	mode 3: 320x240, 4 bits per pixel, 2 pages
//	mode 4: 320x240, 8 bits per pixel (palette indexed), 1 page
//
// The buffers are flat byte arrays, one byte per pixel regardless of
// depth; the depth only determines the mask applied on write.

// ModeGeometry returns the pixel dimensions of a video mode. Text mode
// reports zero.
func ModeGeometry(mode int) (width, height int) {
	switch mode {
	case 1, 2:
		return 640, 480
	case 3, 4:
		return 320, 240
	}
	return 0, 0
}

// colorMask returns the bit-depth mask for a video mode.
func colorMask(mode int) uint8 {
	switch mode {
	case 1:
		return 0x01
	case 2:
		return 0x03
	case 3:
		return 0x0f
	case 4:
		return 0xff
	}
	return 0x00
}

// pages returns the number of framebuffer pages a video mode carries.
func pages(mode int) int {
	switch mode {
	case 1, 3:
		return 2
	}
	return 1
}

type pixelState struct {
	// indexed by [mode-1][page]; single-page modes have one entry
	buffers [4][][]uint8

	cursorX int
	cursorY int
}

func (ps *pixelState) reset() {
	for m := 1; m <= 4; m++ {
		w, h := ModeGeometry(m)
		ps.buffers[m-1] = make([][]uint8, pages(m))
		for p := range ps.buffers[m-1] {
			ps.buffers[m-1][p] = make([]uint8, w*h)
		}
	}
	ps.cursorX = 0
	ps.cursorY = 0
}

func (ps *pixelState) buffer(mode, page int) []uint8 {
	if mode < 1 || mode > 4 {
		return nil
	}
	b := ps.buffers[mode-1]
	if page >= len(b) {
		page = 0
	}
	return b[page]
}

// writePixel plots color arg0 at the pixel cursor in the working page of
// the current mode, then advances the cursor.
func (vd *Video) writePixel() {
	mode := vd.Mode()
	w, h := ModeGeometry(mode)
	if w == 0 {
		return
	}

	ps := &vd.pixels
	if ps.cursorX < w && ps.cursorY < h {
		buf := ps.buffer(mode, vd.WorkingPage())
		buf[ps.cursorY*w+ps.cursorX] = vd.args[0] & colorMask(mode)
	}

	// advance with wrap at the right edge and the bottom of the screen
	ps.cursorX++
	if ps.cursorX >= w {
		ps.cursorX = 0
		ps.cursorY++
		if ps.cursorY >= h {
			ps.cursorY = 0
		}
	}
}

// pixelPosition moves the pixel cursor to the 16-bit coordinates carried
// big-endian in args 0-3, clamped to the current mode.
func (vd *Video) pixelPosition() {
	mode := vd.Mode()
	w, h := ModeGeometry(mode)

	ps := &vd.pixels
	ps.cursorX = int(vd.args[0])<<8 | int(vd.args[1])
	ps.cursorY = int(vd.args[2])<<8 | int(vd.args[3])

	if w == 0 {
		return
	}
	if ps.cursorX >= w {
		ps.cursorX = w - 1
	}
	if ps.cursorY >= h {
		ps.cursorY = h - 1
	}
}

// clearScreen fills the working page of the current mode with color arg0
// and homes the pixel cursor.
func (vd *Video) clearScreen() {
	mode := vd.Mode()
	w, _ := ModeGeometry(mode)
	if w == 0 {
		return
	}

	buf := vd.pixels.buffer(mode, vd.WorkingPage())
	c := vd.args[0] & colorMask(mode)
	for i := range buf {
		buf[i] = c
	}

	vd.pixels.cursorX = 0
	vd.pixels.cursorY = 0
}

// getPixelAt reads the pixel at the big-endian coordinates in args 0-3
// from the active page into the result registers.
func (vd *Video) getPixelAt() {
	mode := vd.Mode()
	w, h := ModeGeometry(mode)

	x := int(vd.args[0])<<8 | int(vd.args[1])
	y := int(vd.args[2])<<8 | int(vd.args[3])

	if w == 0 || x >= w || y >= h {
		vd.status |= StatusError
		return
	}

	v := vd.pixels.buffer(mode, vd.ActivePage())[y*w+x]
	vd.results[0] = v
	vd.results[1] = 0
}

// PixelAt returns the pixel value at (x, y) in the given page of the
// current mode. Used by renderers and tests.
func (vd *Video) PixelAt(page, x, y int) uint8 {
	mode := vd.Mode()
	w, h := ModeGeometry(mode)
	if w == 0 || x < 0 || x >= w || y < 0 || y >= h {
		return 0
	}
	return vd.pixels.buffer(mode, page)[y*w+x]
}

// PixelCursor returns the current pixel cursor position.
func (vd *Video) PixelCursor() (int, int) {
	return vd.pixels.cursorX, vd.pixels.cursorY
}
