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

// Text mode geometry. The buffers carry one row beyond the visible 30 as
// scroll headroom.
const (
	TextColumns = 80
	TextRows    = 30
	textBufRows = TextRows + 1
)

// DefaultAttribute is foreground palette index 1 on background index 0
// (blue on black with the power-on VGA palette): background palette index
// in the high nibble, foreground in the low.
const DefaultAttribute = 0x01

// ASCII control codes handled by the TEXT_COMMAND instruction.
const (
	ctrlBS  = 0x08
	ctrlHT  = 0x09
	ctrlLF  = 0x0a
	ctrlCR  = 0x0d
	ctrlDEL = 0x7f
)

const tabStop = 8

type textState struct {
	chars   [textBufRows][TextColumns]uint8
	attribs [textBufRows][TextColumns]uint8
	cursorX int
	cursorY int
}

func (ts *textState) reset() {
	for y := 0; y < textBufRows; y++ {
		for x := 0; x < TextColumns; x++ {
			ts.chars[y][x] = ' '
			ts.attribs[y][x] = DefaultAttribute
		}
	}
	ts.cursorX = 0
	ts.cursorY = 0
}

// scrollUp moves every row up by one and clears the bottom row.
func (ts *textState) scrollUp() {
	for y := 0; y < TextRows-1; y++ {
		ts.chars[y] = ts.chars[y+1]
		ts.attribs[y] = ts.attribs[y+1]
	}
	for x := 0; x < TextColumns; x++ {
		ts.chars[TextRows-1][x] = ' '
		ts.attribs[TextRows-1][x] = DefaultAttribute
	}
}

// lineFeed moves the cursor to column zero of the next row, scrolling at
// the bottom.
func (ts *textState) lineFeed() {
	ts.cursorX = 0
	if ts.cursorY < TextRows-1 {
		ts.cursorY++
	} else {
		ts.scrollUp()
	}
}

// textWrite writes character arg1 with attribute arg0 at the cursor and
// advances, wrapping and scrolling as needed.
func (vd *Video) textWrite() {
	ts := &vd.text

	if ts.cursorY < TextRows && ts.cursorX < TextColumns {
		ts.chars[ts.cursorY][ts.cursorX] = vd.args[1]
		ts.attribs[ts.cursorY][ts.cursorX] = vd.args[0]

		ts.cursorX++
		if ts.cursorX >= TextColumns {
			ts.cursorX = 0
			ts.cursorY++
			if ts.cursorY >= TextRows {
				ts.cursorY = TextRows - 1
				ts.scrollUp()
			}
		}
	}

	vd.notifyText()
}

// textPosition moves the cursor to (arg0, arg1), clamped to the screen.
func (vd *Video) textPosition() {
	ts := &vd.text
	ts.cursorX = int(vd.args[0])
	ts.cursorY = int(vd.args[1])
	if ts.cursorX >= TextColumns {
		ts.cursorX = TextColumns - 1
	}
	if ts.cursorY >= TextRows {
		ts.cursorY = TextRows - 1
	}

	vd.notifyText()
}

// textClear fills the screen with character arg0 and attribute arg1 and
// homes the cursor.
func (vd *Video) textClear() {
	ts := &vd.text
	for y := 0; y < TextRows; y++ {
		for x := 0; x < TextColumns; x++ {
			ts.chars[y][x] = vd.args[0]
			ts.attribs[y][x] = vd.args[1]
		}
	}
	ts.cursorX = 0
	ts.cursorY = 0

	vd.notifyText()
}

// getTextAt reads the cell at (arg0, arg1) into the result registers.
func (vd *Video) getTextAt() {
	x := int(vd.args[0])
	y := int(vd.args[1])

	if x >= TextColumns || y >= TextRows {
		vd.status |= StatusError
		return
	}

	vd.results[0] = vd.text.chars[y][x]
	vd.results[1] = vd.text.attribs[y][x]
}

// textCommand handles the control codes understood by the text plane.
func (vd *Video) textCommand() {
	ts := &vd.text

	switch vd.args[0] {
	case ctrlBS:
		if ts.cursorX > 0 {
			ts.cursorX--
			ts.chars[ts.cursorY][ts.cursorX] = ' '
			ts.attribs[ts.cursorY][ts.cursorX] = DefaultAttribute
		}

	case ctrlHT:
		next := (ts.cursorX/tabStop + 1) * tabStop
		if next < TextColumns {
			ts.cursorX = next
		} else {
			ts.lineFeed()
		}

	case ctrlLF:
		ts.lineFeed()

	case ctrlCR:
		ts.cursorX = 0

	case ctrlDEL:
		ts.chars[ts.cursorY][ts.cursorX] = ' '
		ts.attribs[ts.cursorY][ts.cursorX] = DefaultAttribute

	default:
		// unhandled control codes are ignored
	}

	vd.notifyText()
}

// TextAt returns the character and attribute at the given cell. Used by
// renderers and tests.
func (vd *Video) TextAt(x, y int) (uint8, uint8) {
	if x < 0 || x >= TextColumns || y < 0 || y >= TextRows {
		return 0, 0
	}
	return vd.text.chars[y][x], vd.text.attribs[y][x]
}

// TextCursor returns the current cursor position.
func (vd *Video) TextCursor() (int, int) {
	return vd.text.cursorX, vd.text.cursorY
}
