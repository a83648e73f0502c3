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

package video_test

import (
	"testing"

	"github.com/waffle2e/waffle2e/hardware/video"
	"github.com/waffle2e/waffle2e/test"
)

const (
	regMode  = 0x00
	regInstr = 0x01
	regArg0  = 0x02
	regRes0  = 0x0c
	regStat  = 0x0f
)

// exec writes the instruction then the arguments in ascending index order.
// For every instruction used through this helper the trigger argument is
// the highest-numbered one, so it lands last.
func exec(vd *video.Video, instr uint8, args ...uint8) {
	vd.Write(regInstr, instr)
	for i := 0; i < len(args); i++ {
		vd.Write(regArg0+uint16(i), args[i])
	}
}

func TestTextWrite(t *testing.T) {
	vd := video.NewVideo(0x4000)

	vd.Write(regMode, 0)
	exec(vd, video.OpTextWrite, 0x1f, 'A')

	ch, at := vd.TextAt(0, 0)
	test.ExpectEquality(t, ch, uint8('A'))
	test.ExpectEquality(t, at, uint8(0x1f))

	x, y := vd.TextCursor()
	test.ExpectEquality(t, x, 1)
	test.ExpectEquality(t, y, 0)
}

func TestTextWrapAndScroll(t *testing.T) {
	vd := video.NewVideo(0x4000)

	// fill every cell: the final write wraps off the bottom and scrolls
	for i := 0; i < video.TextColumns*video.TextRows; i++ {
		exec(vd, video.OpTextWrite, 0x01, uint8('a'+i%26))
	}

	x, y := vd.TextCursor()
	test.ExpectEquality(t, x, 0)
	test.ExpectEquality(t, y, video.TextRows-1)

	// row 0 now holds what was written to row 1
	ch, _ := vd.TextAt(0, 0)
	test.ExpectEquality(t, ch, uint8('a'+video.TextColumns%26))

	// the bottom row was blanked by the scroll and takes new writes
	exec(vd, video.OpTextWrite, 0x01, '!')
	ch, at := vd.TextAt(0, video.TextRows-1)
	test.ExpectEquality(t, ch, uint8('!'))
	test.ExpectEquality(t, at, uint8(0x01))
	ch, _ = vd.TextAt(1, video.TextRows-1)
	test.ExpectEquality(t, ch, uint8(' '))
}

func TestTextPositionClamp(t *testing.T) {
	vd := video.NewVideo(0x4000)

	exec(vd, video.OpTextPosition, 200, 100)
	x, y := vd.TextCursor()
	test.ExpectEquality(t, x, video.TextColumns-1)
	test.ExpectEquality(t, y, video.TextRows-1)
}

func TestTextClear(t *testing.T) {
	vd := video.NewVideo(0x4000)

	exec(vd, video.OpTextWrite, 0x1f, 'A')

	// TEXT_CLEAR takes the fill attribute from arg1 and triggers on arg0,
	// so the attribute is written first
	vd.Write(regInstr, video.OpTextClear)
	vd.Write(regArg0+1, 0x42)
	vd.Write(regArg0, '*')

	ch, at := vd.TextAt(40, 15)
	test.ExpectEquality(t, ch, uint8('*'))
	test.ExpectEquality(t, at, uint8(0x42))

	x, y := vd.TextCursor()
	test.ExpectEquality(t, x, 0)
	test.ExpectEquality(t, y, 0)
}

func TestGetTextAt(t *testing.T) {
	vd := video.NewVideo(0x4000)

	exec(vd, video.OpTextWrite, 0x17, 'Z')
	exec(vd, video.OpGetTextAt, 0, 0)

	test.ExpectEquality(t, vd.Read(regRes0), uint8('Z'))
	test.ExpectEquality(t, vd.Read(regRes0+1), uint8(0x17))
	test.ExpectEquality(t, vd.Read(regStat)&video.StatusError, uint8(0))

	// out of range sets ERROR and leaves the buffer alone
	exec(vd, video.OpGetTextAt, 90, 0)
	test.ExpectEquality(t, vd.Read(regStat)&video.StatusError, uint8(video.StatusError))
}

func TestControlCodes(t *testing.T) {
	vd := video.NewVideo(0x4000)

	exec(vd, video.OpTextWrite, 0x01, 'A')
	exec(vd, video.OpTextWrite, 0x01, 'B')

	// backspace erases B and moves left
	exec(vd, video.OpTextCommand, 0x08)
	x, _ := vd.TextCursor()
	test.ExpectEquality(t, x, 1)
	ch, _ := vd.TextAt(1, 0)
	test.ExpectEquality(t, ch, uint8(' '))

	// tab advances to the next 8-column stop
	exec(vd, video.OpTextCommand, 0x09)
	x, _ = vd.TextCursor()
	test.ExpectEquality(t, x, 8)

	// line feed moves down and home
	exec(vd, video.OpTextCommand, 0x0a)
	x, y := vd.TextCursor()
	test.ExpectEquality(t, x, 0)
	test.ExpectEquality(t, y, 1)

	// carriage return homes the column
	exec(vd, video.OpTextWrite, 0x01, 'C')
	exec(vd, video.OpTextCommand, 0x0d)
	x, y = vd.TextCursor()
	test.ExpectEquality(t, x, 0)
	test.ExpectEquality(t, y, 1)

	// delete clears in place without moving
	ch, _ = vd.TextAt(0, 1)
	test.ExpectEquality(t, ch, uint8('C'))
	exec(vd, video.OpTextCommand, 0x7f)
	ch, _ = vd.TextAt(0, 1)
	test.ExpectEquality(t, ch, uint8(' '))
}

func TestTabAtLastStopWraps(t *testing.T) {
	vd := video.NewVideo(0x4000)

	exec(vd, video.OpTextPosition, 78, 0)
	exec(vd, video.OpTextCommand, 0x09)
	x, y := vd.TextCursor()
	test.ExpectEquality(t, x, 0)
	test.ExpectEquality(t, y, 1)
}

func TestPixelWriteAndRead(t *testing.T) {
	vd := video.NewVideo(0x4000)

	// mode 4: 320x240, palette indexed
	vd.Write(regMode, 4)
	exec(vd, video.OpPixelPos, 0x00, 10, 0x00, 20)
	exec(vd, video.OpWritePixel, 0xc3)

	test.ExpectEquality(t, vd.PixelAt(0, 10, 20), uint8(0xc3))

	// cursor advanced
	x, y := vd.PixelCursor()
	test.ExpectEquality(t, x, 11)
	test.ExpectEquality(t, y, 20)

	exec(vd, video.OpGetPixelAt, 0x00, 10, 0x00, 20)
	test.ExpectEquality(t, vd.Read(regRes0), uint8(0xc3))
}

func TestPixelDepthMask(t *testing.T) {
	vd := video.NewVideo(0x4000)

	// mode 1 is 1 bit per pixel
	vd.Write(regMode, 1)
	exec(vd, video.OpPixelPos, 0x00, 0x05, 0x00, 0x05)
	exec(vd, video.OpWritePixel, 0xff)
	test.ExpectEquality(t, vd.PixelAt(0, 5, 5), uint8(0x01))

	// mode 3 is 4 bits per pixel
	vd.Write(regMode, 3)
	exec(vd, video.OpPixelPos, 0x00, 0x05, 0x00, 0x05)
	exec(vd, video.OpWritePixel, 0xff)
	test.ExpectEquality(t, vd.PixelAt(0, 5, 5), uint8(0x0f))
}

func TestWritePixelPos(t *testing.T) {
	vd := video.NewVideo(0x4000)

	// WRITE_PIXEL_POS is PIXEL_POS followed by WRITE_PIXEL: the coordinates
	// come from args 0-3 and the color from arg0, so the x high byte doubles
	// as the color
	vd.Write(regMode, 4)
	exec(vd, video.OpWritePixelPos, 0x01, 0x05, 0x00, 0x07, 0x00)
	test.ExpectEquality(t, vd.PixelAt(0, 261, 7), uint8(0x01))

	x, y := vd.PixelCursor()
	test.ExpectEquality(t, x, 262)
	test.ExpectEquality(t, y, 7)
}

func TestPixelCursorWrap(t *testing.T) {
	vd := video.NewVideo(0x4000)

	vd.Write(regMode, 3)
	exec(vd, video.OpPixelPos, 0x01, 0x3f, 0x00, 0xef) // (319, 239)
	exec(vd, video.OpWritePixel, 0x07)

	// bottom-right write wraps the cursor to the origin
	x, y := vd.PixelCursor()
	test.ExpectEquality(t, x, 0)
	test.ExpectEquality(t, y, 0)
}

func TestWorkingPage(t *testing.T) {
	vd := video.NewVideo(0x4000)

	// mode 3 with working page 1
	vd.Write(regMode, 3|video.ModeWorkingPage)
	exec(vd, video.OpPixelPos, 0x00, 0x07, 0x00, 0x07)
	exec(vd, video.OpWritePixel, 0x09)

	test.ExpectEquality(t, vd.PixelAt(1, 7, 7), uint8(0x09))
	test.ExpectEquality(t, vd.PixelAt(0, 7, 7), uint8(0x00))

	// GET_PIXEL_AT reads the active page, which is still page 0
	exec(vd, video.OpGetPixelAt, 0x00, 0x07, 0x00, 0x07)
	test.ExpectEquality(t, vd.Read(regRes0), uint8(0x00))
}

func TestClearScreen(t *testing.T) {
	vd := video.NewVideo(0x4000)

	vd.Write(regMode, 4)
	exec(vd, video.OpClearScreen, 0x33)
	test.ExpectEquality(t, vd.PixelAt(0, 0, 0), uint8(0x33))
	test.ExpectEquality(t, vd.PixelAt(0, 319, 239), uint8(0x33))
}

func TestGetPixelOutOfRange(t *testing.T) {
	vd := video.NewVideo(0x4000)

	vd.Write(regMode, 4)
	exec(vd, video.OpGetPixelAt, 0x01, 0x40, 0x00, 0x00) // x == 320
	test.ExpectEquality(t, vd.Read(regStat)&video.StatusError, uint8(video.StatusError))
}

func TestPalette(t *testing.T) {
	vd := video.NewVideo(0x4000)

	// VGA entry 1 is blue: 0x0000aa reduced to 0x00a
	test.ExpectEquality(t, vd.Palette(1), uint16(0x00a))

	// entry 15 is white
	test.ExpectEquality(t, vd.Palette(15), uint16(0xfff))

	// rewrite entry 200: index, GB byte, R nibble; trigger on arg2
	exec(vd, video.OpSetPalette, 200, 0x5c, 0x0a)
	test.ExpectEquality(t, vd.Palette(200), uint16(0xa5c))

	// read it back split across the result registers
	exec(vd, video.OpGetPalette, 200)
	test.ExpectEquality(t, vd.Read(regRes0), uint8(0x5c))
	test.ExpectEquality(t, vd.Read(regRes0+1), uint8(0x0a))
}

func TestUnknownInstruction(t *testing.T) {
	vd := video.NewVideo(0x4000)

	exec(vd, video.OpTextWrite, 0x01, 'A')
	test.ExpectEquality(t, vd.Read(regStat)&video.StatusError, uint8(0))

	// unknown instructions have no trigger argument and never fire
	vd.Write(regInstr, 0x7e)
	vd.Write(regArg0, 0x00)
	test.ExpectEquality(t, vd.Read(regStat)&video.StatusError, uint8(0))
}

func TestStatusReady(t *testing.T) {
	vd := video.NewVideo(0x4000)
	test.ExpectEquality(t, vd.Read(regStat)&video.StatusReady, uint8(video.StatusReady))

	// sticky across commands, including failed ones
	exec(vd, video.OpGetTextAt, 90, 0)
	test.ExpectEquality(t, vd.Read(regStat)&video.StatusReady, uint8(video.StatusReady))
}

type countingRenderer struct {
	modes    int
	texts    int
	palettes int
}

func (r *countingRenderer) NotifyModeChange(uint8)            { r.modes++ }
func (r *countingRenderer) NotifyTextUpdate()                 { r.texts++ }
func (r *countingRenderer) NotifyPaletteChange(uint8, uint16) { r.palettes++ }

func TestRenderers(t *testing.T) {
	vd := video.NewVideo(0x4000)
	r := &countingRenderer{}
	vd.AddRenderer(r)

	vd.Write(regMode, 3)
	test.ExpectEquality(t, r.modes, 1)

	// working-page flip alone is not a mode change
	vd.Write(regMode, 3|video.ModeWorkingPage)
	test.ExpectEquality(t, r.modes, 1)

	// active-page flip is
	vd.Write(regMode, 3|video.ModeActivePage)
	test.ExpectEquality(t, r.modes, 2)

	vd.Write(regMode, 0)
	exec(vd, video.OpTextWrite, 0x01, 'A')
	test.ExpectSuccess(t, r.texts >= 1)

	exec(vd, video.OpSetPalette, 1, 0x11, 0x01)
	test.ExpectEquality(t, r.palettes, 1)
}
