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

// Package video implements the video controller: a 16-register command
// interface in front of a text buffer, four paged pixel buffers and a
// 256-entry palette.
//
// Commands do not fire when the instruction register is written. Each
// instruction names one of the argument registers as its trigger; writing
// that register executes the instruction with whatever the other argument
// registers hold at that moment. The driver therefore writes arguments in
// an order that lands the trigger last.
package video

import (
	"github.com/waffle2e/waffle2e/hardware/bus"
	"github.com/waffle2e/waffle2e/logger"
)

// Register offsets.
const (
	RegMode        = 0x00
	RegInstruction = 0x01
	RegArg0        = 0x02 // args 0-9 occupy 0x02-0x0b
	RegResult0     = 0x0c // results 0-2 occupy 0x0c-0x0e, read-only
	RegStatus      = 0x0f // read-only
)

// NumRegisters is the size of the register file on the bus.
const NumRegisters = 16

// Status register bits.
const (
	StatusBusy  = 0x01
	StatusError = 0x02
	StatusReady = 0x80
)

// Mode register fields.
const (
	ModeMask        = 0x07 // bits 0-2: video mode 0-4
	ModeActivePage  = 0x08 // bit 3: page being displayed
	ModeWorkingPage = 0x10 // bit 4: page the CPU writes to
)

// Instruction opcodes.
const (
	OpTextWrite     = 0x00
	OpTextPosition  = 0x01
	OpTextClear     = 0x02
	OpGetTextAt     = 0x03
	OpTextCommand   = 0x04
	OpWritePixel    = 0x10
	OpPixelPos      = 0x11
	OpWritePixelPos = 0x12
	OpClearScreen   = 0x13
	OpGetPixelAt    = 0x14
	OpSetPalette    = 0x20
	OpGetPalette    = 0x21
)

// triggerArg names the argument register whose write fires each
// instruction.
var triggerArg = map[uint8]int{
	OpTextWrite:     1,
	OpTextPosition:  1,
	OpTextClear:     0,
	OpGetTextAt:     1,
	OpTextCommand:   0,
	OpWritePixel:    0,
	OpPixelPos:      3,
	OpWritePixelPos: 4,
	OpClearScreen:   0,
	OpGetPixelAt:    3,
	OpSetPalette:    2,
	OpGetPalette:    0,
}

// Renderer is how an external observer (a GUI window, a test) watches the
// controller. Implementations must not call back into the controller
// during notification.
type Renderer interface {
	// NotifyModeChange is called when the video mode or the active page
	// changes.
	NotifyModeChange(mode uint8)

	// NotifyTextUpdate is called after any mutation of the text buffer or
	// cursor.
	NotifyTextUpdate()

	// NotifyPaletteChange is called when a palette entry is rewritten.
	NotifyPaletteChange(index uint8, rgb uint16)
}

// Video is the video controller device. It implements the bus.Device
// interface.
type Video struct {
	origin uint16

	mode        uint8
	instruction uint8
	args        [10]uint8
	results     [3]uint8
	status      uint8

	text    textState
	pixels  pixelState
	palette [256]uint16 // 12-bit RGB, 4 bits per channel

	renderers []Renderer
}

// NewVideo is the preferred method of initialisation for the Video type.
// The device claims 16 bytes of address space at origin.
func NewVideo(origin uint16) *Video {
	vd := &Video{origin: origin}
	vd.Reset()
	return vd
}

// Label implements the bus.Device interface.
func (vd *Video) Label() string {
	return "video controller"
}

// Range implements the bus.Device interface.
func (vd *Video) Range() bus.Range {
	return bus.Range{Start: vd.origin, End: vd.origin + NumRegisters - 1}
}

// Reset implements the bus.Device interface. READY is sticky from here on.
func (vd *Video) Reset() {
	vd.mode = 0
	vd.instruction = 0
	for i := range vd.args {
		vd.args[i] = 0
	}
	for i := range vd.results {
		vd.results[i] = 0
	}
	vd.status = StatusReady

	vd.text.reset()
	vd.pixels.reset()
	initVGAPalette(&vd.palette)
}

// AddRenderer subscribes an observer.
func (vd *Video) AddRenderer(r Renderer) {
	vd.renderers = append(vd.renderers, r)
}

// DrainRenderers removes all subscribed observers. Called on shutdown.
func (vd *Video) DrainRenderers() {
	vd.renderers = vd.renderers[:0]
}

func (vd *Video) notifyMode() {
	for _, r := range vd.renderers {
		r.NotifyModeChange(vd.mode)
	}
}

func (vd *Video) notifyText() {
	for _, r := range vd.renderers {
		r.NotifyTextUpdate()
	}
}

func (vd *Video) notifyPalette(index uint8) {
	for _, r := range vd.renderers {
		r.NotifyPaletteChange(index, vd.palette[index])
	}
}

// Read implements the bus.Device interface.
func (vd *Video) Read(offset uint16) uint8 {
	switch {
	case offset == RegMode:
		return vd.mode
	case offset == RegInstruction:
		return vd.instruction
	case offset >= RegArg0 && offset < RegResult0:
		return vd.args[offset-RegArg0]
	case offset >= RegResult0 && offset < RegStatus:
		return vd.results[offset-RegResult0]
	case offset == RegStatus:
		return vd.status
	}

	logger.Logf("vga", "read from invalid register %#02x", offset)
	return 0xff
}

// Write implements the bus.Device interface.
func (vd *Video) Write(offset uint16, data uint8) {
	switch {
	case offset == RegMode:
		old := vd.mode
		vd.mode = data
		if old&(ModeMask|ModeActivePage) != data&(ModeMask|ModeActivePage) {
			vd.notifyMode()
		}

	case offset == RegInstruction:
		// execution waits for the trigger argument
		vd.instruction = data

	case offset >= RegArg0 && offset < RegResult0:
		arg := int(offset - RegArg0)
		vd.args[arg] = data
		if trigger, ok := triggerArg[vd.instruction]; ok && trigger == arg {
			vd.execute()
		}

	case offset >= RegResult0 && offset <= RegStatus:
		logger.Logf("vga", "write to read-only register %#02x", offset)

	default:
		logger.Logf("vga", "write to invalid register %#02x", offset)
	}
}

// execute runs the current instruction. BUSY is held for the duration;
// ERROR is cleared on entry and set by any handler that fails.
func (vd *Video) execute() {
	vd.status |= StatusBusy
	vd.status &= ^uint8(StatusError)

	switch vd.instruction {
	case OpTextWrite:
		vd.textWrite()
	case OpTextPosition:
		vd.textPosition()
	case OpTextClear:
		vd.textClear()
	case OpGetTextAt:
		vd.getTextAt()
	case OpTextCommand:
		vd.textCommand()
	case OpWritePixel:
		vd.writePixel()
	case OpPixelPos:
		vd.pixelPosition()
	case OpWritePixelPos:
		vd.pixelPosition()
		vd.writePixel()
	case OpClearScreen:
		vd.clearScreen()
	case OpGetPixelAt:
		vd.getPixelAt()
	case OpSetPalette:
		vd.setPalette()
	case OpGetPalette:
		vd.getPalette()
	default:
		logger.Logf("vga", "unknown instruction %#02x", vd.instruction)
		vd.status |= StatusError
	}

	vd.status &= ^uint8(StatusBusy)
}

// Mode returns the video mode index, 0 to 4.
func (vd *Video) Mode() int {
	return int(vd.mode & ModeMask)
}

// ActivePage returns the page currently scanned out for display.
func (vd *Video) ActivePage() int {
	if vd.mode&ModeActivePage != 0 {
		return 1
	}
	return 0
}

// WorkingPage returns the page CPU pixel writes land in.
func (vd *Video) WorkingPage() int {
	if vd.mode&ModeWorkingPage != 0 {
		return 1
	}
	return 0
}

// Palette returns the 12-bit RGB value of a palette entry.
func (vd *Video) Palette(index uint8) uint16 {
	return vd.palette[index]
}

// setPalette stores a 12-bit RGB palette entry: index in arg0, GB byte in
// arg1, R nibble in arg2.
func (vd *Video) setPalette() {
	index := vd.args[0]
	vd.palette[index] = uint16(vd.args[2]&0x0f)<<8 | uint16(vd.args[1])
	vd.notifyPalette(index)
}

// getPalette splits a palette entry into result0 (GB byte) and result1 (R
// nibble).
func (vd *Video) getPalette() {
	rgb := vd.palette[vd.args[0]]
	vd.results[0] = uint8(rgb)
	vd.results[1] = uint8(rgb >> 8)
}
