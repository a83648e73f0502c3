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

// Package hardware composes the devices of the Waffle2e machine onto a
// single bus: 16KB of RAM, 32KB of ROM, the video controller, the PS/2
// interface and the peripheral controller with its SD card and real-time
// clock targets.
package hardware

import (
	"os"

	"github.com/waffle2e/waffle2e/curated"
	"github.com/waffle2e/waffle2e/hardware/bus"
	"github.com/waffle2e/waffle2e/hardware/memory"
	"github.com/waffle2e/waffle2e/hardware/periphctrl"
	"github.com/waffle2e/waffle2e/hardware/ps2"
	"github.com/waffle2e/waffle2e/hardware/rtc"
	"github.com/waffle2e/waffle2e/hardware/sdcard"
	"github.com/waffle2e/waffle2e/hardware/video"
	"github.com/waffle2e/waffle2e/logger"
)

// The memory map.
const (
	RAMOrigin    = 0x0000
	RAMSize      = 0x4000
	VideoOrigin  = 0x4000
	PS2Origin    = 0x4020
	PeriphOrigin = 0x4070
	ROMOrigin    = 0x8000
	ROMSize      = 0x8000
)

// SDCardChipSelect is the chip-select line the SD card sits on.
const SDCardChipSelect = 0

// Sentinel error patterns returned by machine functions.
const SetupError = "waffle2e: %v"

// Waffle2e is the assembled machine.
type Waffle2e struct {
	Bus *bus.Bus

	RAM *memory.Memory

	// ROM is writable when no image file was loaded, like a machine with a
	// blank EEPROM socketed
	ROM *memory.Memory

	Video      *video.Video
	PS2        *ps2.PS2
	Controller *periphctrl.Controller
	SDCard     *sdcard.SDCard
	RTC        *rtc.RTC
}

// NewWaffle2e is the preferred method of initialisation for the Waffle2e
// type. A missing or unreadable ROM file is not an error: the ROM region is
// left as writable zero-filled memory, matching a machine with a blank
// EEPROM.
func NewWaffle2e(romFile string) (*Waffle2e, error) {
	wf := &Waffle2e{}
	wf.Bus = bus.NewBus()

	wf.RAM = memory.NewRAM(RAMOrigin, RAMSize)

	var content []byte
	if romFile != "" {
		var err error
		content, err = os.ReadFile(romFile)
		if err != nil {
			logger.Logf("waffle2e", "no ROM image: %v", err)
			content = nil
		}
	}
	if content == nil {
		// no image to burn: the region is left as plain writable memory
		logger.Log("waffle2e", "loading empty R/W memory image in place of ROM")
		wf.ROM = memory.NewRAM(ROMOrigin, ROMSize)
	} else {
		wf.ROM = memory.NewROM(ROMOrigin, ROMSize, content)
	}

	wf.Video = video.NewVideo(VideoOrigin)
	wf.PS2 = ps2.NewPS2(PS2Origin, wf.Bus.IRQ())
	wf.Controller = periphctrl.NewController(PeriphOrigin)

	wf.SDCard = sdcard.NewSDCard()
	if err := wf.Controller.RegisterSPI(SDCardChipSelect, wf.SDCard); err != nil {
		return nil, curated.Errorf(SetupError, err)
	}

	wf.RTC = rtc.NewRTC()
	if err := wf.Controller.RegisterI2C(wf.RTC); err != nil {
		return nil, curated.Errorf(SetupError, err)
	}

	for _, d := range []bus.Device{wf.RAM, wf.ROM, wf.Video, wf.PS2, wf.Controller} {
		if err := wf.Bus.AddDevice(d); err != nil {
			return nil, curated.Errorf(SetupError, err)
		}
	}

	logger.Log("waffle2e", "machine assembled")
	return wf, nil
}

// Reset the machine to power-on state.
func (wf *Waffle2e) Reset() {
	wf.Bus.Reset()
}

// MountImage attaches a disk image to the SD card.
func (wf *Waffle2e) MountImage(path string) error {
	return wf.SDCard.Mount(path)
}

// UnmountImage flushes and detaches the SD card's disk image.
func (wf *Waffle2e) UnmountImage() {
	wf.SDCard.Unmount()
}

// Shutdown stops timers, closes the disk image and drains all listener
// lists. The machine must not be used afterwards.
func (wf *Waffle2e) Shutdown() {
	wf.PS2.Shutdown()
	wf.SDCard.Unmount()
	wf.Video.DrainRenderers()
	wf.Bus.DrainListeners()
}
