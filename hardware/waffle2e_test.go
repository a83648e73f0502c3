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

package hardware_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/waffle2e/waffle2e/hardware"
	"github.com/waffle2e/waffle2e/hardware/ps2"
	"github.com/waffle2e/waffle2e/hardware/sdcard"
	"github.com/waffle2e/waffle2e/test"
)

// register addresses of the peripheral controller on the machine bus.
const (
	orb  = hardware.PeriphOrigin + 0x00
	ora  = hardware.PeriphOrigin + 0x01
	ddrb = hardware.PeriphOrigin + 0x02
	ddra = hardware.PeriphOrigin + 0x03
)

type machineRig struct {
	t  *testing.T
	wf *hardware.Waffle2e
}

func newMachine(t *testing.T) *machineRig {
	t.Helper()
	wf, err := hardware.NewWaffle2e("")
	test.DemandSuccess(t, err)
	t.Cleanup(wf.Shutdown)
	return &machineRig{t: t, wf: wf}
}

func (rig *machineRig) write(addr uint16, data uint8) {
	rig.t.Helper()
	test.DemandSuccess(rig.t, rig.wf.Bus.Write(addr, data))
}

func (rig *machineRig) read(addr uint16) uint8 {
	rig.t.Helper()
	v, err := rig.wf.Bus.Read(addr)
	test.DemandSuccess(rig.t, err)
	return v
}

// spiByte bit-bangs one byte over the SPI pins of port B, returning the
// byte shifted in from MISO.
func (rig *machineRig) spiByte(b uint8) uint8 {
	var in uint8
	for i := 7; i >= 0; i-- {
		mosi := (b >> i) & 1
		rig.write(orb, mosi)
		rig.write(orb, mosi|0x04)
		in = in<<1 | (rig.read(orb)>>1)&1
		rig.write(orb, mosi)
	}
	return in
}

func (rig *machineRig) spiCommand(frame [6]uint8) {
	rig.t.Helper()
	for _, b := range frame {
		test.ExpectEquality(rig.t, rig.spiByte(b), uint8(0xff))
	}
}

func (rig *machineRig) spiResponse(limit int) uint8 {
	rig.t.Helper()
	for i := 0; i < limit; i++ {
		if v := rig.spiByte(0xff); v != 0xff {
			return v
		}
	}
	rig.t.Fatalf("no SPI response within %d bytes", limit)
	return 0
}

// sdInit runs the S1 setup: select target 0, configure the port pins, then
// CMD0.
func (rig *machineRig) sdInit() {
	rig.t.Helper()

	rig.write(ora, 0x3e)
	rig.write(ddrb, 0x05)
	rig.write(ddra, 0x3f)

	rig.spiCommand([6]uint8{0x40, 0x00, 0x00, 0x00, 0x00, 0x95})
	test.DemandEquality(rig.t, rig.spiResponse(8), uint8(0x01))
}

// sdReady continues through CMD8 and ACMD41 to the ready state.
func (rig *machineRig) sdReady() {
	rig.t.Helper()
	rig.sdInit()

	rig.spiCommand([6]uint8{0x48, 0x00, 0x00, 0x01, 0xaa, 0x87})
	test.DemandEquality(rig.t, rig.spiResponse(8), uint8(0x01))
	test.DemandEquality(rig.t, rig.spiByte(0xff), uint8(0x00))
	test.DemandEquality(rig.t, rig.spiByte(0xff), uint8(0x00))
	test.DemandEquality(rig.t, rig.spiByte(0xff), uint8(0x01))
	test.DemandEquality(rig.t, rig.spiByte(0xff), uint8(0xaa))

	rig.spiCommand([6]uint8{0x77, 0x00, 0x00, 0x00, 0x00, 0x01})
	test.DemandEquality(rig.t, rig.spiResponse(8), uint8(0x01))
	rig.spiCommand([6]uint8{0x69, 0x40, 0x00, 0x00, 0x00, 0x01})
	test.DemandEquality(rig.t, rig.spiResponse(8), uint8(0x00))
}

func TestMemoryMap(t *testing.T) {
	rig := newMachine(t)

	// RAM round trip
	rig.write(0x1234, 0x5a)
	test.ExpectEquality(t, rig.read(0x1234), uint8(0x5a))

	// with no ROM image the region is plain writable memory
	rig.write(hardware.ROMOrigin, 0xa5)
	test.ExpectEquality(t, rig.read(hardware.ROMOrigin), uint8(0xa5))

	// nothing lives between the devices
	_, err := rig.wf.Bus.Read(0x5000)
	test.ExpectFailure(t, err)
}

func TestROMImageIsReadOnly(t *testing.T) {
	romFile := filepath.Join(t.TempDir(), "test.rom")
	content := []byte{0xea, 0xea, 0x4c, 0x00, 0x80}
	test.DemandSuccess(t, os.WriteFile(romFile, content, 0o644))

	wf, err := hardware.NewWaffle2e(romFile)
	test.DemandSuccess(t, err)
	t.Cleanup(wf.Shutdown)
	rig := &machineRig{t: t, wf: wf}

	test.ExpectEquality(t, rig.read(hardware.ROMOrigin+2), uint8(0x4c))

	// a burned image cannot be overwritten
	rig.write(hardware.ROMOrigin+2, 0x00)
	test.ExpectEquality(t, rig.read(hardware.ROMOrigin+2), uint8(0x4c))

	// content shorter than the region leaves the tail at zero
	test.ExpectEquality(t, rig.read(hardware.ROMOrigin+0x100), uint8(0x00))
}

func TestSDCardInit(t *testing.T) {
	rig := newMachine(t)
	rig.sdInit()
}

func TestSDCardInterfaceCondition(t *testing.T) {
	rig := newMachine(t)
	rig.sdReady()
}

func TestSDCardSectorRead(t *testing.T) {
	rig := newMachine(t)

	// image with recognisable content in sector 0
	path := filepath.Join(t.TempDir(), "disk.img")
	content := make([]byte, 2*sdcard.SectorSize)
	for i := range content {
		content[i] = byte(i ^ 0x55)
	}
	test.DemandSuccess(t, os.WriteFile(path, content, 0o644))
	test.DemandSuccess(t, rig.wf.MountImage(path))

	rig.sdReady()

	rig.spiCommand([6]uint8{0x51, 0x00, 0x00, 0x00, 0x00, 0x01})
	test.DemandEquality(t, rig.spiResponse(8), uint8(0x00))
	test.DemandEquality(t, rig.spiResponse(8), uint8(0xfe))

	sector := make([]byte, sdcard.SectorSize)
	for i := range sector {
		sector[i] = rig.spiByte(0xff)
		test.ExpectEquality(t, sector[i], byte(i^0x55))
	}

	crc := sdcard.CRC16(sector)
	test.ExpectEquality(t, rig.spiByte(0xff), uint8(crc>>8))
	test.ExpectEquality(t, rig.spiByte(0xff), uint8(crc))
}

// i2cLines drives SCL and SDA through the direction register, open-drain
// style. CS lines stay outputs.
func (rig *machineRig) i2cLines(scl, sda bool) {
	ddr := uint8(0x3f)
	if !scl {
		ddr |= 0x40
	}
	if !sda {
		ddr |= 0x80
	}
	rig.write(ddra, ddr)
}

func (rig *machineRig) i2cWriteByte(b uint8) bool {
	for i := 7; i >= 0; i-- {
		bit := b>>i&1 == 1
		rig.i2cLines(false, bit)
		rig.i2cLines(true, bit)
		rig.i2cLines(false, bit)
	}
	rig.i2cLines(false, true)
	rig.i2cLines(true, true)
	ack := rig.read(ora)>>7 == 0
	rig.i2cLines(false, true)
	return ack
}

func (rig *machineRig) i2cReadByte() uint8 {
	var v uint8
	for i := 0; i < 8; i++ {
		rig.i2cLines(false, true)
		rig.i2cLines(true, true)
		v = v<<1 | rig.read(ora)>>7
	}
	rig.i2cLines(false, true)

	// NACK: the single byte is all this transaction wants
	rig.i2cLines(true, true)
	rig.i2cLines(false, true)
	return v
}

// TestRTCReadSeconds is the S4 trace: pointer write, repeated START, one
// byte read, NACK, STOP.
func TestRTCReadSeconds(t *testing.T) {
	rig := newMachine(t)

	rig.write(ora, 0x3f)
	rig.i2cLines(true, true)

	before := time.Now().Second()

	// START, address+W, pointer 0x00
	rig.i2cLines(true, false)
	rig.i2cLines(false, false)
	test.DemandSuccess(t, rig.i2cWriteByte(0x68<<1))
	test.DemandSuccess(t, rig.i2cWriteByte(0x00))

	// repeated START, address+R, read, NACK
	rig.i2cLines(true, true)
	rig.i2cLines(true, false)
	rig.i2cLines(false, false)
	test.DemandSuccess(t, rig.i2cWriteByte(0x68<<1|1))
	v := rig.i2cReadByte()

	// STOP
	rig.i2cLines(false, false)
	rig.i2cLines(true, false)
	rig.i2cLines(true, true)

	after := time.Now().Second()
	sec := int(v>>4)*10 + int(v&0x0f)
	if sec != before && sec != after {
		t.Errorf("seconds %d not within host clock window (%d..%d)", sec, before, after)
	}
}

func TestVideoOverBus(t *testing.T) {
	rig := newMachine(t)

	// S5: text write 'A' with attribute 0x1f
	rig.write(hardware.VideoOrigin+0x00, 0)
	rig.write(hardware.VideoOrigin+0x01, 0x00)
	rig.write(hardware.VideoOrigin+0x02, 0x1f)
	rig.write(hardware.VideoOrigin+0x03, 0x41)

	ch, at := rig.wf.Video.TextAt(0, 0)
	test.ExpectEquality(t, ch, uint8(0x41))
	test.ExpectEquality(t, at, uint8(0x1f))

	x, y := rig.wf.Video.TextCursor()
	test.ExpectEquality(t, x, 1)
	test.ExpectEquality(t, y, 0)
}

// TestPS2ScanOverBus is the S6 trace.
func TestPS2ScanOverBus(t *testing.T) {
	rig := newMachine(t)

	down, _ := ps2.ScanCode('a')
	rig.wf.PS2.KeyDown(down)
	rig.wf.PS2.KeyUp(down)

	irq := rig.wf.Bus.IRQ()
	expected := []uint8{0x1c, 0xf0, 0x1c}
	for _, want := range expected {
		deadline := time.Now().Add(time.Second)
		for !irq.Asserted() {
			if time.Now().After(deadline) {
				t.Fatal("interrupt never asserted")
			}
			time.Sleep(time.Millisecond)
		}
		test.ExpectEquality(t, rig.read(hardware.PS2Origin+0x01), want)
	}
	test.ExpectEquality(t, irq.Asserted(), false)
}
