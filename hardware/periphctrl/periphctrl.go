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

// Package periphctrl implements the peripheral controller: a 6522-class
// interface adapter whose two ports are bit-banged by the CPU to master an
// SPI bus and an I2C bus.
//
// Port B carries the SPI signals: MOSI on bit 0, MISO on bit 1, SCK on bit
// 2. Port A carries six active-low SPI chip selects on bits 0-5 and the I2C
// lines on bits 6 (SCL) and 7 (SDA).
//
// The I2C lines are open-drain and the driver on the target machine never
// sets the output bits - it toggles the direction register instead. A
// direction bit of 1 drives the line low; a direction bit of 0 releases it
// and the pull-up reads high. Line levels are therefore derived from DDRA
// alone, and every DDRA write is a potential protocol edge.
package periphctrl

import (
	"math/bits"

	"github.com/waffle2e/waffle2e/curated"
	"github.com/waffle2e/waffle2e/hardware/bus"
	"github.com/waffle2e/waffle2e/hardware/i2c"
	"github.com/waffle2e/waffle2e/hardware/spi"
	"github.com/waffle2e/waffle2e/hardware/via"
	"github.com/waffle2e/waffle2e/logger"
)

// Port B pins (SPI).
const (
	pinMOSI = 0x01
	pinMISO = 0x02
	pinSCK  = 0x04
)

// Port A pins (SPI chip selects and I2C).
const (
	csMask = 0x3f
	pinSCL = 0x40
	pinSDA = 0x80
)

// NumChipSelects is the number of SPI chip-select lines on port A.
const NumChipSelects = 6

// Sentinel error patterns returned by registration functions.
const (
	ChipSelectError = "periphctrl: chip-select line out of range: %d"
	I2CAddressError = "periphctrl: i2c address out of range: %#02x"
)

// I2CState tracks what the next complete byte on the I2C bus means.
type I2CState int

// List of valid I2CState values.
const (
	I2CIdle I2CState = iota
	I2CAddress
	I2CDataWrite
	I2CDataRead
)

func (s I2CState) String() string {
	switch s {
	case I2CIdle:
		return "idle"
	case I2CAddress:
		return "address"
	case I2CDataWrite:
		return "data write"
	case I2CDataRead:
		return "data read"
	}
	panic("unknown i2c state")
}

// Controller is the peripheral controller device. It implements the
// bus.Device interface.
type Controller struct {
	origin uint16
	regs   via.Registers

	// SPI master state
	spiTargets  map[int]spi.Target
	selected    int // -1 when no target is selected
	sckPrevious bool

	// I2C master state. SCL and SDA levels are derived from DDRA on every
	// DDRA write; edges fall out of comparing against the previous levels.
	// lines idle high via the pull-up.
	i2cTargets  map[uint8]i2c.Target
	i2cSCLLevel bool
	i2cSDALevel bool

	i2cState    I2CState
	i2cBitCount int // 0..8 while shifting; 9 marks "ACK clock has risen"
	i2cShiftReg uint8
	i2cActive   i2c.Target
	i2cReadMode bool
	i2cReadByte uint8
	i2cSlaveACK bool
}

// NewController is the preferred method of initialisation for the
// Controller type. The device claims 16 bytes of address space at origin.
func NewController(origin uint16) *Controller {
	ct := &Controller{
		origin:     origin,
		spiTargets: make(map[int]spi.Target),
		i2cTargets: make(map[uint8]i2c.Target),
	}
	ct.Reset()
	return ct
}

// Label implements the bus.Device interface.
func (ct *Controller) Label() string {
	return "peripheral controller"
}

// Range implements the bus.Device interface.
func (ct *Controller) Range() bus.Range {
	return bus.Range{Start: ct.origin, End: ct.origin + via.NumRegisters - 1}
}

// RegisterSPI attaches a target to a chip-select line. Registering the same
// line twice replaces the previous target.
func (ct *Controller) RegisterSPI(line int, t spi.Target) error {
	if line < 0 || line >= NumChipSelects {
		return curated.Errorf(ChipSelectError, line)
	}
	ct.spiTargets[line] = t
	logger.Logf("spi", "%s registered on CS%d", t.Label(), line)
	return nil
}

// UnregisterSPI removes the target on a chip-select line, deselecting it
// first.
func (ct *Controller) UnregisterSPI(line int) {
	if t, ok := ct.spiTargets[line]; ok {
		t.Deselect()
		delete(ct.spiTargets, line)
		if ct.selected == line {
			ct.selected = -1
		}
		logger.Logf("spi", "%s unregistered from CS%d", t.Label(), line)
	}
}

// RegisterI2C attaches a target at the address the target reports.
func (ct *Controller) RegisterI2C(t i2c.Target) error {
	if t.Address() > 0x7f {
		return curated.Errorf(I2CAddressError, t.Address())
	}
	ct.i2cTargets[t.Address()] = t
	logger.Logf("i2c", "%s registered at address %#02x", t.Label(), t.Address())
	return nil
}

// UnregisterI2C removes the target at the given address, resetting it.
func (ct *Controller) UnregisterI2C(address uint8) {
	if t, ok := ct.i2cTargets[address]; ok {
		t.Reset()
		delete(ct.i2cTargets, address)
		if ct.i2cActive == t {
			ct.i2cActive = nil
		}
		logger.Logf("i2c", "%s unregistered from address %#02x", t.Label(), address)
	}
}

// Reset implements the bus.Device interface. All registers return to
// power-on defaults and all targets are reset and deselected.
func (ct *Controller) Reset() {
	ct.regs.Reset()

	ct.sckPrevious = false
	ct.selected = -1
	for _, t := range ct.spiTargets {
		t.Reset()
		t.Deselect()
	}

	ct.i2cSCLLevel = true
	ct.i2cSDALevel = true
	ct.i2cState = I2CIdle
	ct.i2cBitCount = 0
	ct.i2cShiftReg = 0
	ct.i2cActive = nil
	ct.i2cReadMode = false
	ct.i2cReadByte = 0xff
	ct.i2cSlaveACK = false
	for _, t := range ct.i2cTargets {
		t.Reset()
	}
}

// Read implements the bus.Device interface.
func (ct *Controller) Read(offset uint16) uint8 {
	switch offset {
	case via.ORB:
		return ct.readPortB()
	case via.ORA, via.ORANH:
		return ct.readPortA()
	case via.DDRB:
		return ct.regs.DDRB
	case via.DDRA:
		return ct.regs.DDRA
	}

	if v, ok := ct.regs.ReadCommon(offset); ok {
		return v
	}

	logger.Logf("via", "read from unimplemented peripheral register %#02x", offset)
	return 0xff
}

// Write implements the bus.Device interface.
func (ct *Controller) Write(offset uint16, data uint8) {
	switch offset {
	case via.ORB:
		ct.writePortB(data)
		return
	case via.ORA, via.ORANH:
		ct.writePortA(data)
		return
	case via.DDRB:
		ct.regs.DDRB = data
		return
	case via.DDRA:
		ct.regs.DDRA = data
		ct.i2cLineUpdate()
		return
	}

	if !ct.regs.WriteCommon(offset, data) {
		logger.Logf("via", "write to unimplemented peripheral register %#02x = %#02x", offset, data)
	}
}

// readPortA returns the stored port A value with the I2C-derived SDA level
// overlaid while SDA is released (DDRA bit 7 clear).
func (ct *Controller) readPortA() uint8 {
	result := ct.regs.PortA

	if ct.regs.DDRA&pinSDA == 0 {
		if ct.sdaValue() != 0 {
			result |= pinSDA
		} else {
			result &= ^uint8(pinSDA)
		}
	}

	return result
}

// readPortB returns the stored port B value, which already carries the MISO
// bit most recently produced by the selected target. MISO floats high while
// nothing is selected.
func (ct *Controller) readPortB() uint8 {
	result := ct.regs.PortB
	if ct.selected < 0 {
		result |= pinMISO
	}
	return result
}

func (ct *Controller) writePortA(data uint8) {
	old := ct.regs.PortA
	ct.regs.PortA = data
	ct.chipSelectUpdate(old, data)
}

func (ct *Controller) writePortB(data uint8) {
	// input bits keep their current values; only output bits take the
	// written data
	ct.regs.PortB = (ct.regs.PortB & ^ct.regs.DDRB) | (data & ct.regs.DDRB)

	sck := ct.regs.PortB&pinSCK != 0
	if !ct.sckPrevious && sck {
		ct.spiTransfer()
	} else if ct.sckPrevious && !sck {
		ct.spiSCKFalling()
	}
	ct.sckPrevious = sck
}

// chipSelectUpdate tracks the active-low one-hot chip-select field on the
// low six bits of port A.
func (ct *Controller) chipSelectUpdate(oldPortA, newPortA uint8) {
	oldCS := oldPortA & csMask
	newCS := newPortA & csMask
	if oldCS == newCS {
		return
	}

	if ct.selected >= 0 {
		if t, ok := ct.spiTargets[ct.selected]; ok {
			t.Deselect()
		}
		ct.selected = -1
	}

	inverted := ^newCS & csMask
	switch {
	case bits.OnesCount8(inverted) == 1:
		line := bits.TrailingZeros8(inverted)
		ct.selected = line
		if t, ok := ct.spiTargets[line]; ok {
			t.Select()
			logger.Logf("spi", "%s selected (CS%d)", t.Label(), line)
		}
	case newCS == csMask:
		// all lines high: nothing selected
	default:
		logger.Logf("spi", "multiple chip selects active: %#02x", newCS)
	}
}

// spiTransfer exchanges one bit with the selected target on the SCK rising
// edge: MOSI is sampled from port B bit 0 and the returned bit lands on
// port B bit 1.
func (ct *Controller) spiTransfer() {
	if ct.selected < 0 {
		return
	}
	t, ok := ct.spiTargets[ct.selected]
	if !ok || !t.IsSelected() {
		return
	}

	miso := t.Transfer(spi.Bit(ct.regs.PortB & pinMOSI))
	if miso != 0 {
		ct.regs.PortB |= pinMISO
	} else {
		ct.regs.PortB &= ^uint8(pinMISO)
	}
}

func (ct *Controller) spiSCKFalling() {
	if ct.selected < 0 {
		return
	}
	if t, ok := ct.spiTargets[ct.selected]; ok && t.IsSelected() {
		t.OnSCKFalling()
	}
}
