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

package periphctrl

import (
	"github.com/waffle2e/waffle2e/hardware/i2c"
	"github.com/waffle2e/waffle2e/logger"
)

// The I2C master half of the peripheral controller. Everything here is
// driven by DDRA writes: open-drain means a direction bit of 1 pulls the
// line low and a direction bit of 0 releases it high.
//
// The bit counter runs 0..8 while a byte is shifting. When it reaches 8 the
// byte is complete and the bus is in the ACK phase; the counter moves to 9
// when the ACK clock rises and back to 0 on the SCL falling edge that ends
// the ACK cycle.

// i2cLineUpdate derives the SCL/SDA levels from DDRA and reacts to any
// edge. Called on every DDRA write. Open-drain: a line is high iff its
// direction bit is clear.
func (ct *Controller) i2cLineUpdate() {
	oldSCL := ct.i2cSCLLevel
	oldSDA := ct.i2cSDALevel
	newSCL := ct.regs.DDRA&pinSCL == 0
	newSDA := ct.regs.DDRA&pinSDA == 0
	ct.i2cSCLLevel = newSCL
	ct.i2cSDALevel = newSDA

	// the master releases SDA during the ACK phase so the slave can drive
	// it. that rise must not read as a STOP
	inACKPhase := ct.i2cState != I2CIdle && ct.i2cBitCount == 8

	switch {
	case newSCL && oldSDA && !newSDA:
		// START: SDA falls while SCL is high
		ct.i2cStart()
	case newSCL && !oldSDA && newSDA && !inACKPhase:
		// STOP: SDA rises while SCL is high
		ct.i2cStop()
	case !oldSCL && newSCL:
		ct.i2cSCLRising(newSDA)
	case oldSCL && !newSCL:
		ct.i2cSCLFalling()
	}
}

// i2cStart handles a START condition: SDA falling while SCL is high. A
// START during a transaction is a repeated START - the active target is not
// stopped.
func (ct *Controller) i2cStart() {
	ct.i2cState = I2CAddress
	ct.i2cBitCount = 0
	ct.i2cShiftReg = 0
	ct.i2cActive = nil
	ct.i2cSlaveACK = false
}

// i2cStop handles a STOP condition: SDA rising while SCL is high, outside
// the ACK phase.
func (ct *Controller) i2cStop() {
	if ct.i2cActive != nil {
		ct.i2cActive.Stop()
	}

	ct.i2cState = I2CIdle
	ct.i2cBitCount = 0
	ct.i2cShiftReg = 0
	ct.i2cActive = nil
	ct.i2cReadMode = false
	ct.i2cSlaveACK = false
}

// i2cSCLRising is the sampling edge.
func (ct *Controller) i2cSCLRising(sda bool) {
	if ct.i2cState == I2CIdle {
		return
	}

	if ct.i2cBitCount == 8 {
		// ninth clock: the ACK clock. in read mode the master drives the
		// ACK; low means it wants another byte, which is fetched now so the
		// bits are ready before the next sampling edge
		if ct.i2cState == I2CDataRead {
			masterACK := !sda
			if masterACK && ct.i2cActive != nil {
				ct.i2cReadByte = ct.i2cActive.ReadByte(true)
			}
		}
		// for address and write bytes the slave ACK is already latched and
		// the master reads it through sdaValue()
		ct.i2cBitCount = 9
		return
	}

	if ct.i2cBitCount < 8 {
		// incoming SDA is meaningful in address and write phases only
		if ct.i2cState != I2CDataRead {
			ct.i2cShiftReg <<= 1
			if sda {
				ct.i2cShiftReg |= 1
			}
		}
		ct.i2cBitCount++

		if ct.i2cBitCount == 8 {
			ct.i2cByteComplete()
		}
	}
}

// i2cSCLFalling ends the ACK cycle and prepares for the next byte.
func (ct *Controller) i2cSCLFalling() {
	if ct.i2cBitCount == 9 {
		ct.i2cBitCount = 0
		ct.i2cShiftReg = 0
	}
}

// i2cByteComplete dispatches a fully shifted byte according to the current
// state.
func (ct *Controller) i2cByteComplete() {
	value := ct.i2cShiftReg

	switch ct.i2cState {
	case I2CAddress:
		address := value >> 1
		ct.i2cReadMode = value&1 != 0

		target, ok := ct.i2cTargets[address]
		if !ok {
			ct.i2cSlaveACK = false
			logger.Logf("i2c", "no target at address %#02x", address)
			return
		}

		ct.i2cActive = target
		ct.i2cSlaveACK = target.Start(ct.i2cReadMode)
		if !ct.i2cSlaveACK {
			return
		}

		if ct.i2cReadMode {
			ct.i2cState = I2CDataRead
			ct.i2cReadByte = target.ReadByte(true)
		} else {
			ct.i2cState = I2CDataWrite
			if pr, ok := target.(i2c.PointerReset); ok {
				pr.ResetRegisterPointer()
			}
		}

	case I2CDataWrite:
		if ct.i2cActive != nil {
			ct.i2cSlaveACK = ct.i2cActive.WriteByte(value)
		} else {
			ct.i2cSlaveACK = false
		}
	}
	// read bytes never arrive here; they are staged at the ACK clock
}

// sdaValue is what the master sees when it reads SDA with the line
// released.
func (ct *Controller) sdaValue() uint8 {
	// ACK phase: the slave drives its ACK (low) or NACK (high). in the read
	// phase a count of 8 still belongs to the last data bit below
	inACKPhase := ct.i2cBitCount == 9 || (ct.i2cBitCount == 8 && ct.i2cState != I2CDataRead)
	if inACKPhase && ct.i2cState != I2CIdle {
		if ct.i2cSlaveACK {
			return 0
		}
		return 1
	}

	// read phase: successive bits of the staged byte, MSB first. the bit
	// counter has already been advanced past the bit being read
	if ct.i2cState == I2CDataRead && ct.i2cBitCount >= 1 && ct.i2cBitCount <= 8 {
		return (ct.i2cReadByte >> (7 - (ct.i2cBitCount - 1))) & 1
	}

	// otherwise the pull-up wins
	return 1
}
