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

// Package spi defines the contract between the peripheral controller's SPI
// master and the targets hanging off its chip-select lines.
package spi

// Bit is a single line level on the SPI bus. Any non-zero value is treated
// as high.
type Bit uint8

// Target is a device on the SPI bus. The master calls Transfer on every
// rising edge of SCK with the sampled MOSI bit; the return value is placed
// on MISO. OnSCKFalling is called on every falling edge and is where a
// target installs any response staged during Transfer.
type Target interface {
	// Select and Deselect follow the chip-select line. Deselect clears
	// transient response state so that reselection starts clean.
	Select()
	Deselect()

	// Transfer exchanges one bit. Targets return high (1) while they have
	// nothing to say.
	Transfer(mosi Bit) Bit

	// OnSCKFalling is idempotent. It exists so a target can guarantee a
	// response never begins mid-byte.
	OnSCKFalling()

	// Reset the target to power-on state.
	Reset()

	// IsSelected returns the current chip-select state.
	IsSelected() bool

	// Label returns the target name for logging.
	Label() string
}
