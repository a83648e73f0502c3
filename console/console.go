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

// Package console pumps characters typed at the host terminal into the
// PS/2 interface as scan-code sequences. The terminal is switched to
// cbreak mode via "github.com/pkg/term/termios" so characters arrive
// unbuffered and unechoed.
package console

import (
	"io"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"

	"github.com/waffle2e/waffle2e/curated"
	"github.com/waffle2e/waffle2e/logger"
)

// Sentinel error patterns returned by console functions.
const TerminalError = "console: %v"

// Injector is the destination for typed characters. Implemented by the
// PS/2 interface.
type Injector interface {
	InjectRune(ch rune)
}

// EndOfInput is the character that ends the pump loop (ctrl-d).
const EndOfInput = 0x04

// Console owns the host terminal for the duration of the session.
type Console struct {
	input *os.File
	inj   Injector

	canAttr    unix.Termios
	cbreakAttr unix.Termios
}

// NewConsole puts the input terminal into cbreak mode. Restore must be
// called before the process exits.
func NewConsole(input *os.File, inj Injector) (*Console, error) {
	cn := &Console{
		input: input,
		inj:   inj,
	}

	if err := termios.Tcgetattr(input.Fd(), &cn.canAttr); err != nil {
		return nil, curated.Errorf(TerminalError, err)
	}
	cn.cbreakAttr = cn.canAttr
	termios.Cfmakecbreak(&cn.cbreakAttr)

	if err := termios.Tcsetattr(input.Fd(), termios.TCSANOW, &cn.cbreakAttr); err != nil {
		return nil, curated.Errorf(TerminalError, err)
	}

	return cn, nil
}

// Restore returns the terminal to the attributes it had before NewConsole.
func (cn *Console) Restore() {
	if err := termios.Tcsetattr(cn.input.Fd(), termios.TCSANOW, &cn.canAttr); err != nil {
		logger.Logf("console", "restoring terminal: %v", err)
	}
}

// Loop reads characters until end of input and injects each one. Blocks;
// run it on its own goroutine if the caller has other work.
func (cn *Console) Loop() error {
	b := make([]byte, 1)
	for {
		n, err := cn.input.Read(b)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return curated.Errorf(TerminalError, err)
		}
		if n == 0 || b[0] == EndOfInput {
			return nil
		}
		cn.inj.InjectRune(rune(b[0]))
	}
}
