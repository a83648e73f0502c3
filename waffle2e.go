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

// Waffle2e is an emulation of the peripheral core of the Waffle2e
// computer. Without a CPU attached this binary is a test mule: characters
// typed at the terminal are injected as PS/2 scan-code sequences and the
// bytes the interface delivers are echoed back, exercising the interrupt
// line and the register file the way a running machine would.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/waffle2e/waffle2e/console"
	"github.com/waffle2e/waffle2e/hardware"
	"github.com/waffle2e/waffle2e/logger"
	"github.com/waffle2e/waffle2e/statsview"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s romfile [diskimage]\n", os.Args[0])
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		logger.Tail(os.Stderr, 10)
		os.Exit(1)
	}
}

func run(romFile string, rest []string) error {
	wf, err := hardware.NewWaffle2e(romFile)
	if err != nil {
		return err
	}
	defer wf.Shutdown()

	if len(rest) > 0 {
		if err := wf.MountImage(rest[0]); err != nil {
			return err
		}
	}

	if statsview.Available() {
		statsview.Launch(os.Stdout)
	}

	cn, err := console.NewConsole(os.Stdin, wf.PS2)
	if err != nil {
		return err
	}
	defer cn.Restore()

	fmt.Println("type to inject PS/2 scan codes; ctrl-d quits")

	// drain delivered scan codes the way the CPU interrupt handler would:
	// wait for the line, read port A, echo the byte through the video
	// controller's text plane
	done := make(chan struct{})
	go func() {
		tick := time.NewTicker(time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				for wf.Bus.IRQ().Asserted() {
					v, _ := wf.Bus.Read(hardware.PS2Origin + 1)
					echoScanCode(wf, v)
					fmt.Printf("%02x ", v)
				}
			}
		}
	}()

	err = cn.Loop()
	close(done)
	fmt.Println()

	return err
}

// video controller registers used by the scan-code echo.
const (
	vgaInstruction = hardware.VideoOrigin + 0x01
	vgaArg0        = hardware.VideoOrigin + 0x02
	vgaArg1        = hardware.VideoOrigin + 0x03
)

// echoScanCode writes a scan-code byte into the video text buffer as two
// hex digits and a space, using the TEXT_WRITE instruction the way a ROM
// driver would.
func echoScanCode(wf *hardware.Waffle2e, v uint8) {
	for _, ch := range fmt.Sprintf("%02x ", v) {
		wf.Bus.Write(vgaInstruction, 0x00)
		wf.Bus.Write(vgaArg0, 0x0f)
		wf.Bus.Write(vgaArg1, uint8(ch))
	}
}
