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

package bus

import "sync"

// IRQ models the shared interrupt line. Each asserter is tracked by name so
// that one device releasing the line does not mask another device that is
// still holding it. Assert and Clear are safe to call from any goroutine;
// the PS/2 interface asserts from host-input and timer goroutines.
type IRQ struct {
	crit      sync.Mutex
	asserters map[string]bool
}

func newIRQ() *IRQ {
	return &IRQ{
		asserters: make(map[string]bool),
	}
}

// Assert pulls the line down on behalf of the named source. Asserting an
// already asserted source is a no-op.
func (irq *IRQ) Assert(source string) {
	irq.crit.Lock()
	defer irq.crit.Unlock()
	irq.asserters[source] = true
}

// Clear releases the named source's hold on the line. Spurious clears are
// no-ops.
func (irq *IRQ) Clear(source string) {
	irq.crit.Lock()
	defer irq.crit.Unlock()
	delete(irq.asserters, source)
}

// Asserted returns true while any source is holding the line down.
func (irq *IRQ) Asserted() bool {
	irq.crit.Lock()
	defer irq.crit.Unlock()
	return len(irq.asserters) > 0
}

func (irq *IRQ) reset() {
	irq.crit.Lock()
	defer irq.crit.Unlock()
	irq.asserters = make(map[string]bool)
}
