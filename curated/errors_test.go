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

package curated_test

import (
	"errors"
	"testing"

	"github.com/waffle2e/waffle2e/curated"
	"github.com/waffle2e/waffle2e/test"
)

const testPattern = "test error: %v"

func TestMatching(t *testing.T) {
	e := curated.Errorf(testPattern, 10)
	test.ExpectEquality(t, e.Error(), "test error: 10")

	test.ExpectSuccess(t, curated.IsAny(e))
	test.ExpectSuccess(t, curated.Is(e, testPattern))
	test.ExpectEquality(t, curated.Is(e, "other: %v"), false)

	// plain errors are uncurated
	p := errors.New("plain")
	test.ExpectEquality(t, curated.IsAny(p), false)
	test.ExpectEquality(t, curated.Is(p, testPattern), false)

	test.ExpectEquality(t, curated.IsAny(nil), false)
}

func TestChains(t *testing.T) {
	inner := curated.Errorf(testPattern, 10)
	outer := curated.Errorf("fatal: %v", inner)

	test.ExpectSuccess(t, curated.Has(outer, testPattern))
	test.ExpectSuccess(t, curated.Has(outer, "fatal: %v"))
	test.ExpectEquality(t, curated.Is(outer, testPattern), false)
}

func TestDeduplication(t *testing.T) {
	// adjacent duplicate message parts collapse
	inner := curated.Errorf("error: inner")
	outer := curated.Errorf("error: %v", inner)
	test.ExpectEquality(t, outer.Error(), "error: inner")
}
