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

// Package test contains assertion helpers for the testing of the emulator.
// The Expect functions mark the test as failed and continue; the Demand
// functions end the test immediately.
package test

import (
	"testing"
)

// ExpectEquality is used to test equality between one value and another.
func ExpectEquality[T comparable](t *testing.T, value T, expectedValue T) bool {
	t.Helper()
	if value != expectedValue {
		t.Errorf("equality test of type %T failed: %v does not equal %v", value, value, expectedValue)
		return false
	}
	return true
}

// DemandEquality is used to test equality between one value and another. The
// test ends if the equality test fails.
func DemandEquality[T comparable](t *testing.T, value T, expectedValue T) {
	t.Helper()
	if value != expectedValue {
		t.Fatalf("equality test of type %T failed: %v does not equal %v", value, value, expectedValue)
	}
}

// ExpectSuccess tests argument v for a success condition suitable for its
// type. Supported types are bool and error.
func ExpectSuccess(t *testing.T, v interface{}) bool {
	t.Helper()

	switch v := v.(type) {
	case bool:
		if !v {
			t.Errorf("expected success (bool)")
			return false
		}
	case error:
		if v != nil {
			t.Errorf("expected success (error: %v)", v)
			return false
		}
	case nil:
		return true
	default:
		t.Fatalf("unsupported type (%T) for ExpectSuccess()", v)
		return false
	}

	return true
}

// ExpectFailure tests argument v for a failure condition suitable for its
// type. Supported types are bool and error.
func ExpectFailure(t *testing.T, v interface{}) bool {
	t.Helper()

	switch v := v.(type) {
	case bool:
		if v {
			t.Errorf("expected failure (bool)")
			return false
		}
	case error:
		if v == nil {
			t.Errorf("expected failure (error)")
			return false
		}
	case nil:
		t.Errorf("expected failure (nil)")
		return false
	default:
		t.Fatalf("unsupported type (%T) for ExpectFailure()", v)
		return false
	}

	return true
}

// DemandSuccess is the same as ExpectSuccess but the test ends on failure.
func DemandSuccess(t *testing.T, v interface{}) {
	t.Helper()
	if !ExpectSuccess(t, v) {
		t.FailNow()
	}
}
