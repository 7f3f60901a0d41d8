// Package trigger holds the table of two-input boolean functions that gate
// when a comparator slot is allowed to assert. The inputs are the board's
// external trigger lines T0 and T1.
package trigger

import (
	"fmt"
	"strconv"
	"strings"
)

// Code selects one of the 16 functions of (T0, T1).
type Code uint8

const (
	Never  Code = 0
	Always Code = 15

	// Count is the number of trigger codes.
	Count = 16
)

// The truth table of code c is the 4-bit value c itself: bit (t1<<1 | t0)
// of the code is the function's output for that input pair.
var names = [Count]string{
	"Never",
	"~T0 and ~T1",
	"T0 and ~T1",
	"~T1",
	"~T0 and T1",
	"~T0",
	"T0 xor T1",
	"~T0 or ~T1",
	"T0 and T1",
	"T0 xnor T1",
	"T0",
	"T0 or ~T1",
	"T1",
	"~T0 or T1",
	"T0 or T1",
	"Always",
}

// Valid reports whether c is in the range 0-15.
func (c Code) Valid() bool {
	return c < Count
}

func (c Code) String() string {
	if !c.Valid() {
		return "ILLEGAL"
	}
	return names[c]
}

// Evaluate returns the output of function c for the given inputs. Codes
// outside 0-15 are a caller error; they evaluate to false.
func Evaluate(c Code, t0, t1 bool) bool {
	if !c.Valid() {
		return false
	}
	row := 0
	if t0 {
		row |= 1
	}
	if t1 {
		row |= 2
	}
	return (c>>row)&1 == 1
}

// Parse converts a hex trigger code as typed on the console. A leading
// "0x" or "$" is accepted.
func Parse(s string) (Code, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "0x"), "$")
	v, err := strconv.ParseUint(h, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid trigger code %q", s)
	}
	if v >= Count {
		return 0, fmt.Errorf("trigger code %X out of range", v)
	}
	return Code(v), nil
}

// Table returns the codes with their descriptions, in code order.
func Table() []string {
	lines := make([]string, Count)
	for c := Code(0); c < Count; c++ {
		lines[c] = fmt.Sprintf("%X = %s", uint8(c), c)
	}
	return lines
}
