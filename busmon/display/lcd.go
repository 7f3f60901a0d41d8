// Package display drives a small character display that mirrors the target's
// current instruction address.
package display

import "fmt"

// Character display geometry.
const (
	Columns = 16
	Rows    = 2
)

// LCD is a character display addressed by a linear cursor position: row 0
// holds positions 0-15, row 1 positions 16-31.
type LCD interface {
	Goto(pos int)
	Puts(s string)
}

const (
	addrLabel = "Addr: "
	addrPos   = len(addrLabel)
)

// AddressDisplay shows "Addr: XXXX" on the first row.
type AddressDisplay struct {
	lcd LCD
}

// NewAddressDisplay writes the label and a placeholder address.
func NewAddressDisplay(lcd LCD) *AddressDisplay {
	lcd.Goto(0)
	lcd.Puts(addrLabel + "xxxx")
	return &AddressDisplay{lcd: lcd}
}

// ShowAddress rewrites the four hex digits.
func (d *AddressDisplay) ShowAddress(addr uint16) {
	d.lcd.Goto(addrPos)
	d.lcd.Puts(fmt.Sprintf("%04X", addr))
}
