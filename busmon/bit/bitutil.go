// Package bit packs and unpacks the byte and bit fields of probe words.
package bit

// Combine combines two 8 bit values into a single 16 bit value.
// The high byte will be the most significant one.
func Combine(high, low uint8) uint16 {
	return (uint16(high) << 8) | uint16(low)
}

// Low returns the low (LSB) part of a 16 bit number.
func Low(value uint16) uint8 {
	return uint8(value)
}

// High returns the high (MSB) part of a 16 bit number.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}

// Field returns the width-bit field of value starting at lowBit.
func Field(value uint32, lowBit, width uint) uint32 {
	return (value >> lowBit) & ((1 << width) - 1)
}

// Place shifts the low width bits of field into position lowBit.
func Place(field uint32, lowBit, width uint) uint32 {
	return (field & ((1 << width) - 1)) << lowBit
}

// LSBFirst calls emit once per bit of the low n bits of value, least
// significant bit first.
func LSBFirst(value uint32, n int, emit func(b uint8)) {
	for i := 0; i < n; i++ {
		emit(uint8(value & 1))
		value >>= 1
	}
}
