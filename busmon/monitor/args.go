package monitor

import (
	"fmt"
	"strconv"
	"strings"
)

func parseHex(s string, bits int) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: missing value", ErrSyntax)
	}
	s = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "0x"), "$")
	v, err := strconv.ParseUint(s, 16, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a %d-bit hex value", ErrSyntax, s, bits)
	}
	return v, nil
}

func parseAddr(s string) (uint16, error) {
	v, err := parseHex(s, 16)
	return uint16(v), err
}

func parseByte(s string) (uint8, error) {
	v, err := parseHex(s, 8)
	return uint8(v), err
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: missing count", ErrSyntax)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrSyntax, s)
	}
	return n, nil
}

// arg returns the i-th field or "".
func arg(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
