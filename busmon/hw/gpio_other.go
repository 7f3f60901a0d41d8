//go:build !linux

package hw

import (
	"fmt"

	"github.com/valerio/go-busmon/busmon/timing"
)

// OpenGPIO is only available on linux.
func OpenGPIO(path string, pins PinMap, delay timing.Delayer) (*GPIOBus, error) {
	return nil, fmt.Errorf("GPIO bus not available on this platform - use the simulator")
}
