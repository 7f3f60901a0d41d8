//go:build linux

package hw

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/valerio/go-busmon/busmon/timing"
	"golang.org/x/sys/unix"
)

const gpioBlockSize = 4096

// OpenGPIO maps the GPIO register block exposed by path (usually
// /dev/gpiomem) and binds a bus to it.
func OpenGPIO(path string, pins PinMap, delay timing.Delayer) (*GPIOBus, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO device: %w", err)
	}
	defer f.Close()

	mem, err := unix.Mmap(int(f.Fd()), 0, gpioBlockSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to map GPIO registers: %w", err)
	}

	regs := unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), len(mem)/4)
	b := NewGPIOBus(regs, pins, delay)
	b.release = func() error { return unix.Munmap(mem) }
	b.logger.Info("GPIO bus opened", "path", path)
	return b, nil
}
