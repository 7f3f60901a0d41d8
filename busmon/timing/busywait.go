package timing

import "time"

// spinThreshold is the longest interval handled purely by spinning.
const spinThreshold = 2 * time.Millisecond

// BusyWait delays with a spin loop. The board's settling times are a few
// microseconds, far below the scheduler's sleep granularity.
type BusyWait struct{}

func NewBusyWait() *BusyWait {
	return &BusyWait{}
}

func (b *BusyWait) Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	if d >= spinThreshold {
		time.Sleep(d - time.Millisecond)
	}
	for time.Now().Before(deadline) {
		// busy-wait for the remainder, higher accuracy.
	}
}
