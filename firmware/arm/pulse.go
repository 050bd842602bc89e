package arm

import (
	"sync/atomic"
	"time"
)

// Clock returns monotonic milliseconds. It is allowed to wrap; all comparisons use unsigned subtraction
type Clock func() uint32

// MonotonicClock returns a Clock counting milliseconds since it was created
func MonotonicClock() Clock {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}

// DebounceWindow is the minimum spacing between accepted reed pulses. At normal feed rates the guide
// wheel turns well under 5 rev/sec, so anything closer is switch bounce
const DebounceWindow = 50 * time.Millisecond

// PulseCounter counts debounced reed switch pulses from the feed wheel and derives a pulse rate and
// stall status from them.
//
// Handle is called from interrupt context. Everything it touches lives in a single atomic cell
// holding the accepted count and a timestamp: the time of the last accepted pulse, or the time of
// the last Reset while the count is still zero. The remaining fields belong to the control loop.
type PulseCounter struct {
	clock Clock
	cell  atomic.Uint64

	lastSampleCount uint32
	lastSampleAt    uint32
	rate            float32
}

// NewPulseCounter creates a PulseCounter with its stall grace period starting now
func NewPulseCounter(clock Clock) *PulseCounter {
	p := &PulseCounter{clock: clock}
	p.Reset()
	return p
}

func pack(count, stamp uint32) uint64 { return uint64(count)<<32 | uint64(stamp) }

func unpack(v uint64) (count, stamp uint32) { return uint32(v >> 32), uint32(v) }

// Handle records one reed switch edge. It does not allocate or block
func (p *PulseCounter) Handle() {
	now := p.clock()
	debounce := millis(DebounceWindow)
	for {
		old := p.cell.Load()
		count, last := unpack(old)
		if count > 0 && now-last <= debounce {
			return
		}
		if p.cell.CompareAndSwap(old, pack(count+1, now)) {
			return
		}
	}
}

// Sample returns the number of pulses since the previous Sample and updates the pulse rate.
// The rate is left unchanged if no time has passed
func (p *PulseCounter) Sample() uint32 {
	now := p.clock()
	count, _ := unpack(p.cell.Load())

	delta := count - p.lastSampleCount
	dt := now - p.lastSampleAt
	if dt > 0 {
		p.rate = float32(delta) / (float32(dt) / 1000)
	}

	p.lastSampleCount = count
	p.lastSampleAt = now
	return delta
}

// Stalled reports whether more than timeout has passed without an accepted pulse. Before the first
// pulse, the timeout is measured from creation or the last Reset
func (p *PulseCounter) Stalled(timeout time.Duration) bool {
	_, stamp := unpack(p.cell.Load())
	return p.clock()-stamp > millis(timeout)
}

// Reset clears the count, rate and last pulse time together
func (p *PulseCounter) Reset() {
	now := p.clock()
	p.cell.Store(pack(0, now))
	p.lastSampleCount = 0
	p.lastSampleAt = now
	p.rate = 0
}

// Rate returns pulses/sec as of the last Sample
func (p *PulseCounter) Rate() float32 {
	return p.rate
}

// Count returns the pulses accepted since creation or the last Reset
func (p *PulseCounter) Count() uint32 {
	count, _ := unpack(p.cell.Load())
	return count
}

// SinceLastPulse returns the time since the last accepted pulse, or since the last Reset if there
// has not been one
func (p *PulseCounter) SinceLastPulse() time.Duration {
	_, stamp := unpack(p.cell.Load())
	return time.Duration(p.clock()-stamp) * time.Millisecond
}
