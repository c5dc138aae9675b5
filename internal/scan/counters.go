package scan

import "sync/atomic"

// counters tracks scan progress with atomics so workers and the writer
// goroutine can update/read them without a mutex, per spec.md §8's
// progress-monotonicity invariant.
type counters struct {
	seen    uint64
	hashed  uint64
	skipped uint64
	bytes   uint64
}

func (c *counters) addSeen(n uint64)    { atomic.AddUint64(&c.seen, n) }
func (c *counters) addHashed(n uint64)  { atomic.AddUint64(&c.hashed, n) }
func (c *counters) addSkipped(n uint64) { atomic.AddUint64(&c.skipped, n) }
func (c *counters) addBytes(n uint64)   { atomic.AddUint64(&c.bytes, n) }

func (c *counters) snapshot() (seen, hashed, skipped, bytes uint64) {
	return atomic.LoadUint64(&c.seen), atomic.LoadUint64(&c.hashed), atomic.LoadUint64(&c.skipped), atomic.LoadUint64(&c.bytes)
}
