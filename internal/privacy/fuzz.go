// Package privacy offsets true coordinates before they leave the device.
package privacy

import (
	"math/rand/v2"
	"sync"
)

// MaxOffsetDegrees bounds the offset on each axis (about 50 km of latitude).
const MaxOffsetDegrees = 0.45

// Fuzzer draws independent uniform offsets in [-MaxOffsetDegrees, +MaxOffsetDegrees]
// for latitude and longitude. The offset never depends on the input, so no inverse exists.
type Fuzzer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewFuzzer() *Fuzzer {
	return &Fuzzer{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewFuzzerWithSource is used by tests that need a reproducible sequence.
func NewFuzzerWithSource(src rand.Source) *Fuzzer {
	return &Fuzzer{rnd: rand.New(src)}
}

func (f *Fuzzer) Fuzz(lat, lng float64) (float64, float64) {
	f.mu.Lock()
	latOffset := (f.rnd.Float64() - 0.5) * 2 * MaxOffsetDegrees
	lngOffset := (f.rnd.Float64() - 0.5) * 2 * MaxOffsetDegrees
	f.mu.Unlock()

	return lat + latOffset, lng + lngOffset
}
