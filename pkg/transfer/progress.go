package transfer

import (
	"sync"
	"time"
)

// Operation names used in progress events
const (
	OpDownload = "download"
	OpUpload   = "upload"
)

// Progress is reported after every block
type Progress struct {
	Operation string
	Block     int
	Blocks    int
	// Fraction of the whole operation, 0 to 1. An update upload spends the
	// first half reading.
	Fraction float64
	Elapsed  time.Duration
}

// Percent returns Fraction scaled to 0-100
func (p Progress) Percent() float64 { return p.Fraction * 100 }

// ProgressFunc receives progress events. It runs on the transfer goroutine
// and should return quickly.
type ProgressFunc func(Progress)

// Broadcaster fans progress events out to any number of subscribers
type Broadcaster struct {
	mu   sync.RWMutex
	next int
	subs map[int]ProgressFunc
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]ProgressFunc)}
}

// Subscribe registers fn and returns a function removing it again
func (b *Broadcaster) Subscribe(fn ProgressFunc) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers p to every subscriber
func (b *Broadcaster) Publish(p Progress) {
	b.mu.RLock()
	fns := make([]ProgressFunc, 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(p)
	}
}
