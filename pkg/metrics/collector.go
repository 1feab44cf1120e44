package metrics

import (
	"sort"
	"sync"

	"github.com/dbehnke/codeplug-nexus/pkg/transfer"
)

// Collector collects codeplug-nexus metrics
type Collector struct {
	mu sync.RWMutex

	// Transfer metrics, keyed by operation
	transfersStarted  map[string]uint64
	transfersFailed   map[string]uint64
	transfersComplete map[string]uint64
	bytesTransferred  map[string]uint64
	activeTransfers   int
	lastFraction      float64

	// Codec metrics, keyed by family
	decodes      map[string]uint64
	encodes      map[string]uint64
	codecErrors  map[string]uint64
	snapshots    uint64
	radioIDUsers int64
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		transfersStarted:  make(map[string]uint64),
		transfersFailed:   make(map[string]uint64),
		transfersComplete: make(map[string]uint64),
		bytesTransferred:  make(map[string]uint64),
		decodes:           make(map[string]uint64),
		encodes:           make(map[string]uint64),
		codecErrors:       make(map[string]uint64),
	}
}

// TransferStarted records the start of a download or upload
func (c *Collector) TransferStarted(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transfersStarted[op]++
	c.activeTransfers++
	c.lastFraction = 0
}

// TransferFinished records the outcome of a transfer of n bytes
func (c *Collector) TransferFinished(op string, n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeTransfers > 0 {
		c.activeTransfers--
	}
	if err != nil {
		c.transfersFailed[op]++
		return
	}
	c.transfersComplete[op]++
	c.bytesTransferred[op] += uint64(n)
}

// Progress records the fraction of the running transfer. It has the
// transfer.ProgressFunc signature.
func (c *Collector) Progress(p transfer.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastFraction = p.Fraction
}

// Decoded records a decode of a family image
func (c *Collector) Decoded(family string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.codecErrors[family]++
		return
	}
	c.decodes[family]++
}

// Encoded records an encode into a family image
func (c *Collector) Encoded(family string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.codecErrors[family]++
		return
	}
	c.encodes[family]++
}

// SnapshotStored records an archived image
func (c *Collector) SnapshotStored() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshots++
}

// SetRadioIDUsers records the size of the DMR user table
func (c *Collector) SetRadioIDUsers(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.radioIDUsers = n
}

// Labeled is one sample of a labelled counter
type Labeled struct {
	Label string
	Value uint64
}

// Stats is a consistent copy of all metrics
type Stats struct {
	TransfersStarted  []Labeled
	TransfersComplete []Labeled
	TransfersFailed   []Labeled
	BytesTransferred  []Labeled
	ActiveTransfers   int
	Progress          float64
	Decodes           []Labeled
	Encodes           []Labeled
	CodecErrors       []Labeled
	Snapshots         uint64
	RadioIDUsers      int64
}

func sorted(m map[string]uint64) []Labeled {
	out := make([]Labeled, 0, len(m))
	for k, v := range m {
		out = append(out, Labeled{Label: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Stats returns a copy of the current values
func (c *Collector) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		TransfersStarted:  sorted(c.transfersStarted),
		TransfersComplete: sorted(c.transfersComplete),
		TransfersFailed:   sorted(c.transfersFailed),
		BytesTransferred:  sorted(c.bytesTransferred),
		ActiveTransfers:   c.activeTransfers,
		Progress:          c.lastFraction,
		Decodes:           sorted(c.decodes),
		Encodes:           sorted(c.encodes),
		CodecErrors:       sorted(c.codecErrors),
		Snapshots:         c.snapshots,
		RadioIDUsers:      c.radioIDUsers,
	}
}

// Total sums a labelled counter
func Total(samples []Labeled) uint64 {
	var n uint64
	for _, s := range samples {
		n += s.Value
	}
	return n
}
