package codeplug

import "time"

// Flags tune an encode
type Flags struct {
	// UpdateCodeplug keeps bytes the host does not manage (device-assigned
	// settings, calibration) from the image being encoded into. When false
	// the settings blocks are reset before encoding.
	UpdateCodeplug bool
	// AutoTimestamp writes the encode time into the timestamp block
	AutoTimestamp bool
	// Now overrides the clock used by AutoTimestamp
	Now func() time.Time
}

// Time returns the timestamp to write
func (f Flags) Time() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}
