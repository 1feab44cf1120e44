package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Frequency is a radio frequency in Hz
type Frequency uint64

// MHz builds a Frequency from a value in MHz, rounded to the nearest Hz
func MHz(v float64) Frequency {
	return Frequency(v*1e6 + 0.5)
}

// InMHz returns the frequency in MHz
func (f Frequency) InMHz() float64 {
	return float64(f) / 1e6
}

func (f Frequency) String() string {
	return fmt.Sprintf("%d.%06d MHz", uint64(f)/1000000, uint64(f)%1000000)
}

// ParseFrequency parses "440.000", "440.000 MHz", "145500 kHz" or "433000000 Hz".
// A bare number is taken as MHz.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.TrimSpace(s)
	mul := 1e6
	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(lower, "mhz"):
		s = s[:len(s)-3]
	case strings.HasSuffix(lower, "khz"):
		s, mul = s[:len(s)-3], 1e3
	case strings.HasSuffix(lower, "hz"):
		s, mul = s[:len(s)-2], 1
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frequency %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid frequency %q: negative", s)
	}
	return Frequency(v*mul + 0.5), nil
}

// Tone is a CTCSS tone in 0.1 Hz units; 0 means no tone
type Tone uint16

// NoTone disables sub-audible signalling
const NoTone Tone = 0

// CTCSSTones lists the standard 50 CTCSS tones
var CTCSSTones = []Tone{
	670, 693, 719, 744, 770, 797, 825, 854, 885, 915,
	948, 974, 1000, 1035, 1072, 1109, 1148, 1188, 1230, 1273,
	1318, 1365, 1413, 1462, 1514, 1567, 1598, 1622, 1655, 1679,
	1713, 1738, 1773, 1799, 1835, 1862, 1899, 1928, 1966, 1995,
	2035, 2065, 2107, 2181, 2257, 2291, 2336, 2418, 2503, 2541,
}

// Valid reports whether t is NoTone or one of the standard tones
func (t Tone) Valid() bool {
	if t == NoTone {
		return true
	}
	for _, v := range CTCSSTones {
		if v == t {
			return true
		}
	}
	return false
}

func (t Tone) String() string {
	if t == NoTone {
		return "none"
	}
	return fmt.Sprintf("%d.%d Hz", t/10, t%10)
}

// ParseTone parses "88.5", "88.5 Hz" or "none"
func ParseTone(s string) (Tone, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "Hz"))
	if s == "" || strings.EqualFold(s, "none") || strings.EqualFold(s, "off") {
		return NoTone, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tone %q: %w", s, err)
	}
	t := Tone(v*10 + 0.5)
	if !t.Valid() {
		return 0, fmt.Errorf("invalid tone %q: not a standard CTCSS tone", s)
	}
	return t, nil
}
