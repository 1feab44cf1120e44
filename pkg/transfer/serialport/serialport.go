// Package serialport opens the USB serial adapters used by programming
// cables.
package serialport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Prolific PL2303, used by the Kydera programming cable
const (
	ProlificVID = "067B"
	PL2303PID   = "2303"
)

// ErrNoPort is returned when auto-detection finds no matching adapter
var ErrNoPort = errors.New("no matching serial port found")

// Config describes a serial connection
type Config struct {
	// Port is the device name; empty selects the first adapter matching
	// VID and PID
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
	VID         string
	PID         string
}

// DefaultConfig returns 9600 8N1 on a PL2303 cable
func DefaultConfig() Config {
	return Config{
		BaudRate:    9600,
		ReadTimeout: 100 * time.Millisecond,
		VID:         ProlificVID,
		PID:         PL2303PID,
	}
}

// PortLister returns the detailed list of serial ports
type PortLister func() ([]*enumerator.PortDetails, error)

// Find returns the name of the first USB port matching vid and pid
func Find(list PortLister, vid, pid string) (string, error) {
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}
	ports, err := list()
	if err != nil {
		return "", fmt.Errorf("cannot enumerate serial ports: %w", err)
	}
	for _, p := range ports {
		if p.IsUSB && strings.EqualFold(p.VID, vid) && strings.EqualFold(p.PID, pid) {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("%w (USB %s:%s)", ErrNoPort, vid, pid)
}

// Open opens the configured port, detecting it when no name is given. The
// returned port reads with cfg.ReadTimeout, so a silent device yields
// zero-length reads.
func Open(cfg Config) (serial.Port, error) {
	name := cfg.Port
	if name == "" {
		var err error
		if name, err = Find(nil, cfg.VID, cfg.PID); err != nil {
			return nil, err
		}
	}
	baud := cfg.BaudRate
	if baud == 0 {
		baud = 9600
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", name, err)
	}
	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("cannot set read timeout on %s: %w", name, err)
		}
	}
	return port, nil
}

// List returns the names of all serial ports
func List() ([]string, error) {
	return serial.GetPortsList()
}
