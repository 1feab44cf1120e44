// Package cpsfile reads the container written by the Anytone programming
// software. The payload is preceded by a fixed header naming the radio model
// and declaring the payload size; the model selects the decoder.
package cpsfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

// HeaderSize is the size of the file header in bytes
const HeaderSize = 23

// sizeOverhead is what the declared payload size leaves out of the file
// size. It is not the header size.
const sizeOverhead = 14

// Header is the decoded file header
type Header struct {
	Version     string
	PayloadSize uint32
	Model       string
	HWVersion   string
}

// FileSize returns the file size the header declares
func (h *Header) FileSize() int { return int(h.PayloadSize) + sizeOverhead }

// SizeMismatchError is returned when the header disagrees with the file
type SizeMismatchError struct {
	Declared int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("malformed header: file is %d bytes, header declares %d", e.Actual, e.Declared)
}

// UnsupportedModelError is returned for models without a decoder. Known
// tells a model of the dispatch table apart from a name never seen before.
type UnsupportedModelError struct {
	Model string
	Known bool
}

func (e *UnsupportedModelError) Error() string {
	if e.Known {
		return fmt.Sprintf("model %q is not implemented yet", e.Model)
	}
	return fmt.Sprintf("unknown model %q", e.Model)
}

// Decoder builds a configuration from a complete file
type Decoder func(data []byte) (*model.Config, error)

// Model is one entry of the dispatch table
type Model struct {
	Name        string
	Description string
	decoder     Decoder
}

// Supported reports whether a decoder is registered
func (m Model) Supported() bool { return m.decoder != nil }

var (
	mu     sync.RWMutex
	models = map[string]*Model{
		"D868UVE": {Name: "D868UVE", Description: "Anytone AT-D868UV"},
		"D878UV":  {Name: "D878UV", Description: "Anytone AT-D878UV"},
		"D878UV2": {Name: "D878UV2", Description: "Anytone AT-D878UVII"},
		"D578UV":  {Name: "D578UV", Description: "Anytone AT-D578UV"},
	}
)

// Register installs the decoder for a model name. Registering an unknown
// name adds it to the dispatch table.
func Register(name, description string, dec Decoder) {
	mu.Lock()
	defer mu.Unlock()
	m, ok := models[name]
	if !ok {
		m = &Model{Name: name, Description: description}
		models[name] = m
	}
	m.decoder = dec
}

// Models returns the dispatch table sorted by name
func Models() []Model {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Model, 0, len(models))
	for _, m := range models {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// ParseHeader decodes the header and checks it against the file size. No
// payload byte is looked at.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("cannot read header: file is only %d bytes", len(data))
	}
	h := &Header{
		Version:     cstring(data[0:5]),
		PayloadSize: binary.LittleEndian.Uint32(data[5:9]),
		Model:       cstring(data[9:16]),
		HWVersion:   cstring(data[19:23]),
	}
	if h.FileSize() != len(data) {
		return nil, &SizeMismatchError{Declared: h.FileSize(), Actual: len(data)}
	}
	return h, nil
}

// Detect reports whether data starts with a header naming a model of the
// dispatch table. The declared size is not checked; Parse rejects a
// mismatch.
func Detect(data []byte) bool {
	if len(data) < HeaderSize {
		return false
	}
	mu.RLock()
	defer mu.RUnlock()
	_, ok := models[cstring(data[9:16])]
	return ok
}

// File is a validated container
type File struct {
	Header *Header
	Data   []byte
}

// Parse validates data and returns the container
func Parse(data []byte) (*File, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	return &File{Header: h, Data: data}, nil
}

// ReadFile loads and validates a container from disk
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file '%s': %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("cannot read codeplug file '%s': %w", path, err)
	}
	return f, nil
}

// Decode dispatches on the model name
func (f *File) Decode() (*model.Config, error) {
	mu.RLock()
	m, ok := models[f.Header.Model]
	mu.RUnlock()
	if !ok || m.decoder == nil {
		return nil, &UnsupportedModelError{Model: f.Header.Model, Known: ok}
	}
	cfg, err := m.decoder(f.Data)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s file: %w", f.Header.Model, err)
	}
	return cfg, nil
}
