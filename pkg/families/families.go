// Package families is the registry of supported codeplug layouts and the
// file-format detection built on it.
package families

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/codeplug/rd5r"
	"github.com/dbehnke/codeplug-nexus/pkg/codeplug/tyt"
	"github.com/dbehnke/codeplug-nexus/pkg/cpsfile"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
)

var registry = map[string]func() *codeplug.Family{
	"rd5r":  rd5r.Family,
	"md390": tyt.MD390.Family,
	"uv390": tyt.UV390.Family,
}

var aliases = map[string]string{
	"dm5r":    "rd5r",
	"rt8":     "md390",
	"md380":   "md390",
	"uv380":   "uv390",
	"rt3s":    "uv390",
	"mduv390": "uv390",
}

// ErrUnknownFormat is returned when no family matches a file
var ErrUnknownFormat = errors.New("cannot determine the radio family of the file")

// UnknownFamilyError is returned by Lookup
type UnknownFamilyError struct {
	Name string
}

func (e *UnknownFamilyError) Error() string {
	return fmt.Sprintf("unknown radio family %q (supported: %s)", e.Name, strings.Join(Names(), ", "))
}

// Names returns the registered family names sorted
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a family by name or alias, case-insensitive
func Lookup(name string) (*codeplug.Family, error) {
	key := strings.ToLower(strings.ReplaceAll(name, "-", ""))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	ctor, ok := registry[key]
	if !ok {
		return nil, &UnknownFamilyError{Name: name}
	}
	return ctor(), nil
}

// All returns every registered family
func All() []*codeplug.Family {
	out := make([]*codeplug.Family, 0, len(registry))
	for _, name := range Names() {
		out = append(out, registry[name]())
	}
	return out
}

// DetectFile matches a manufacturer file against the file sizes of the
// registered families. Anytone containers are recognised by their header
// and reported as unsupported models.
func DetectFile(data []byte) (*codeplug.Family, error) {
	if cpsfile.Detect(data) {
		f, err := cpsfile.Parse(data)
		if err != nil {
			return nil, err
		}
		return nil, &cpsfile.UnsupportedModelError{Model: f.Header.Model, Known: true}
	}
	for _, fam := range All() {
		if fam.File != nil && fam.File.Size == len(data) {
			return fam, nil
		}
	}
	return nil, fmt.Errorf("%w: %d bytes", ErrUnknownFormat, len(data))
}

// ReadFile loads a manufacturer file. With an empty family name the family
// is detected from the file.
func ReadFile(path, family string) (*codeplug.Family, *image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open file '%s': %w", path, err)
	}
	fam, img, err := Load(data, family)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read '%s': %w", path, err)
	}
	return fam, img, nil
}

// Load maps the bytes of a manufacturer file onto a fresh family image
func Load(data []byte, family string) (*codeplug.Family, *image.Image, error) {
	var fam *codeplug.Family
	var err error
	if family == "" {
		fam, err = DetectFile(data)
	} else {
		fam, err = Lookup(family)
	}
	if err != nil {
		return nil, nil, err
	}
	if fam.File == nil {
		return nil, nil, fmt.Errorf("family %s has no file format", fam.Name)
	}
	img := fam.NewImage()
	if err := fam.File.Read(data, img); err != nil {
		return nil, nil, err
	}
	return fam, img, nil
}

// WriteFile stores img in the family's file format
func WriteFile(path string, fam *codeplug.Family, img *image.Image) error {
	if fam.File == nil {
		return fmt.Errorf("family %s has no file format", fam.Name)
	}
	data, err := fam.File.Write(img)
	if err != nil {
		return fmt.Errorf("cannot render %s file: %w", fam.Name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write file '%s': %w", path, err)
	}
	return nil
}
