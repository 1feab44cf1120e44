// Package image implements the sparse, multi-region memory mirror of a radio's
// flash. Regions are addressed by absolute device address and never overlap.
package image

import (
	"fmt"
	"sort"
)

// LayoutError reports an access outside every region or an inconsistent
// region layout. It always indicates a family-definition bug.
type LayoutError struct {
	Image   string
	Address uint32
	Size    int
	Reason  string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("image %q: %s at 0x%06x (+%d)", e.Image, e.Reason, e.Address, e.Size)
}

// Region is a contiguous, independently addressed span of an Image
type Region struct {
	address uint32
	data    []byte
}

// Address returns the absolute device address of the first byte
func (r *Region) Address() uint32 { return r.address }

// Size returns the region length in bytes
func (r *Region) Size() int { return len(r.data) }

// End returns the first address after the region
func (r *Region) End() uint32 { return r.address + uint32(len(r.data)) }

// Bytes returns the region's backing buffer
func (r *Region) Bytes() []byte { return r.data }

func (r *Region) contains(addr uint32, n int) bool {
	return addr >= r.address && uint64(addr)+uint64(n) <= uint64(r.End())
}

// Image is a named collection of non-overlapping regions
type Image struct {
	name    string
	filler  byte
	regions []*Region
}

// New creates an empty image. New regions are filled with filler.
func New(name string, filler byte) *Image {
	return &Image{name: name, filler: filler}
}

// Name returns the image name
func (img *Image) Name() string { return img.name }

// Filler returns the default byte of freshly added regions
func (img *Image) Filler() byte { return img.filler }

// Regions returns the regions ordered by address
func (img *Image) Regions() []*Region { return img.regions }

// AddRegion appends a default-filled region. Overlapping an existing region
// is a layout error.
func (img *Image) AddRegion(addr uint32, size int) error {
	if size <= 0 {
		return &LayoutError{Image: img.name, Address: addr, Size: size, Reason: "empty region"}
	}
	end := uint64(addr) + uint64(size)
	for _, r := range img.regions {
		if uint64(addr) < uint64(r.End()) && end > uint64(r.address) {
			return &LayoutError{Image: img.name, Address: addr, Size: size,
				Reason: fmt.Sprintf("region overlaps 0x%06x-0x%06x", r.address, r.End())}
		}
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = img.filler
	}
	img.regions = append(img.regions, &Region{address: addr, data: data})
	sort.Slice(img.regions, func(i, j int) bool {
		return img.regions[i].address < img.regions[j].address
	})
	return nil
}

// Size returns the total number of bytes held by all regions
func (img *Image) Size() int {
	n := 0
	for _, r := range img.regions {
		n += r.Size()
	}
	return n
}

// Data resolves n bytes at an absolute address to a slice inside a region
func (img *Image) Data(addr uint32, n int) ([]byte, error) {
	idx, err := img.find(addr, n)
	if err != nil {
		return nil, err
	}
	r := img.regions[idx]
	off := int(addr - r.address)
	return r.data[off : off+n], nil
}

// Element returns a bounds-checked handle for n bytes at addr
func (img *Image) Element(addr uint32, n int) (Element, error) {
	idx, err := img.find(addr, n)
	if err != nil {
		return Element{}, err
	}
	r := img.regions[idx]
	return Element{img: img, region: idx, base: r.address, offset: int(addr - r.address), size: n}, nil
}

// IsAligned reports whether every region starts and ends on a block boundary
func (img *Image) IsAligned(blockSize int) bool {
	if blockSize <= 0 {
		return false
	}
	for _, r := range img.regions {
		if int(r.address)%blockSize != 0 || r.Size()%blockSize != 0 {
			return false
		}
	}
	return true
}

// Reset refills every region with the filler byte
func (img *Image) Reset() {
	for _, r := range img.regions {
		for i := range r.data {
			r.data[i] = img.filler
		}
	}
}

// Clone returns a deep copy of the image
func (img *Image) Clone() *Image {
	c := &Image{name: img.name, filler: img.filler, regions: make([]*Region, len(img.regions))}
	for i, r := range img.regions {
		c.regions[i] = &Region{address: r.address, data: append([]byte(nil), r.data...)}
	}
	return c
}

// CopyFrom overwrites this image's bytes with other's. Both images must have
// the same region layout.
func (img *Image) CopyFrom(other *Image) error {
	if len(other.regions) != len(img.regions) {
		return &LayoutError{Image: img.name, Reason: "region count mismatch"}
	}
	for i, r := range img.regions {
		o := other.regions[i]
		if o.address != r.address || o.Size() != r.Size() {
			return &LayoutError{Image: img.name, Address: o.address, Size: o.Size(), Reason: "region layout mismatch"}
		}
		copy(r.data, o.data)
	}
	return nil
}

// Flatten concatenates the regions in address order
func (img *Image) Flatten() []byte {
	out := make([]byte, 0, img.Size())
	for _, r := range img.regions {
		out = append(out, r.data...)
	}
	return out
}

// FromBytes returns an image with a single region at address 0 holding data
// padded with filler up to size. data longer than size is a layout error.
func FromBytes(name string, filler byte, data []byte, size int) (*Image, error) {
	if size < len(data) {
		return nil, &LayoutError{Image: name, Size: len(data),
			Reason: fmt.Sprintf("data exceeds image size 0x%x", size)}
	}
	img := New(name, filler)
	if err := img.AddRegion(0, size); err != nil {
		return nil, err
	}
	copy(img.regions[0].data, data)
	return img, nil
}

func (img *Image) find(addr uint32, n int) (int, error) {
	if n < 0 {
		return 0, &LayoutError{Image: img.name, Address: addr, Size: n, Reason: "negative size"}
	}
	for i, r := range img.regions {
		if r.contains(addr, n) {
			return i, nil
		}
	}
	return 0, &LayoutError{Image: img.name, Address: addr, Size: n, Reason: "address not covered by any region"}
}
