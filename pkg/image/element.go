package image

// Element is a (region, offset, size) handle into an Image. It owns no bytes
// and is re-validated against the region bounds on every access. The region
// base address is kept with the index so the handle survives regions added
// later at lower addresses.
type Element struct {
	img    *Image
	region int
	base   uint32
	offset int
	size   int
}

// resolve returns the element's region, following it if the index moved
func (e Element) resolve() (*Region, bool) {
	if e.region < len(e.img.regions) && e.img.regions[e.region].address == e.base {
		return e.img.regions[e.region], true
	}
	for _, r := range e.img.regions {
		if r.address == e.base {
			return r, true
		}
	}
	return nil, false
}

// IsZero reports whether the element was never bound to an image
func (e Element) IsZero() bool { return e.img == nil }

// Size returns the element footprint in bytes
func (e Element) Size() int { return e.size }

// Address returns the absolute address of the first byte
func (e Element) Address() uint32 {
	if e.img == nil {
		return 0
	}
	return e.base + uint32(e.offset)
}

// Bytes returns the element's view of the region buffer
func (e Element) Bytes() ([]byte, error) {
	if e.img == nil {
		return nil, &LayoutError{Reason: "unbound element"}
	}
	r, ok := e.resolve()
	if !ok {
		return nil, &LayoutError{Image: e.img.name, Address: e.base, Size: e.size, Reason: "element region vanished"}
	}
	if e.offset < 0 || e.offset+e.size > len(r.data) {
		return nil, &LayoutError{Image: e.img.name, Address: r.address + uint32(e.offset), Size: e.size,
			Reason: "element exceeds region"}
	}
	return r.data[e.offset : e.offset+e.size], nil
}

// Sub returns a nested element at a relative offset
func (e Element) Sub(offset, size int) (Element, error) {
	if e.img == nil {
		return Element{}, &LayoutError{Reason: "unbound element"}
	}
	if offset < 0 || size < 0 || offset+size > e.size {
		return Element{}, &LayoutError{Image: e.img.name, Address: e.Address() + uint32(offset), Size: size,
			Reason: "sub-element exceeds parent"}
	}
	return Element{img: e.img, region: e.region, base: e.base, offset: e.offset + offset, size: size}, nil
}

// Fill sets every byte of the element to v
func (e Element) Fill(v byte) error {
	b, err := e.Bytes()
	if err != nil {
		return err
	}
	for i := range b {
		b[i] = v
	}
	return nil
}
