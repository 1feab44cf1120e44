package codeplug

import (
	"fmt"

	"github.com/dbehnke/codeplug-nexus/pkg/image"
)

// Segment maps a span of a manufacturer file onto device memory
type Segment struct {
	FileOffset int
	Address    uint32
	Size       int
}

// FileLayout describes a fixed-size manufacturer file as a list of segments.
// Bytes outside every segment are container data and are written as Filler.
type FileLayout struct {
	Size     int
	Filler   byte
	Segments []Segment
}

// FileSizeError is returned for files of the wrong size
type FileSizeError struct {
	Want int
	Got  int
}

func (e *FileSizeError) Error() string {
	return fmt.Sprintf("file size is %d bytes, expected %d", e.Got, e.Want)
}

// Read copies every segment of data into img
func (l *FileLayout) Read(data []byte, img *image.Image) error {
	if len(data) != l.Size {
		return &FileSizeError{Want: l.Size, Got: len(data)}
	}
	for _, s := range l.Segments {
		dst, err := img.Data(s.Address, s.Size)
		if err != nil {
			return fmt.Errorf("segment at file offset 0x%x: %w", s.FileOffset, err)
		}
		copy(dst, data[s.FileOffset:s.FileOffset+s.Size])
	}
	return nil
}

// Write renders img into a new file
func (l *FileLayout) Write(img *image.Image) ([]byte, error) {
	out := make([]byte, l.Size)
	for i := range out {
		out[i] = l.Filler
	}
	for _, s := range l.Segments {
		src, err := img.Data(s.Address, s.Size)
		if err != nil {
			return nil, fmt.Errorf("segment at file offset 0x%x: %w", s.FileOffset, err)
		}
		copy(out[s.FileOffset:], src)
	}
	return out, nil
}
