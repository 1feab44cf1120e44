package codeplug

import (
	"fmt"

	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

// RecordCodec encodes and decodes one record kind of a family. Decode calls
// Create on every codec before any Link; encode calls Index on every codec
// before any Encode.
type RecordCodec interface {
	Name() string
	Create(img *image.Image, cfg *model.Config, ctx *Context) error
	Link(img *image.Image, cfg *model.Config, ctx *Context) error
	Index(cfg *model.Config, ctx *Context) error
	Encode(img *image.Image, cfg *model.Config, ctx *Context, flags Flags) error
}

// Table is the RecordCodec for a fixed-capacity array of records of type T.
// Slot i is bound to index i+Base.
type Table[T any] struct {
	Kind     Kind[T]
	Capacity int
	Base     int

	// Slot returns the element of slot i
	Slot func(img *image.Image, i int) (image.Element, error)
	// Valid reports whether a record holds data
	Valid func(rec []byte) bool
	// Present overrides Valid for layouts with external validity tables
	Present func(img *image.Image, i int, rec []byte) (bool, error)
	// Clear resets a record to the family defaults
	Clear func(rec []byte)
	// DecodeRecord extracts an object without resolving references
	DecodeRecord func(rec []byte) (*T, error)
	// LinkRecord resolves references; nil when the kind has none
	LinkRecord func(rec []byte, obj *T, ctx *Context) error
	// EncodeRecord serializes obj, resolving references through ctx
	EncodeRecord func(rec []byte, obj *T, ctx *Context, flags Flags) error
	// Mark updates external validity tables; obj is nil for unused slots
	Mark func(img *image.Image, i int, obj *T) error

	Items  func(cfg *model.Config) []*T
	Append func(cfg *model.Config, obj *T)
	Label  func(obj *T) string
}

// Name implements RecordCodec
func (t *Table[T]) Name() string { return t.Kind.Name() }

func (t *Table[T]) record(img *image.Image, i int) ([]byte, error) {
	el, err := t.Slot(img, i)
	if err != nil {
		return nil, err
	}
	return el.Bytes()
}

func (t *Table[T]) present(img *image.Image, i int, rec []byte) (bool, error) {
	if t.Present != nil {
		return t.Present(img, i, rec)
	}
	return t.Valid(rec), nil
}

func (t *Table[T]) label(obj *T) string {
	if t.Label == nil || obj == nil {
		return ""
	}
	return t.Label(obj)
}

func (t *Table[T]) fail(pass Pass, i int, obj *T, err error) error {
	return &PassError{Pass: pass, Kind: t.Kind.Name(), Index: i + t.Base, Name: t.label(obj), Err: err}
}

// Create implements RecordCodec
func (t *Table[T]) Create(img *image.Image, cfg *model.Config, ctx *Context) error {
	for i := 0; i < t.Capacity; i++ {
		rec, err := t.record(img, i)
		if err != nil {
			return t.fail(PassCreate, i, nil, err)
		}
		ok, err := t.present(img, i, rec)
		if err != nil {
			return t.fail(PassCreate, i, nil, err)
		}
		if !ok {
			continue
		}
		obj, err := t.DecodeRecord(rec)
		if err != nil {
			return t.fail(PassCreate, i, nil, err)
		}
		if err := Register(ctx, t.Kind, i+t.Base, obj); err != nil {
			return t.fail(PassCreate, i, obj, err)
		}
		t.Append(cfg, obj)
	}
	return nil
}

// Link implements RecordCodec
func (t *Table[T]) Link(img *image.Image, _ *model.Config, ctx *Context) error {
	if t.LinkRecord == nil {
		return nil
	}
	for i := 0; i < t.Capacity; i++ {
		obj, ok := Lookup(ctx, t.Kind, i+t.Base)
		if !ok {
			continue
		}
		rec, err := t.record(img, i)
		if err != nil {
			return t.fail(PassLink, i, obj, err)
		}
		if err := t.LinkRecord(rec, obj, ctx); err != nil {
			return t.fail(PassLink, i, obj, err)
		}
	}
	return nil
}

// Index implements RecordCodec
func (t *Table[T]) Index(cfg *model.Config, ctx *Context) error {
	items := t.Items(cfg)
	if len(items) > t.Capacity {
		return &CapacityError{Kind: t.Kind.Name(), Count: len(items), Capacity: t.Capacity}
	}
	for i, obj := range items {
		if err := Register(ctx, t.Kind, i+t.Base, obj); err != nil {
			return t.fail(PassIndex, i, obj, err)
		}
	}
	return nil
}

// Encode implements RecordCodec
func (t *Table[T]) Encode(img *image.Image, cfg *model.Config, ctx *Context, flags Flags) error {
	items := t.Items(cfg)
	for i := 0; i < t.Capacity; i++ {
		rec, err := t.record(img, i)
		if err != nil {
			return t.fail(PassSerialize, i, nil, err)
		}
		var obj *T
		if i < len(items) {
			obj = items[i]
		}
		t.Clear(rec)
		if obj != nil {
			if err := t.EncodeRecord(rec, obj, ctx, flags); err != nil {
				return t.fail(PassSerialize, i, obj, err)
			}
		}
		if t.Mark != nil {
			if err := t.Mark(img, i, obj); err != nil {
				return t.fail(PassSerialize, i, obj, err)
			}
		}
	}
	return nil
}

// Block is a RecordCodec for a single fixed record such as a settings block
type Block struct {
	BlockName   string
	Address     uint32
	Size        int
	DecodeBlock func(rec []byte, cfg *model.Config) error
	LinkBlock   func(rec []byte, cfg *model.Config, ctx *Context) error
	EncodeBlock func(rec []byte, cfg *model.Config, ctx *Context, flags Flags) error
	// Reset prepares the block for a full overwrite encode
	Reset func(rec []byte)
}

// Name implements RecordCodec
func (b *Block) Name() string { return b.BlockName }

func (b *Block) bytes(img *image.Image) ([]byte, error) {
	el, err := img.Element(b.Address, b.Size)
	if err != nil {
		return nil, err
	}
	return el.Bytes()
}

// Create implements RecordCodec
func (b *Block) Create(img *image.Image, cfg *model.Config, _ *Context) error {
	if b.DecodeBlock == nil {
		return nil
	}
	rec, err := b.bytes(img)
	if err != nil {
		return fmt.Errorf("%s %s: %w", PassCreate, b.BlockName, err)
	}
	if err := b.DecodeBlock(rec, cfg); err != nil {
		return fmt.Errorf("%s %s: %w", PassCreate, b.BlockName, err)
	}
	return nil
}

// Link implements RecordCodec
func (b *Block) Link(img *image.Image, cfg *model.Config, ctx *Context) error {
	if b.LinkBlock == nil {
		return nil
	}
	rec, err := b.bytes(img)
	if err != nil {
		return fmt.Errorf("%s %s: %w", PassLink, b.BlockName, err)
	}
	if err := b.LinkBlock(rec, cfg, ctx); err != nil {
		return fmt.Errorf("%s %s: %w", PassLink, b.BlockName, err)
	}
	return nil
}

// Index implements RecordCodec
func (b *Block) Index(*model.Config, *Context) error { return nil }

// Encode implements RecordCodec
func (b *Block) Encode(img *image.Image, cfg *model.Config, ctx *Context, flags Flags) error {
	rec, err := b.bytes(img)
	if err != nil {
		return fmt.Errorf("%s %s: %w", PassSerialize, b.BlockName, err)
	}
	if !flags.UpdateCodeplug && b.Reset != nil {
		b.Reset(rec)
	}
	if b.EncodeBlock == nil {
		return nil
	}
	if err := b.EncodeBlock(rec, cfg, ctx, flags); err != nil {
		return fmt.Errorf("%s %s: %w", PassSerialize, b.BlockName, err)
	}
	return nil
}
