package transfer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/logger"
)

// Device is the serialization point for one radio connection. Only one
// transfer runs at a time; concurrent callers queue on the mutex.
type Device struct {
	mu       sync.Mutex
	iface    Interface
	log      *logger.Logger
	progress ProgressFunc
	info     *Info
}

// Option configures a Device
type Option func(*Device)

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(d *Device) {
		if log != nil {
			d.log = log.WithComponent("transfer")
		}
	}
}

// WithProgress sets the progress callback
func WithProgress(fn ProgressFunc) Option {
	return func(d *Device) { d.progress = fn }
}

// NewDevice wraps iface. It panics on a nil interface.
func NewDevice(iface Interface, opts ...Option) *Device {
	if iface == nil {
		panic("transfer: interface cannot be nil")
	}
	d := &Device{
		iface: iface,
		log:   logger.New(logger.Config{Level: "error", Output: io.Discard}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Close releases the interface
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.iface.Close()
}

// recover brings an interface left in Error, or mid-transfer after a
// cancellation, back to Idle before the next handshake
func (d *Device) recover() {
	if st := d.iface.State(); st != StateIdle {
		d.log.Warn("Resetting interface", logger.String("state", st.String()))
		d.iface.Reset()
	}
}

// Identify returns the radio identity; it is cached after the first call
func (d *Device) Identify(ctx context.Context) (*Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.info != nil {
		return d.info, nil
	}
	d.recover()
	info, err := d.iface.Identify(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot identify radio: %w", err)
	}
	d.log.Info("Radio identified",
		logger.String("manufacturer", info.Manufacturer),
		logger.String("model", info.Model),
		logger.String("device", info.DeviceID))
	d.info = info
	return info, nil
}

// checkImage returns the single region of img. Sequential protocols cannot
// seek, so the image must start at address 0 and cover whole blocks.
func (d *Device) checkImage(img *image.Image) (*image.Region, int, error) {
	regions := img.Regions()
	bs := d.iface.BlockSize()
	if len(regions) != 1 || regions[0].Address() != 0 {
		return nil, 0, &image.LayoutError{Image: img.Name(), Reason: "sequential transfer needs a single region at address 0"}
	}
	if !img.IsAligned(bs) {
		return nil, 0, &image.LayoutError{Image: img.Name(), Size: regions[0].Size(),
			Reason: fmt.Sprintf("region is not aligned to %d-byte blocks", bs)}
	}
	return regions[0], regions[0].Size() / bs, nil
}

type phase struct {
	op     string
	offset float64
	scale  float64
	start  time.Time
}

func (d *Device) report(ph phase, block, blocks int) {
	if d.progress == nil {
		return
	}
	d.progress(Progress{
		Operation: ph.op,
		Block:     block,
		Blocks:    blocks,
		Fraction:  ph.offset + ph.scale*float64(block)/float64(blocks),
		Elapsed:   time.Since(ph.start),
	})
}

// Download reads the radio into img
func (d *Device) Download(ctx context.Context, img *image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.download(ctx, img, phase{op: OpDownload, scale: 1, start: time.Now()})
}

func (d *Device) download(ctx context.Context, img *image.Image, ph phase) error {
	region, blocks, err := d.checkImage(img)
	if err != nil {
		return fmt.Errorf("cannot download: %w", err)
	}
	d.recover()
	bs := d.iface.BlockSize()
	d.log.Info("Starting download", logger.String("image", img.Name()), logger.Int("blocks", blocks))

	if err := d.iface.ReadStart(ctx, blocks); err != nil {
		return fmt.Errorf("cannot start download: %w", err)
	}
	data := region.Bytes()
	for b := 0; b < blocks; b++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("download cancelled at block %d: %w", b, err)
		}
		if err := d.iface.ReadBlock(ctx, data[b*bs:(b+1)*bs]); err != nil {
			return fmt.Errorf("cannot read block %d: %w", b, err)
		}
		d.report(ph, b+1, blocks)
	}
	if err := d.iface.ReadFinish(ctx); err != nil {
		return fmt.Errorf("cannot finish download: %w", err)
	}
	d.log.Info("Download complete", logger.Int("bytes", len(data)), logger.Duration("elapsed", time.Since(ph.start)))
	return nil
}

// EncodeFunc writes the configuration into img. For update uploads it
// runs on the image freshly read from the radio.
type EncodeFunc func(img *image.Image) error

// Upload encodes into img and writes it to the radio. With update set the
// radio is read into img first so device-assigned bytes survive.
func (d *Device) Upload(ctx context.Context, img *image.Image, update bool, encode EncodeFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	write := phase{op: OpUpload, scale: 1, start: start}
	if update {
		if err := d.download(ctx, img, phase{op: OpUpload, scale: 0.5, start: start}); err != nil {
			return fmt.Errorf("cannot read radio before update: %w", err)
		}
		write.offset, write.scale = 0.5, 0.5
	}
	if encode != nil {
		if err := encode(img); err != nil {
			return err
		}
	}
	return d.upload(ctx, img, write)
}

func (d *Device) upload(ctx context.Context, img *image.Image, ph phase) error {
	region, blocks, err := d.checkImage(img)
	if err != nil {
		return fmt.Errorf("cannot upload: %w", err)
	}
	d.recover()
	bs := d.iface.BlockSize()
	d.log.Info("Starting upload", logger.String("image", img.Name()), logger.Int("blocks", blocks))

	if err := d.iface.WriteStart(ctx, blocks); err != nil {
		return fmt.Errorf("cannot start upload: %w", err)
	}
	data := region.Bytes()
	for b := 0; b < blocks; b++ {
		if err := ctx.Err(); err != nil {
			d.log.Error("Upload interrupted, radio codeplug is incomplete", logger.Int("block", b))
			return fmt.Errorf("upload cancelled at block %d, radio codeplug is incomplete: %w", b, err)
		}
		if err := d.iface.WriteBlock(ctx, data[b*bs:(b+1)*bs]); err != nil {
			return fmt.Errorf("cannot write block %d: %w", b, err)
		}
		d.report(ph, b+1, blocks)
	}
	if err := d.iface.WriteFinish(ctx); err != nil {
		return fmt.Errorf("cannot finish upload: %w", err)
	}
	d.log.Info("Upload complete", logger.Int("bytes", len(data)), logger.Duration("elapsed", time.Since(ph.start)))
	return nil
}
