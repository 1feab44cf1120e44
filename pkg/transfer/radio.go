package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/logger"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

// ErrNoFamily is returned when a configuration operation is started on a
// radio without a codeplug family
var ErrNoFamily = errors.New("radio has no codeplug family")

// Result is delivered once per started operation
type Result struct {
	Operation string
	Image     *image.Image
	// Config is the decoded download; nil for uploads and raw transfers
	Config *model.Config
	Err    error
}

// RadioConfig configures a Radio
type RadioConfig struct {
	// Family decodes downloads and encodes uploads; nil restricts the radio
	// to raw image transfers
	Family *codeplug.Family
	// NewImage returns the transfer image; defaults to Family.NewImage
	NewImage func() *image.Image
	Log      *logger.Logger
}

// Radio runs downloads and uploads on a worker goroutine. Operations queue
// on the underlying Device.
type Radio struct {
	dev      *Device
	family   *codeplug.Family
	newImage func() *image.Image
	log      *logger.Logger
	events   *Broadcaster
}

// NewRadio wraps iface
func NewRadio(iface Interface, cfg RadioConfig) *Radio {
	r := &Radio{
		family:   cfg.Family,
		newImage: cfg.NewImage,
		log:      cfg.Log,
		events:   NewBroadcaster(),
	}
	if r.newImage == nil && r.family != nil {
		r.newImage = r.family.NewImage
	}
	r.dev = NewDevice(iface, WithLogger(cfg.Log), WithProgress(r.events.Publish))
	return r
}

// Device returns the underlying device
func (r *Radio) Device() *Device { return r.dev }

// Progress returns the broadcaster receiving every block event
func (r *Radio) Progress() *Broadcaster { return r.events }

func (r *Radio) run(op string, fn func() Result) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		res := fn()
		res.Operation = op
		out <- res
	}()
	return out
}

// StartDownload reads the radio and decodes the image when a family is set
func (r *Radio) StartDownload(ctx context.Context) <-chan Result {
	return r.run(OpDownload, func() Result {
		if r.newImage == nil {
			return Result{Err: ErrNoFamily}
		}
		img := r.newImage()
		if err := r.dev.Download(ctx, img); err != nil {
			return Result{Err: err}
		}
		if r.family == nil {
			return Result{Image: img}
		}
		cfg, err := codeplug.Load(r.family, img, r.log).Decode()
		return Result{Image: img, Config: cfg, Err: err}
	})
}

// StartUpload encodes cfg and writes it. With flags.UpdateCodeplug the
// radio is read first and cfg is encoded over the device image.
func (r *Radio) StartUpload(ctx context.Context, cfg *model.Config, flags codeplug.Flags) <-chan Result {
	return r.run(OpUpload, func() Result {
		if r.family == nil {
			return Result{Err: ErrNoFamily}
		}
		img := r.newImage()
		err := r.dev.Upload(ctx, img, flags.UpdateCodeplug, func(img *image.Image) error {
			if err := codeplug.Load(r.family, img, r.log).Encode(cfg, flags); err != nil {
				return fmt.Errorf("cannot encode configuration: %w", err)
			}
			return nil
		})
		return Result{Image: img, Err: err}
	})
}

// StartUploadImage writes an already encoded image
func (r *Radio) StartUploadImage(ctx context.Context, img *image.Image) <-chan Result {
	return r.run(OpUpload, func() Result {
		return Result{Image: img, Err: r.dev.Upload(ctx, img, false, nil)}
	})
}
