// Package codeplug runs the two-pass decode and encode algorithms over a
// per-family table of record codecs.
//
// Decode creates every record kind in family order, then links them; encode
// assigns indices for every kind, then serializes every slot up to the
// family capacity. Both are all-or-nothing: a failed decode returns no
// configuration and a failed encode leaves the image untouched.
package codeplug

import (
	"fmt"
	"io"

	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/logger"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
)

// Family describes one radio model's binary layout
type Family struct {
	Name        string
	Description string
	// NewImage returns a default-filled image with the family's regions
	NewImage func() *image.Image
	// Records are ordered so that referenced kinds come first
	Records []RecordCodec
	// File maps the manufacturer file format onto the image
	File *FileLayout
}

// Codeplug owns one family image and runs codec passes over it
type Codeplug struct {
	family *Family
	img    *image.Image
	log    *logger.Logger
}

// New creates a codeplug with a fresh default image
func New(family *Family, log *logger.Logger) *Codeplug {
	return Load(family, family.NewImage(), log)
}

// Load wraps an existing image, for instance one read from a device or file
func Load(family *Family, img *image.Image, log *logger.Logger) *Codeplug {
	if log == nil {
		log = logger.New(logger.Config{Level: "error", Output: io.Discard})
	}
	return &Codeplug{
		family: family,
		img:    img,
		log:    log.WithComponent("codeplug"),
	}
}

// Family returns the codeplug family
func (c *Codeplug) Family() *Family { return c.family }

// Image returns the binary image
func (c *Codeplug) Image() *image.Image { return c.img }

// Decode builds a configuration from the image
func (c *Codeplug) Decode() (*model.Config, error) {
	cfg := model.NewConfig()
	ctx := NewContext()

	for _, rc := range c.family.Records {
		if err := rc.Create(c.img, cfg, ctx); err != nil {
			c.log.Error("Decode failed", logger.String("family", c.family.Name), logger.String("kind", rc.Name()), logger.Error(err))
			return nil, fmt.Errorf("cannot decode %s codeplug: %w", c.family.Name, err)
		}
		c.log.Debug("Created records", logger.String("kind", rc.Name()), logger.Int("count", ctx.Count(rc.Name())))
	}
	for _, rc := range c.family.Records {
		if err := rc.Link(c.img, cfg, ctx); err != nil {
			c.log.Error("Decode failed", logger.String("family", c.family.Name), logger.String("kind", rc.Name()), logger.Error(err))
			return nil, fmt.Errorf("cannot decode %s codeplug: %w", c.family.Name, err)
		}
	}

	c.log.Info("Decoded codeplug",
		logger.String("family", c.family.Name),
		logger.Int("channels", len(cfg.Channels)),
		logger.Int("contacts", len(cfg.Contacts)),
		logger.Int("zones", len(cfg.Zones)))
	return cfg, nil
}

// Encode serializes cfg into the image. The passes run on a copy that is
// committed only when every pass succeeded.
func (c *Codeplug) Encode(cfg *model.Config, flags Flags) error {
	work := c.img.Clone()
	ctx := NewContext()

	for _, rc := range c.family.Records {
		if err := rc.Index(cfg, ctx); err != nil {
			c.log.Error("Encode failed", logger.String("family", c.family.Name), logger.String("kind", rc.Name()), logger.Error(err))
			return fmt.Errorf("cannot encode %s codeplug: %w", c.family.Name, err)
		}
	}
	for _, rc := range c.family.Records {
		if err := rc.Encode(work, cfg, ctx, flags); err != nil {
			c.log.Error("Encode failed", logger.String("family", c.family.Name), logger.String("kind", rc.Name()), logger.Error(err))
			return fmt.Errorf("cannot encode %s codeplug: %w", c.family.Name, err)
		}
	}

	if err := c.img.CopyFrom(work); err != nil {
		return fmt.Errorf("cannot encode %s codeplug: %w", c.family.Name, err)
	}
	c.log.Info("Encoded codeplug",
		logger.String("family", c.family.Name),
		logger.Int("channels", len(cfg.Channels)),
		logger.Bool("update", flags.UpdateCodeplug))
	return nil
}
