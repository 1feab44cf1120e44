package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dbehnke/codeplug-nexus/pkg/database"
	"github.com/dbehnke/codeplug-nexus/pkg/image"
	"github.com/dbehnke/codeplug-nexus/pkg/logger"
	"github.com/dbehnke/codeplug-nexus/pkg/transfer"
	"github.com/dbehnke/codeplug-nexus/pkg/transfer/kydera"
	"github.com/dbehnke/codeplug-nexus/pkg/transfer/serialport"
	"github.com/dbehnke/codeplug-nexus/pkg/web"
	"github.com/schollz/progressbar/v3"
)

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newImage returns an erased image of the configured transfer size
func (a *app) newImage() (*image.Image, error) {
	img, err := image.FromBytes("radio", 0xff, nil, a.cfg.Transfer.ImageSize)
	if err != nil {
		return nil, fmt.Errorf("transfer.image_size %d: %w", a.cfg.Transfer.ImageSize, err)
	}
	return img, nil
}

// openRadio opens the programming cable and wraps it in a Radio
func (a *app) openRadio() (*transfer.Radio, error) {
	blank, err := a.newImage()
	if err != nil {
		return nil, err
	}
	port, err := serialport.Open(serialport.Config{
		Port:        a.cfg.Serial.Port,
		BaudRate:    a.cfg.Serial.BaudRate,
		ReadTimeout: a.cfg.Serial.ReadTimeout,
		VID:         a.cfg.Serial.VID,
		PID:         a.cfg.Serial.PID,
	})
	if err != nil {
		return nil, err
	}
	iface := kydera.New(port,
		kydera.WithTimeout(a.cfg.Transfer.Timeout),
		kydera.WithLogger(a.log))
	return transfer.NewRadio(iface, transfer.RadioConfig{
		NewImage: blank.Clone,
		Log:      a.log,
	}), nil
}

// withProgress renders the radio's progress events until the returned
// function is called
func (a *app) withProgress(radio *transfer.Radio, description string) func() {
	bar := progressbar.NewOptions(1000,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)
	unsubscribe := radio.Progress().Subscribe(func(p transfer.Progress) {
		_ = bar.Set(int(p.Fraction * 1000))
	})
	return func() {
		unsubscribe()
		_ = bar.Finish()
	}
}

func (a *app) identify(ctx context.Context, radio *transfer.Radio) error {
	info, err := radio.Device().Identify(ctx)
	if err != nil {
		return fmt.Errorf("cannot identify radio: %w", err)
	}
	fmt.Fprintf(a.out, "Radio: %s\n", info)
	return nil
}

func runDownload(a *app, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	output := fs.String("o", "", "Output file; default is a timestamped name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		*output = time.Now().Format("codeplug-20060102-150405.bin")
	}

	radio, err := a.openRadio()
	if err != nil {
		return err
	}
	defer func() { _ = radio.Device().Close() }()

	ctx, cancel := signalContext()
	defer cancel()
	if err := a.identify(ctx, radio); err != nil {
		return err
	}

	done := a.withProgress(radio, "Reading")
	res := <-radio.StartDownload(ctx)
	done()
	if res.Err != nil {
		return res.Err
	}

	data := res.Image.Flatten()
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		return fmt.Errorf("cannot write file '%s': %w", *output, err)
	}
	fmt.Fprintf(a.out, "Saved %d bytes to %s\n", len(data), *output)
	a.archive(web.RawFamily, database.SourceDownload, *output, data)
	return nil
}

func runUpload(a *app, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	update := fs.Bool("update", a.cfg.Transfer.Update, "Read the radio first and keep bytes past the end of the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: " + commands["upload"].usage)
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if len(data) > a.cfg.Transfer.ImageSize {
		return fmt.Errorf("%s is %d bytes, the radio holds %d", fs.Arg(0), len(data), a.cfg.Transfer.ImageSize)
	}

	radio, err := a.openRadio()
	if err != nil {
		return err
	}
	defer func() { _ = radio.Device().Close() }()

	ctx, cancel := signalContext()
	defer cancel()
	if err := a.identify(ctx, radio); err != nil {
		return err
	}

	done := a.withProgress(radio, "Writing")
	if *update {
		var img *image.Image
		if img, err = a.newImage(); err != nil {
			done()
			return err
		}
		err = radio.Device().Upload(ctx, img, true, func(img *image.Image) error {
			copy(img.Regions()[0].Bytes(), data)
			return nil
		})
	} else {
		img, ferr := image.FromBytes("upload", 0xff, data, a.cfg.Transfer.ImageSize)
		if ferr != nil {
			done()
			return ferr
		}
		err = (<-radio.StartUploadImage(ctx, img)).Err
	}
	done()
	if err != nil {
		return err
	}
	a.log.Info("Upload complete", logger.String("file", fs.Arg(0)), logger.Bool("update", *update))
	return nil
}

func runPorts(a *app, args []string) error {
	names, err := serialport.List()
	if err != nil {
		return err
	}
	detected, derr := serialport.Find(nil, a.cfg.Serial.VID, a.cfg.Serial.PID)
	for _, name := range names {
		mark := ""
		if derr == nil && name == detected {
			mark = "  (programming cable)"
		}
		fmt.Fprintf(a.out, "%s%s\n", name, mark)
	}
	if len(names) == 0 {
		fmt.Fprintln(a.out, "No serial ports found")
	}
	return nil
}
