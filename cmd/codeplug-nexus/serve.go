package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/dbehnke/codeplug-nexus/pkg/callsigndb"
	"github.com/dbehnke/codeplug-nexus/pkg/logger"
	"github.com/dbehnke/codeplug-nexus/pkg/metrics"
	"github.com/dbehnke/codeplug-nexus/pkg/radioid"
	"github.com/dbehnke/codeplug-nexus/pkg/web"
)

func (a *app) radioIDConfig(collector *metrics.Collector) radioid.Config {
	cfg := radioid.Config{
		URL:      a.cfg.RadioID.URL,
		Interval: a.cfg.RadioID.SyncInterval,
	}
	if collector != nil {
		cfg.OnSync = collector.SetRadioIDUsers
	}
	return cfg
}

func runSync(a *app, args []string) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := signalContext()
	defer cancel()
	n, err := radioid.NewSyncer(db.Users(), a.radioIDConfig(nil), a.log).Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "DMR user table holds %d users\n", n)
	return nil
}

func runCallsignDB(a *app, args []string) error {
	fs := flag.NewFlagSet("callsigndb", flag.ContinueOnError)
	output := fs.String("o", "callsigns.bin", "Output file")
	limit := fs.Int("limit", a.cfg.CallsignDB.Limit, "Maximum number of entries")
	near := fs.Uint("near", uint(a.cfg.CallsignDB.Near), "Prefer IDs closest to this one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	users, err := db.Users().CallsignUsers()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return errors.New("the DMR user table is empty; run sync first")
	}
	img, err := callsigndb.Encode(users, callsigndb.Selection{Limit: *limit, Near: uint32(*near)})
	if err != nil {
		return err
	}
	entries, err := callsigndb.Decode(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, img.Flatten(), 0o644); err != nil {
		return fmt.Errorf("cannot write file '%s': %w", *output, err)
	}
	a.log.Info("Call-sign database written",
		logger.Int("entries", len(entries)),
		logger.Int("available", len(users)),
		logger.String("output", *output))
	return nil
}

func runServe(a *app, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	withRadio := fs.Bool("radio", false, "Open the programming cable and enable transfers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	collector := metrics.NewCollector()
	if n, err := db.Users().Count(); err == nil {
		collector.SetRadioIDUsers(n)
	}

	var wg sync.WaitGroup

	if a.cfg.Metrics.Enabled && a.cfg.Metrics.Prometheus.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv := metrics.NewPrometheusServer(metrics.PrometheusConfig{
				Enabled: true,
				Port:    a.cfg.Metrics.Prometheus.Port,
				Path:    a.cfg.Metrics.Prometheus.Path,
			}, collector, a.log)
			if err := srv.Start(ctx); err != nil && err != context.Canceled {
				a.log.Error("Prometheus metrics server error", logger.Error(err))
			}
		}()
	}

	if a.cfg.RadioID.Enabled {
		syncer := radioid.NewSyncer(db.Users(), a.radioIDConfig(collector), a.log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			syncer.Start(ctx)
		}()
	}

	srv := web.NewServer(a.cfg.Web, web.NewAPI(db.Snapshots(), collector, a.log), a.log)
	if a.cfg.Metrics.Enabled {
		srv.Mount(a.cfg.Metrics.Prometheus.Path, metrics.NewPrometheusHandler(collector))
	}
	if *withRadio {
		radio, err := a.openRadio()
		if err != nil {
			a.log.Warn("Transfers disabled, cannot open radio", logger.Error(err))
		} else {
			defer func() { _ = radio.Device().Close() }()
			srv.AttachRadio(web.RadioLink{Radio: radio, ImageSize: a.cfg.Transfer.ImageSize})
		}
	}

	a.log.Info("codeplug-nexus serving",
		logger.String("version", version),
		logger.Bool("web", a.cfg.Web.Enabled),
		logger.Bool("radioid", a.cfg.RadioID.Enabled))

	err = srv.Start(ctx)
	if !a.cfg.Web.Enabled {
		<-ctx.Done()
	}
	cancel()
	wg.Wait()
	a.log.Info("codeplug-nexus stopped")

	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
