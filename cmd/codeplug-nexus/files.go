package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dbehnke/codeplug-nexus/pkg/codeplug"
	"github.com/dbehnke/codeplug-nexus/pkg/cpsfile"
	"github.com/dbehnke/codeplug-nexus/pkg/database"
	"github.com/dbehnke/codeplug-nexus/pkg/families"
	"github.com/dbehnke/codeplug-nexus/pkg/logger"
	"github.com/dbehnke/codeplug-nexus/pkg/model"
	"github.com/dbehnke/codeplug-nexus/pkg/web"
)

func (a *app) openDB() (*database.DB, error) {
	return database.NewDB(database.Config{Path: a.cfg.Database.Path}, a.log)
}

// archive stores data as a snapshot. Archive failures are logged, not fatal.
func (a *app) archive(family, source, name string, data []byte) {
	db, err := a.openDB()
	if err != nil {
		a.log.Warn("Snapshot archive unavailable", logger.Error(err))
		return
	}
	defer func() { _ = db.Close() }()

	snap := &database.Snapshot{Family: family, Source: source, Name: name, Data: data}
	if err := db.Snapshots().Create(snap); err != nil {
		a.log.Warn("Failed to archive snapshot", logger.Error(err))
		return
	}
	a.log.Info("Snapshot archived",
		logger.Uint64("id", uint64(snap.ID)),
		logger.String("family", family),
		logger.String("sha256", snap.SHA256))
}

func runInfo(a *app, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	listModels := fs.Bool("models", false, "List supported families and CPS models")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *listModels {
		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FAMILY\tFILE SIZE\tDESCRIPTION")
		for _, f := range families.All() {
			size := "-"
			if f.File != nil {
				size = fmt.Sprint(f.File.Size)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, size, f.Description)
		}
		fmt.Fprintln(w, "\nCPS MODEL\tDECODER\tDESCRIPTION")
		for _, m := range cpsfile.Models() {
			fmt.Fprintf(w, "%s\t%t\t%s\n", m.Name, m.Supported(), m.Description)
		}
		return w.Flush()
	}

	if fs.NArg() != 1 {
		return errors.New("usage: " + commands["info"].usage)
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	if cpsfile.Detect(data) {
		f, err := cpsfile.Parse(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Format:     Anytone CPS container\n")
		fmt.Fprintf(a.out, "Model:      %s\n", f.Header.Model)
		fmt.Fprintf(a.out, "Version:    %s\n", f.Header.Version)
		fmt.Fprintf(a.out, "Hardware:   %s\n", f.Header.HWVersion)
		fmt.Fprintf(a.out, "Payload:    %d bytes\n", f.Header.PayloadSize)
		return nil
	}

	fam, img, err := families.Load(data, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Family:     %s (%s)\n", fam.Name, fam.Description)
	fmt.Fprintf(a.out, "File size:  %d bytes\n", len(data))
	fmt.Fprintf(a.out, "Image:      %d bytes in %d regions\n", img.Size(), len(img.Regions()))
	for _, r := range img.Regions() {
		fmt.Fprintf(a.out, "            0x%06x-0x%06x\n", r.Address(), r.End())
	}
	return nil
}

// decodeFile decodes a manufacturer file or CPS container. family may be
// empty to detect it.
func (a *app) decodeFile(path, family string) (string, *model.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	if cpsfile.Detect(data) {
		f, err := cpsfile.Parse(data)
		if err != nil {
			return "", nil, err
		}
		cfg, err := f.Decode()
		return strings.ToLower(f.Header.Model), cfg, err
	}
	fam, img, err := families.Load(data, family)
	if err != nil {
		return "", nil, err
	}
	cfg, err := codeplug.Load(fam, img, a.log).Decode()
	if err != nil {
		return "", nil, fmt.Errorf("cannot decode %s: %w", path, err)
	}
	return fam.Name, cfg, nil
}

func printTable[T any](w io.Writer, title string, props []model.Property[T], items []*T) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d)\n", title, len(items))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := make([]string, len(props))
	for i, p := range props {
		header[i] = strings.ToUpper(p.Name)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, item := range items {
		vals := model.Describe(props, item)
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = v.Value
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

func printConfig(w io.Writer, family string, cfg *model.Config) {
	fmt.Fprintf(w, "Family: %s\n", family)
	if cfg.Settings.IntroLine1 != "" || cfg.Settings.IntroLine2 != "" {
		fmt.Fprintf(w, "Intro:  %q %q\n", cfg.Settings.IntroLine1, cfg.Settings.IntroLine2)
	}
	if !cfg.Settings.Timestamp.IsZero() {
		fmt.Fprintf(w, "Last programmed: %s\n", cfg.Settings.Timestamp.Format("2006-01-02 15:04"))
	}
	printTable(w, "Radio IDs", model.RadioIDProperties, cfg.RadioIDs)
	printTable(w, "Contacts", model.ContactProperties, cfg.Contacts)
	printTable(w, "Group lists", model.GroupListProperties, cfg.GroupLists)
	printTable(w, "Channels", model.ChannelProperties, cfg.Channels)
	printTable(w, "Zones", model.ZoneProperties, cfg.Zones)
	printTable(w, "Scan lists", model.ScanListProperties, cfg.ScanLists)
	printTable(w, "GPS systems", model.GPSSystemProperties, cfg.GPSSystems)
}

func runDecode(a *app, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	family := fs.String("family", a.cfg.Codeplug.Family, "Radio family; empty detects it from the file")
	asJSON := fs.Bool("json", false, "Print JSON")
	archive := fs.Bool("archive", false, "Store the file in the snapshot archive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: " + commands["decode"].usage)
	}

	name, cfg, err := a.decodeFile(fs.Arg(0), *family)
	if err != nil {
		return err
	}
	if *archive {
		data, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			return err
		}
		a.archive(name, database.SourceFile, filepath.Base(fs.Arg(0)), data)
	}

	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(web.NewConfigView(name, cfg))
	}
	printConfig(a.out, name, cfg)
	return nil
}

func runConvert(a *app, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	to := fs.String("to", "", "Target family")
	from := fs.String("from", a.cfg.Codeplug.Family, "Source family; empty detects it")
	base := fs.String("base", "", "Target-family file to encode over, keeping its device settings")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *to == "" || fs.NArg() != 2 {
		return errors.New("usage: " + commands["convert"].usage)
	}

	source, cfg, err := a.decodeFile(fs.Arg(0), *from)
	if err != nil {
		return err
	}
	target, err := families.Lookup(*to)
	if err != nil {
		return err
	}
	if target.File == nil {
		return fmt.Errorf("family %s has no file format", target.Name)
	}

	flags := codeplug.Flags{AutoTimestamp: a.cfg.Codeplug.AutoTimestamp}
	cp := codeplug.New(target, a.log)
	if *base != "" {
		_, img, err := families.ReadFile(*base, target.Name)
		if err != nil {
			return err
		}
		cp = codeplug.Load(target, img, a.log)
		flags.UpdateCodeplug = true
	}
	if err := cp.Encode(cfg, flags); err != nil {
		return fmt.Errorf("cannot encode for %s: %w", target.Name, err)
	}

	data, err := target.File.Write(cp.Image())
	if err != nil {
		return err
	}
	if err := os.WriteFile(fs.Arg(1), data, 0o644); err != nil {
		return fmt.Errorf("cannot write file '%s': %w", fs.Arg(1), err)
	}
	a.log.Info("Converted codeplug",
		logger.String("from", source),
		logger.String("to", target.Name),
		logger.Int("channels", len(cfg.Channels)),
		logger.String("output", fs.Arg(1)))
	a.archive(target.Name, database.SourceEncode, filepath.Base(fs.Arg(1)), data)
	return nil
}
