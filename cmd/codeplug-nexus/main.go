package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dbehnke/codeplug-nexus/pkg/config"
	"github.com/dbehnke/codeplug-nexus/pkg/logger"
	"github.com/dbehnke/codeplug-nexus/pkg/web"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// app carries what every command needs
type app struct {
	cfg *config.Config
	log *logger.Logger
	out io.Writer
}

type command struct {
	usage string
	run   func(a *app, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"info":       {"info [-models] <file>", runInfo},
		"decode":     {"decode [-family f] [-json] [-archive] <file>", runDecode},
		"convert":    {"convert -to family [-from family] [-base file] <in> <out>", runConvert},
		"download":   {"download [-o file]", runDownload},
		"upload":     {"upload [-update=bool] <file>", runUpload},
		"ports":      {"ports", runPorts},
		"callsigndb": {"callsigndb [-o file] [-limit n] [-near id]", runCallsignDB},
		"sync":       {"sync", runSync},
		"serve":      {"serve [-radio]", runServe},
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: codeplug-nexus [flags] <command> [args]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
}

func newLogger(cfg config.LoggingConfig) (*logger.Logger, error) {
	lc := logger.Config{Level: cfg.Level, Format: cfg.Format, Output: os.Stderr}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("cannot open log file: %w", err)
		}
		lc.Output = f
	}
	return logger.New(lc), nil
}

func main() {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("codeplug-nexus %s (commit %s, built %s)\n", version, commit, buildTime)
		os.Exit(0)
	}
	web.SetVersionInfo(version, commit, buildTime)

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *validate {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	a := &app{cfg: cfg, log: log, out: os.Stdout}
	if err := cmd.run(a, flag.Args()[1:]); err != nil {
		log.Error("Command failed", logger.String("command", flag.Arg(0)), logger.Error(err))
		os.Exit(1)
	}
}
