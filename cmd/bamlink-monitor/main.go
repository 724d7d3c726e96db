// Command bamlink-monitor connects to LAN-mode printers and follows their
// state.
//
// The monitor maintains one session per configured printer, listens for
// SSDP announcements from printers that are not yet configured, and offers
// an interactive console for sending commands.
//
// Usage:
//
//	bamlink-monitor [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-state string         Printer registry file path (default "bamlink.json")
//	-protocol-log string  Write a protocol capture file (CBOR)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-no-discovery         Disable the SSDP listener
//	-no-console           Run headless, without the interactive console
//
// Examples:
//
//	# Connect to the printers listed in a config file
//	bamlink-monitor -config monitor.yaml
//
//	# Reconnect to previously registered printers, capturing traffic
//	bamlink-monitor -protocol-log session.blog
//
//	# Headless operation with verbose logging
//	bamlink-monitor -no-console -log-level debug
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/spoolbuddy/bamlink-go/cmd/bamlink-monitor/interactive"
	"github.com/spoolbuddy/bamlink-go/pkg/discovery"
	"github.com/spoolbuddy/bamlink-go/pkg/manager"
	"github.com/spoolbuddy/bamlink-go/pkg/persistence"
	"github.com/spoolbuddy/bamlink-go/pkg/plog"
	"github.com/spoolbuddy/bamlink-go/pkg/printer"
)

// Config is the YAML configuration file shape.
type Config struct {
	// Printers to connect to at startup.
	Printers []PrinterConfig `yaml:"printers"`

	// Discovery toggles the SSDP listener (default on).
	Discovery *bool `yaml:"discovery,omitempty"`

	// StateFile overrides the registry file path.
	StateFile string `yaml:"state_file,omitempty"`
}

// PrinterConfig is one configured printer.
type PrinterConfig struct {
	Serial     string `yaml:"serial"`
	Address    string `yaml:"address"`
	AccessCode string `yaml:"access_code"`
	Name       string `yaml:"name,omitempty"`
}

func main() {
	var (
		configPath  string
		statePath   string
		capturePath string
		logLevel    string
		noDiscovery bool
		noConsole   bool
	)
	flag.StringVar(&configPath, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&statePath, "state", "bamlink.json", "Printer registry file path")
	flag.StringVar(&capturePath, "protocol-log", "", "Write a protocol capture file (CBOR)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&noDiscovery, "no-discovery", false, "Disable the SSDP listener")
	flag.BoolVar(&noConsole, "no-console", false, "Run headless, without the interactive console")
	flag.Parse()

	log := setupLogging(logLevel)

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	if cfg.StateFile != "" {
		statePath = cfg.StateFile
	}
	if cfg.Discovery != nil && !*cfg.Discovery {
		noDiscovery = true
	}

	// Protocol capture: always mirror into slog at debug, optionally append
	// to a capture file.
	protocolLog, closeCapture, err := buildProtocolLog(capturePath, log)
	if err != nil {
		log.Error("failed to open capture file", "path", capturePath, "error", err)
		os.Exit(1)
	}
	defer closeCapture()

	store := persistence.NewStore(statePath)

	mgr := manager.New(manager.Options{
		ProtocolLog: protocolLog,
		Log:         log,
	})
	defer mgr.Close()

	// Connect configured printers, then anything remembered in the registry.
	connected := map[string]bool{}
	for _, p := range cfg.Printers {
		pc := printer.Config{
			Serial:     p.Serial,
			Address:    p.Address,
			AccessCode: p.AccessCode,
			Name:       p.Name,
		}
		if err := connect(mgr, store, pc, log); err == nil {
			connected[p.Serial] = true
		}
	}
	stored, err := store.Configs()
	if err != nil {
		log.Warn("failed to load printer registry", "path", statePath, "error", err)
	}
	for _, pc := range stored {
		if connected[pc.Serial] {
			continue
		}
		_ = connect(mgr, store, pc, log)
	}

	// Discovery: record announced printers so they can be configured later.
	var disco *discovery.Service
	if !noDiscovery {
		disco = discovery.NewService(discovery.Options{
			Log:         log,
			ProtocolLog: protocolLog,
		})
		if err := disco.Start(); err != nil {
			log.Warn("discovery unavailable", "error", err)
			disco = nil
		} else {
			defer disco.Close()
			devices, cancel := disco.Subscribe()
			defer cancel()
			go recordDiscovered(devices, store, log)
		}
	}

	if noConsole {
		runHeadless(mgr, log)
		return
	}

	console, err := interactive.New(mgr, disco, store, log)
	if err != nil {
		log.Error("failed to start console", "error", err)
		os.Exit(1)
	}
	console.Run()
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

func loadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func buildProtocolLog(capturePath string, log *slog.Logger) (plog.Logger, func(), error) {
	adapter := plog.NewSlogAdapter(log)
	if capturePath == "" {
		return adapter, func() {}, nil
	}
	file, err := plog.NewFileLogger(capturePath)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := file.Close(); err != nil {
			log.Warn("failed to close capture file", "error", err)
		}
	}
	return plog.NewMultiLogger(file, adapter), closer, nil
}

func connect(mgr *manager.Manager, store *persistence.Store, cfg printer.Config, log *slog.Logger) error {
	if err := mgr.Connect(cfg); err != nil {
		log.Warn("failed to connect printer", "serial", cfg.Serial, "error", err)
		return err
	}
	log.Info("printer session started", "serial", cfg.Serial, "address", cfg.Address)
	if err := store.Upsert(persistence.Printer{
		Serial:     cfg.Serial,
		Address:    cfg.Address,
		AccessCode: cfg.AccessCode,
		Name:       cfg.Name,
	}); err != nil {
		log.Warn("failed to update printer registry", "serial", cfg.Serial, "error", err)
	}
	return nil
}

func recordDiscovered(devices <-chan discovery.Device, store *persistence.Store, log *slog.Logger) {
	for dev := range devices {
		log.Info("printer announced",
			"serial", dev.Serial, "name", dev.Name, "address", dev.Address, "model", dev.Model)
		if err := store.RecordDiscovered(dev); err != nil {
			log.Warn("failed to record discovered printer", "serial", dev.Serial, "error", err)
		}
	}
}

func runHeadless(mgr *manager.Manager, log *slog.Logger) {
	events, cancel := mgr.Subscribe()
	defer cancel()
	go func() {
		for event := range events {
			logEvent(log, event)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())
}

func logEvent(log *slog.Logger, event printer.Event) {
	switch event.Type {
	case printer.EventConnected:
		log.Info("printer connected", "serial", event.Serial)
	case printer.EventDisconnected:
		log.Info("printer disconnected", "serial", event.Serial)
	case printer.EventStateUpdated:
		if event.State != nil {
			log.Debug("printer state updated", "serial", event.Serial, "phase", event.State.Phase.String())
		}
	case printer.EventError:
		log.Warn("printer error", "serial", event.Serial, "message", event.Message)
	}
}
