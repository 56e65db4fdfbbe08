// Package agent wires the printer bridge, the Apps Script client, the
// booking flow and the HTTP server from one config.
package agent

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"kolamart/pos/internal/booking"
	"kolamart/pos/internal/config"
	"kolamart/pos/internal/logger"
	"kolamart/pos/internal/order"
	"kolamart/pos/internal/printer"
	"kolamart/pos/internal/server"
	"kolamart/pos/internal/sheet"
)

type Agent struct {
	// Config is the startup config; reloads go through Apply.
	Config  *config.Config
	Log     *logger.Logger
	Bridge  *printer.Bridge
	Sheet   *sheet.Client
	Booking *booking.Service
	Server  *server.Server
}

// New builds an agent. picker chooses printers on SelectDevice; nil picks
// automatically. Call it once per process: it sets gin's global mode.
func New(cfg *config.Config, log *logger.Logger, picker printer.Picker) (*Agent, error) {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	transports, err := Transports(cfg.Printer, log)
	if err != nil {
		return nil, err
	}

	bridge := printer.NewBridge(printer.Options{
		Picker:     picker,
		Logger:     log.Named("printer"),
		ChunkSize:  cfg.Printer.ChunkSize,
		ChunkDelay: cfg.Printer.ChunkDelay,
	}, transports...)

	client := sheet.NewClient(log.Named("sheet"))
	svc := booking.NewService(bridge, client, Target(cfg), booking.Options{
		Validator:      order.NewValidator(cfg.Workers),
		Logger:         log.Named("booking"),
		Shop:           cfg.Shop,
		Catalog:        cfg.Catalog,
		RequirePrinter: cfg.RequirePrinter,
	})
	srv := server.New(server.Deps{
		Config:  cfg,
		Printer: bridge,
		Booking: svc,
		Sheet:   client,
		Logger:  log.Named("http"),
	})

	return &Agent{Config: cfg, Log: log, Bridge: bridge, Sheet: client, Booking: svc, Server: srv}, nil
}

// Transports returns the configured transports in preference order. Auto
// prefers the serial port, which needs no scan, over BLE.
func Transports(cfg config.Printer, log *logger.Logger) ([]printer.Transport, error) {
	var out []printer.Transport
	add := func(kind string) error {
		switch kind {
		case config.TransportSerial:
			out = append(out, printer.NewSerialTransport(cfg.Serial))
		case config.TransportGATT:
			t, err := printer.NewGATTTransport(cfg.GATT)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	}

	switch cfg.Transport {
	case config.TransportSerial, config.TransportGATT:
		if err := add(cfg.Transport); err != nil {
			return nil, err
		}
	default:
		if err := add(config.TransportSerial); err != nil {
			return nil, err
		}
		if err := add(config.TransportGATT); err != nil {
			log.Warn("gatt_transport_disabled", map[string]any{"reason": err.Error()})
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no printer transport configured")
	}
	return out, nil
}

// Target is the direct submission target for orders.
func Target(cfg *config.Config) sheet.Target {
	return sheet.Target{
		URL:       cfg.Sheet.OrderURL,
		Timeout:   cfg.Sheet.SubmitTimeout,
		Fallbacks: cfg.Sheet.Fallbacks,
	}
}

// Apply hands a reloaded config to the parts that can change at runtime.
func (a *Agent) Apply(cfg *config.Config) {
	a.Booking.Update(Target(cfg), cfg.Shop, cfg.Catalog, cfg.RequirePrinter)
	a.Server.Update(cfg)
}

// Run reconnects to the last trusted printer, follows config changes when
// path is set and serves HTTP until ctx is done.
func (a *Agent) Run(ctx context.Context, addr, path string) error {
	go func() {
		if dev, ok := a.Bridge.Reconnect(ctx); ok {
			a.Log.Info("printer_auto_reconnected", map[string]any{"device": dev.Label()})
		}
	}()

	if path != "" {
		go func() {
			if err := config.Watch(ctx, path, a.Log.Named("config"), a.Apply); err != nil {
				a.Log.Error("config_watch_failed", err, map[string]any{"path": path})
			}
		}()
	}

	err := a.Server.Run(ctx, addr)
	if derr := a.Bridge.Disconnect(); derr != nil {
		a.Log.Warn("printer_disconnect_on_exit", map[string]any{"reason": derr.Error()})
	}
	return err
}
