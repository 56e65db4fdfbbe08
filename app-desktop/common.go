package main

import (
	"flag"
	"os"

	"kolamart/pos/internal/agent"
	"kolamart/pos/internal/config"
	"kolamart/pos/internal/logger"
	"kolamart/pos/internal/order"
	"kolamart/pos/internal/printer"
)

type options struct {
	configPath string
	addr       string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to pos.toml or pos.yaml (default $POS_CONFIG)")
	flag.StringVar(&o.addr, "addr", "", "listen address (default $POS_ADDR or :8080)")
	flag.Parse()
	return o
}

// setup loads the config and builds the agent the window or console drives.
func setup(o *options, picker printer.Picker) (*agent.Agent, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.configPath == "" {
		o.configPath = os.Getenv(config.EnvConfig)
	}
	if o.addr == "" {
		o.addr = cfg.Addr
	}

	log := logger.NewWithWriter("pos-desktop", os.Stdout, logger.ParseLevel(cfg.LogLevel))
	return agent.New(cfg, log, picker)
}

// testOrder is printed by "Test Print"; it is never submitted.
func testOrder() order.Order {
	return order.Order{
		WorkerID:     "SME-01",
		CustomerName: "Test Customer",
		Phone:        "9999999999",
		Item:         "Test Item",
		Quantity:     1,
		Price:        1,
		PaymentMode:  order.PaymentCash,
	}
}
