package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kolamart/pos/internal/agent"
	"kolamart/pos/internal/config"
	"kolamart/pos/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to pos.toml or pos.yaml (default $POS_CONFIG)")
	addr := flag.String("addr", "", "listen address (default $POS_ADDR or :8080)")
	flag.Parse()

	if err := run(*configPath, *addr); err != nil {
		fmt.Fprintln(os.Stderr, "kolamart-pos:", err)
		os.Exit(1)
	}
}

func run(configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if configPath == "" {
		configPath = os.Getenv(config.EnvConfig)
	}
	if addr == "" {
		addr = cfg.Addr
	}

	log := logger.NewWithWriter("pos-agent", os.Stdout, logger.ParseLevel(cfg.LogLevel))

	a, err := agent.New(cfg, log, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Kolamart POS agent running on", addr)
	return a.Run(ctx, addr, configPath)
}
