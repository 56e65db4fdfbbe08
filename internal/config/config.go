// Package config loads agent settings from defaults, an optional pos.toml or
// pos.yaml file, .env files and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"kolamart/pos/internal/order"
	"kolamart/pos/internal/printer"
	"kolamart/pos/internal/receipt"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	TransportAuto   = "auto"
	TransportSerial = "serial"
	TransportGATT   = "gatt"
)

// Environment variables read on top of the file.
const (
	EnvOrderURL  = "NEXT_PUBLIC_SHEET_SCRIPT_URL"
	EnvBillURL   = "NEXT_PUBLIC_SHEET_SCRIPT_URL_BILL"
	EnvAddr      = "POS_ADDR"
	EnvEnv       = "POS_ENV"
	EnvTransport = "POS_PRINTER_TRANSPORT"
	EnvConfig    = "POS_CONFIG"
	EnvLogLevel  = "POS_LOG_LEVEL"
	EnvFallbacks = "POS_SUBMIT_FALLBACKS"

	EnvRequirePrinter = "POS_REQUIRE_PRINTER"
)

var ErrUnknownFormat = errors.New("unknown config file format")

type Config struct {
	Env            string   `toml:"env" yaml:"env"`
	Addr           string   `toml:"addr" yaml:"addr"`
	LogLevel       string   `toml:"log_level" yaml:"log_level"`
	Workers        []string `toml:"workers" yaml:"workers"`
	RequirePrinter bool     `toml:"require_printer" yaml:"require_printer"`

	Sheet   Sheet         `toml:"sheet" yaml:"sheet"`
	Printer Printer       `toml:"printer" yaml:"printer"`
	Shop    receipt.Shop  `toml:"shop" yaml:"shop"`
	Catalog order.Catalog `toml:"catalog" yaml:"catalog"`
	CORS    CORS          `toml:"cors" yaml:"cors"`
}

type Sheet struct {
	OrderURL string `toml:"order_url" yaml:"order_url"`
	BillURL  string `toml:"bill_url" yaml:"bill_url"`
	// ProxyTimeout bounds forwarded requests; zero means no limit.
	ProxyTimeout  time.Duration `toml:"proxy_timeout" yaml:"proxy_timeout"`
	SubmitTimeout time.Duration `toml:"submit_timeout" yaml:"submit_timeout"`
	Fallbacks     []string      `toml:"fallbacks" yaml:"fallbacks"`
}

type Printer struct {
	Transport  string               `toml:"transport" yaml:"transport"`
	ChunkSize  int                  `toml:"chunk_size" yaml:"chunk_size"`
	ChunkDelay time.Duration        `toml:"chunk_delay" yaml:"chunk_delay"`
	Serial     printer.SerialConfig `toml:"serial" yaml:"serial"`
	GATT       printer.GATTConfig   `toml:"gatt" yaml:"gatt"`
}

type CORS struct {
	Origins []string `toml:"origins" yaml:"origins"`
}

func Default() *Config {
	return &Config{
		Env:      EnvDevelopment,
		Addr:     ":8080",
		LogLevel: "info",
		Workers:  append([]string(nil), order.DefaultWorkers...),
		Sheet: Sheet{
			SubmitTimeout: 10 * time.Second,
		},
		Printer: Printer{
			Transport:  TransportAuto,
			ChunkSize:  printer.ChunkSize,
			ChunkDelay: printer.ChunkDelay,
			Serial: printer.SerialConfig{
				BaudRate: 9600,
				Ports:    []string{"/dev/rfcomm0"},
			},
			GATT: printer.GATTConfig{
				Service:        printer.ServiceUUID,
				Characteristic: printer.CharacteristicUUID,
				ScanTimeout:    printer.ScanTimeout,
			},
		},
		Shop:    receipt.DefaultShop(),
		Catalog: order.DefaultCatalog(),
		CORS:    CORS{Origins: []string{"*"}},
	}
}

func (c *Config) Production() bool { return c.Env == EnvProduction }

// Load reads .env.local and .env (when present) into the process
// environment, then resolves the config from path, or from POS_CONFIG when
// path is empty.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(".env.local", ".env"); err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	return Resolve(path, os.LookupEnv)
}

// LoadEnvFiles loads the files that exist. Variables already set win over
// the files, and earlier files win over later ones.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Resolve builds a config from defaults, the file at path (if any) and
// lookup.
func Resolve(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg, lookup)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set(EnvOrderURL, &cfg.Sheet.OrderURL)
	set(EnvBillURL, &cfg.Sheet.BillURL)
	set(EnvAddr, &cfg.Addr)
	set(EnvEnv, &cfg.Env)
	set(EnvTransport, &cfg.Printer.Transport)
	set(EnvLogLevel, &cfg.LogLevel)

	if v, ok := lookup(EnvFallbacks); ok && strings.TrimSpace(v) != "" {
		cfg.Sheet.Fallbacks = splitList(v)
	}
	if v, ok := lookup(EnvRequirePrinter); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RequirePrinter = b
		}
	}

	cfg.Env = strings.ToLower(cfg.Env)
	cfg.Printer.Transport = strings.ToLower(cfg.Printer.Transport)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	switch c.Printer.Transport {
	case TransportAuto, TransportSerial, TransportGATT:
	default:
		return fmt.Errorf("printer transport must be auto, serial or gatt, got %q", c.Printer.Transport)
	}
	if len(c.Workers) == 0 {
		return errors.New("at least one worker id is required")
	}
	if c.Printer.ChunkSize <= 0 {
		return fmt.Errorf("printer chunk size must be positive, got %d", c.Printer.ChunkSize)
	}
	seen := make(map[string]bool, len(c.Catalog))
	for _, it := range c.Catalog {
		code := strings.ToUpper(strings.TrimSpace(it.Code))
		switch {
		case code == "" || it.Label == "":
			return errors.New("catalog items need a code and a label")
		case seen[code]:
			return fmt.Errorf("duplicate catalog code %q", it.Code)
		case it.Price < 0:
			return fmt.Errorf("catalog item %q has a negative price", it.Code)
		}
		seen[code] = true
	}
	return nil
}
