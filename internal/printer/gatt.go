package printer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

const (
	ServiceUUID        = "000018f0-0000-1000-8000-00805f9b34fb"
	CharacteristicUUID = "00002af1-0000-1000-8000-00805f9b34fb"
	ScanTimeout        = 8 * time.Second
)

type GATTConfig struct {
	Service        string        `toml:"service" yaml:"service"`
	Characteristic string        `toml:"characteristic" yaml:"characteristic"`
	ScanTimeout    time.Duration `toml:"scan_timeout" yaml:"scan_timeout"`
}

// GATTTransport writes to the printer's single write characteristic over
// Bluetooth Low Energy.
type GATTTransport struct {
	cfg     GATTConfig
	adapter *bluetooth.Adapter
	service bluetooth.UUID
	char    bluetooth.UUID

	enableOnce sync.Once
	enableErr  error

	mu    sync.Mutex
	seen  map[string]seenDevice
	known map[string]seenDevice
	lost  map[string]chan struct{}
}

type seenDevice struct {
	addr bluetooth.Address
	name string
}

func NewGATTTransport(cfg GATTConfig) (*GATTTransport, error) {
	if cfg.Service == "" {
		cfg.Service = ServiceUUID
	}
	if cfg.Characteristic == "" {
		cfg.Characteristic = CharacteristicUUID
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = ScanTimeout
	}

	svc, err := bluetooth.ParseUUID(cfg.Service)
	if err != nil {
		return nil, fmt.Errorf("gatt service uuid: %w", err)
	}
	char, err := bluetooth.ParseUUID(cfg.Characteristic)
	if err != nil {
		return nil, fmt.Errorf("gatt characteristic uuid: %w", err)
	}

	return &GATTTransport{
		cfg:     cfg,
		adapter: bluetooth.DefaultAdapter,
		service: svc,
		char:    char,
		seen:    map[string]seenDevice{},
		known:   map[string]seenDevice{},
		lost:    map[string]chan struct{}{},
	}, nil
}

func (t *GATTTransport) Kind() Kind { return KindGATT }

func (t *GATTTransport) enable() error {
	t.enableOnce.Do(func() {
		t.enableErr = t.adapter.Enable()
		if t.enableErr != nil {
			return
		}
		t.adapter.SetConnectHandler(func(d bluetooth.Device, connected bool) {
			if connected {
				return
			}
			t.mu.Lock()
			ch, ok := t.lost[d.Address.String()]
			delete(t.lost, d.Address.String())
			t.mu.Unlock()
			if ok {
				close(ch)
			}
		})
	})
	return t.enableErr
}

func (t *GATTTransport) Available(ctx context.Context) bool {
	return t.enable() == nil
}

// Discover scans for ScanTimeout. Filtered scans keep only devices that
// advertise the printer service.
func (t *GATTTransport) Discover(ctx context.Context, filtered bool) ([]Device, error) {
	if err := t.enable(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.ScanTimeout)
	defer cancel()

	found := map[string]seenDevice{}
	var mu sync.Mutex
	done := make(chan error, 1)

	go func() {
		done <- t.adapter.Scan(func(_ *bluetooth.Adapter, res bluetooth.ScanResult) {
			if filtered && !res.HasServiceUUID(t.service) {
				return
			}
			mu.Lock()
			found[res.Address.String()] = seenDevice{addr: res.Address, name: res.LocalName()}
			mu.Unlock()
		})
	}()

	var scanErr error
	select {
	case <-ctx.Done():
		t.adapter.StopScan()
		scanErr = <-done
	case scanErr = <-done:
	}
	if scanErr != nil {
		return nil, scanErr
	}

	mu.Lock()
	defer mu.Unlock()

	t.mu.Lock()
	for id, d := range found {
		t.seen[id] = d
	}
	t.mu.Unlock()

	return devicesOf(found), nil
}

// Known lists devices connected earlier in this process.
func (t *GATTTransport) Known(ctx context.Context) ([]Device, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return devicesOf(t.known), nil
}

func (t *GATTTransport) Open(ctx context.Context, dev Device) (Link, error) {
	if err := t.enable(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	sd, ok := t.seen[dev.ID]
	if !ok {
		sd, ok = t.known[dev.ID]
	}
	t.mu.Unlock()
	if !ok {
		return nil, errors.New("device was not seen in a scan")
	}

	conn, err := t.adapter.Connect(sd.addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, err
	}

	services, err := conn.DiscoverServices([]bluetooth.UUID{t.service})
	if err != nil || len(services) == 0 {
		conn.Disconnect()
		return nil, fmt.Errorf("printer service %s not found: %v", t.service, err)
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{t.char})
	if err != nil || len(chars) == 0 {
		conn.Disconnect()
		return nil, fmt.Errorf("printer characteristic %s not found: %v", t.char, err)
	}

	lost := make(chan struct{})
	t.mu.Lock()
	t.known[dev.ID] = sd
	t.lost[dev.ID] = lost
	t.mu.Unlock()

	return &gattLink{t: t, id: dev.ID, conn: conn, char: chars[0], lost: lost}, nil
}

type gattLink struct {
	t    *GATTTransport
	id   string
	conn bluetooth.Device
	char bluetooth.DeviceCharacteristic
	lost chan struct{}
}

func (l *gattLink) Write(p []byte) (int, error) {
	return l.char.WriteWithoutResponse(p)
}

func (l *gattLink) Close() error {
	l.t.mu.Lock()
	delete(l.t.lost, l.id)
	l.t.mu.Unlock()
	return l.conn.Disconnect()
}

func (l *gattLink) Lost() <-chan struct{} { return l.lost }

func devicesOf(m map[string]seenDevice) []Device {
	out := make([]Device, 0, len(m))
	for id, d := range m {
		out = append(out, Device{ID: id, Name: d.name, Kind: KindGATT})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
