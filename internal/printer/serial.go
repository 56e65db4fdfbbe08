package printer

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialConfig describes the Bluetooth-serial (RFCOMM / COM port) printer.
type SerialConfig struct {
	BaudRate int `toml:"baud_rate" yaml:"baud_rate"`
	// Ports are always offered even when enumeration misses them,
	// e.g. /dev/rfcomm0 bound by hand.
	Ports []string `toml:"ports" yaml:"ports"`
}

// SerialTransport reaches printers paired as serial ports.
type SerialTransport struct {
	cfg   SerialConfig
	list  func() ([]*enumerator.PortDetails, error)
	open  func(name string, mode *serial.Mode) (io.WriteCloser, error)
	exist func(name string) bool
}

func NewSerialTransport(cfg SerialConfig) *SerialTransport {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	return &SerialTransport{
		cfg:  cfg,
		list: enumerator.GetDetailedPortsList,
		open: func(name string, mode *serial.Mode) (io.WriteCloser, error) {
			return serial.Open(name, mode)
		},
		exist: portExists,
	}
}

func (t *SerialTransport) Kind() Kind { return KindSerial }

func (t *SerialTransport) Available(ctx context.Context) bool {
	ports, err := t.ports()
	return err == nil && len(ports) > 0
}

func (t *SerialTransport) Discover(ctx context.Context, filtered bool) ([]Device, error) {
	ports, err := t.ports()
	if err != nil {
		return nil, err
	}
	if !filtered {
		return ports, nil
	}

	var out []Device
	for _, d := range ports {
		if LooksLikePrinter(d.Name) || LooksLikePrinter(d.ID) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Known is every serial port: pairing already happened at the OS level.
func (t *SerialTransport) Known(ctx context.Context) ([]Device, error) {
	return t.ports()
}

func (t *SerialTransport) Open(ctx context.Context, dev Device) (Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	port, err := t.open(dev.ID, &serial.Mode{BaudRate: t.cfg.BaudRate})
	if err != nil {
		return nil, err
	}
	return &serialLink{port: port, lost: make(chan struct{})}, nil
}

func (t *SerialTransport) ports() ([]Device, error) {
	details, err := t.list()
	if err != nil && len(t.cfg.Ports) == 0 {
		return nil, err
	}

	seen := map[string]bool{}
	var out []Device
	for _, p := range details {
		name := p.Product
		if name == "" {
			name = p.Name
		}
		seen[p.Name] = true
		out = append(out, Device{ID: p.Name, Name: name, Kind: KindSerial})
	}
	for _, p := range t.cfg.Ports {
		if seen[p] || !t.exist(p) {
			continue
		}
		seen[p] = true
		out = append(out, Device{ID: p, Name: p, Kind: KindSerial})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type serialLink struct {
	port io.WriteCloser
	once sync.Once
	lost chan struct{}
}

func (l *serialLink) Write(p []byte) (int, error) {
	n, err := l.port.Write(p)
	if err != nil && portGone(err) {
		l.once.Do(func() { close(l.lost) })
	}
	return n, err
}

func (l *serialLink) Close() error { return l.port.Close() }

func (l *serialLink) Lost() <-chan struct{} { return l.lost }

// portGone reports errors after which the port will never accept writes.
func portGone(err error) bool {
	var perr *serial.PortError
	if errors.As(err, &perr) {
		switch perr.Code() {
		case serial.PortClosed, serial.PortNotFound:
			return true
		}
	}
	return false
}
