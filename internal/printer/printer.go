// Package printer drives Bluetooth receipt printers through one Bridge that
// hides whether the link is a BLE GATT characteristic or a serial port.
package printer

import (
	"context"
	"errors"
	"regexp"
	"time"
)

const (
	// ChunkSize bounds a single write; many BLE printers drop anything
	// larger than one ATT payload.
	ChunkSize  = 20
	ChunkDelay = 30 * time.Millisecond
)

var (
	ErrSelectionCancelled   = errors.New("printer selection cancelled")
	ErrDeviceUnavailable    = errors.New("printer device unavailable")
	ErrNotConnected         = errors.New("printer not connected")
	ErrTransportUnavailable = errors.New("no printer transport available")
)

type Kind string

const (
	KindGATT   Kind = "web-bluetooth"
	KindSerial Kind = "native-serial"
)

type Device struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Connected bool   `json:"connected"`
}

// Label is what the UI shows for a device.
func (d Device) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Transport discovers and opens printer links on one platform API.
type Transport interface {
	Kind() Kind
	Available(ctx context.Context) bool
	// Discover lists candidate devices. With filtered set, only devices that
	// look like receipt printers are returned.
	Discover(ctx context.Context, filtered bool) ([]Device, error)
	// Known lists devices the platform already trusts (paired or permitted).
	Known(ctx context.Context) ([]Device, error)
	Open(ctx context.Context, dev Device) (Link, error)
}

// Link is an open channel to a printer.
type Link interface {
	Write(p []byte) (int, error)
	Close() error
	// Lost is closed when the link drops without Close being called.
	Lost() <-chan struct{}
}

// Picker chooses one device from the candidates, or returns
// ErrSelectionCancelled.
type Picker interface {
	Pick(ctx context.Context, candidates []Device) (Device, error)
}

type PickerFunc func(ctx context.Context, candidates []Device) (Device, error)

func (f PickerFunc) Pick(ctx context.Context, candidates []Device) (Device, error) {
	return f(ctx, candidates)
}

var printerName = regexp.MustCompile(`(?i)st[-_ ]?58|printer|pos|scantech|rfcomm`)

// LooksLikePrinter matches the names thermal printers usually advertise.
func LooksLikePrinter(name string) bool {
	return printerName.MatchString(name)
}

// AutoPicker takes the only candidate, or else the first whose name looks
// like a printer. Anything else needs a human and counts as cancelled.
var AutoPicker = PickerFunc(func(_ context.Context, candidates []Device) (Device, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	for _, d := range candidates {
		if LooksLikePrinter(d.Name) || LooksLikePrinter(d.ID) {
			return d, nil
		}
	}
	return Device{}, ErrSelectionCancelled
})
