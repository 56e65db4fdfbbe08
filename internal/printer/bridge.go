package printer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kolamart/pos/internal/logger"
)

type Options struct {
	Picker     Picker
	Logger     *logger.Logger
	ChunkSize  int
	ChunkDelay time.Duration
}

// Bridge owns the single active printer link. Operations are serialized:
// a send never interleaves with a select, reconnect or disconnect.
type Bridge struct {
	op sync.Mutex

	transports []Transport
	picker     Picker
	log        *logger.Logger
	chunk      int
	delay      time.Duration
	sleep      func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	link      Link
	stop      chan struct{}
	device    *Device
	last      *Device
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	cb func(*Device)
}

// NewBridge uses transports in preference order: the first available one
// serves new selections.
func NewBridge(opts Options, transports ...Transport) *Bridge {
	b := &Bridge{
		transports: transports,
		picker:     opts.Picker,
		log:        opts.Logger,
		chunk:      opts.ChunkSize,
		delay:      opts.ChunkDelay,
		sleep:      sleepContext,
	}
	if b.picker == nil {
		b.picker = AutoPicker
	}
	if b.log == nil {
		b.log = logger.Nop()
	}
	if b.chunk <= 0 {
		b.chunk = ChunkSize
	}
	if b.delay <= 0 {
		b.delay = ChunkDelay
	}
	return b
}

// SetPicker swaps the device chooser, e.g. once a UI is up.
func (b *Bridge) SetPicker(p Picker) {
	b.op.Lock()
	defer b.op.Unlock()
	b.picker = p
}

// Available reports which transports can be used right now.
func (b *Bridge) Available(ctx context.Context) map[Kind]bool {
	out := make(map[Kind]bool, len(b.transports))
	for _, t := range b.transports {
		out[t.Kind()] = t.Available(ctx)
	}
	return out
}

func (b *Bridge) transport(ctx context.Context) (Transport, error) {
	for _, t := range b.transports {
		if t.Available(ctx) {
			return t, nil
		}
	}
	return nil, ErrTransportUnavailable
}

func (b *Bridge) transportFor(kind Kind) Transport {
	for _, t := range b.transports {
		if t.Kind() == kind {
			return t
		}
	}
	return nil
}

// SelectDevice asks for a printer, first among devices that look like
// printers and then among everything in range, and connects to the pick.
func (b *Bridge) SelectDevice(ctx context.Context) (Device, error) {
	b.op.Lock()
	defer b.op.Unlock()

	t, err := b.transport(ctx)
	if err != nil {
		return Device{}, err
	}

	candidates, err := t.Discover(ctx, true)
	if err != nil || len(candidates) == 0 {
		if ctx.Err() != nil {
			return Device{}, fmt.Errorf("%w: %v", ErrSelectionCancelled, ctx.Err())
		}
		b.log.Debug("printer_discover_fallback", map[string]any{"transport": t.Kind(), "reason": errString(err)})
		candidates, err = t.Discover(ctx, false)
		if err != nil {
			return Device{}, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
	}
	if len(candidates) == 0 {
		return Device{}, fmt.Errorf("%w: no devices found", ErrDeviceUnavailable)
	}

	picked, err := b.picker.Pick(ctx, candidates)
	if err != nil {
		if errors.Is(err, ErrSelectionCancelled) || ctx.Err() != nil {
			b.log.Info("printer_selection_cancelled", map[string]any{"transport": t.Kind()})
			return Device{}, ErrSelectionCancelled
		}
		return Device{}, err
	}

	return b.connect(ctx, t, picked)
}

// Reconnect reuses the last device, or the first one the platform already
// trusts. Failures are logged and reported only as "no device".
func (b *Bridge) Reconnect(ctx context.Context) (Device, bool) {
	b.op.Lock()
	defer b.op.Unlock()

	b.mu.Lock()
	cur, last := b.device, b.last
	b.mu.Unlock()
	if cur != nil {
		return *cur, true
	}

	var (
		t   Transport
		dev Device
	)
	if last != nil {
		t, dev = b.transportFor(last.Kind), *last
	}
	if t == nil {
		var err error
		if t, err = b.transport(ctx); err != nil {
			b.log.Debug("printer_reconnect_skipped", map[string]any{"reason": err.Error()})
			return Device{}, false
		}
		known, err := t.Known(ctx)
		if err != nil || len(known) == 0 {
			b.log.Debug("printer_reconnect_skipped", map[string]any{"reason": "no known devices"})
			return Device{}, false
		}
		dev = known[0]
	}

	d, err := b.connect(ctx, t, dev)
	if err != nil {
		b.log.Debug("printer_reconnect_failed", map[string]any{"device": dev.ID, "reason": err.Error()})
		return Device{}, false
	}
	return d, true
}

func (b *Bridge) connect(ctx context.Context, t Transport, dev Device) (Device, error) {
	closed, _ := b.closeCurrent()

	link, err := t.Open(ctx, dev)
	if err != nil {
		if closed {
			b.notify(nil)
		}
		return Device{}, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, dev.Label(), err)
	}

	dev.Kind = t.Kind()
	dev.Connected = true
	stop := make(chan struct{})

	b.mu.Lock()
	b.link = link
	b.stop = stop
	b.device = &dev
	last := dev
	b.last = &last
	b.mu.Unlock()

	go b.watch(link, stop)

	b.log.Info("printer_connected", map[string]any{"device": dev.ID, "name": dev.Name, "transport": dev.Kind})
	b.notify(&dev)
	return dev, nil
}

// watch clears the bridge when the link drops on its own.
func (b *Bridge) watch(link Link, stop chan struct{}) {
	select {
	case <-stop:
		return
	case <-link.Lost():
	}

	b.mu.Lock()
	if b.link != link {
		b.mu.Unlock()
		return
	}
	dev := b.device
	b.link, b.stop, b.device = nil, nil, nil
	b.mu.Unlock()

	if dev != nil {
		b.log.Warn("printer_link_lost", map[string]any{"device": dev.ID})
	}
	b.notify(nil)
}

// Send writes data in ChunkSize pieces with ChunkDelay between writes.
func (b *Bridge) Send(ctx context.Context, data []byte) error {
	b.op.Lock()
	defer b.op.Unlock()

	b.mu.Lock()
	link := b.link
	b.mu.Unlock()
	if link == nil {
		return ErrNotConnected
	}

	for i := 0; i < len(data); i += b.chunk {
		if i > 0 {
			if err := b.sleep(ctx, b.delay); err != nil {
				return err
			}
		}
		end := min(i+b.chunk, len(data))
		if _, err := link.Write(data[i:end]); err != nil {
			return fmt.Errorf("printer write: %w", err)
		}
	}
	return nil
}

// Disconnect tears the link down and forgets the device. State is cleared
// even when closing the link fails.
func (b *Bridge) Disconnect() error {
	b.op.Lock()
	defer b.op.Unlock()

	_, err := b.closeCurrent()

	b.mu.Lock()
	b.last = nil
	b.mu.Unlock()

	b.notify(nil)
	if err != nil {
		b.log.Warn("printer_disconnect_error", map[string]any{"reason": err.Error()})
	}
	return err
}

// closeCurrent reports whether a link was open.
func (b *Bridge) closeCurrent() (bool, error) {
	b.mu.Lock()
	link, stop := b.link, b.stop
	b.link, b.stop, b.device = nil, nil, nil
	b.mu.Unlock()

	if link == nil {
		return false, nil
	}
	close(stop)
	return true, link.Close()
}

// Connected returns the active device.
func (b *Bridge) Connected() (Device, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return Device{}, false
	}
	return *b.device, true
}

// Devices lists devices the preferred transport already knows. Errors
// collapse to an empty list.
func (b *Bridge) Devices(ctx context.Context) []Device {
	t, err := b.transport(ctx)
	if err != nil {
		return []Device{}
	}
	list, err := t.Known(ctx)
	if err != nil {
		b.log.Debug("printer_known_devices_failed", map[string]any{"reason": err.Error()})
		return []Device{}
	}
	return list
}

// OnDeviceChange registers cb, calls it at once with the current device
// (nil when disconnected) and returns a func that unregisters it.
func (b *Bridge) OnDeviceChange(cb func(*Device)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener{id: id, cb: cb})
	var cur *Device
	if b.device != nil {
		d := *b.device
		cur = &d
	}
	b.mu.Unlock()

	cb(cur)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, l := range b.listeners {
			if l.id == id {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

func (b *Bridge) notify(dev *Device) {
	b.mu.Lock()
	ls := make([]listener, len(b.listeners))
	copy(ls, b.listeners)
	b.mu.Unlock()

	for _, l := range ls {
		var d *Device
		if dev != nil {
			c := *dev
			d = &c
		}
		l.cb(d)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
