// Package booking runs the save-and-print flows: validate the order, save
// it through the Apps Script and print a booking receipt or a counter bill
// on the connected printer.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kolamart/pos/internal/logger"
	"kolamart/pos/internal/order"
	"kolamart/pos/internal/printer"
	"kolamart/pos/internal/receipt"
	"kolamart/pos/internal/sheet"
)

const (
	ActionSubmitOrder = "submitOrder"
	DefaultSource     = "pos-agent"
)

var (
	ErrPrinterRequired = errors.New("connect a printer before booking")
	ErrSubmitFailed    = errors.New("order was not saved")
)

// Printer is the part of the printer bridge the flow needs.
type Printer interface {
	Connected() (printer.Device, bool)
	Send(ctx context.Context, data []byte) error
	Reconnect(ctx context.Context) (printer.Device, bool)
}

type Submitter interface {
	Submit(ctx context.Context, target sheet.Target, action string, payload any) sheet.Result
}

type Options struct {
	Validator *order.Validator
	IDs       *order.IDGenerator
	Logger    *logger.Logger
	Shop      receipt.Shop
	Catalog   order.Catalog
	// RequirePrinter refuses bookings while no printer is connected.
	RequirePrinter bool
}

type Service struct {
	printer Printer
	sheet   Submitter
	val     *order.Validator
	ids     *order.IDGenerator
	log     *logger.Logger

	mu             sync.RWMutex
	target         sheet.Target
	shop           receipt.Shop
	catalog        order.Catalog
	requirePrinter bool
}

func NewService(p Printer, s Submitter, target sheet.Target, opts Options) *Service {
	svc := &Service{
		printer:        p,
		sheet:          s,
		val:            opts.Validator,
		ids:            opts.IDs,
		log:            opts.Logger,
		target:         target,
		shop:           opts.Shop,
		catalog:        opts.Catalog,
		requirePrinter: opts.RequirePrinter,
	}
	if svc.val == nil {
		svc.val = order.NewValidator(nil)
	}
	if svc.ids == nil {
		svc.ids = order.NewIDGenerator()
	}
	if svc.log == nil {
		svc.log = logger.Nop()
	}
	if svc.shop.Name == "" {
		svc.shop = receipt.DefaultShop()
	}
	if len(svc.catalog) == 0 {
		svc.catalog = order.DefaultCatalog()
	}
	return svc
}

// Update swaps the submission target, shop details, item catalog and
// printer guard after a config reload. An empty catalog keeps the current one.
func (s *Service) Update(target sheet.Target, shop receipt.Shop, catalog order.Catalog, requirePrinter bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = target
	s.shop = shop
	if len(catalog) > 0 {
		s.catalog = catalog
	}
	s.requirePrinter = requirePrinter
}

func (s *Service) settings() (sheet.Target, receipt.Shop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target, s.shop, s.requirePrinter
}

// Catalog returns the items offered for billing.
func (s *Service) Catalog() order.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

func (s *Service) Validator() *order.Validator { return s.val }

// Outcome describes a saved booking. Warning is set when the order was
// saved but its receipt was not printed.
type Outcome struct {
	Order     order.Order `json:"order"`
	DisplayID string      `json:"displayId"`
	Printed   bool        `json:"printed"`
	Warning   string      `json:"warning,omitempty"`
}

type payload struct {
	order.Order
	Total float64 `json:"total"`
}

// Book saves o and prints its booking receipt. Validation, printer-guard
// and submission failures return an error; printing failures do not.
func (s *Service) Book(ctx context.Context, o order.Order) (Outcome, error) {
	return s.save(ctx, receipt.KindBooking, o)
}

// Bill saves a counter sale and prints its bill under the saved order id.
// A non-empty itemCode takes the item and unit price from the catalog.
func (s *Service) Bill(ctx context.Context, o order.Order, itemCode string) (Outcome, error) {
	if itemCode != "" {
		if err := s.Catalog().Price(&o, itemCode); err != nil {
			return Outcome{}, err
		}
	}
	return s.save(ctx, receipt.KindBill, o)
}

func (s *Service) save(ctx context.Context, kind receipt.Kind, o order.Order) (Outcome, error) {
	target, shop, requirePrinter := s.settings()

	o.Normalize()
	if err := s.val.Validate(o); err != nil {
		return Outcome{}, err
	}
	if requirePrinter {
		if _, ok := s.printer.Connected(); !ok {
			return Outcome{}, ErrPrinterRequired
		}
	}

	o.BookingID = s.ids.BookingID()
	o.Timestamp = s.ids.Now()
	if o.Source == "" {
		o.Source = DefaultSource
	}

	res := s.sheet.Submit(ctx, target, ActionSubmitOrder, payload{Order: o, Total: o.Total()})
	if !res.Success {
		s.log.Warn("order_not_saved", map[string]any{"kind": kind, "booking_id": o.BookingID, "reason": res.Error})
		return Outcome{}, fmt.Errorf("%w: %s", ErrSubmitFailed, res.Error)
	}

	o.OrderID = res.OrderID
	out := Outcome{Order: o, DisplayID: res.DisplayID(o.BookingID)}
	s.log.Info("order_saved", map[string]any{
		"kind":       kind,
		"booking_id": o.BookingID,
		"order_id":   out.DisplayID,
		"worker_id":  o.WorkerID,
	})

	if _, ok := s.printer.Connected(); !ok {
		out.Warning = "saved without printing: no printer connected"
		return out, nil
	}
	data, err := receipt.Build(kind, o, shop)
	if err == nil {
		err = s.print(ctx, data)
	}
	if err != nil {
		out.Warning = "saved but printing failed: " + err.Error()
		return out, nil
	}
	out.Printed = true
	return out, nil
}

// Print formats o as kind and sends it. Orders printed before they were
// saved get a draft id.
func (s *Service) Print(ctx context.Context, kind receipt.Kind, o order.Order) error {
	_, shop, _ := s.settings()

	o.Normalize()
	if o.DisplayID() == "" {
		o.BookingID = s.ids.DraftID()
	}
	data, err := receipt.Build(kind, o, shop)
	if err != nil {
		return err
	}
	return s.print(ctx, data)
}

// print sends data, reconnecting once to the last device when the link
// dropped.
func (s *Service) print(ctx context.Context, data []byte) error {
	err := s.printer.Send(ctx, data)
	if err == nil || ctx.Err() != nil {
		return err
	}

	dev, ok := s.printer.Reconnect(ctx)
	if !ok {
		return err
	}
	s.log.Info("printer_reconnected_for_retry", map[string]any{"device": dev.Label()})
	return s.printer.Send(ctx, data)
}
