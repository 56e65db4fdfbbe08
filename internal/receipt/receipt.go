// Package receipt renders orders as 32-column ESC/POS receipts for 57mm
// paper. Output depends only on its inputs, so the same order always prints
// the same bytes.
package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"kolamart/pos/internal/escpos"
	"kolamart/pos/internal/order"
)

const Width = 32

// Item table columns: 1+16+1+3+1+9+1 = 32.
const (
	colItem  = 16
	colQty   = 3
	colPrice = 9
	labelLen = 13
)

type Kind string

var ErrUnknownKind = errors.New("unknown receipt kind")

const (
	KindBill    Kind = "bill"
	KindBooking Kind = "booking"
)

// Shop is the fixed header and footer printed on every receipt.
type Shop struct {
	Name         string   `toml:"name" yaml:"name"`
	GSTNumber    string   `toml:"gst_number" yaml:"gst_number"`
	Address      string   `toml:"address" yaml:"address"`
	CustomerCare string   `toml:"customer_care" yaml:"customer_care"`
	Footer       []string `toml:"footer" yaml:"footer"`
	Currency     string   `toml:"currency" yaml:"currency"`
	BookingQR    bool     `toml:"booking_qr" yaml:"booking_qr"`
}

func DefaultShop() Shop {
	return Shop{
		Name:         "KOLAMART",
		GSTNumber:    "37AALCK4778K1ZQ",
		Address:      "9-2-18, Pithapuram Colony, Maddilapalem, Visakhapatnam, Andhra Pradesh 530013",
		CustomerCare: "9848418582, 8374522989",
		Footer:       []string{"You saved Rs.201/- per rice bag", "Thank you", "Visit Again"},
		Currency:     "Rs.",
	}
}

func Build(kind Kind, o order.Order, shop Shop) ([]byte, error) {
	switch kind {
	case KindBill, "":
		return Bill(o, shop), nil
	case KindBooking:
		return Booking(o, shop), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// Bill is the counter receipt handed over after payment.
func Bill(o order.Order, shop Shop) []byte {
	r := newWriter(shop)
	r.header()

	if id := o.DisplayID(); id != "" {
		r.field("Order ID", id)
	}
	if o.WorkerID != "" {
		r.field("Sales Exec", o.WorkerID)
	}
	r.field("Customer Name", o.CustomerName)
	r.field("Phone", o.Phone)
	r.divider()

	r.items(o)
	r.footer()
	return r.Bytes()
}

// Booking is printed when an order is booked for later delivery. It carries
// the booking id and date instead of the counter details.
func Booking(o order.Order, shop Shop) []byte {
	r := newWriter(shop)
	r.header()

	r.field("Booking ID", o.DisplayID())
	r.field("Sales Exec", o.WorkerID)
	if !o.Timestamp.IsZero() {
		r.field("Date", o.Timestamp.Format("02-01-2006 15:04"))
	}
	r.field("Customer Name", o.CustomerName)
	r.field("Phone", o.Phone)
	r.divider()

	r.items(o)

	if shop.BookingQR && o.DisplayID() != "" {
		r.Write(escpos.AlignCenter())
		r.Write(escpos.QRCode(o.DisplayID()))
		r.WriteString("\n")
	}

	r.footer()
	return r.Bytes()
}

type writer struct {
	bytes.Buffer
	shop Shop
}

func newWriter(shop Shop) *writer {
	if shop.Currency == "" {
		shop.Currency = "Rs."
	}
	return &writer{shop: shop}
}

func (r *writer) header() {
	r.Write(escpos.Init())
	r.Write(escpos.AlignCenter())
	r.Write(escpos.DoubleSize(true))
	r.line(r.shop.Name)
	r.Write(escpos.DoubleSize(false))

	if r.shop.GSTNumber != "" {
		r.line("GST No:  " + r.shop.GSTNumber)
	}
	if r.shop.Address != "" {
		r.line(r.shop.Address)
	}
	if r.shop.CustomerCare != "" {
		r.line("Customer Care: " + r.shop.CustomerCare)
	}
	r.divider()
	r.Write(escpos.AlignLeft())
}

func (r *writer) items(o order.Order) {
	border := "+" + strings.Repeat("-", colItem) + "+" + strings.Repeat("-", colQty) + "+" + strings.Repeat("-", colPrice) + "+"

	r.WriteString(border + "\n")
	r.WriteString("|" + padRight("ITEM", colItem) + "|" + padRight("QTY", colQty) + "|" + padRight("PRICE", colPrice) + "|\n")
	r.WriteString(border + "\n")
	r.WriteString("|" + padRight(o.Item, colItem) + "|" + padRight(strconv.Itoa(o.Quantity), colQty) + "|" +
		padLeft(r.money(o.Price), colPrice) + "|\n")
	r.WriteString(border + "\n")

	r.Write(escpos.Bold(true))
	r.line("TOTAL AMOUNT: " + r.money(o.Total()))
	r.Write(escpos.Bold(false))

	r.line("Payment Mode: " + o.PaymentMode)
	r.divider()
}

func (r *writer) footer() {
	r.Write(escpos.AlignCenter())
	for _, l := range r.shop.Footer {
		r.line(l)
	}
	r.WriteString("\n")
	r.Write(escpos.Cut())
}

func (r *writer) field(label, value string) {
	r.line(padRight(label, labelLen) + ": " + value)
}

func (r *writer) divider() {
	r.WriteString(strings.Repeat("-", Width) + "\n")
}

// line writes s wrapped to the receipt width.
func (r *writer) line(s string) {
	for _, l := range wrap(s, Width) {
		r.WriteString(l + "\n")
	}
}

func (r *writer) money(v float64) string {
	return r.shop.Currency + order.FormatAmount(v)
}
