package order

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const (
	PaymentCash = "Cash"
	PaymentUPI  = "UPI"
)

var (
	ErrInvalidWorker = errors.New("invalid worker id")
	ErrInvalidOrder  = errors.New("invalid order")
)

// DefaultWorkers is the built-in worker allow-list, SME-01 to SME-10.
var DefaultWorkers = []string{
	"SME-01", "SME-02", "SME-03", "SME-04", "SME-05",
	"SME-06", "SME-07", "SME-08", "SME-09", "SME-10",
}

type Order struct {
	WorkerID     string    `json:"workerId" validate:"required,worker"`
	CustomerName string    `json:"customerName" validate:"required"`
	Phone        string    `json:"phone" validate:"required,phone10"`
	Item         string    `json:"item" validate:"required"`
	Quantity     int       `json:"quantity" validate:"gt=0"`
	Price        float64   `json:"price" validate:"gte=0"`
	PaymentMode  string    `json:"paymentMode" validate:"required,oneof=Cash UPI"`
	BookingID    string    `json:"bookingId,omitempty"`
	OrderID      string    `json:"orderId,omitempty"`
	Source       string    `json:"source,omitempty"`
	Timestamp    time.Time `json:"clientTimestamp"`
}

// Total is always derived from price and quantity.
func (o Order) Total() float64 {
	return o.Price * float64(o.Quantity)
}

// DisplayID is the identifier printed on receipts: the backend order id
// when known, the client booking id otherwise.
func (o Order) DisplayID() string {
	if o.OrderID != "" {
		return o.OrderID
	}
	return o.BookingID
}

// Normalize trims free-text fields, upper-cases the worker id and reduces
// the phone number to digits.
func (o *Order) Normalize() {
	o.WorkerID = NormalizeWorker(o.WorkerID)
	o.CustomerName = strings.TrimSpace(o.CustomerName)
	o.Phone = NormalizePhone(o.Phone)
	o.Item = strings.TrimSpace(o.Item)
	if o.PaymentMode == "" {
		o.PaymentMode = PaymentCash
	}
}

// NormalizePhone strips every non-digit character.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func ValidPhone(s string) bool {
	return len(NormalizePhone(s)) == 10
}

func NormalizeWorker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Workers is a fixed worker id allow-list.
type Workers []string

func (w Workers) Allowed(id string) bool {
	id = NormalizeWorker(id)
	for _, allowed := range w {
		if allowed == id {
			return true
		}
	}
	return false
}

// Check returns the normalized id, or ErrInvalidWorker.
func (w Workers) Check(id string) (string, error) {
	id = NormalizeWorker(id)
	if !w.Allowed(id) {
		return "", fmt.Errorf("%w %q", ErrInvalidWorker, id)
	}
	return id, nil
}

// IDGenerator produces client-side booking ids.
type IDGenerator struct {
	Now  func() time.Time
	Rand func(n int) int
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{Now: time.Now, Rand: rand.Intn}
}

// BookingID returns BK-YYYYMMDDhhmmss-NNNN with NNNN in [1000, 9999].
func (g *IDGenerator) BookingID() string {
	now := g.Now()
	return fmt.Sprintf("BK-%s-%d", now.Format("20060102150405"), 1000+g.Rand(9000))
}

// DraftID identifies a receipt printed before the order was saved.
func (g *IDGenerator) DraftID() string {
	return "DRAFT-" + strconv.FormatInt(g.Now().UnixMilli(), 10)
}

// FormatAmount renders whole amounts without decimals and everything else
// with two.
func FormatAmount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
