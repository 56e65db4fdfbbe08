package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kolamart/pos/internal/order"
	"kolamart/pos/internal/printer"
	"kolamart/pos/internal/receipt"
	"kolamart/pos/internal/sheet"
)

type fakePrinter struct {
	connected  bool
	sendErrs   []error
	sent       [][]byte
	reconnects int
	canRecover bool
}

func (p *fakePrinter) Connected() (printer.Device, bool) {
	if !p.connected {
		return printer.Device{}, false
	}
	return printer.Device{ID: "COM10", Name: "ST-58", Connected: true}, true
}

func (p *fakePrinter) Send(_ context.Context, data []byte) error {
	if len(p.sendErrs) > 0 {
		err := p.sendErrs[0]
		p.sendErrs = p.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	p.sent = append(p.sent, data)
	return nil
}

func (p *fakePrinter) Reconnect(context.Context) (printer.Device, bool) {
	p.reconnects++
	if !p.canRecover {
		return printer.Device{}, false
	}
	p.connected = true
	return printer.Device{ID: "COM10", Name: "ST-58", Connected: true}, true
}

type fakeSheet struct {
	result  sheet.Result
	calls   int
	action  string
	target  sheet.Target
	payload []byte
}

func (s *fakeSheet) Submit(_ context.Context, target sheet.Target, action string, payload any) sheet.Result {
	s.calls++
	s.action = action
	s.target = target
	s.payload, _ = json.Marshal(payload)
	return s.result
}

var fixedNow = time.Date(2025, 3, 7, 12, 5, 2, 0, time.UTC)

func newService(p *fakePrinter, s *fakeSheet, requirePrinter bool) *Service {
	ids := &order.IDGenerator{Now: func() time.Time { return fixedNow }, Rand: func(int) int { return 42 }}
	return NewService(p, s, sheet.Target{URL: "https://script.google.com/macros/s/x/exec"}, Options{
		IDs:            ids,
		RequirePrinter: requirePrinter,
	})
}

func testOrder() order.Order {
	return order.Order{
		WorkerID:     " sme-03 ",
		CustomerName: "Lakshmi",
		Phone:        "98484-18582",
		Item:         "Sona Masoori 25kg",
		Quantity:     2,
		Price:        1250,
		PaymentMode:  order.PaymentUPI,
	}
}

func TestBookSavesAndPrints(t *testing.T) {
	p := &fakePrinter{connected: true}
	s := &fakeSheet{result: sheet.Result{Success: true, OrderID: "KM-1"}}

	out, err := newService(p, s, false).Book(context.Background(), testOrder())
	require.NoError(t, err)

	assert.Equal(t, "KM-1", out.DisplayID)
	assert.True(t, out.Printed)
	assert.Empty(t, out.Warning)
	assert.Equal(t, "BK-20250307120502-1042", out.Order.BookingID)
	assert.Equal(t, "SME-03", out.Order.WorkerID)
	assert.Equal(t, DefaultSource, out.Order.Source)
	assert.Equal(t, fixedNow, out.Order.Timestamp)

	assert.Equal(t, ActionSubmitOrder, s.action)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(s.payload, &sent))
	assert.Equal(t, "9848418582", sent["phone"])
	assert.EqualValues(t, 2500, sent["total"])
	assert.Equal(t, "BK-20250307120502-1042", sent["bookingId"])

	require.Len(t, p.sent, 1)
	assert.True(t, bytes.Contains(p.sent[0], []byte("KM-1")))
}

func TestBookFallsBackToClientID(t *testing.T) {
	p := &fakePrinter{connected: true}
	s := &fakeSheet{result: sheet.Result{Success: true}}

	out, err := newService(p, s, false).Book(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, "BK-20250307120502-1042", out.DisplayID)
}

func TestBookWithoutPrinter(t *testing.T) {
	p := &fakePrinter{}
	s := &fakeSheet{result: sheet.Result{Success: true, OrderID: "KM-2"}}

	out, err := newService(p, s, false).Book(context.Background(), testOrder())
	require.NoError(t, err)
	assert.False(t, out.Printed)
	assert.Contains(t, out.Warning, "saved without printing")
	assert.Empty(t, p.sent)
}

func TestBookRequiresPrinter(t *testing.T) {
	p := &fakePrinter{}
	s := &fakeSheet{result: sheet.Result{Success: true}}

	_, err := newService(p, s, true).Book(context.Background(), testOrder())
	assert.ErrorIs(t, err, ErrPrinterRequired)
	assert.Zero(t, s.calls)
}

func TestBookRejectsInvalidOrder(t *testing.T) {
	p := &fakePrinter{connected: true}
	s := &fakeSheet{}

	o := testOrder()
	o.Phone = "12345"
	_, err := newService(p, s, false).Book(context.Background(), o)
	assert.ErrorIs(t, err, order.ErrInvalidOrder)
	assert.Zero(t, s.calls)

	o = testOrder()
	o.WorkerID = "SME-99"
	_, err = newService(p, s, false).Book(context.Background(), o)
	assert.ErrorIs(t, err, order.ErrInvalidOrder)
}

func TestBookSubmitFailure(t *testing.T) {
	p := &fakePrinter{connected: true}
	s := &fakeSheet{result: sheet.Failure("sheet locked")}

	_, err := newService(p, s, false).Book(context.Background(), testOrder())
	assert.ErrorIs(t, err, ErrSubmitFailed)
	assert.ErrorContains(t, err, "sheet locked")
	assert.Empty(t, p.sent)
}

func TestBookPrintFailureIsWarning(t *testing.T) {
	p := &fakePrinter{connected: true, sendErrs: []error{printer.ErrNotConnected}}
	s := &fakeSheet{result: sheet.Result{Success: true, OrderID: "KM-3"}}

	out, err := newService(p, s, false).Book(context.Background(), testOrder())
	require.NoError(t, err)
	assert.False(t, out.Printed)
	assert.Contains(t, out.Warning, "printing failed")
	assert.Equal(t, 1, p.reconnects)
}

func TestPrintRetriesAfterReconnect(t *testing.T) {
	p := &fakePrinter{connected: true, canRecover: true, sendErrs: []error{errors.New("write failed")}}
	svc := newService(p, &fakeSheet{}, false)

	require.NoError(t, svc.Print(context.Background(), receipt.KindBill, testOrder()))
	assert.Equal(t, 1, p.reconnects)
	require.Len(t, p.sent, 1)
	assert.True(t, bytes.Contains(p.sent[0], []byte("DRAFT-1741349102000")))
}

func TestPrintUnknownKind(t *testing.T) {
	p := &fakePrinter{connected: true}
	err := newService(p, &fakeSheet{}, false).Print(context.Background(), receipt.Kind("label"), testOrder())
	assert.Error(t, err)
	assert.Empty(t, p.sent)
}

func TestUpdate(t *testing.T) {
	p := &fakePrinter{}
	s := &fakeSheet{result: sheet.Result{Success: true}}
	svc := newService(p, s, false)

	svc.Update(sheet.Target{URL: "https://script.google.com/macros/s/new/exec"}, receipt.DefaultShop(), nil, true)
	_, err := svc.Book(context.Background(), testOrder())
	assert.ErrorIs(t, err, ErrPrinterRequired)

	svc.Update(sheet.Target{URL: "https://script.google.com/macros/s/new/exec"}, receipt.DefaultShop(), nil, false)
	_, err = svc.Book(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, "https://script.google.com/macros/s/new/exec", s.target.URL)
}

func TestBillPricesFromCatalogAndPrints(t *testing.T) {
	p := &fakePrinter{connected: true}
	s := &fakeSheet{result: sheet.Result{Success: true, OrderID: "KM-7"}}

	o := testOrder()
	o.Item, o.Price, o.Quantity = "", 0, 3
	out, err := newService(p, s, false).Bill(context.Background(), o, "SUGAR_1KG")
	require.NoError(t, err)

	assert.True(t, out.Printed)
	assert.Equal(t, "KM-7", out.DisplayID)
	assert.Equal(t, "Sugar 1 KG", out.Order.Item)
	assert.Equal(t, 55.0, out.Order.Price)

	assert.Equal(t, ActionSubmitOrder, s.action)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(s.payload, &sent))
	assert.Equal(t, "Sugar 1 KG", sent["item"])
	assert.EqualValues(t, 165, sent["total"])

	shop := receipt.DefaultShop()
	saved := out.Order
	require.Len(t, p.sent, 1)
	assert.Equal(t, receipt.Bill(saved, shop), p.sent[0])
}

func TestBillKeepsClientPriceWithoutCode(t *testing.T) {
	p := &fakePrinter{connected: true}
	s := &fakeSheet{result: sheet.Result{Success: true}}

	out, err := newService(p, s, false).Bill(context.Background(), testOrder(), "")
	require.NoError(t, err)
	assert.Equal(t, 1250.0, out.Order.Price)
	assert.Equal(t, "BK-20250307120502-1042", out.DisplayID)
	require.Len(t, p.sent, 1)
	assert.True(t, bytes.Contains(p.sent[0], []byte("BK-20250307120502-1042")))
}

func TestBillUnknownItem(t *testing.T) {
	p := &fakePrinter{connected: true}
	s := &fakeSheet{result: sheet.Result{Success: true}}

	_, err := newService(p, s, false).Bill(context.Background(), testOrder(), "GHEE_1L")
	assert.ErrorIs(t, err, order.ErrUnknownItem)
	assert.ErrorIs(t, err, order.ErrInvalidOrder)
	assert.Zero(t, s.calls)
}

func TestBillNotSavedIsNotPrinted(t *testing.T) {
	p := &fakePrinter{connected: true}
	s := &fakeSheet{result: sheet.Failure("quota exceeded")}

	_, err := newService(p, s, false).Bill(context.Background(), testOrder(), "RICE_26KG")
	assert.ErrorIs(t, err, ErrSubmitFailed)
	assert.Empty(t, p.sent)
}

func TestUpdateCatalog(t *testing.T) {
	svc := newService(&fakePrinter{}, &fakeSheet{result: sheet.Result{Success: true}}, false)
	assert.Equal(t, order.DefaultCatalog(), svc.Catalog())

	ghee := order.Catalog{{Code: "GHEE_1L", Label: "Ghee 1 L", Price: 640}}
	svc.Update(sheet.Target{}, receipt.DefaultShop(), ghee, false)
	assert.Equal(t, ghee, svc.Catalog())

	out, err := svc.Bill(context.Background(), testOrder(), "ghee_1l")
	require.NoError(t, err)
	assert.Equal(t, "Ghee 1 L", out.Order.Item)
	assert.Contains(t, out.Warning, "saved without printing")
}
