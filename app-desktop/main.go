//go:build !console

package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"kolamart/pos/internal/agent"
	"kolamart/pos/internal/order"
	"kolamart/pos/internal/printer"
	"kolamart/pos/internal/receipt"
)

func main() {
	opts := parseFlags()

	myApp := app.NewWithID("com.kolamart.pos")
	myWindow := myApp.NewWindow("Kolamart POS")
	myWindow.Resize(fyne.NewSize(520, 640))

	a, err := setup(&opts, dialogPicker(myWindow))
	if err != nil {
		myWindow.SetContent(widget.NewLabel("Startup failed: " + err.Error()))
		myWindow.ShowAndRun()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	myWindow.SetOnClosed(cancel)

	go func() {
		if err := a.Run(ctx, opts.addr, opts.configPath); err != nil {
			fyne.Do(func() { notify(myApp, "Server error", err.Error()) })
		}
	}()

	ui := &desktop{app: myApp, win: myWindow, agent: a, ctx: ctx}
	myWindow.SetContent(ui.loginView())
	myWindow.CenterOnScreen()
	myWindow.ShowAndRun()
	cancel()
}

type desktop struct {
	app   fyne.App
	win   fyne.Window
	agent *agent.Agent
	ctx   context.Context

	worker      string
	unsubscribe func()
}

func title(text string) *canvas.Text {
	t := canvas.NewText(text, color.RGBA{R: 0, G: 122, B: 204, A: 255})
	t.TextSize = 24
	t.Alignment = fyne.TextAlignCenter
	t.TextStyle = fyne.TextStyle{Bold: true}
	return t
}

func (d *desktop) loginView() fyne.CanvasObject {
	workerEntry := widget.NewEntry()
	workerEntry.SetPlaceHolder("Worker ID (e.g. SME-01)")

	login := func() {
		id, err := d.agent.Booking.Validator().Workers().Check(workerEntry.Text)
		if err != nil {
			dialog.ShowError(errors.New("Invalid worker ID"), d.win)
			return
		}
		d.worker = id
		d.win.SetContent(d.selectView())
	}
	workerEntry.OnSubmitted = func(string) { login() }

	loginButton := widget.NewButton("Login", login)
	loginButton.Importance = widget.HighImportance

	return container.NewVBox(
		layout.NewSpacer(),
		title(d.agent.Config.Shop.Name),
		layout.NewSpacer(),
		workerEntry,
		loginButton,
		layout.NewSpacer(),
	)
}

// selectView lets the worker choose between booking orders and billing.
func (d *desktop) selectView() fyne.CanvasObject {
	booking := widget.NewButton("Order Booking", func() { d.win.SetContent(d.orderView()) })
	booking.Importance = widget.HighImportance
	bill := widget.NewButton("Bill Printing", func() { d.win.SetContent(d.billView()) })
	bill.Importance = widget.HighImportance

	logout := widget.NewButton("Logout", func() {
		d.worker = ""
		d.win.SetContent(d.loginView())
	})

	return container.NewVBox(
		layout.NewSpacer(),
		title(d.agent.Config.Shop.Name),
		widget.NewLabel("Sales Exec: "+d.worker),
		widget.NewLabel("Choose whether to book orders or print bills."),
		booking,
		bill,
		layout.NewSpacer(),
		logout,
	)
}

// back leaves a form screen and drops its printer subscription.
func (d *desktop) back() *widget.Button {
	return widget.NewButton("Back", func() {
		if d.unsubscribe != nil {
			d.unsubscribe()
			d.unsubscribe = nil
		}
		d.win.SetContent(d.selectView())
	})
}

func (d *desktop) orderView() fyne.CanvasObject {
	customer := widget.NewEntry()
	phone := widget.NewEntry()
	phone.SetPlaceHolder("10 digit mobile number")
	item := widget.NewEntry()
	quantity := widget.NewEntry()
	quantity.SetText("1")
	price := widget.NewEntry()
	payment := widget.NewRadioGroup([]string{order.PaymentCash, order.PaymentUPI}, nil)
	payment.Horizontal = true
	payment.SetSelected(order.PaymentCash)

	totalLabel := widget.NewLabel("Total: Rs.0")
	current := func() order.Order {
		qty, _ := strconv.Atoi(strings.TrimSpace(quantity.Text))
		amount, _ := strconv.ParseFloat(strings.TrimSpace(price.Text), 64)
		return order.Order{
			WorkerID:     d.worker,
			CustomerName: customer.Text,
			Phone:        phone.Text,
			Item:         item.Text,
			Quantity:     qty,
			Price:        amount,
			PaymentMode:  payment.Selected,
			Source:       "desktop",
		}
	}
	updateTotal := func(string) {
		totalLabel.SetText("Total: Rs." + order.FormatAmount(current().Total()))
	}
	quantity.OnChanged = updateTotal
	price.OnChanged = updateTotal

	form := widget.NewForm(
		widget.NewFormItem("Customer Name", customer),
		widget.NewFormItem("Phone", phone),
		widget.NewFormItem("Item", item),
		widget.NewFormItem("Quantity", quantity),
		widget.NewFormItem("Price", price),
		widget.NewFormItem("Payment", payment),
	)

	reset := func() {
		customer.SetText("")
		phone.SetText("")
		item.SetText("")
		quantity.SetText("1")
		price.SetText("")
		payment.SetSelected(order.PaymentCash)
	}

	var bookButton *widget.Button
	bookButton = widget.NewButton("BOOK & PRINT", func() {
		o := current()
		o.Normalize()
		if err := d.agent.Booking.Validator().Validate(o); err != nil {
			dialog.ShowError(err, d.win)
			return
		}

		msg := fmt.Sprintf("%s\n%s x %d\nTotal: Rs.%s (%s)", o.CustomerName, o.Item, o.Quantity, order.FormatAmount(o.Total()), o.PaymentMode)
		dialog.ShowConfirm("Confirm booking", msg, func(ok bool) {
			if !ok {
				return
			}
			bookButton.Disable()
			go func() {
				out, err := d.agent.Booking.Book(d.ctx, o)
				fyne.Do(func() {
					bookButton.Enable()
					if err != nil {
						dialog.ShowError(err, d.win)
						return
					}
					info := "Order ID: " + out.DisplayID
					if out.Warning != "" {
						info += "\n" + out.Warning
					}
					dialog.ShowInformation("Order saved", info, d.win)
					reset()
				})
			}()
		}, d.win)
	})
	bookButton.Importance = widget.HighImportance

	return container.NewVBox(
		title("Order Booking"),
		widget.NewLabel("Sales Exec: "+d.worker),
		widget.NewSeparator(),
		d.printerPanel(),
		widget.NewSeparator(),
		form,
		totalLabel,
		bookButton,
		layout.NewSpacer(),
		d.back(),
	)
}

// billView saves a counter sale priced from the catalog and prints its bill.
func (d *desktop) billView() fyne.CanvasObject {
	catalog := d.agent.Booking.Catalog()

	customer := widget.NewEntry()
	phone := widget.NewEntry()
	phone.SetPlaceHolder("10 digit mobile number")
	quantity := widget.NewEntry()
	quantity.SetText("1")
	price := widget.NewLabel("")
	totalLabel := widget.NewLabel("Total: Rs.0")
	payment := widget.NewRadioGroup([]string{order.PaymentCash, order.PaymentUPI}, nil)
	payment.Horizontal = true
	payment.SetSelected(order.PaymentCash)

	var picked order.CatalogItem
	current := func() order.Order {
		qty, _ := strconv.Atoi(strings.TrimSpace(quantity.Text))
		return order.Order{
			WorkerID:     d.worker,
			CustomerName: customer.Text,
			Phone:        phone.Text,
			Item:         picked.Label,
			Quantity:     qty,
			Price:        picked.Price,
			PaymentMode:  payment.Selected,
			Source:       "desktop",
		}
	}
	updateTotal := func() {
		totalLabel.SetText("Total: Rs." + order.FormatAmount(current().Total()))
	}
	quantity.OnChanged = func(string) { updateTotal() }

	item := widget.NewSelect(catalog.Labels(), func(label string) {
		picked, _ = catalog.ByLabel(label)
		price.SetText("Rs." + order.FormatAmount(picked.Price))
		updateTotal()
	})
	reset := func() {
		customer.SetText("")
		phone.SetText("")
		quantity.SetText("1")
		if len(catalog) > 0 {
			item.SetSelectedIndex(0)
		}
		payment.SetSelected(order.PaymentCash)
	}
	reset()

	form := widget.NewForm(
		widget.NewFormItem("Customer Name", customer),
		widget.NewFormItem("Phone", phone),
		widget.NewFormItem("Item", item),
		widget.NewFormItem("Price", price),
		widget.NewFormItem("Quantity", quantity),
		widget.NewFormItem("Payment", payment),
	)

	var saveButton *widget.Button
	saveButton = widget.NewButton("PRINT & SAVE", func() {
		o := current()
		o.Normalize()
		if err := d.agent.Booking.Validator().Validate(o); err != nil {
			dialog.ShowError(err, d.win)
			return
		}

		code := picked.Code
		saveButton.Disable()
		go func() {
			out, err := d.agent.Booking.Bill(d.ctx, o, code)
			fyne.Do(func() {
				saveButton.Enable()
				if err != nil {
					dialog.ShowError(fmt.Errorf("Failed to save order: %w", err), d.win)
					return
				}
				info := "Order ID: " + out.DisplayID
				if out.Warning != "" {
					info += "\n" + out.Warning
				}
				dialog.ShowInformation("Order Saved", info, d.win)
				reset()
			})
		}()
	})
	saveButton.Importance = widget.HighImportance

	draftButton := widget.NewButton("Print Draft", func() {
		o := current()
		go func() {
			err := d.agent.Booking.Print(d.ctx, receipt.KindBill, o)
			if err != nil {
				fyne.Do(func() { dialog.ShowError(fmt.Errorf("Print failed: %v", err), d.win) })
			}
		}()
	})

	return container.NewVBox(
		title("Bill Printing"),
		widget.NewLabel("Sales Exec: "+d.worker),
		widget.NewSeparator(),
		d.printerPanel(),
		widget.NewSeparator(),
		form,
		totalLabel,
		container.NewGridWithColumns(2, saveButton, draftButton),
		layout.NewSpacer(),
		d.back(),
	)
}

func (d *desktop) printerPanel() fyne.CanvasObject {
	bridge := d.agent.Bridge

	status := widget.NewLabel("Printer: not connected")
	status.Alignment = fyne.TextAlignCenter
	status.TextStyle = fyne.TextStyle{Monospace: true}

	if d.unsubscribe != nil {
		d.unsubscribe()
	}
	d.unsubscribe = bridge.OnDeviceChange(func(dev *printer.Device) {
		fyne.Do(func() {
			if dev == nil {
				status.SetText("Printer: not connected")
				return
			}
			status.SetText(fmt.Sprintf("Printer: %s (%s)", dev.Label(), dev.Kind))
		})
	})

	selectButton := widget.NewButton("Select Printer", func() {
		go func() {
			_, err := bridge.SelectDevice(d.ctx)
			if err != nil && !errors.Is(err, printer.ErrSelectionCancelled) {
				fyne.Do(func() { notify(d.app, "Printer", err.Error()) })
			}
		}()
	})
	reconnectButton := widget.NewButton("Reconnect", func() {
		go func() {
			if _, ok := bridge.Reconnect(d.ctx); !ok {
				fyne.Do(func() { notify(d.app, "Printer", "No known printer to reconnect to") })
			}
		}()
	})
	disconnectButton := widget.NewButton("Disconnect", func() {
		go func() {
			if err := bridge.Disconnect(); err != nil {
				fyne.Do(func() { notify(d.app, "Printer", err.Error()) })
			}
		}()
	})
	testButton := widget.NewButton("Test Print", func() {
		go func() {
			err := d.agent.Booking.Print(d.ctx, receipt.KindBill, testOrder())
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(fmt.Errorf("Print failed: %v", err), d.win)
					return
				}
				dialog.ShowInformation("Success", "Test print completed!", d.win)
			})
		}()
	})

	return container.NewVBox(
		status,
		container.NewGridWithColumns(2, selectButton, reconnectButton, disconnectButton, testButton),
	)
}

// dialogPicker asks the user to choose a printer in a modal dialog.
func dialogPicker(win fyne.Window) printer.Picker {
	return printer.PickerFunc(func(ctx context.Context, candidates []printer.Device) (printer.Device, error) {
		picked := make(chan int, 1)

		fyne.Do(func() {
			options := make([]string, len(candidates))
			for i, c := range candidates {
				options[i] = fmt.Sprintf("%s (%s)", c.Label(), c.ID)
			}
			choice := -1
			sel := widget.NewSelect(options, func(v string) {
				for i, o := range options {
					if o == v {
						choice = i
					}
				}
			})
			sel.PlaceHolder = "Select a printer..."
			if len(options) > 0 {
				sel.SetSelectedIndex(0)
			}

			dialog.ShowCustomConfirm("Select Printer", "Connect", "Cancel", sel, func(ok bool) {
				if !ok {
					choice = -1
				}
				picked <- choice
			}, win)
		})

		select {
		case <-ctx.Done():
			return printer.Device{}, printer.ErrSelectionCancelled
		case i := <-picked:
			if i < 0 {
				return printer.Device{}, printer.ErrSelectionCancelled
			}
			return candidates[i], nil
		}
	})
}

func notify(a fyne.App, title, content string) {
	a.SendNotification(fyne.NewNotification(title, content))
}
