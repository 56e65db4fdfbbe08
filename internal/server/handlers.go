package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"kolamart/pos/internal/booking"
	"kolamart/pos/internal/order"
	"kolamart/pos/internal/printer"
	"kolamart/pos/internal/receipt"
)

func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "agent": AgentName})
}

func (s *Server) check(c *gin.Context) {
	ctx := c.Request.Context()
	transports := s.printer.Available(ctx)

	resp := gin.H{"transports": transports}
	if dev, ok := s.printer.Connected(); ok {
		resp["status"] = "ok"
		resp["message"] = "Printer connected"
		resp["device"] = dev
		c.JSON(http.StatusOK, resp)
		return
	}

	resp["status"] = "error"
	resp["device"] = nil
	resp["message"] = "No printer connected"
	usable := false
	for _, ok := range transports {
		usable = usable || ok
	}
	if !usable {
		resp["message"] = printer.ErrTransportUnavailable.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) printerState(c *gin.Context) {
	resp := gin.H{"connected": false, "device": nil, "known": s.printer.Devices(c.Request.Context())}
	if dev, ok := s.printer.Connected(); ok {
		resp["connected"] = true
		resp["device"] = dev
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) selectPrinter(c *gin.Context) {
	dev, err := s.printer.SelectDevice(c.Request.Context())
	if err != nil {
		fail(c, printerStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "device": dev})
}

func (s *Server) reconnectPrinter(c *gin.Context) {
	dev, ok := s.printer.Reconnect(c.Request.Context())
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": false, "device": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "device": dev})
}

func (s *Server) disconnectPrinter(c *gin.Context) {
	if err := s.printer.Disconnect(); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "warning": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// printerEvents streams the connected device (null when none) as
// server-sent "device" events, starting with the current one.
func (s *Server) printerEvents(c *gin.Context) {
	events := make(chan *printer.Device, 8)
	unsubscribe := s.printer.OnDeviceChange(func(d *printer.Device) {
		select {
		case events <- d:
		default:
		}
	})
	defer unsubscribe()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case d := <-events:
			c.SSEvent("device", gin.H{"device": d})
			return true
		}
	})
}

type printRequest struct {
	Kind  receipt.Kind `json:"kind"`
	Order order.Order  `json:"order"`
}

func (s *Server) print(c *gin.Context) {
	var req printRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := s.booking.Print(c.Request.Context(), req.Kind, req.Order); err != nil {
		s.log.Error("print_failed", err, map[string]any{"request_id": c.GetString(ctxRequestID)})
		fail(c, printerStatus(err), err.Error())
		return
	}

	dev, _ := s.printer.Connected()
	c.JSON(http.StatusOK, gin.H{"status": "printed", "device": dev})
}

func (s *Server) book(c *gin.Context) {
	var o order.Order
	if err := c.ShouldBindJSON(&o); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	out, err := s.booking.Book(c.Request.Context(), o)
	saved(c, "booking", out, err)
}

type billRequest struct {
	order.Order
	ItemCode string `json:"itemCode"`
}

func (s *Server) bill(c *gin.Context) {
	var req billRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	out, err := s.booking.Bill(c.Request.Context(), req.Order, req.ItemCode)
	saved(c, "bill", out, err)
}

func (s *Server) catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.booking.Catalog()})
}

func saved(c *gin.Context, key string, out booking.Outcome, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, key: out})
	case errors.Is(err, order.ErrInvalidOrder):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrPrinterRequired):
		fail(c, http.StatusConflict, err.Error())
	default:
		fail(c, http.StatusBadGateway, err.Error())
	}
}

func printerStatus(err error) int {
	switch {
	case errors.Is(err, receipt.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, printer.ErrNotConnected), errors.Is(err, printer.ErrSelectionCancelled):
		return http.StatusConflict
	case errors.Is(err, printer.ErrTransportUnavailable), errors.Is(err, printer.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
