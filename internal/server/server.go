// Package server exposes the printer agent and the Apps Script proxy over
// HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"kolamart/pos/internal/booking"
	"kolamart/pos/internal/config"
	"kolamart/pos/internal/logger"
	"kolamart/pos/internal/printer"
	"kolamart/pos/internal/sheet"
)

const AgentName = "kolamart-pos"

// Printer is the printer bridge as the HTTP layer uses it.
type Printer interface {
	Available(ctx context.Context) map[printer.Kind]bool
	SelectDevice(ctx context.Context) (printer.Device, error)
	Reconnect(ctx context.Context) (printer.Device, bool)
	Disconnect() error
	Connected() (printer.Device, bool)
	Devices(ctx context.Context) []printer.Device
	OnDeviceChange(cb func(*printer.Device)) func()
}

type Deps struct {
	Config  *config.Config
	Printer Printer
	Booking *booking.Service
	Sheet   *sheet.Client
	Logger  *logger.Logger
}

type Server struct {
	engine  *gin.Engine
	printer Printer
	booking *booking.Service
	sheet   *sheet.Client
	log     *logger.Logger

	mu  sync.RWMutex
	cfg *config.Config
}

func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Sheet == nil {
		d.Sheet = sheet.NewClient(d.Logger)
	}
	if d.Config == nil {
		d.Config = config.Default()
	}

	s := &Server{
		engine:  gin.New(),
		printer: d.Printer,
		booking: d.Booking,
		sheet:   d.Sheet,
		log:     d.Logger,
		cfg:     d.Config,
	}

	s.engine.Use(requestID(), accessLog(s.log), recovery(s.log))
	s.engine.Use(cors.New(corsConfig(d.Config.CORS.Origins)))
	s.routes()
	return s
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerRequestID},
		ExposeHeaders: []string{"Content-Length", headerRequestID},
		MaxAge:        time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func (s *Server) routes() {
	s.engine.GET("/ping", s.ping)
	s.engine.GET("/check", s.check)

	s.engine.POST("/print", s.print)

	api := s.engine.Group("/api")
	api.POST("/submit-order", s.submit(func(c *config.Config) (string, string) { return c.Sheet.OrderURL, config.EnvOrderURL }))
	api.POST("/submit-bill", s.submit(func(c *config.Config) (string, string) { return c.Sheet.BillURL, config.EnvBillURL }))
	api.POST("/book", s.book)
	api.POST("/bill", s.bill)
	api.GET("/catalog", s.catalog)

	p := api.Group("/printer")
	p.GET("", s.printerState)
	p.POST("/select", s.selectPrinter)
	p.POST("/reconnect", s.reconnectPrinter)
	p.POST("/disconnect", s.disconnectPrinter)
	p.GET("/events", s.printerEvents)
}

func (s *Server) Handler() http.Handler { return s.engine }

// Update applies a reloaded config. Address and CORS origins keep their
// startup values.
func (s *Server) Update(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func (s *Server) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Run serves on addr until ctx is done, then shuts down within five
// seconds.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("server_started", map[string]any{"addr": addr})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server_shutdown_failed", err, nil)
			return err
		}
		s.log.Info("server_stopped", nil)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}
