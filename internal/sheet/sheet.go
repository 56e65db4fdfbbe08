// Package sheet talks to the Google Apps Script web app that records orders
// in a spreadsheet.
package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"kolamart/pos/internal/logger"
)

var (
	ErrMissingURL = errors.New("missing script URL")
	ErrEditorURL  = errors.New("script URL appears to be the Apps Script editor URL")
)

// ValidateURL rejects empty URLs and Apps Script editor URLs, which answer
// with the editor's HTML instead of the deployed web app's JSON.
func ValidateURL(u string) error {
	if strings.TrimSpace(u) == "" {
		return ErrMissingURL
	}
	if strings.Contains(u, "/edit") || strings.Contains(u, "/u/0/home/projects") {
		return ErrEditorURL
	}
	return nil
}

// Reply is an upstream response as received.
type Reply struct {
	Status      int
	ContentType string
	Body        []byte
}

func (r *Reply) IsJSON() bool {
	return json.Valid(bytes.TrimSpace(r.Body))
}

func (r *Reply) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

type Client struct {
	http *resty.Client
	log  *logger.Logger
}

func NewClient(log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	c := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: c, log: log}
}

// Forward POSTs body to url unchanged. A zero timeout waits as long as ctx
// allows.
func (c *Client) Forward(ctx context.Context, url string, body []byte, timeout time.Duration) (*Reply, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", redact(url), err)
	}

	c.log.Debug("upstream_response", map[string]any{
		"url":         redact(url),
		"status":      resp.StatusCode(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return &Reply{
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

// redact drops the deployment id from Apps Script exec URLs.
func redact(u string) string {
	if i := strings.Index(u, "/macros/s/"); i >= 0 {
		return u[:i] + "/macros/s/..."
	}
	return u
}
