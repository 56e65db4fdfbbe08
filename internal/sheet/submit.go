package sheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DirectTimeout bounds direct submissions to the Apps Script.
const DirectTimeout = 10 * time.Second

// Envelope is the body the submit routes accept.
type Envelope struct {
	Action  string          `json:"action,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Unwrap returns the payload of an envelope, or body itself when it has
// none.
func Unwrap(body []byte) []byte {
	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Payload) > 0 && string(env.Payload) != "null" {
		return env.Payload
	}
	return body
}

// Target is where a submission goes: the Apps Script directly, then each
// fallback proxy (a /api/submit-order endpoint) in order.
type Target struct {
	URL       string
	Timeout   time.Duration
	Fallbacks []string
}

// Submit sends payload and never fails with an error: every failure comes
// back as a Result with Success false.
func (c *Client) Submit(ctx context.Context, target Target, action string, payload any) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return Failure("encode payload: %v", err)
	}

	timeout := target.Timeout
	if timeout == 0 {
		timeout = DirectTimeout
	}

	var primaryErr error
	if err := ValidateURL(target.URL); err != nil {
		primaryErr = err
	} else {
		res, err := c.post(ctx, target.URL, body, timeout)
		if err == nil {
			return res
		}
		primaryErr = err
	}
	c.log.Error("script_submit_failed", primaryErr, map[string]any{"url": redact(target.URL), "action": action})

	if len(target.Fallbacks) == 0 {
		return Failure("%v", primaryErr)
	}

	envelope, err := json.Marshal(Envelope{Action: action, Payload: body})
	if err != nil {
		return Failure("encode envelope: %v", err)
	}

	lastErr := primaryErr
	for _, u := range target.Fallbacks {
		if ctx.Err() != nil {
			break
		}
		res, err := c.post(ctx, u, envelope, 0)
		if err == nil {
			c.log.Info("script_submit_fallback_used", map[string]any{"url": u, "action": action})
			return res
		}
		c.log.Warn("script_submit_fallback_failed", map[string]any{"url": u, "reason": err.Error()})
		lastErr = err
	}
	return Failure("primary submission failed (%v); all fallbacks failed: %v", primaryErr, lastErr)
}

func (c *Client) post(ctx context.Context, url string, body []byte, timeout time.Duration) (Result, error) {
	reply, err := c.Forward(ctx, url, body, timeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("request to %s timed out", redact(url))
		}
		return Result{}, err
	}
	if !reply.OK() {
		return Result{}, fmt.Errorf("%s returned %d: %s", redact(url), reply.Status, snippet(reply.Body))
	}
	res, err := ParseResult(reply.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%s returned invalid JSON: %w", redact(url), err)
	}
	return res, nil
}

func snippet(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
