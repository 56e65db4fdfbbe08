package sheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the normalized answer of the Apps Script.
type Result struct {
	Success bool           `json:"success"`
	OrderID string         `json:"orderId,omitempty"`
	Error   string         `json:"error,omitempty"`
	Raw     map[string]any `json:"-"`
}

// Failure builds the structured failure handed back instead of an error.
func Failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// ParseResult reads {success|ok, orderId|order_id|orderID|id|data.orderId|data.order_id}.
func ParseResult(body []byte) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Result{}, fmt.Errorf("decode script response: %w", err)
	}

	r := Result{Raw: raw}
	r.Success = truthy(raw["success"]) || truthy(raw["ok"])
	r.OrderID = orderID(raw)
	if !r.Success {
		r.Error = errorMessage(raw, body)
	}
	return r, nil
}

// DisplayID is the backend order id, or fallback when the backend sent none.
func (r Result) DisplayID(fallback string) string {
	if r.OrderID != "" {
		return r.OrderID
	}
	return fallback
}

func orderID(raw map[string]any) string {
	v := first(raw, "orderId", "order_id", "orderID", "id")
	if v == nil {
		if data, ok := raw["data"].(map[string]any); ok {
			v = first(data, "orderId", "order_id")
		}
	}
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, _ := x.Float64()
		return f != 0
	}
	return v != nil
}

func errorMessage(raw map[string]any, body []byte) string {
	for _, k := range []string{"error", "message"} {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return string(bytes.TrimSpace(body))
}
