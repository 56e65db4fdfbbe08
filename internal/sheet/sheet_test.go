package sheet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	assert.ErrorIs(t, ValidateURL(""), ErrMissingURL)
	assert.ErrorIs(t, ValidateURL("   "), ErrMissingURL)
	assert.ErrorIs(t, ValidateURL("https://script.google.com/d/abc/edit"), ErrEditorURL)
	assert.ErrorIs(t, ValidateURL("https://script.google.com/u/0/home/projects/abc"), ErrEditorURL)
	assert.NoError(t, ValidateURL("https://script.google.com/macros/s/abc/exec"))
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		success bool
		orderID string
		errMsg  string
	}{
		{"success with orderId", `{"success":true,"orderId":"KM-1"}`, true, "KM-1", ""},
		{"ok flag", `{"ok":true,"order_id":" KM-2 "}`, true, "KM-2", ""},
		{"numeric id", `{"success":true,"id":1234567890123}`, true, "1234567890123", ""},
		{"nested data", `{"success":true,"data":{"order_id":"KM-3"}}`, true, "KM-3", ""},
		{"top level wins", `{"success":true,"orderID":"KM-4","data":{"orderId":"KM-5"}}`, true, "KM-4", ""},
		{"error field", `{"success":false,"error":"sheet locked"}`, false, "", "sheet locked"},
		{"message field", `{"message":"quota"}`, false, "", "quota"},
		{"raw body", `{"status":"weird"}`, false, "", `{"status":"weird"}`},
		{"numeric flag", `{"success":1,"orderId":"KM-6"}`, true, "KM-6", ""},
		{"zero float flag", `{"success":0.0,"error":"not saved"}`, false, "", "not saved"},
		{"negative zero flag", `{"ok":-0,"error":"not saved"}`, false, "", "not saved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseResult([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.success, r.Success)
			assert.Equal(t, tt.orderID, r.OrderID)
			assert.Equal(t, tt.errMsg, r.Error)
		})
	}

	_, err := ParseResult([]byte("<html>"))
	assert.Error(t, err)
}

func TestDisplayID(t *testing.T) {
	r, err := ParseResult([]byte(`{"success":true,"orderId":"KM-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "KM-1", r.DisplayID("BK-20250307120502-0042"))

	r, err = ParseResult([]byte(`{"success":true}`))
	require.NoError(t, err)
	assert.Equal(t, "BK-20250307120502-0042", r.DisplayID("BK-20250307120502-0042"))
}

func TestUnwrap(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(Unwrap([]byte(`{"action":"submitOrder","payload":{"a":1}}`))))
	assert.JSONEq(t, `{"a":1}`, string(Unwrap([]byte(`{"a":1}`))))
	assert.JSONEq(t, `{"payload":null,"b":2}`, string(Unwrap([]byte(`{"payload":null,"b":2}`))))
	assert.Equal(t, "not json", string(Unwrap([]byte("not json"))))
}

func TestForward(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<b>down</b>"))
	}))
	defer srv.Close()

	reply, err := NewClient(nil).Forward(context.Background(), srv.URL, []byte(`{"x":1}`), 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(got))
	assert.Equal(t, http.StatusBadGateway, reply.Status)
	assert.Equal(t, "text/html", reply.ContentType)
	assert.False(t, reply.IsJSON())
	assert.False(t, reply.OK())
}

func TestSubmitDirect(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"success":true,"orderId":"KM-1"}`))
	}))
	defer srv.Close()

	res := NewClient(nil).Submit(context.Background(), Target{URL: srv.URL}, "submitOrder", map[string]any{"item": "Rice"})
	assert.True(t, res.Success)
	assert.Equal(t, "KM-1", res.OrderID)
	assert.Equal(t, map[string]any{"item": "Rice"}, body)
}

func TestSubmitFallback(t *testing.T) {
	var primaryHits, brokenHits int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&primaryHits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&brokenHits, 1)
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer broken.Close()

	var env Envelope
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		_, _ = w.Write([]byte(`{"ok":true,"data":{"orderId":"KM-9"}}`))
	}))
	defer proxy.Close()

	target := Target{URL: primary.URL, Fallbacks: []string{broken.URL, proxy.URL}}
	res := NewClient(nil).Submit(context.Background(), target, "submitOrder", map[string]any{"item": "Rice"})

	assert.True(t, res.Success)
	assert.Equal(t, "KM-9", res.OrderID)
	assert.EqualValues(t, 1, atomic.LoadInt32(&primaryHits))
	assert.EqualValues(t, 1, atomic.LoadInt32(&brokenHits))
	assert.Equal(t, "submitOrder", env.Action)
	assert.JSONEq(t, `{"item":"Rice"}`, string(env.Payload))
}

func TestSubmitTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	res := NewClient(nil).Submit(context.Background(), Target{URL: slow.URL, Timeout: 50 * time.Millisecond}, "submitOrder", map[string]any{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "timed out")
}

func TestSubmitAllFail(t *testing.T) {
	var hits int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	res := NewClient(nil).Submit(context.Background(), Target{URL: "https://script.google.com/d/x/edit", Fallbacks: []string{down.URL}}, "submitOrder", map[string]any{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "all fallbacks failed")
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://script.google.com/macros/s/...", redact("https://script.google.com/macros/s/AKfy/exec"))
	assert.Equal(t, "http://127.0.0.1:1/x", redact("http://127.0.0.1:1/x"))
}
