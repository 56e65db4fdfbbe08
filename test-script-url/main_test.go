package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kolamart/pos/internal/config"
	"kolamart/pos/internal/sheet"
)

func TestScriptURLRejectsPlaceholders(t *testing.T) {
	t.Setenv(config.EnvOrderURL, "REPLACE_WITH_YOUR_ORDER_SCRIPT_EXEC_URL")
	_, err := scriptURL(config.EnvOrderURL)
	assert.ErrorContains(t, err, config.EnvOrderURL)

	t.Setenv(config.EnvBillURL, "")
	_, err = scriptURL(config.EnvBillURL)
	assert.Error(t, err)

	t.Setenv(config.EnvBillURL, " https://script.google.com/macros/s/x/exec ")
	u, err := scriptURL(config.EnvBillURL)
	require.NoError(t, err)
	assert.Equal(t, "https://script.google.com/macros/s/x/exec", u)
}

func TestProbeJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	status := probe(context.Background(), &out, sheet.NewClient(nil), srv.URL, "bill")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "submitBill", got["action"])
	assert.Contains(t, out.String(), "Bill Status: 200")
	assert.Contains(t, out.String(), `"success": true`)
}

func TestProbeTruncatesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer srv.Close()

	var out bytes.Buffer
	probe(context.Background(), &out, sheet.NewClient(nil), srv.URL, "order")

	assert.Contains(t, out.String(), "Order Response (non-JSON):")
	assert.Equal(t, maxTextBody, strings.Count(out.String(), "x"))
}

func TestProbeNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var out bytes.Buffer
	assert.Zero(t, probe(context.Background(), &out, sheet.NewClient(nil), url, "order"))
	assert.Contains(t, out.String(), "Request failed for order")
}
