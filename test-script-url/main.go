// Command test-script-url posts a test order and a test bill to the Apps
// Script exec URLs set in .env.local and prints what comes back.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"kolamart/pos/internal/config"
	"kolamart/pos/internal/logger"
	"kolamart/pos/internal/sheet"
)

const maxTextBody = 2000

var placeholders = map[string]string{
	config.EnvOrderURL: "REPLACE_WITH_YOUR_ORDER_SCRIPT_EXEC_URL",
	config.EnvBillURL:  "REPLACE_WITH_YOUR_BILL_SCRIPT_EXEC_URL",
}

func main() {
	if err := config.LoadEnvFiles(".env.local"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	orderURL, err := scriptURL(config.EnvOrderURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	billURL, err := scriptURL(config.EnvBillURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	client := sheet.NewClient(logger.Nop())
	ctx := context.Background()

	fmt.Println("Testing order script URL...")
	probe(ctx, os.Stdout, client, orderURL, "order")

	fmt.Println("\nTesting bill script URL...")
	probe(ctx, os.Stdout, client, billURL, "bill")
}

func scriptURL(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" || v == placeholders[key] {
		return "", fmt.Errorf("missing %s: copy .env.local.example to .env.local and set the exec URL", key)
	}
	return v, nil
}

func testPayload(kind string) map[string]any {
	action := "submitOrder"
	if kind == "bill" {
		action = "submitBill"
	}
	return map[string]any{
		"action": action,
		"payload": map[string]any{
			"workerId":     "dev",
			"customerName": "Tester",
			"phone":        "000",
		},
	}
}

// probe posts the test payload for kind and reports the status and body.
// It returns the status, or 0 when the request failed.
func probe(ctx context.Context, out io.Writer, client *sheet.Client, url, kind string) int {
	body, _ := json.Marshal(testPayload(kind))
	label := strings.ToUpper(kind[:1]) + kind[1:]

	fmt.Fprintf(out, "POSTing %s test payload to %s\n", kind, url)
	reply, err := client.Forward(ctx, url, body, 30*time.Second)
	if err != nil {
		fmt.Fprintf(out, "Request failed for %s: %v\n", kind, err)
		return 0
	}

	fmt.Fprintf(out, "%s Status: %d\n", label, reply.Status)
	var pretty bytes.Buffer
	if reply.IsJSON() && json.Indent(&pretty, bytes.TrimSpace(reply.Body), "", "  ") == nil {
		fmt.Fprintf(out, "%s Response: %s\n", label, pretty.String())
	} else {
		text := reply.Body
		if len(text) > maxTextBody {
			text = text[:maxTextBody]
		}
		fmt.Fprintf(out, "%s Response (non-JSON):\n%s\n", label, text)
	}
	fmt.Fprintln(out, "---")
	return reply.Status
}
