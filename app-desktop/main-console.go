//go:build console

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"kolamart/pos/internal/printer"
	"kolamart/pos/internal/receipt"
)

func main() {
	fmt.Println("========================================")
	fmt.Println("      Kolamart POS Agent - Console")
	fmt.Println("========================================")
	fmt.Println()

	opts := parseFlags()
	in := bufio.NewReader(os.Stdin)

	a, err := setup(&opts, printer.PromptPicker(in, os.Stdout))
	if err != nil {
		fmt.Println("Startup failed:", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Looking for printers...")
	dev, ok := a.Bridge.Reconnect(ctx)
	if !ok {
		dev, err = a.Bridge.SelectDevice(ctx)
		switch {
		case errors.Is(err, printer.ErrSelectionCancelled):
			fmt.Println("No printer selected. Orders will be saved without printing.")
		case err != nil:
			fmt.Println("Printer unavailable:", err)
		}
	}

	if _, connected := a.Bridge.Connected(); connected {
		fmt.Println()
		fmt.Println("========================================")
		fmt.Println("Printer :", dev.Label())
		fmt.Println("Port    :", dev.ID)
		fmt.Println("Link    :", dev.Kind)
		fmt.Println("========================================")

		fmt.Print("\nWould you like to test the printer? (y/n): ")
		answer, _ := in.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer == "y" || answer == "yes" {
			if err := a.Booking.Print(ctx, receipt.KindBill, testOrder()); err != nil {
				fmt.Println("Test print failed:", err)
			} else {
				fmt.Println("Test print completed successfully!")
			}
		}
	}

	fmt.Println()
	fmt.Println("Server is running on", opts.addr)
	fmt.Println("Press Ctrl+C to stop the server")
	fmt.Println()

	if err := a.Run(ctx, opts.addr, opts.configPath); err != nil {
		fmt.Println("Server error:", err)
	}
}
