package printer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PromptPicker lists candidates on out and reads a number from in. An empty
// answer or end of input cancels the selection.
func PromptPicker(in io.Reader, out io.Writer) Picker {
	reader := bufio.NewReader(in)
	return PickerFunc(func(ctx context.Context, candidates []Device) (Device, error) {
		fmt.Fprintln(out, "Available printers:")
		for i, d := range candidates {
			fmt.Fprintf(out, "[%d] %s (%s)\n", i+1, d.Label(), d.ID)
		}

		for {
			if ctx.Err() != nil {
				return Device{}, ErrSelectionCancelled
			}
			fmt.Fprintf(out, "Select printer number (1-%d, empty to cancel): ", len(candidates))
			line, err := reader.ReadString('\n')
			line = strings.TrimSpace(line)
			if line == "" {
				return Device{}, ErrSelectionCancelled
			}

			n, convErr := strconv.Atoi(line)
			if convErr == nil && n >= 1 && n <= len(candidates) {
				return candidates[n-1], nil
			}
			if err != nil {
				return Device{}, ErrSelectionCancelled
			}
			fmt.Fprintln(out, "Invalid selection. Please try again.")
		}
	})
}
