//go:build !windows

package printer

import "os"

func portExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
