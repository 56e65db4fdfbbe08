//go:build windows

package printer

import "os"

// portExists opens COMx through the device namespace; COM ports are not
// files that can be stat'ed.
func portExists(name string) bool {
	f, err := os.OpenFile(`\\.\`+name, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
