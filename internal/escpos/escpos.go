// Package escpos builds ESC/POS control sequences for 57mm thermal printers.
package escpos

const (
	ESC = 0x1B
	GS  = 0x1D
)

// Init resets the printer to its power-on state.
func Init() []byte {
	return []byte{ESC, 0x40}
}

func Bold(on bool) []byte {
	if on {
		return []byte{ESC, 0x45, 0x01}
	}
	return []byte{ESC, 0x45, 0x00}
}

func AlignLeft() []byte {
	return []byte{ESC, 0x61, 0x00}
}

func AlignCenter() []byte {
	return []byte{ESC, 0x61, 0x01}
}

// CharSize selects the GS ! character size. 0x11 is double width and height.
func CharSize(n byte) []byte {
	return []byte{GS, 0x21, n}
}

func DoubleSize(on bool) []byte {
	if on {
		return CharSize(0x11)
	}
	return CharSize(0x00)
}

// Cut fires the cutter with GS V 1.
func Cut() []byte {
	return []byte{GS, 0x56, 0x01}
}

// QRCode stores and prints data as a model 2 QR code, module size 7,
// error correction M.
func QRCode(data string) []byte {
	cmd := []byte{}

	cmd = append(cmd, GS, 0x28, 0x6B, 0x04, 0x00, 0x31, 0x41, 0x32, 0x00)
	cmd = append(cmd, GS, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x43, 0x07)
	cmd = append(cmd, GS, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x45, 0x31)

	n := len(data) + 3
	cmd = append(cmd,
		GS, 0x28, 0x6B,
		byte(n%256), byte(n/256),
		0x31, 0x50, 0x30,
	)
	cmd = append(cmd, data...)

	cmd = append(cmd, GS, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x51, 0x30)

	return cmd
}
