package escpos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommands(t *testing.T) {
	assert.Equal(t, []byte{0x1B, '@'}, Init())
	assert.Equal(t, []byte{0x1B, 'E', 1}, Bold(true))
	assert.Equal(t, []byte{0x1B, 'E', 0}, Bold(false))
	assert.Equal(t, []byte{0x1B, 'a', 0}, AlignLeft())
	assert.Equal(t, []byte{0x1B, 'a', 1}, AlignCenter())
	assert.Equal(t, []byte{0x1D, '!', 0x11}, DoubleSize(true))
	assert.Equal(t, []byte{0x1D, '!', 0x00}, DoubleSize(false))
	assert.Equal(t, []byte{0x1D, 'V', 1}, Cut())
}

func TestQRCodeStoresData(t *testing.T) {
	qr := QRCode("KM-1")

	// store block: GS ( k pL pH 1 P 0 data, with pL = len+3
	store := []byte{0x1D, 0x28, 0x6B, 7, 0, 0x31, 0x50, 0x30, 'K', 'M', '-', '1'}
	assert.Contains(t, string(qr), string(store))
	assert.Equal(t, []byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x51, 0x30}, qr[len(qr)-8:])

	long := QRCode(string(make([]byte, 300)))
	assert.Contains(t, string(long), string([]byte{0x1D, 0x28, 0x6B, 47, 1, 0x31, 0x50, 0x30}))
}
