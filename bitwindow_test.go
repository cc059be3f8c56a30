package j1939

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShiftBitsByteLevel(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	shiftBits(buf, 8) // shift right one byte
	assert.Equal(t, []byte{0x00, 0x01, 0x02, 0x03}, buf)

	buf = []byte{0x01, 0x02, 0x03, 0x04}
	shiftBits(buf, -8) // shift left one byte
	assert.Equal(t, []byte{0x02, 0x03, 0x04, 0x00}, buf)
}

func TestShiftBitsSubByte(t *testing.T) {
	buf := []byte{0xFF, 0x00}
	shiftBits(buf, 4)
	assert.Equal(t, []byte{0x0F, 0xF0}, buf)

	buf = []byte{0x0F, 0xF0}
	shiftBits(buf, -4)
	assert.Equal(t, []byte{0xFF, 0x00}, buf)
}

func TestShiftBitsFullClear(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF}
	shiftBits(buf, 100)
	assert.Equal(t, []byte{0x00, 0x00, 0x00}, buf)
}

func TestShiftBitsZeroNoop(t *testing.T) {
	buf := []byte{0xAB, 0xCD}
	shiftBits(buf, 0)
	assert.Equal(t, []byte{0xAB, 0xCD}, buf)
}

func TestProjectInjectNonInterference(t *testing.T) {
	var d Payload
	assert.True(t, inject(&d, 0, 8, []byte{0xAA}))
	assert.True(t, inject(&d, 8, 8, []byte{0xBB}))

	var got [1]byte
	project(d, 0, 8, got[:])
	assert.Equal(t, byte(0xAA), got[0])

	project(d, 8, 8, got[:])
	assert.Equal(t, byte(0xBB), got[0])
}

func TestInjectDoesNotTouchAdjacentBits(t *testing.T) {
	var d Payload
	assert.True(t, inject(&d, 4, 4, []byte{0x0F})) // low nibble of byte 0
	assert.Equal(t, byte(0x0F), d[0])

	assert.True(t, inject(&d, 0, 4, []byte{0x0A})) // high nibble of byte 0
	assert.Equal(t, byte(0xAF), d[0])
}

func TestInjectZeroWidthNoop(t *testing.T) {
	var d Payload
	assert.False(t, inject(&d, 0, 0, []byte{0x01}))
	assert.Equal(t, Payload{}, d)
}
