package j1939

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCANHelpersRoundtrips(t *testing.T) {
	const pgn1 uint32 = 0x00F004 // PDU Format 2, broadcast
	id1 := PGNToCANID(pgn1, 3, 0x81, 0xFF)
	assert.Equal(t, pgn1, CANIDToPGN(id1))

	const pgn2 uint32 = 0x000123 // PDU Format 1, destination carried in PS
	id2 := PGNToCANID(pgn2, 6, 0x81, 0x10)
	assert.Equal(t, pgn2&0x1FF00, CANIDToPGN(id2))
	assert.EqualValues(t, 0x10, CANIDToDestination(id2))
}

func TestParseCANID(t *testing.T) {
	var testCases = []struct {
		name         string
		canID        uint32
		wantPriority uint8
		wantPGN      uint32
		wantDest     uint8
		wantSource   uint8
	}{
		{
			name:         "ok, 0F001DA1",
			canID:        0x0F001DA1,
			wantPriority: 3,
			wantPGN:      0x10000,
			wantDest:     0x1D,
			wantSource:   0xA1,
		},
		{
			name:         "ok, 0F101DB5",
			canID:        0x0F101DB5,
			wantPriority: 3,
			wantPGN:      0x11000,
			wantDest:     0x1D,
			wantSource:   0xB5,
		},
		{
			name:         "ok, 0F0007B8",
			canID:        0x0F0007B8,
			wantPriority: 3,
			wantPGN:      0x10000,
			wantDest:     0x07,
			wantSource:   0xB8,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantPriority, CANIDToPriority(tc.canID))
			assert.Equal(t, tc.wantPGN, CANIDToPGN(tc.canID))
			assert.Equal(t, tc.wantDest, CANIDToDestination(tc.canID))
			assert.Equal(t, tc.wantSource, CANIDToSource(tc.canID))
		})
	}
}

func TestPGNToCANID(t *testing.T) {
	id := PGNToCANID(0xFF00, 6, 0x80, AddressGlobal)
	assert.Equal(t, uint8(6), CANIDToPriority(id))
	assert.Equal(t, uint32(0xFF00), CANIDToPGN(id))
	assert.Equal(t, AddressGlobal, CANIDToDestination(id))
	assert.Equal(t, uint8(0x80), CANIDToSource(id))
}

func TestIsPDUFormat1Boundary(t *testing.T) {
	assert.True(t, isPDUFormat1(0x0000EF00))
	assert.False(t, isPDUFormat1(0x0000F000))
	assert.False(t, isPDUFormat1(0x0000FF00))
}
