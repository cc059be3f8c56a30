// Package j1939 packs and unpacks fixed 8-byte CAN payloads per a
// SAE-J1939-style single-packet protocol: arbitrary-width signed/unsigned
// integer and fixed-length string signals at arbitrary bit offsets, a
// PGN/priority/address codec for the 29-bit extended CAN identifier, and a
// small fixed-capacity dispatch table that routes an inbound frame to the
// registered message descriptor.
package j1939

const (
	// AddressGlobal is the broadcast address (0xFF), used both on the wire
	// as a destination and by PDU Format 2 frames implicitly.
	AddressGlobal uint8 = 0xFF

	// addressAny is the wildcard address value (0xFE). It is never valid
	// on the wire; Registry filters express the wildcard as Any rather
	// than with this byte, so Exact(addressAny) matches only 0xFE itself.
	addressAny uint8 = 0xFE

	// extendedIDMask keeps only the 29 bits that make up a CAN extended
	// identifier.
	extendedIDMask uint32 = 0x1FFFFFFF

	// maxRegistryEntries is the fixed capacity of a Registry.
	maxRegistryEntries = 8
)

// Frame is a single CAN frame: a 29-bit extended identifier, a data length
// code in [0,8], and an 8-byte payload. Data is always the full 8 bytes;
// bytes beyond DLC are zero on transmit and undefined (but untouched) on
// receive past whatever the transport filled in.
type Frame struct {
	ID   uint32
	DLC  uint8
	Data [8]byte
}

// PGN returns the Parameter Group Number encoded in the frame's identifier.
func (f Frame) PGN() uint32 { return CANIDToPGN(f.ID) }

// Priority returns the 3-bit priority encoded in the frame's identifier.
func (f Frame) Priority() uint8 { return CANIDToPriority(f.ID) }

// Source returns the source address encoded in the frame's identifier.
func (f Frame) Source() uint8 { return CANIDToSource(f.ID) }

// Destination returns the destination address encoded in the frame's
// identifier: the PS byte for PDU Format 1 frames, AddressGlobal otherwise.
func (f Frame) Destination() uint8 { return CANIDToDestination(f.ID) }
