package j1939

// isPDUFormat1 reports whether the PDU Format byte (bits 15-8 of an 18-bit
// PGN) marks this PGN as PDU Format 1 (peer-to-peer, destination in PS) as
// opposed to PDU Format 2 (broadcast, PS is a group extension).
func isPDUFormat1(pgn uint32) bool {
	return pduFormat(pgn) < 0xF0
}

func pduFormat(pgn uint32) uint8 {
	return uint8((pgn >> 8) & 0xFF)
}

// PGNToCANID composes a 29-bit CAN identifier from a PGN, priority and
// source/destination address pair. For PDU Format 1 PGNs, dest is written
// into the PS byte, overriding whatever was in the low byte of pgn; for PDU
// Format 2 PGNs, pgn is used verbatim and dest is ignored (PDU Format 2 is
// always addressed to AddressGlobal on the wire).
func PGNToCANID(pgn uint32, priority, src, dest uint8) uint32 {
	encoded := pgn
	if isPDUFormat1(pgn) {
		encoded &= 0x1FF00
		encoded |= uint32(dest)
	}

	dp := uint8((encoded >> 16) & 0x1)
	pf := uint8((encoded >> 8) & 0xFF)
	ps := uint8(encoded & 0xFF)

	var id uint32
	id |= uint32(priority&0x7) << 26
	id |= uint32(dp&0x1) << 24
	id |= uint32(pf) << 16
	id |= uint32(ps) << 8
	id |= uint32(src)
	return id
}

// CANIDToPGN decomposes the PGN out of a 29-bit CAN identifier. PDU Format 1
// identifiers are normalized by masking out the PS byte, since that byte
// carries a destination address, not part of the PGN.
func CANIDToPGN(canID uint32) uint32 {
	ps := (canID >> 8) & 0xFF
	pf := (canID >> 16) & 0xFF
	dp := (canID >> 24) & 0x1

	pgn := ps | (pf << 8) | (dp << 16)
	if isPDUFormat1(pgn) {
		pgn &= 0x1FF00
	}
	return pgn
}

// CANIDToSource extracts the source address (the low byte) of a CAN
// identifier.
func CANIDToSource(canID uint32) uint8 {
	return uint8(canID & 0xFF)
}

// CANIDToDestination extracts the destination address of a CAN identifier:
// the PS byte for PDU Format 1 frames, AddressGlobal for PDU Format 2.
func CANIDToDestination(canID uint32) uint8 {
	pgn := (canID >> 8) & 0x1FFFF
	if isPDUFormat1(pgn) {
		return uint8(pgn & 0xFF)
	}
	return AddressGlobal
}

// CANIDToPriority extracts the 3-bit priority of a CAN identifier.
func CANIDToPriority(canID uint32) uint8 {
	return uint8((canID >> 26) & 0x7)
}
