package j1939

// extendedFlag marks a CAN identifier as 29-bit extended format. Prepare
// ORs it into the Frame.ID it builds; the identifier codec and
// Registry.ProcessFrame never inspect it, since they only read the low 29
// PGN/priority/address bits.
const extendedFlag uint32 = 0x80000000

// SignalKind tags how a Signal's bits are interpreted.
type SignalKind uint8

const (
	KindUnsigned SignalKind = iota
	KindSigned
	KindString
)

// Signal describes one field's bit position inside a message's 8-byte
// payload. It is metadata only — the EncodeSignalX/DecodeSignalX methods on
// RelayCommand and NodeInfo do the actual packing; Signal exists so a
// caller (or a future descriptor) can introspect a message's layout without
// re-deriving it from the source.
type Signal struct {
	StartBit uint8
	Width    uint8
	Kind     SignalKind
}

// Descriptor is a compile-time message definition: the static
// PGN/priority/DLC triple a message descriptor like RelayCommand or
// NodeInfo exposes, plus the ability to decode an inbound frame and invoke
// whatever handler the caller installed. It is the idiomatic stand-in for
// the function-pointer-plus-opaque-context pair a C implementation would
// use to get dynamic dispatch without virtual calls.
type Descriptor interface {
	PGN() uint32
	Priority() uint8
	DLC() uint8
	Dispatch(f Frame)
}

// prepareFrame builds the outbound frame shell a descriptor's Prepare
// method returns: identifier, DLC, zeroed payload.
func prepareFrame(pgn uint32, priority, dlc, src, dest uint8) Frame {
	var f Frame
	f.ID = PGNToCANID(pgn, priority, src, dest) | extendedFlag
	f.DLC = dlc
	return f
}

// RelayCommand is the PGN 0x1000 message: a single on/off relay command.
type RelayCommand struct {
	handler func(on bool, ctx any)
	ctx     any
}

const (
	relayCommandPGN      uint32 = 0x1000
	relayCommandPriority uint8  = 6
	relayCommandDLC      uint8  = 8
)

func (RelayCommand) PGN() uint32    { return relayCommandPGN }
func (RelayCommand) Priority() uint8 { return relayCommandPriority }
func (RelayCommand) DLC() uint8     { return relayCommandDLC }

// Prepare builds a frame addressed from src to dest, ready for
// EncodeSignalOn to fill in.
func (RelayCommand) Prepare(src, dest uint8) Frame {
	return prepareFrame(relayCommandPGN, relayCommandPriority, relayCommandDLC, src, dest)
}

// EncodeSignalOn packs the on signal (bit 0, width 1) into f.
func (RelayCommand) EncodeSignalOn(f *Frame, on bool) bool {
	var v uint32
	if on {
		v = 1
	}
	return EncodeUint(&f.Data, 0, 1, v)
}

// DecodeSignalOn unpacks the on signal from f.
func (RelayCommand) DecodeSignalOn(f Frame) bool {
	return DecodeUint(f.Data, 0, 1) != 0
}

// SetHandler installs h (with opaque context ctx) to run whenever a
// registered RelayCommand matches an inbound frame. A nil h installs a
// no-op handler.
func (r *RelayCommand) SetHandler(h func(on bool, ctx any), ctx any) {
	if h == nil {
		h = func(bool, any) {}
	}
	r.handler = h
	r.ctx = ctx
}

// Signals describes RelayCommand's one-bit payload layout.
func (RelayCommand) Signals() []Signal {
	return []Signal{{StartBit: 0, Width: 1, Kind: KindUnsigned}}
}

// Dispatch decodes f's on signal and invokes the installed handler.
func (r *RelayCommand) Dispatch(f Frame) {
	h := r.handler
	if h == nil {
		return
	}
	h(r.DecodeSignalOn(f), r.ctx)
}

// NodeInfo is the PGN 0xFF00 message: a node's self-reported identity,
// firmware version, and uptime, flattened into the fixed signal layout a
// single 8-byte frame can carry.
type NodeInfo struct {
	handler func(NodeInfoValues, any)
	ctx     any
}

// NodeInfoValues is the decoded signal set NodeInfo's handler receives.
type NodeInfoValues struct {
	NodeType      uint32
	NodeID        uint32
	VersionMajor  uint32
	VersionMinor  uint32
	VersionPatch  uint32
	UptimeMS      uint32
}

const (
	nodeInfoPGN      uint32 = 0xFF00
	nodeInfoPriority uint8  = 6
	nodeInfoDLC      uint8  = 8
)

func (NodeInfo) PGN() uint32     { return nodeInfoPGN }
func (NodeInfo) Priority() uint8 { return nodeInfoPriority }
func (NodeInfo) DLC() uint8      { return nodeInfoDLC }

// Prepare builds a frame addressed from src to dest, ready for the
// EncodeSignal* methods to fill in. NodeInfo is a PDU Format 2 broadcast
// message, so dest is conventionally AddressGlobal.
func (NodeInfo) Prepare(src, dest uint8) Frame {
	return prepareFrame(nodeInfoPGN, nodeInfoPriority, nodeInfoDLC, src, dest)
}

func (NodeInfo) EncodeSignalNodeType(f *Frame, v uint32) bool { return EncodeUint(&f.Data, 0, 7, v) }
func (NodeInfo) DecodeSignalNodeType(f Frame) uint32          { return DecodeUint(f.Data, 0, 7) }

func (NodeInfo) EncodeSignalNodeID(f *Frame, v uint32) bool { return EncodeUint(&f.Data, 7, 7, v) }
func (NodeInfo) DecodeSignalNodeID(f Frame) uint32          { return DecodeUint(f.Data, 7, 7) }

func (NodeInfo) EncodeSignalVersionMajor(f *Frame, v uint32) bool {
	return EncodeUint(&f.Data, 14, 6, v)
}
func (NodeInfo) DecodeSignalVersionMajor(f Frame) uint32 { return DecodeUint(f.Data, 14, 6) }

func (NodeInfo) EncodeSignalVersionMinor(f *Frame, v uint32) bool {
	return EncodeUint(&f.Data, 20, 6, v)
}
func (NodeInfo) DecodeSignalVersionMinor(f Frame) uint32 { return DecodeUint(f.Data, 20, 6) }

func (NodeInfo) EncodeSignalVersionPatch(f *Frame, v uint32) bool {
	return EncodeUint(&f.Data, 26, 6, v)
}
func (NodeInfo) DecodeSignalVersionPatch(f Frame) uint32 { return DecodeUint(f.Data, 26, 6) }

// EncodeSignalUptimeMS packs the node's uptime in milliseconds, as read by
// the caller from its own clock. NodeInfo never reads a clock itself.
func (NodeInfo) EncodeSignalUptimeMS(f *Frame, v uint32) bool { return EncodeUint(&f.Data, 32, 32, v) }
func (NodeInfo) DecodeSignalUptimeMS(f Frame) uint32          { return DecodeUint(f.Data, 32, 32) }

// SetHandler installs h (with opaque context ctx) to run whenever a
// registered NodeInfo matches an inbound frame. A nil h installs a no-op
// handler.
func (n *NodeInfo) SetHandler(h func(NodeInfoValues, any), ctx any) {
	if h == nil {
		h = func(NodeInfoValues, any) {}
	}
	n.handler = h
	n.ctx = ctx
}

// Signals describes NodeInfo's six-field payload layout.
func (NodeInfo) Signals() []Signal {
	return []Signal{
		{StartBit: 0, Width: 7, Kind: KindUnsigned},
		{StartBit: 7, Width: 7, Kind: KindUnsigned},
		{StartBit: 14, Width: 6, Kind: KindUnsigned},
		{StartBit: 20, Width: 6, Kind: KindUnsigned},
		{StartBit: 26, Width: 6, Kind: KindUnsigned},
		{StartBit: 32, Width: 32, Kind: KindUnsigned},
	}
}

// Dispatch decodes f's signals and invokes the installed handler.
func (n *NodeInfo) Dispatch(f Frame) {
	h := n.handler
	if h == nil {
		return
	}
	h(NodeInfoValues{
		NodeType:     n.DecodeSignalNodeType(f),
		NodeID:       n.DecodeSignalNodeID(f),
		VersionMajor: n.DecodeSignalVersionMajor(f),
		VersionMinor: n.DecodeSignalVersionMinor(f),
		VersionPatch: n.DecodeSignalVersionPatch(f),
		UptimeMS:     n.DecodeSignalUptimeMS(f),
	}, n.ctx)
}
