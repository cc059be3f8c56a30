package j1939

// AddressFilter is a registry match filter for a source or destination
// address: either a specific address or the wildcard Any. It replaces a
// magic wildcard byte the wire protocol itself never emits with a small
// tagged-variant type — the wire still uses the literal address 0xFF for
// broadcast, which Exact(0xFF) matches like any other concrete address.
type AddressFilter struct {
	exact bool
	addr  uint8
}

// Any matches any address. It is the zero value of AddressFilter, so a
// filter left unset in a struct literal behaves as Any.
var Any = AddressFilter{}

// Exact matches only addr.
func Exact(addr uint8) AddressFilter {
	return AddressFilter{exact: true, addr: addr}
}

func (f AddressFilter) matches(addr uint8) bool {
	return !f.exact || f.addr == addr
}

type registryEntry struct {
	descriptor Descriptor
	src        AddressFilter
	dest       AddressFilter
}

// Registry is a fixed-capacity (8 entries), append-only dispatch table. It
// is written once at startup and read thereafter by ProcessFrame; the
// registry itself does no locking, so a caller that calls Register
// concurrently with ProcessFrame (or from more than one transport
// goroutine) must serialize those calls externally.
type Registry struct {
	entries [maxRegistryEntries]registryEntry
	n       int
}

// Register appends descriptor to the registry with the given source and
// destination filters. Filters default to Any when omitted (the zero
// AddressFilter). Returns ErrNilDescriptor for a nil descriptor and
// ErrRegistryFull once eight entries are registered; the table never grows
// past that. There is no deduplication — at dispatch time the
// first-registered matching entry always wins.
func (r *Registry) Register(descriptor Descriptor, src, dest AddressFilter) error {
	if descriptor == nil {
		return ErrNilDescriptor
	}
	if r.n >= maxRegistryEntries {
		return ErrRegistryFull
	}
	r.entries[r.n] = registryEntry{descriptor: descriptor, src: src, dest: dest}
	r.n++
	return nil
}

// ProcessFrame masks f.ID to 29 bits, derives its PGN/source/destination,
// and scans the registry in insertion order for the first entry whose PGN,
// source filter, destination filter, and DLC all match. If one is found,
// its descriptor's handler is invoked once with f's decoded fields and
// ProcessFrame returns true. If none matches, ProcessFrame returns false;
// that is a normal "no match" outcome, not an error.
func (r *Registry) ProcessFrame(f Frame) bool {
	f.ID &= extendedIDMask

	pgn := CANIDToPGN(f.ID)
	src := CANIDToSource(f.ID)
	dest := CANIDToDestination(f.ID)

	for i := 0; i < r.n; i++ {
		e := r.entries[i]
		if e.descriptor.PGN() != pgn {
			continue
		}
		if !e.src.matches(src) || !e.dest.matches(dest) {
			continue
		}
		if e.descriptor.DLC() != f.DLC {
			continue
		}
		e.descriptor.Dispatch(f)
		return true
	}
	return false
}
