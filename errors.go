package j1939

import "errors"

// Sentinel errors for the handful of call sites where a caller benefits
// from knowing *why* an operation reported failure, beyond the bare bool
// the bit-window and signal codec otherwise return.
var (
	// ErrStringMisaligned is returned when a string signal's start bit is
	// not byte-aligned or its width is not a multiple of 8.
	ErrStringMisaligned = errors.New("j1939: string signal must be byte-aligned")

	// ErrStringOverflow is returned when a string signal's window would
	// spill past the end of the 8-byte payload. Unlike integer encoders,
	// the string encoder refuses this instead of clipping.
	ErrStringOverflow = errors.New("j1939: string signal spills past payload")

	// ErrRegistryFull is returned by Registry.Register once eight entries
	// have been registered; the table never grows past that.
	ErrRegistryFull = errors.New("j1939: registry is full")

	// ErrNilDescriptor is returned by Registry.Register when given a nil
	// Descriptor.
	ErrNilDescriptor = errors.New("j1939: descriptor is nil")
)
