package socketcan

import (
	"context"
	"errors"
	"time"

	"github.com/brewbot/j1939"
)

// Device is a context-cancellable wrapper around Connection, satisfying
// transport.FrameReaderWriter. It exists separately from Connection so the
// blocking-read-with-context-check loop (needed because the raw socket read
// itself only understands a deadline, not a context) stays out of the raw
// socket code.
type Device struct {
	conn *Connection

	// ifName is SocketCAN interface name. For example: can0
	ifName string

	// receiveDataTimeout is to limit amount of time reads can result no data. to timeout the connection when there is no
	// interaction in bus. This is different from for example serial device readTimeout which limits how much time Read
	// call blocks but we want to Reads block small amount of time to be able to check if context was cancelled during read
	// but at the same time we want to be able to detect when there are no coming from bus for excessive amount of time.
	receiveDataTimeout time.Duration

	timeNow func() time.Time

	// skippedNonExtended counts standard 11-bit frames ReadFrame has
	// silently skipped, for a caller that wants to notice a bus that is
	// mostly carrying traffic this library has nothing to do with.
	skippedNonExtended uint64
}

// NewDevice constructs a Device for ifName. Call Initialize before use.
func NewDevice(ifName string) *Device {
	return &Device{
		conn: nil,

		ifName:             ifName,
		timeNow:            time.Now,
		receiveDataTimeout: 5 * time.Second,
	}
}

// Close closes the underlying socket.
func (d *Device) Close() error {
	return d.conn.Close()
}

// Initialize opens and binds the underlying raw CAN socket.
func (d *Device) Initialize() error {
	conn, err := NewConnection(d.ifName)
	if err != nil {
		return err
	}
	d.conn = conn

	return nil
}

// WriteFrame writes f to the bus.
func (d *Device) WriteFrame(f j1939.Frame) error {
	return d.conn.WriteFrame(f)
}

// SkippedNonExtendedFrames reports how many standard 11-bit CAN frames
// ReadFrame has discarded because J1939 only decodes 29-bit extended
// identifiers.
func (d *Device) SkippedNonExtendedFrames() uint64 {
	return d.skippedNonExtended
}

// ReadFrame blocks until one frame arrives, ctx is cancelled, or the bus has
// gone quiet for longer than receiveDataTimeout.
func (d *Device) ReadFrame(ctx context.Context) (j1939.Frame, error) {
	start := d.timeNow()
	for {
		select {
		case <-ctx.Done():
			return j1939.Frame{}, ctx.Err()
		default:
		}

		if err := d.conn.SetReadTimeout(50 * time.Millisecond); err != nil { // max 50ms block time for read per iteration
			return j1939.Frame{}, err
		}
		f, err := d.conn.ReadFrame()

		now := d.timeNow()
		// on read errors we do not return immediately as for:
		// os.ErrDeadlineExceeded - we set new deadline on next iteration
		if err != nil {
			if errors.Is(err, errReadTimeout) {
				if now.Sub(start) > d.receiveDataTimeout {
					return j1939.Frame{}, err
				}
				continue
			}
			if errors.Is(err, errNotExtendedFrame) {
				// The bus is active, just not with a frame this module
				// understands; that counts as data for the idle timer.
				d.skippedNonExtended++
				start = now
				continue
			}
			return j1939.Frame{}, err
		}

		return f, nil
	}
}
