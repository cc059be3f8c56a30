// Package transport declares the interface a CAN/serial adapter implements
// so Registry.ProcessFrame can consume frames without knowing how they
// arrived. Concrete adapters live in sibling packages (socketcan, serialgw).
package transport

import (
	"context"

	"github.com/brewbot/j1939"
)

// FrameReaderWriter reads and writes single CAN frames. Implementations
// never reassemble multi-frame messages — each ReadFrame call returns
// exactly one on-wire frame, matching the core's single-packet scope.
type FrameReaderWriter interface {
	ReadFrame(ctx context.Context) (j1939.Frame, error)
	WriteFrame(f j1939.Frame) error
	Close() error
}
