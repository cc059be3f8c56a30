// Command busmon opens a CAN bus transport (SocketCAN interface or serial
// gateway), registers the library's reference descriptors, and logs every
// message it dispatches.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/brewbot/j1939"
	"github.com/brewbot/j1939/transport"
	"github.com/brewbot/j1939/transport/serialgw"
	"github.com/brewbot/j1939/transport/socketcan"
	"github.com/spf13/pflag"
	"github.com/tarm/serial"
)

func main() {
	ifName := pflag.String("iface", "can0", "SocketCAN interface name")
	serialDev := pflag.String("serial", "", "path to a serial CAN gateway device; when set, overrides -iface")
	baudRate := pflag.Int("baud", 115200, "serial gateway baud rate")
	src := pflag.Uint8("src", 0x80, "this node's address; only relay commands addressed to it are dispatched")
	pflag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	device, err := openTransport(*ifName, *serialDev, *baudRate)
	if err != nil {
		log.Fatalf("busmon: %v", err)
	}
	defer device.Close()

	var registry j1939.Registry

	relay := &j1939.RelayCommand{}
	relay.SetHandler(func(on bool, _ any) {
		log.Printf("relay command: on=%v", on)
	}, nil)
	if err := registry.Register(relay, j1939.Any, j1939.Exact(*src)); err != nil {
		log.Fatalf("busmon: registering relay command: %v", err)
	}

	node := &j1939.NodeInfo{}
	node.SetHandler(func(v j1939.NodeInfoValues, _ any) {
		log.Printf("node info: type=%d id=%d version=%d.%d.%d uptime=%dms",
			v.NodeType, v.NodeID, v.VersionMajor, v.VersionMinor, v.VersionPatch, v.UptimeMS)
	}, nil)
	if err := registry.Register(node, j1939.Any, j1939.Any); err != nil {
		log.Fatalf("busmon: registering node info: %v", err)
	}

	log.Printf("busmon: listening")
	for {
		frame, err := device.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("busmon: shutting down")
				logSkippedNonExtendedFrames(device)
				return
			}
			log.Printf("busmon: read error: %v", err)
			continue
		}
		if !registry.ProcessFrame(frame) {
			log.Printf("busmon: unhandled frame id=%#x dlc=%d", frame.ID, frame.DLC)
		}
	}
}

// nonExtendedCounter is implemented by transports (socketcan.Device) that
// can see standard 11-bit frames on the bus and skip them; it has nothing
// to do with serialgw, whose wire framing only ever carries j1939 frames.
type nonExtendedCounter interface {
	SkippedNonExtendedFrames() uint64
}

func logSkippedNonExtendedFrames(device transport.FrameReaderWriter) {
	if c, ok := device.(nonExtendedCounter); ok {
		if n := c.SkippedNonExtendedFrames(); n > 0 {
			log.Printf("busmon: skipped %d non-extended (11-bit) frames", n)
		}
	}
}

func openTransport(ifName, serialDev string, baudRate int) (transport.FrameReaderWriter, error) {
	if serialDev != "" {
		cfg := &serial.Config{Name: serialDev, Baud: baudRate, ReadTimeout: 100 * time.Millisecond}
		port, err := serial.OpenPort(cfg)
		if err != nil {
			return nil, err
		}
		gw := serialgw.NewGateway(port)
		if err := gw.Initialize(); err != nil {
			return nil, err
		}
		return gw, nil
	}

	dev := socketcan.NewDevice(ifName)
	if err := dev.Initialize(); err != nil {
		return nil, err
	}
	return dev, nil
}
