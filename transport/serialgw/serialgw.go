// Package serialgw is a transport.FrameReaderWriter for a serial CAN
// gateway that speaks a DLE/STX/ETX byte-stuffed framing. It carries
// exactly one CAN frame per DLE/STX/ETX envelope — there is no multi-frame
// reassembly here.
package serialgw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/brewbot/j1939"
)

const (
	// STX start packet byte.
	STX = 0x02
	// ETX end packet byte.
	ETX = 0x03
	// DLE marker byte before start/end packet byte (DLE+STX or DLE+ETX),
	// and the escape prefix for a literal DLE byte inside the payload.
	DLE = 0x10

	// cmdFrameData identifies a packet carrying one CAN frame (ID + DLC +
	// up to 8 data bytes).
	cmdFrameData = 0x93
	// maxEnvelopeSize bounds one unescaped DLE/STX..DLE/ETX message: command
	// + length + 4-byte ID + DLC + 8 data bytes + crc.
	maxEnvelopeSize = 1 + 1 + 4 + 1 + 8 + 1
)

// Gateway talks to a serial CAN-to-host bridge over an io.ReadWriter (for
// example a *serial.Port from github.com/tarm/serial).
type Gateway struct {
	device io.ReadWriter

	sleepFunc func(timeout time.Duration)
	timeNow   func() time.Time
	// receiveDataTimeout bounds how long ReadFrame tolerates the device
	// producing no bytes at all before giving up; distinct from the
	// per-syscall read deadline the underlying io.ReadWriter enforces.
	receiveDataTimeout time.Duration

	DebugLogRawMessageBytes bool
}

// Config configures a Gateway.
type Config struct {
	// ReceiveDataTimeout is the maximum duration reads from the device can
	// produce no data before ReadFrame errors out as idle; only empty reads
	// reporting io.EOF count toward it.
	ReceiveDataTimeout time.Duration
}

// NewGateway creates a Gateway with a 150ms receive-data timeout.
func NewGateway(device io.ReadWriter) *Gateway {
	return NewGatewayWithConfig(device, Config{ReceiveDataTimeout: 150 * time.Millisecond})
}

// NewGatewayWithConfig creates a Gateway with an explicit Config.
func NewGatewayWithConfig(device io.ReadWriter, config Config) *Gateway {
	g := &Gateway{
		device: device,
		sleepFunc: func(timeout time.Duration) {
			time.Sleep(timeout)
		},
		timeNow:            time.Now,
		receiveDataTimeout: 5 * time.Second,
	}
	if config.ReceiveDataTimeout > 0 {
		g.receiveDataTimeout = config.ReceiveDataTimeout
	}
	return g
}

type state uint8

const (
	waitingStartOfMessage state = iota
	readingMessageData
	processingEscapeSequence
)

// ReadFrame reads stuffed serial bytes and parses them into one j1939.Frame.
// It blocks until a full frame is read, ctx is cancelled, or the device has
// produced no data for longer than the configured receive-data timeout.
// Only empty reads that report io.EOF count toward that timeout; empty
// reads returning os.ErrDeadlineExceeded or no error are retried without
// limit until ctx is cancelled.
func (g *Gateway) ReadFrame(ctx context.Context) (j1939.Frame, error) {
	message := make([]byte, maxEnvelopeSize)
	messageByteIndex := 0

	buf := make([]byte, 1)
	lastReadWithDataTime := g.timeNow()
	var previousByte byte
	var currentByte byte

	st := waitingStartOfMessage
	for {
		select {
		case <-ctx.Done():
			return j1939.Frame{}, ctx.Err()
		default:
		}

		n, err := g.device.Read(buf)
		// on read errors we do not return immediately as for:
		// os.ErrDeadlineExceeded - the read timed out; we simply read again
		// io.EOF - we check if already read enough data recently
		if err != nil && !(errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF)) {
			return j1939.Frame{}, err
		}

		now := g.timeNow()
		if n == 0 {
			if errors.Is(err, io.EOF) && now.Sub(lastReadWithDataTime) > g.receiveDataTimeout {
				return j1939.Frame{}, err
			}
			continue
		}
		lastReadWithDataTime = now
		previousByte = currentByte
		currentByte = buf[0]

		switch st {
		case waitingStartOfMessage:
			if previousByte == DLE && currentByte == STX {
				st = readingMessageData
			}
		case readingMessageData:
			if currentByte == DLE {
				st = processingEscapeSequence
				break
			}
			message[messageByteIndex] = currentByte
			messageByteIndex++
		case processingEscapeSequence:
			if currentByte == DLE { // any DLE characters are double escaped (DLE DLE)
				st = readingMessageData
				message[messageByteIndex] = currentByte
				messageByteIndex++
				break
			}
			if currentByte == ETX { // end of message sequence
				if g.DebugLogRawMessageBytes {
					fmt.Printf("# DEBUG raw serialgw envelope: %x\n", message[0:messageByteIndex])
				}
				if message[0] == cmdFrameData {
					return fromEnvelope(message[0:messageByteIndex])
				}
			}
			// unknown DLE + ??? sequence or unrecognized command - discard and
			// wait for the next start sequence.
			st = waitingStartOfMessage
			messageByteIndex = 0
		}
	}
}

// fromEnvelope decodes a cmdFrameData payload: command(@0) + length(@1) +
// 4-byte big-endian CAN ID(@2..6) + DLC(@6) + up to 8 data bytes + crc.
func fromEnvelope(raw []byte) (j1939.Frame, error) {
	if len(raw) < 2 {
		return j1939.Frame{}, errors.New("serialgw: envelope too short")
	}
	payloadLen := int(raw[1])
	if len(raw)-2 != payloadLen+1 { // +1 for trailing crc byte
		return j1939.Frame{}, errors.New("serialgw: envelope length mismatch")
	}
	if err := crcCheck(raw); err != nil {
		return j1939.Frame{}, err
	}

	data := raw[2:]
	if len(data) < 5 {
		return j1939.Frame{}, errors.New("serialgw: envelope missing frame header")
	}
	id := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	dlc := data[4]
	if int(dlc) > 8 || len(data)-5 < int(dlc)+1 {
		return j1939.Frame{}, errors.New("serialgw: envelope DLC out of range")
	}

	var f j1939.Frame
	f.ID = id
	f.DLC = dlc
	copy(f.Data[:], data[5:5+int(dlc)])
	return f, nil
}

// toEnvelope builds the cmdFrameData payload (without DLE stuffing or the
// DLE/STX.. DLE/ETX wrapper) for f.
func toEnvelope(f j1939.Frame) []byte {
	dlc := f.DLC
	if dlc > 8 {
		dlc = 8
	}
	payload := make([]byte, 5+int(dlc))
	payload[0] = byte(f.ID >> 24)
	payload[1] = byte(f.ID >> 16)
	payload[2] = byte(f.ID >> 8)
	payload[3] = byte(f.ID)
	payload[4] = dlc
	copy(payload[5:], f.Data[:dlc])

	data := append([]byte{cmdFrameData, byte(len(payload))}, payload...)
	return data
}

// crcCheck calculates and checks message checksum.
func crcCheck(data []byte) error {
	if crc(data) != 0 {
		return errors.New("serialgw: envelope has invalid crc")
	}
	return nil
}

// crc calculates message checksum. CRC is such that the sum of all
// unescaped data bytes plus the command byte plus the length adds up to
// zero, modulo 256.
func crc(data []byte) uint8 {
	crc := uint16(0)
	for _, d := range data {
		dd := uint16(d)
		if crc+dd > 255 {
			crc = dd - (256 - crc)
			continue
		}
		crc = crc + dd
	}
	return uint8(crc)
}

// Initialize is a no-op placeholder for gateways that need a handshake
// before they start forwarding frames; this framing needs none.
func (g *Gateway) Initialize() error {
	return nil
}

// WriteFrame stuffs f into a DLE/STX..DLE/ETX envelope and writes it to the
// device, retrying on transient write errors.
func (g *Gateway) WriteFrame(f j1939.Frame) error {
	data := toEnvelope(f)
	packet := append([]byte{DLE, STX}, stuffDLE(data)...)
	crcByte := 0 - crc(data)
	packet = append(packet, stuffDLE([]byte{crcByte})...)
	packet = append(packet, DLE, ETX)

	return g.write(packet)
}

// stuffDLE doubles any literal DLE byte in data so it is not mistaken for a
// framing marker.
func stuffDLE(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		out = append(out, b)
		if b == DLE {
			out = append(out, DLE)
		}
	}
	return out
}

func (g *Gateway) write(packet []byte) error {
	toWrite := len(packet)
	totalWritten := 0
	retryCount := 0
	maxRetry := 5
	for {
		n, err := g.device.Write(packet[totalWritten:])
		if err != nil {
			if !errors.Is(err, syscall.EAGAIN) {
				return fmt.Errorf("serialgw write failure: %w", err)
			}
			retryCount++
		}
		totalWritten += n

		if totalWritten >= toWrite {
			break
		}
		if retryCount > maxRetry {
			return errors.New("serialgw writes failed, retry count reached")
		}
		g.sleepFunc(250 * time.Millisecond)
	}
	return nil
}

// Close closes the underlying device, if it implements io.Closer.
func (g *Gateway) Close() error {
	if c, ok := g.device.(io.Closer); ok {
		return c.Close()
	}
	return errors.New("serialgw: device does not implement io.Closer")
}
