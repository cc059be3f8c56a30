// Package socketcan is a transport.FrameReaderWriter backed by a Linux
// SocketCAN raw socket.
package socketcan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/brewbot/j1939"
	"golang.org/x/sys/unix"
)

const (
	canRaw = 1

	// canIDMask covers the flag bits 29-31 of the socketCAN struct's ID field; clearing it (&^) leaves the 29-bit CAN ID
	canIDMask = uint32(0b111) << 29
	// canIDERRFlag is bit 29 in CAN ID and means ERR error message flag (0 = data frame, 1 = error message)
	canIDERRFlag = uint32(1 << 29)
	// canIDRTRFlag is bit 30 in CAN ID and means RTR remote transmission request (1 = rtr frame)
	canIDRTRFlag = uint32(1 << 30)
	// canIDEFFFlag is bit 31 in CAN ID and means EFF extended frame format / IDE identifier extension flag (0 = standard 11 bit, 1 = extended 29 bit)
	canIDEFFFlag = uint32(1 << 31)
)

// Connection is a single bound AF_CAN raw socket on one interface. J1939 is
// defined purely over 29-bit extended identifiers, so ReadFrame reports a
// standard 11-bit frame seen on the bus as errNotExtendedFrame rather than
// decoding its 11-bit ID as if it were a PGN/priority/address tuple.
type Connection struct {
	socketFD int
}

// NewConnection opens and binds a raw CAN socket to ifName (for example
// "can0").
func NewConnection(ifName string) (*Connection, error) {
	ifi, err := net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("bad ifName: %w", err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, canRaw)
	if err != nil {
		return nil, fmt.Errorf("could not create CAN socket: %w", err)
	}

	addr := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err = unix.Bind(fd, addr); err != nil {
		return nil, fmt.Errorf("could not bind CAN socket: %w", err)
	}

	return &Connection{
		socketFD: fd,
	}, nil
}

func isContinuableSocketErr(err error) bool {
	// EWOULDBLOCK - If you set a timeout on the socket with SO_RCVTIMEO or SO_SNDTIMEO - in this case, a receive or
	// send will return with EWOULDBLOCK if the timeout elapses while no input data becomes available or the output
	// buffer remains full

	// EINTR - If a signal occurs during a blocking operation, then the operation will either (a) return partial
	// completion, or (b) return failure, do nothing, and set errno to EINTR.

	return err == syscall.EWOULDBLOCK || err == syscall.EINTR
}

var errReadTimeout = errors.New("read timeout")
var errWriteTimeout = errors.New("write timeout")

// errNotExtendedFrame is returned by ReadFrame for a standard 11-bit CAN
// frame. J1939 addresses, priorities and PGNs are only meaningful inside a
// 29-bit extended identifier, so a base-frame ID carries nothing this
// library can decode; the caller's read loop skips it and reads the next
// frame instead of surfacing it as a malformed j1939.Frame.
var errNotExtendedFrame = errors.New("read non-extended (11-bit) CAN frame")

// SetReadTimeout bounds how long ReadFrame blocks before returning
// errReadTimeout.
func (i Connection) SetReadTimeout(timeout time.Duration) error {
	return i.setSocketTimeout(unix.SO_RCVTIMEO, timeout)
}

// SetSendTimeout bounds how long WriteFrame blocks before returning
// errWriteTimeout.
func (i Connection) SetSendTimeout(timeout time.Duration) error {
	return i.setSocketTimeout(unix.SO_SNDTIMEO, timeout)
}

func (i Connection) setSocketTimeout(opt int, timeout time.Duration) error {
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	err := unix.SetsockoptTimeval(i.socketFD, unix.SOL_SOCKET, opt, &tv)
	return err
}

// Close closes the underlying socket.
func (i Connection) Close() error {
	return unix.Close(i.socketFD)
}

// WriteFrame writes f to the bus as a 29-bit extended CAN frame.
func (i Connection) WriteFrame(f j1939.Frame) error {
	// Can frame structure: https://github.com/linux-can/can-utils/blob/affdc1b79973c7497bb8607603c24734e11a91aa/include/linux/can.h#L107
	canFrame := make([]byte, 16)

	// bits 0-28 is CAN ID
	// bit 29 is ERR error message flag (0 = data frame, 1 = error message)
	// bit 30 is RTR remote transmission request (1 = rtr frame)
	// bit 31 is EFF extended frame format / IDE identifier extension flag (0 = standard 11 bit, 1 = extended 29 bit)
	canID := f.ID | canIDEFFFlag
	binary.LittleEndian.PutUint32(canFrame[0:4], canID) // FIXME: for big-endian arch (mips64, ppc64) we should use big-endian

	// bits 32-40 data length
	canFrame[4] = f.DLC
	copy(canFrame[8:], f.Data[:f.DLC])

	_, err := unix.Write(i.socketFD, canFrame)
	if isContinuableSocketErr(err) {
		return errWriteTimeout
	}
	return err
}

// ReadFrame blocks (up to the current read timeout, see SetReadTimeout)
// until one extended CAN frame arrives, or returns errReadTimeout.
func (i Connection) ReadFrame() (j1939.Frame, error) {
	canFrame := make([]byte, 16)
	_, err := unix.Read(i.socketFD, canFrame)
	if err != nil {
		if isContinuableSocketErr(err) {
			return j1939.Frame{}, errReadTimeout
		}
		return j1939.Frame{}, err
	}
	return parseCANFrame(canFrame)
}

// parseCANFrame decodes the 16-byte struct can_frame SocketCAN hands back
// from a read(2) into a j1939.Frame, rejecting anything J1939 has no PGN
// for: RTR frames, ERR frames, and standard 11-bit (non-extended) frames.
// Split out of ReadFrame so it can be exercised without a live socket.
func parseCANFrame(canFrame []byte) (j1939.Frame, error) {
	canID := binary.LittleEndian.Uint32(canFrame[0:4])
	if canID&canIDRTRFlag != 0 {
		return j1939.Frame{}, errors.New("read CAN remote transmission request frame")
	} else if canID&canIDERRFlag != 0 {
		return j1939.Frame{}, errors.New("read CAN error message frame")
	} else if canID&canIDEFFFlag == 0 {
		return j1939.Frame{}, errNotExtendedFrame
	}

	f := j1939.Frame{
		ID:  canID &^ canIDMask,
		DLC: canFrame[4],
	}
	copy(f.Data[:], canFrame[8:8+f.DLC])

	return f, nil
}
