package serialgw

import (
	"bufio"
	"bytes"
	"context"
	"testing"

	"github.com/brewbot/j1939"
	"github.com/stretchr/testify/assert"
)

// fakeDevice is an in-memory io.ReadWriter standing in for a serial port.
type fakeDevice struct {
	*bufio.Reader
	out bytes.Buffer
}

func (f *fakeDevice) Write(p []byte) (int, error) {
	return f.out.Write(p)
}

func newFakeDevice(wireBytes []byte) *fakeDevice {
	return &fakeDevice{Reader: bufio.NewReader(bytes.NewReader(wireBytes))}
}

// encodeFrame builds the exact wire bytes WriteFrame would produce, without
// going through a Gateway, so ReadFrame can be tested independently.
func encodeFrame(f j1939.Frame) []byte {
	data := toEnvelope(f)
	packet := append([]byte{DLE, STX}, stuffDLE(data)...)
	crcByte := 0 - crc(data)
	packet = append(packet, stuffDLE([]byte{crcByte})...)
	packet = append(packet, DLE, ETX)
	return packet
}

func TestReadFrameDecodesOneEnvelope(t *testing.T) {
	want := j1939.Frame{ID: 0x18FF0081, DLC: 8, Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}
	device := newFakeDevice(encodeFrame(want))

	gw := NewGateway(device)
	got, err := gw.ReadFrame(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadFrameSkipsGarbageBeforeStart(t *testing.T) {
	want := j1939.Frame{ID: 0x00001000, DLC: 2, Data: [8]byte{0xAA, 0xBB}}
	wire := append([]byte{0xDE, 0xAD, 0xBE, 0xEF}, encodeFrame(want)...)
	device := newFakeDevice(wire)

	gw := NewGateway(device)
	got, err := gw.ReadFrame(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteFrameThenReadFrameRoundtrips(t *testing.T) {
	want := j1939.Frame{ID: 0x0CF00400, DLC: 4, Data: [8]byte{9, 8, 7, 6}}
	var out bytes.Buffer
	device := &loopbackDevice{out: &out}

	gw := NewGateway(device)
	assert.NoError(t, gw.WriteFrame(want))

	device.in = bufio.NewReader(bytes.NewReader(out.Bytes()))
	got, err := gw.ReadFrame(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

type loopbackDevice struct {
	in  *bufio.Reader
	out *bytes.Buffer
}

func (l *loopbackDevice) Read(p []byte) (int, error) {
	return l.in.Read(p)
}

func (l *loopbackDevice) Write(p []byte) (int, error) {
	return l.out.Write(p)
}

func TestCRCRoundtrips(t *testing.T) {
	data := []byte{cmdFrameData, 5, 0x12, 0x34}
	crcByte := 0 - crc(data)
	full := append(data, crcByte)
	assert.NoError(t, crcCheck(full))
}
