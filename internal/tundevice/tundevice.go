// Package tundevice adapts golang.zx2c4.com/wireguard/tun's Device to
// dataplane.DeviceIO, grounded on the teacher's
// infrastructure/PAL/darwin/tun_adapters/wg_tun_adapter.go: the same
// wireguard-go Device, the same fixed offset/scratch buffers reused
// across calls, generalized from io.Reader/io.Writer's Read/Write to
// DeviceIO's ReadPacket/WritePacket over a *wire.Frame.
package tundevice

import (
	"encoding/binary"
	"fmt"

	"golang.zx2c4.com/wireguard/tun"

	"github.com/notxarb/tinc/internal/wire"
)

// offset is the padding wireguard-go's Device.Read/Write reserves ahead
// of the packet in each buffer. 4 bytes matches the teacher's adapter;
// on platforms whose Device needs an address-family prefix there (the
// BSD utun family), Adapter.WritePacket fills it in, and on platforms that
// don't (Linux), the bytes are unused padding the kernel ignores.
const offset = 4

// Adapter wraps a wireguard-go tun.Device and is allocation-free in the
// steady state: readBuf/writeBuf/readVec/writeVec/sizes are allocated
// once in New and reused on every ReadPacket/WritePacket call.
type Adapter struct {
	device tun.Device

	readBuf  []byte
	writeBuf []byte

	readVec  [][]byte
	writeVec [][]byte
	sizes    []int
}

// New wraps dev, an already-created wireguard-go TUN device (from
// tun.CreateTUN), as a dataplane.DeviceIO.
func New(dev tun.Device) *Adapter {
	rb := make([]byte, wire.MaxFrameSize)
	wb := make([]byte, wire.MaxFrameSize)
	return &Adapter{
		device:   dev,
		readBuf:  rb,
		writeBuf: wb,
		readVec:  [][]byte{rb},
		writeVec: [][]byte{wb},
		sizes:    []int{0},
	}
}

// ReadPacket reads one packet off the tunnel device into f, per
// SPEC_FULL.md §6's read_packet.
func (a *Adapter) ReadPacket(f *wire.Frame) error {
	a.sizes[0] = 0
	if _, err := a.device.Read(a.readVec, a.sizes, offset); err != nil {
		return fmt.Errorf("tundevice: read: %w", err)
	}
	n := a.sizes[0]
	if offset+n > len(a.readBuf) {
		return fmt.Errorf("tundevice: packet of %d bytes exceeds frame capacity", n)
	}
	f.SetPayload(a.readBuf[offset : offset+n])
	return nil
}

// WritePacket writes f's payload to the tunnel device, per SPEC_FULL.md
// §6's write_packet.
func (a *Adapter) WritePacket(f *wire.Frame) error {
	n := f.Length
	if n == 0 {
		return fmt.Errorf("tundevice: refusing to write an empty packet")
	}
	if offset+n > len(a.writeBuf) {
		return fmt.Errorf("tundevice: packet of %d bytes exceeds frame capacity", n)
	}

	binary.BigEndian.PutUint32(a.writeBuf[:offset], addressFamily(f.Buf[0]))
	copy(a.writeBuf[offset:offset+n], f.Buf[:n])
	a.writeVec[0] = a.writeBuf[:offset+n]

	if _, err := a.device.Write(a.writeVec, offset); err != nil {
		return fmt.Errorf("tundevice: write: %w", err)
	}
	return nil
}

// Close releases the underlying device.
func (a *Adapter) Close() error {
	return a.device.Close()
}

// Name returns the device's interface name, used when the daemon logs or
// reports which tunnel it bound.
func (a *Adapter) Name() (string, error) {
	return a.device.Name()
}

// MTU returns the device's currently configured MTU.
func (a *Adapter) MTU() (int, error) {
	return a.device.MTU()
}

const afInet = 2
const afInet6 = 30 // matches the BSD AF_INET6 value wireguard-go's darwin tun expects

// addressFamily reports the AF_INET/AF_INET6 value for the first byte of
// an IP packet's version nibble, matching the teacher's WgTunAdapter.Write.
func addressFamily(firstByte byte) uint32 {
	if firstByte>>4 == 6 {
		return afInet6
	}
	return afInet
}
