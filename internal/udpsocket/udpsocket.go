// Package udpsocket adapts *net.UDPConn to the dataplane.Socket and
// dataplane.UDPListener collaborators, grounded on the teacher's
// infrastructure/listeners/udp_listener.UdpListener: resolve once, listen
// once, then expose the narrow read/write surface the core actually
// needs instead of the full *net.UDPConn.
package udpsocket

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/notxarb/tinc/internal/platform"
)

// Socket is one listening UDP endpoint, bound to a single address
// family. A mesh instance typically runs one of each (v4 and v6), the
// pair egress.Pipeline.chooseSocket picks between.
type Socket struct {
	conn   *net.UDPConn
	family int
}

// Listen opens a UDP socket bound to addr. family must be 4 or 6,
// matching dataplane.Socket.Family, and is recorded rather than
// re-derived from addr so a wildcard bind (":655") still reports the
// family the caller intended.
func Listen(addr netip.AddrPort, family int) (*Socket, error) {
	if family != 4 && family != 6 {
		return nil, fmt.Errorf("udpsocket: invalid address family %d", family)
	}
	network := "udp4"
	if family == 6 {
		network = "udp6"
	}
	conn, err := net.ListenUDP(network, net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, fmt.Errorf("udpsocket: listen %s: %w", addr, err)
	}
	return &Socket{conn: conn, family: family}, nil
}

// Family reports 4 or 6.
func (s *Socket) Family() int { return s.family }

// SendTo writes data to addr, implementing dataplane.Socket.
func (s *Socket) SendTo(addr netip.AddrPort, data []byte) error {
	_, err := s.conn.WriteToUDPAddrPort(data, addr)
	return err
}

// SetTOS programs IP_TOS on the underlying file descriptor via
// SyscallConn, implementing dataplane.Socket. Only meaningful for IPv4
// sockets; the egress pipeline only calls it when Family() == 4.
func (s *Socket) SetTOS(tos int) error {
	raw, err := s.conn.SyscallConn()
	if err != nil {
		return err
	}
	var setErr error
	if err := raw.Control(func(fd uintptr) {
		setErr = platform.SetIPv4TOS(int(fd), tos)
	}); err != nil {
		return err
	}
	return setErr
}

// ReadFrom reads one datagram into buf, implementing
// dataplane.UDPListener (the loop's receive-side narrowing of Socket).
func (s *Socket) ReadFrom(buf []byte) (int, netip.AddrPort, error) {
	n, _, _, from, err := s.conn.ReadMsgUDPAddrPort(buf, nil)
	return n, from, err
}

// Close releases the underlying socket.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// LocalAddr reports the bound address, used when the daemon logs which
// port it ended up on after an ephemeral (":0") bind.
func (s *Socket) LocalAddr() netip.AddrPort {
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}
