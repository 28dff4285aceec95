//go:build darwin

package platform

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// SetIPv4TOS sets IP_TOS on an IPv4 UDP socket file descriptor.
func SetIPv4TOS(fd int, tos int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos)
}

// IsMessageTooLong reports whether err is the platform's EMSGSIZE.
func IsMessageTooLong(err error) bool {
	return errors.Is(err, syscall.EMSGSIZE)
}
