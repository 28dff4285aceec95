//go:build linux

// Package platform provides the OS-specific socket-option plumbing the
// egress pipeline needs: setting IP_TOS for priority inheritance
// (SPEC_FULL.md §4.5 step 9) and recognizing EMSGSIZE (SPEC_FULL.md §4.4
// "Tightening on EMSGSIZE"). Grounded on the teacher's platform-specific
// socket helpers under infrastructure/PAL/network/{linux,darwin,windows},
// using golang.org/x/sys/unix the way the teacher uses golang.org/x/sys
// for every other raw syscall in the pack, instead of hand-rolling
// syscall numbers.
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
