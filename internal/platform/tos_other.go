//go:build !linux && !darwin

package platform

import "strings"

// SetIPv4TOS is a no-op on platforms without a wired socket-option path
// (SPEC_FULL.md §4.5 step 9 only triggers when priority inheritance is
// explicitly enabled, so a no-op here simply disables that optimization
// rather than breaking the send path).
func SetIPv4TOS(fd int, tos int) error {
	return nil
}

// IsMessageTooLong falls back to a string match since this build has no
// platform-specific errno available.
func IsMessageTooLong(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "message too long")
}
