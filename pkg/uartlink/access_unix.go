//go:build unix

package uartlink

import (
	"golang.org/x/sys/unix"
)

// CheckAccess reports a device the current user cannot read and write.
// The usual fix is membership in the dialout or uucp group.
func CheckAccess(path string) error {
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return &OpenError{Port: path, Err: err}
	}
	return nil
}
