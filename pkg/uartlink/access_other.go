//go:build !unix

package uartlink

// CheckAccess is a no-op where device files are not used
func CheckAccess(path string) error {
	return nil
}
