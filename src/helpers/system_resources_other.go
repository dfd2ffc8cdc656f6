//go:build !linux

package helpers

// GetSystemMemoryMB is only implemented on linux.
func GetSystemMemoryMB() (total, available int) {
	return 0, 0
}
