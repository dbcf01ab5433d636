// Package shared holds small helpers used by more than one client package.
package shared

// WipeByteArray zeroes b in place. It is used on passwords read from the
// terminal once they have been sent. A nil slice is left alone.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
