package session

// Capacity bounds the number of characters a session accepts before it restarts.
// It is larger than a password so over-long input can be told apart.
const Capacity = 8

// Buffer is the bounded sequence of characters entered in one session.
type Buffer struct {
	chars [Capacity]byte
	n     int
}

// Len returns the number of characters held.
func (b *Buffer) Len() int {
	return b.n
}

// Append adds c. When the buffer reaches Capacity it is cleared and Append
// reports the overflow, so the buffer never holds Capacity characters.
func (b *Buffer) Append(c byte) (overflowed bool) {
	b.chars[b.n] = c
	b.n++

	if b.n >= Capacity {
		b.Reset()

		return true
	}

	return false
}

// Backspace removes the last character and reports whether there was one.
func (b *Buffer) Backspace() bool {
	if b.n == 0 {
		return false
	}

	b.n--
	b.chars[b.n] = 0

	return true
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.chars = [Capacity]byte{}
	b.n = 0
}

// Bytes returns a copy of the held characters.
func (b *Buffer) Bytes() []byte {
	return append([]byte(nil), b.chars[:b.n]...)
}
