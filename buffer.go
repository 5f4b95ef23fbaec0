package p2pwire

// MaxBufferSize is the capacity of a Buffer. A message, terminator included,
// has to fit in it.
const MaxBufferSize = 10000

const terminator = '\n'

// Buffer is fixed capacity message storage with a tracked used length. It never
// grows; every write is range checked before it lands.
//
// A Buffer is owned by one connection. The codec only borrows it for the
// duration of a single scan, tokenize or write call.
type Buffer struct {
	data [MaxBufferSize]byte
	n    int
}

func NewBuffer() *Buffer {
	return new(Buffer)
}

// Len returns the number of used bytes.
func (b *Buffer) Len() int {
	return b.n
}

func (b *Buffer) Available() int {
	return MaxBufferSize - b.n
}

func (b *Buffer) Full() bool {
	return b.n >= MaxBufferSize
}

// Bytes returns the used prefix. The slice aliases the buffer and is only
// valid until the next write.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

func (b *Buffer) Reset() {
	b.n = 0
}

// WriteByte appends c, failing with ErrMessageTooLarge once the buffer is full.
func (b *Buffer) WriteByte(c byte) error {
	n, ok := putByte(b.data[:], b.n, c)
	if !ok {
		return ErrMessageTooLarge
	}
	b.n = n
	return nil
}

// Set replaces the buffer contents with p.
func (b *Buffer) Set(p []byte) error {
	if len(p) > MaxBufferSize {
		return ErrMessageTooLarge
	}
	b.n = copy(b.data[:], p)
	return nil
}

func putByte(dst []byte, n int, c byte) (int, bool) {
	if n >= len(dst) {
		return n, false
	}
	dst[n] = c
	return n + 1, true
}
