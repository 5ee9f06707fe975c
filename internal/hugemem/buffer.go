//go:build linux

package hugemem

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PageSize is the huge page size this package allocates against. The
// coordinator's alloc_size must be a multiple of it.
const PageSize = 2 * 1024 * 1024

// RoundUp returns the smallest multiple of PageSize that is >= n.
func RoundUp(n uint64) uint64 {
	if rem := n % PageSize; rem != 0 {
		return n + (PageSize - rem)
	}
	return n
}

// Buffer is a single contiguous huge-page-backed allocation. It is the
// sole owner of the backing mapping; workers operate on non-owning Views.
type Buffer struct {
	data   []byte
	once   sync.Once
	closed atomic.Bool
}

// Allocate maps size bytes (rounded up to PageSize) with
// MAP_PRIVATE|MAP_ANONYMOUS|MAP_HUGETLB and zero-fills it by touching
// every page, which also serves as the initial page fault-in.
func Allocate(size uint64) (*Buffer, error) {
	rounded := RoundUp(size)
	data, err := unix.Mmap(-1, 0, int(rounded),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_HUGETLB)
	if err != nil {
		return nil, fmt.Errorf("hugemem: mmap %d bytes: %w", rounded, err)
	}

	b := &Buffer{data: data}
	for i := 0; i < len(b.data); i += PageSize {
		b.data[i] = 0
	}
	runtime.SetFinalizer(b, (*Buffer).Close)
	return b, nil
}

// Len returns the allocation size in bytes (the rounded-up size, not the
// size originally requested).
func (b *Buffer) Len() int { return len(b.data) }

// View returns a non-owning handle over the whole buffer.
func (b *Buffer) View() *View {
	return &View{buf: b}
}

// Close unmaps the buffer. Idempotent.
func (b *Buffer) Close() error {
	var err error
	b.once.Do(func() {
		runtime.SetFinalizer(b, nil)
		b.closed.Store(true)
		err = unix.Munmap(b.data)
	})
	return err
}

// View is a non-owning, read-only-in-intent handle onto a Buffer's
// backing memory, handed to pirate workers. It never writes through the
// mapping after the initial fault-in performed by Allocate.
type View struct {
	buf *Buffer
}

// Len returns the size of the underlying buffer.
func (v *View) Len() int { return v.buf.Len() }

// TouchAt performs one compiler-opaque byte load at offset i, returning
// the byte read. Implemented as an atomic load of the 4-byte-aligned word
// containing i, which the compiler cannot hoist, reorder away, or elide —
// the mechanism the touching loop relies on to force every line access to
// actually execute.
func (v *View) TouchAt(i int) (byte, error) {
	if v.buf.closed.Load() {
		return 0, ErrClosed
	}
	data := v.buf.data
	if i < 0 || i >= len(data) {
		return 0, ErrOutOfRange
	}

	// PageSize (and therefore len(data)) is always a multiple of 4, so
	// the 4-byte-aligned word containing i is always fully in range.
	base := i &^ 3
	word := atomic.LoadUint32((*uint32)(unsafe.Pointer(&data[base])))
	shift := uint(i-base) * 8
	return byte(word >> shift), nil
}
