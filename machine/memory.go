package machine

import (
	"fmt"
	"math/bits"

	"github.com/holiman/uint256"
)

// Memory is a zero-initialised, byte-addressable, linear memory that grows in
// 32-byte words on access. A Memory is owned by a single Context and MUST NOT
// be shared.
type Memory struct {
	store []byte
	limit uint64
}

func newMemory(limit uint64) *Memory {
	return &Memory{limit: limit}
}

// expand grows the memory, if necessary, to cover [offset,offset+size), rounded
// up to a whole word. A zero size never expands memory, regardless of offset.
func (m *Memory) expand(offset, size uint64) error {
	if size == 0 {
		return nil
	}
	end, carry := bits.Add64(offset, size, 0)
	if carry != 0 || end > m.limit {
		return fmt.Errorf("%w: access [%d,+%d) beyond %d bytes", ErrMemoryLimit, offset, size, m.limit)
	}
	words := (end + 31) / 32
	if n := words * 32; n > uint64(len(m.store)) {
		m.store = append(m.store, make([]byte, n-uint64(len(m.store)))...)
	}
	return nil
}

// set writes value into [offset,offset+size), zero-padding on the right if
// value is shorter than size.
func (m *Memory) set(offset, size uint64, value []byte) error {
	if err := m.expand(offset, size); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	dst := m.store[offset : offset+size]
	n := copy(dst, value)
	clear(dst[n:])
	return nil
}

// set32 writes the big-endian representation of val into [offset,offset+32).
func (m *Memory) set32(offset uint64, val *uint256.Int) error {
	if err := m.expand(offset, 32); err != nil {
		return err
	}
	val.WriteToSlice(m.store[offset : offset+32])
	return nil
}

// getCopy returns a copy of [offset,offset+size), expanding memory as reads
// do on the EVM.
func (m *Memory) getCopy(offset, size uint64) ([]byte, error) {
	if err := m.expand(offset, size); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if size > 0 {
		copy(out, m.store[offset:offset+size])
	}
	return out, nil
}

// Len returns the current size of the memory in bytes, always a multiple of 32.
func (m *Memory) Len() int {
	return len(m.store)
}

// Data returns the backing slice of the memory. Ownership is retained by the
// Memory; modify with caution!
func (m *Memory) Data() []byte {
	return m.store
}
