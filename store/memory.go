package store

import (
	"bytes"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Memory is an in-memory Store. The zero value is NOT ready for use; see
// NewMemory().
type Memory struct {
	mu     sync.RWMutex
	code   map[common.Address][]byte
	nonces map[common.Address]uint64
	closed bool
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		code:   make(map[common.Address][]byte),
		nonces: make(map[common.Address]uint64),
	}
}

// NextNonce implements Store.
func (m *Memory) NextNonce(deployer common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	n := m.nonces[deployer]
	m.nonces[deployer] = n + 1
	return n, nil
}

// PutCode implements Store.
func (m *Memory) PutCode(addr common.Address, code []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.code[addr]; ok {
		return ErrExists
	}
	m.code[addr] = bytes.Clone(code)
	return nil
}

// Code implements Store.
func (m *Memory) Code(addr common.Address) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	c, ok := m.code[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(c), nil
}

// Close implements Store. All subsequent calls to other methods return
// ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
