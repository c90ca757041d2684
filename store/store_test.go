package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
)

func stores(t *testing.T) map[string]func(*testing.T) Store {
	t.Helper()
	return map[string]func(*testing.T) Store{
		"memory": func(*testing.T) Store {
			return NewMemory()
		},
		"bolt": func(t *testing.T) Store {
			t.Helper()
			b, err := OpenBolt(DefaultBoltConfig(filepath.Join(t.TempDir(), "nested", "magicnum.db")))
			if err != nil {
				t.Fatalf("OpenBolt() error %v", err)
			}
			t.Cleanup(func() { b.Close() })
			return b
		},
	}
}

func TestCode(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			addr := common.Address{'a', 'd', 'd', 'r'}
			code := []byte{0x60, 0x2a}

			if _, err := s.Code(addr); !errors.Is(err, ErrNotFound) {
				t.Errorf("Code() before PutCode() got err %v; want %v", err, ErrNotFound)
			}
			if err := s.PutCode(addr, code); err != nil {
				t.Fatalf("PutCode() error %v", err)
			}
			code[0] = 0 // stored code MUST be a copy

			got, err := s.Code(addr)
			if err != nil || !bytes.Equal(got, []byte{0x60, 0x2a}) {
				t.Errorf("Code() got %#x, err = %v; want 0x602a, nil error", got, err)
			}
			got[0] = 0 // returned code MUST be a copy
			if again, _ := s.Code(addr); again[0] != 0x60 {
				t.Errorf("Code() affected by modifying previously returned slice")
			}

			if err := s.PutCode(addr, []byte{1}); !errors.Is(err, ErrExists) {
				t.Errorf("second PutCode() got err %v; want %v", err, ErrExists)
			}
		})
	}
}

func TestNextNonce(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			a := common.Address{'a'}
			b := common.Address{'b'}

			var got []uint64
			for _, addr := range []common.Address{a, a, b, a, b} {
				n, err := s.NextNonce(addr)
				if err != nil {
					t.Fatalf("NextNonce(%v) error %v", addr, err)
				}
				got = append(got, n)
			}
			if diff := cmp.Diff([]uint64{0, 1, 0, 2, 1}, got); diff != "" {
				t.Errorf("NextNonce() sequence diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConcurrentNonces(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			deployer := common.Address{'d'}

			const n = 50
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				seen = make(map[uint64]bool)
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					nonce, err := s.NextNonce(deployer)
					if err != nil {
						t.Errorf("NextNonce() error %v", err)
						return
					}
					mu.Lock()
					seen[nonce] = true
					mu.Unlock()
				}()
			}
			wg.Wait()

			for i := uint64(0); i < n; i++ {
				if !seen[i] {
					t.Errorf("nonce %d never returned by concurrent NextNonce() calls", i)
				}
			}
		})
	}
}

func TestClosed(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			if err := s.Close(); err != nil {
				t.Fatalf("Close() error %v", err)
			}
			if _, err := s.NextNonce(common.Address{}); !errors.Is(err, ErrClosed) {
				t.Errorf("NextNonce() after Close() got err %v; want %v", err, ErrClosed)
			}
			if _, err := s.Code(common.Address{}); !errors.Is(err, ErrClosed) {
				t.Errorf("Code() after Close() got err %v; want %v", err, ErrClosed)
			}
		})
	}
}

func TestBoltPersistence(t *testing.T) {
	cfg := DefaultBoltConfig(filepath.Join(t.TempDir(), "magicnum.db"))
	addr := common.Address{'p'}
	deployer := common.Address{'d'}

	b, err := OpenBolt(cfg)
	if err != nil {
		t.Fatalf("OpenBolt() error %v", err)
	}
	if _, err := b.NextNonce(deployer); err != nil {
		t.Fatalf("NextNonce() error %v", err)
	}
	if err := b.PutCode(addr, []byte{0xf3}); err != nil {
		t.Fatalf("PutCode() error %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error %v", err)
	}

	b, err = OpenBolt(cfg)
	if err != nil {
		t.Fatalf("OpenBolt() second time error %v", err)
	}
	defer b.Close()

	if got, err := b.Code(addr); err != nil || !bytes.Equal(got, []byte{0xf3}) {
		t.Errorf("Code() after reopening got %#x, err = %v; want 0xf3", got, err)
	}
	if got, err := b.NextNonce(deployer); err != nil || got != 1 {
		t.Errorf("NextNonce() after reopening got %d, err = %v; want 1", got, err)
	}
}
