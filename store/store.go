// Package store persists the state of deployment backends: the code of every
// deployed instance, keyed by address, and the nonce of every deployer from
// which new addresses are derived.
package store

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotFound is returned when no code is stored at an address.
	ErrNotFound = errors.New("code not found")

	// ErrExists is returned when storing code at an address that already has
	// some. Stored code is immutable.
	ErrExists = errors.New("code already stored at address")

	// ErrClosed is returned when operating on a closed Store.
	ErrClosed = errors.New("store closed")
)

// A Store persists deployed code and deployer nonces. Implementations are safe
// for concurrent use.
type Store interface {
	// NextNonce returns the nonce to be used by deployer's next deployment and
	// then increments it, atomically.
	NextNonce(deployer common.Address) (uint64, error)
	// PutCode stores code at addr, returning ErrExists if the address is
	// already occupied.
	PutCode(addr common.Address, code []byte) error
	// Code returns a copy of the code stored at addr, or ErrNotFound.
	Code(addr common.Address) ([]byte, error)
	Close() error
}
