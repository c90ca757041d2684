package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"

	"github.com/solidifylabs/magicnum/machine"
	"github.com/solidifylabs/magicnum/runopts"
	"github.com/solidifylabs/magicnum/store"
)

// Simulated is a Backend that executes code on a magicnum machine.Context and
// persists Instances in a store.Store. Instance addresses are derived from the
// configured deployer and its nonce, as with the CREATE opcode.
type Simulated struct {
	store store.Store
	cfg   *runopts.Configuration
}

var _ Backend = (*Simulated)(nil)

// NewSimulated returns a Simulated backend using s for persistence. Only the
// Machine and Deployer fields of the runopts.Configuration are used.
func NewSimulated(s store.Store, opts ...runopts.Option) (*Simulated, error) {
	cfg, err := runopts.New(opts...)
	if err != nil {
		return nil, err
	}
	return &Simulated{
		store: s,
		cfg:   cfg,
	}, nil
}

// Deploy implements Backend. As with CREATE, the deployer's nonce is consumed
// even if the init code fails or returns no code.
func (s *Simulated) Deploy(payload []byte) (*Instance, error) {
	deployer := s.cfg.Deployer
	nonce, err := s.store.NextNonce(deployer)
	if err != nil {
		return nil, &DeploymentError{Err: fmt.Errorf("%T.NextNonce(%v): %w", s.store, deployer, err)}
	}
	addr := crypto.CreateAddress(deployer, nonce)

	code, err := machine.Run(payload, nil, s.cfg.Machine)
	if err != nil {
		return nil, &DeploymentError{Err: fmt.Errorf("executing init code: %w", err)}
	}
	if len(code) == 0 {
		return nil, &DeploymentError{Err: ErrEmptyCode}
	}

	switch err := s.store.PutCode(addr, code); {
	case errors.Is(err, store.ErrExists):
		return nil, &DeploymentError{Err: fmt.Errorf("%w: %v", ErrAddressCollision, addr)}
	case err != nil:
		return nil, &DeploymentError{Err: fmt.Errorf("%T.PutCode(%v): %w", s.store, addr, err)}
	}

	log.Debugf("Simulated deployment by %v (nonce %d) to %v", deployer, nonce, addr)
	return NewInstance(addr, code), nil
}

// Call implements Backend. The code executed is that which is stored at
// inst.Address, not inst.Code().
func (s *Simulated) Call(inst *Instance, callData []byte) ([]byte, error) {
	code, err := s.store.Code(inst.Address)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w %v", ErrNoInstance, inst.Address)
	}
	if err != nil {
		return nil, err
	}
	return machine.Run(code, callData, s.cfg.Machine)
}
