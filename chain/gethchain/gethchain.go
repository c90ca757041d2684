// Package gethchain provides a chain.Backend that executes code on
// go-ethereum's EVM, with an in-memory state that persists for the lifetime of
// the Backend.
package gethchain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/core/vm/runtime"
	log "github.com/sirupsen/logrus"

	"github.com/solidifylabs/magicnum/chain"
	"github.com/solidifylabs/magicnum/revert"
	"github.com/solidifylabs/magicnum/runopts"
)

// A Backend deploys and calls code via go-ethereum's core/vm/runtime package,
// under post-merge rules. Deployments are sent by the configured deployer so
// addresses match those of chain.Simulated for the same sequence of
// deployments.
type Backend struct {
	mu  sync.Mutex
	cfg *runtime.Config
}

var _ chain.Backend = (*Backend)(nil)

// New returns a new Backend. Only the Deployer and GasLimit fields of the
// runopts.Configuration are used; machine limits don't apply to the EVM.
func New(opts ...runopts.Option) (*Backend, error) {
	c, err := runopts.New(opts...)
	if err != nil {
		return nil, err
	}
	return &Backend{
		cfg: &runtime.Config{
			Origin:   c.Deployer,
			GasLimit: c.GasLimit,
			// A non-nil Random activates the merge rules, and with them PUSH0.
			Random: &common.Hash{},
		},
	}, nil
}

// Deploy implements chain.Backend.
func (b *Backend) Deploy(payload []byte) (*chain.Instance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// runtime.Create() populates b.cfg.State on first use, which is then reused
	// by all later deployments and calls.
	code, addr, gasLeft, err := runtime.Create(payload, b.cfg)
	switch {
	case errors.Is(err, vm.ErrContractAddressCollision):
		return nil, &chain.DeploymentError{Err: fmt.Errorf("%w: %v", chain.ErrAddressCollision, addr)}
	case err != nil:
		return nil, &chain.DeploymentError{Err: fmt.Errorf("runtime.Create(): %w", asRevert(code, err))}
	case len(code) == 0:
		return nil, &chain.DeploymentError{Err: chain.ErrEmptyCode}
	}

	log.WithFields(log.Fields{
		"address": addr,
		"gasUsed": b.cfg.GasLimit - gasLeft,
	}).Debug("EVM deployment")
	return chain.NewInstance(addr, code), nil
}

// Call implements chain.Backend.
func (b *Backend) Call(inst *chain.Instance, callData []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.State == nil || b.cfg.State.GetCodeSize(inst.Address) == 0 {
		return nil, fmt.Errorf("%w %v", chain.ErrNoInstance, inst.Address)
	}

	ret, gasLeft, err := runtime.Call(inst.Address, callData, b.cfg)
	if err != nil {
		return nil, fmt.Errorf("runtime.Call(%v): %w", inst.Address, asRevert(ret, err))
	}
	log.Debugf("EVM call to %v used %d gas", inst.Address, b.cfg.GasLimit-gasLeft)
	return ret, nil
}

// asRevert converts vm.ErrExecutionReverted into a *revert.Error carrying the
// returned data, for parity with the magicnum machine.
func asRevert(data []byte, err error) error {
	if !errors.Is(err, vm.ErrExecutionReverted) {
		return err
	}
	return &revert.Error{
		Data: data,
		Err:  err,
	}
}
