// Package runopts provides configuration options for magicnum.Code.Run() and
// for the deployment backends in the chain packages.
package runopts

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/solidifylabs/magicnum/machine"
)

// DefaultGasLimit is the gas made available to each execution by backends
// that meter gas.
const DefaultGasLimit = 30e6

// A Configuration carries all values that can be modified to configure an
// execution. It is intially set by New() and then passed to all Options to be
// modified.
type Configuration struct {
	// machine.New()
	Machine machine.Config
	// Sender of deployments, from which instance addresses are derived.
	Deployer common.Address
	// Only used by backends that meter gas.
	GasLimit uint64
}

// DefaultDeployer returns the default value of Configuration.Deployer.
func DefaultDeployer() common.Address {
	return common.Address{'m', 'a', 'g', 'i', 'c', 'n', 'u', 'm'}
}

// New returns a default Configuration after applying all Options to it, in
// order.
func New(opts ...Option) (*Configuration, error) {
	cfg := &Configuration{
		Deployer: DefaultDeployer(),
		GasLimit: DefaultGasLimit,
	}
	for _, o := range opts {
		if err := o.Apply(cfg); err != nil {
			return nil, fmt.Errorf("runopts.Option[%T].Apply(): %v", o, err)
		}
	}
	return cfg, nil
}

// An Option modifies a Configuration.
type Option interface {
	Apply(*Configuration) error
}

// A Func converts any function into an Option by calling itself as Apply().
type Func func(*Configuration) error

// Apply returns f(c).
func (f Func) Apply(c *Configuration) error {
	return f(c)
}

// MaxMemory limits the memory of every execution context to n bytes.
func MaxMemory(n uint64) Option {
	return Func(func(c *Configuration) error {
		if n < 32 {
			return fmt.Errorf("max memory %d bytes; must be at least one word", n)
		}
		c.Machine.MaxMemory = n
		return nil
	})
}

// MaxSteps limits the number of opcodes executed in every execution context.
func MaxSteps(n uint64) Option {
	return Func(func(c *Configuration) error {
		if n == 0 {
			return fmt.Errorf("max steps must be non-zero")
		}
		c.Machine.MaxSteps = n
		return nil
	})
}

// Deployer sets the sender of deployments.
func Deployer(addr common.Address) Option {
	return Func(func(c *Configuration) error {
		c.Deployer = addr
		return nil
	})
}

// GasLimit sets the gas available to each execution by backends that meter
// gas.
func GasLimit(gas uint64) Option {
	return Func(func(c *Configuration) error {
		c.GasLimit = gas
		return nil
	})
}

// Trace adds a machine.Tracer to the Configuration. If one is already present,
// both are called, in the order in which they were added.
func Trace(t machine.Tracer) Option {
	return Func(func(c *Configuration) error {
		switch prev := c.Machine.Tracer.(type) {
		case nil:
			c.Machine.Tracer = t
		case tracers:
			c.Machine.Tracer = append(prev, t)
		default:
			c.Machine.Tracer = tracers{prev, t}
		}
		return nil
	})
}

type tracers []machine.Tracer

func (ts tracers) BeforeOp(s machine.State) {
	for _, t := range ts {
		t.BeforeOp(s)
	}
}

func (ts tracers) AfterOp(s machine.State) {
	for _, t := range ts {
		t.AfterOp(s)
	}
}

func (ts tracers) OnHalt(s machine.State) {
	for _, t := range ts {
		t.OnHalt(s)
	}
}
