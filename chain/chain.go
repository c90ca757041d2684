// Package chain implements the deployment and call protocols through which
// magicnum Programs are exercised: a Program's payload is deployed to a
// Backend, yielding an addressable Instance, which is then called with ABI
// call data.
package chain

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"

	"github.com/solidifylabs/magicnum"
	"github.com/solidifylabs/magicnum/abi"
)

// An Instance is a deployed program. It is immutable.
type Instance struct {
	Address common.Address
	code    []byte
}

// NewInstance returns an Instance at addr holding a copy of code. It is
// intended for use by Backend implementations.
func NewInstance(addr common.Address, code []byte) *Instance {
	return &Instance{
		Address: addr,
		code:    bytes.Clone(code),
	}
}

// Code returns a copy of the code returned by the init code at deployment.
func (i *Instance) Code() []byte {
	return bytes.Clone(i.code)
}

// A Backend deploys and calls code. Every deployment and every call MUST be
// executed in a fresh execution context.
type Backend interface {
	// Deploy executes payload as init code and stores the returned code as a
	// new Instance. Failures MUST be reported as a *DeploymentError.
	Deploy(payload []byte) (*Instance, error)
	// Call executes the Instance's stored code with callData as input,
	// returning the output of RETURN.
	Call(inst *Instance, callData []byte) ([]byte, error)
}

// Errors carried by a *DeploymentError.
var (
	ErrEmptyCode        = errors.New("init code returned no code")
	ErrAddressCollision = errors.New("instance address already occupied")
)

// ErrCodeMismatch is carried by a *magicnum.AssemblyError when a deployed
// Instance's code differs from the Program's runtime code.
var ErrCodeMismatch = errors.New("deployed code differs from runtime code")

// ErrNoInstance is returned when calling an Instance unknown to a Backend.
var ErrNoInstance = errors.New("no instance at address")

// A DeploymentError is returned when deployment fails: the init code failed to
// execute, returned no code, or no address could be allocated.
type DeploymentError struct {
	Err error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("deployment failed: %v", e.Err)
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}

// Deploy deploys p to b, returning the new Instance. If the deployed code is
// not identical to p.RuntimeCode() then the Program is defective and a
// *magicnum.AssemblyError is returned; all other failures are of type
// *DeploymentError.
func Deploy(b Backend, p magicnum.Program) (*Instance, error) {
	inst, err := b.Deploy(p.Payload())
	if err != nil {
		var depErr *DeploymentError
		if !errors.As(err, &depErr) {
			err = &DeploymentError{Err: err}
		}
		return nil, err
	}

	if got, want := inst.code, p.RuntimeCode(); !bytes.Equal(got, want) {
		return nil, &magicnum.AssemblyError{
			Region: p.Region(),
			Err:    fmt.Errorf("%w: deployed %#x; want %#x", ErrCodeMismatch, got, want),
		}
	}

	log.WithFields(log.Fields{
		"address":  inst.Address,
		"region":   p.Region(),
		"codeSize": len(inst.code),
	}).Debug("Deployed program")
	return inst, nil
}

// CallRaw calls the function with signature sig on inst, returning the raw
// return data. The signature MUST NOT have parameters.
func CallRaw(b Backend, inst *Instance, sig string) ([]byte, error) {
	callData, err := abi.EncodeCall(sig)
	if err != nil {
		return nil, err
	}
	ret, err := b.Call(inst, callData)
	if err != nil {
		return nil, fmt.Errorf("calling %q on %v: %w", sig, inst.Address, err)
	}
	log.Debugf("Called %q on %v; returned %#x", sig, inst.Address, ret)
	return ret, nil
}

// Call is equivalent to CallRaw(), but decodes the return data as a single
// uint256, returning an *abi.DecodeError if this isn't possible.
func Call(b Backend, inst *Instance, sig string) (*uint256.Int, error) {
	ret, err := CallRaw(b, inst, sig)
	if err != nil {
		return nil, err
	}
	return abi.DecodeUint256(ret)
}
