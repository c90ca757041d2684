// Package revert provides the error returned when execution halts with the
// REVERT opcode, carrying the reverted data.
package revert

import (
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/vm"
)

// An Error is returned when execution ends with a REVERT. Err is always
// vm.ErrExecutionReverted unless the Error was wrapped by a backend.
type Error struct {
	Data []byte
	Err  error
}

// New returns an *Error wrapping vm.ErrExecutionReverted, carrying data.
func New(data []byte) *Error {
	return &Error{
		Data: data,
		Err:  vm.ErrExecutionReverted,
	}
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	if len(e.Data) == 0 {
		return e.Err.Error()
	}
	return e.Err.Error() + ": data " + hexutil.Encode(e.Data)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Data returns the data carried by the first *Error in err's chain, and true,
// or nil and false if there is none.
func Data(err error) ([]byte, bool) {
	var r *Error
	if !errors.As(err, &r) {
		return nil, false
	}
	return r.Data, true
}
