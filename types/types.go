// Package types defines types used by the magicnum package, which is intended
// to be dot-imported so requires a minimal footprint of exported symbols.
package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"
)

// A Bytecoder returns raw EVM bytecode. If the returned bytecode is the
// concatenation of multiple Bytecoder outputs, the type MUST also implement
// BytecodeHolder.
type Bytecoder interface {
	Bytecode() ([]byte, error)
}

// A BytecodeHolder is a concatenation of Bytecoders.
type BytecodeHolder interface {
	Bytecoder
	Bytecoders() []Bytecoder
}

// An OpCode is a single-byte Bytecoder. Regular opcodes are exported by the
// magicnum package as constants of this type.
type OpCode vm.OpCode

// Bytecode returns the OpCode as a single byte, and a nil error.
func (o OpCode) Bytecode() ([]byte, error) {
	return []byte{byte(o)}, nil
}

// String returns the mnemonic of the OpCode.
func (o OpCode) String() string {
	return vm.OpCode(o).String()
}

// A StackPusher returns [1,32] bytes to be pushed to the stack.
type StackPusher interface {
	ToPush() []byte
}

// BytecoderFromStackPusher returns a Bytecoder that calls s.ToPush() and
// prepends the appropriate PUSH<N> opcode to the returned bytecode. Leading
// zeroes are stripped, and an all-zero value becomes PUSH0.
func BytecoderFromStackPusher(s StackPusher) Bytecoder {
	return pusher{s, false}
}

// VerbatimBytecoderFromStackPusher is equivalent to BytecoderFromStackPusher
// except that the bytes returned by s.ToPush() are used without modification,
// so a PUSH<len(ToPush())> is always produced, never PUSH0.
func VerbatimBytecoderFromStackPusher(s StackPusher) Bytecoder {
	return pusher{s, true}
}

type pusher struct {
	StackPusher
	verbatim bool
}

func (p pusher) Bytecode() ([]byte, error) {
	buf := p.ToPush()
	n := len(buf)
	if n == 0 || n > 32 {
		return nil, fmt.Errorf("len(%T.ToPush()) == %d must be in [1,32]", p.StackPusher, n)
	}

	size := n
	if !p.verbatim {
		for _, b := range buf {
			if b != 0 {
				break
			}
			size--
		}
	}
	if size == 0 {
		return []byte{byte(vm.PUSH0)}, nil
	}

	return append(
		// PUSH0 to PUSH32 are contiguous, so we can perform arithmetic on them.
		[]byte{byte(vm.PUSH0 + vm.OpCode(size))},
		buf[n-size:]...,
	), nil
}
