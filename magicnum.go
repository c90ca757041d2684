// Package magicnum hand-assembles minimal EVM programs that stage a single
// 32-byte constant in one of four conventional memory regions and return it,
// and verifies them end to end.
//
// The package also exposes the small bytecode DSL that the assembler is built
// on. It is designed to be dot-imported such that all exported opcodes are
// available in the importing package, allowing a mnemonic-style programming
// environment akin to writing assembly.
package magicnum

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/solidifylabs/magicnum/types"
)

//go:generate sh -c "go run ./internal/opcodegen > opcodes.gen.go"

// Code is a slice of Bytecoders; it is itself a Bytecoder, allowing for
// nesting.
type Code []types.Bytecoder

// Bytecode always returns an error; use Code.Compile instead(), which flattens
// nested Code instances.
func (c Code) Bytecode() ([]byte, error) {
	return nil, fmt.Errorf("call to %T.Bytecode()", c)
}

// Bytecoders returns the Code as a slice of Bytecoders.
func (c Code) Bytecoders() []types.Bytecoder {
	return []types.Bytecoder(c)
}

// Fn returns a Bytecoder that returns the concatenation of the *reverse* of
// bcs. This allows for a more human-readable syntax akin to a function call
// (hence the name), e.g. Fn(MSTORE, offset, value). Return values are left on
// the stack to be used by later Fn()s (or raw bytecode).
func Fn(bcs ...types.Bytecoder) types.BytecodeHolder {
	c := make(Code, len(bcs))
	for i, bc := range bcs {
		c[len(bcs)-i-1] = bc
	}
	return c
}

// Raw is a Bytecoder that bypasses all compiler checks and simply appends its
// contents to bytecode. It can be used for raw data, not meant to be executed.
type Raw []byte

// Bytecode returns `r` unchanged, and a nil error.
func (r Raw) Bytecode() ([]byte, error) {
	return []byte(r), nil
}

// A Label marks a specific point in the code without adding any bytes when
// compiled. The corresponding numerical value is the first byte *after* the
// Label.
type Label string

// Bytecode always returns an error as Label values have special handling
// inside Code.Compile().
func (l Label) Bytecode() ([]byte, error) {
	return nil, fmt.Errorf("direct call to %T.Bytecode()", l)
}

// A pushLabel pushes the Label's byte index to the stack.
type pushLabel Label

func (p pushLabel) Bytecode() ([]byte, error) {
	return nil, fmt.Errorf("direct call to %T.Bytecode()", p)
}

// PUSHSize pushes abs(loc(a),loc(b)), i.e. the size of the bytecode between the
// corresponding Labels.
func PUSHSize[T ~string, U ~string](a T, b U) types.Bytecoder {
	return pushSize{Label(a), Label(b)}
}

type pushSize [2]Label

func (p pushSize) Bytecode() ([]byte, error) {
	return nil, fmt.Errorf("direct call to %T.Bytecode()", p)
}

// PUSHSelector returns a PUSH4 Bytecoder that pushes the selector of the
// signature, i.e. `sha3(sig)[:4]`.
func PUSHSelector(sig string) types.Bytecoder {
	return PUSH(crypto.Keccak256([]byte(sig))[:4])
}

// PUSHBytes accepts [1,32] bytes, returning a PUSH<x> Bytecoder where x is the
// smallest number of bytes (possibly zero) that can represent the concatenated
// values; i.e. x = len(bs) - leadingZeros(bs).
func PUSHBytes(bs ...byte) types.Bytecoder {
	return types.BytecoderFromStackPusher(bytesPusher(bs))
}

type bytesPusher []byte

func (p bytesPusher) ToPush() []byte { return []byte(p) }

// PUSHN returns a PUSH<width> Bytecoder for v, regardless of leading zeroes;
// width MUST be in [1,32] and large enough to represent v, otherwise the
// Bytecoder returns an error. Unlike PUSH(), it never produces PUSH0, so the
// output is valid on pre-Shanghai machines.
func PUSHN(width int, v uint256.Int) types.Bytecoder {
	return types.VerbatimBytecoderFromStackPusher(fixedPusher{width, v})
}

type fixedPusher struct {
	width int
	v     uint256.Int
}

func (p fixedPusher) ToPush() []byte {
	if p.width < 1 || p.width > 32 || p.v.ByteLen() > p.width {
		// Signals an invalid length to the types.pusher, which will error.
		return nil
	}
	b := p.v.Bytes32()
	return b[32-p.width:]
}

// PUSHCompact returns PUSHN(w, v) where w is the narrowest width, at least
// one byte, that can represent v.
func PUSHCompact(v uint256.Int) types.Bytecoder {
	return PUSHN(max(1, v.ByteLen()), v)
}

// PUSH returns a PUSH<n> Bytecoder appropriate for the type. It panics if v is
// negative. A Label (or string) refers to the respective Label's location.
func PUSH[P interface {
	int | uint64 | common.Address | uint256.Int | byte | []byte | Label | string
}](v P,
) types.Bytecoder {
	pToB := types.BytecoderFromStackPusher

	switch v := any(v).(type) {
	case int:
		if v < 0 {
			panic(fmt.Sprintf("PUSH() negative value %d", v))
		}
		return pToB(uint64Pusher(uint64(v)))

	case uint64:
		return pToB(uint64Pusher(v))

	case byte:
		return PUSHBytes(v)

	case []byte:
		return PUSHBytes(v...)

	case common.Address:
		return pToB(addressPusher(v))

	case uint256.Int:
		return pToB(wordPusher(v))

	case string:
		return pushLabel(v)

	case Label:
		return pushLabel(v)

	default:
		panic(fmt.Sprintf("no type-switch for %T", v))
	}
}

// A uint64Pusher converts itself into the smallest possible representation in
// bytes.
type uint64Pusher uint64

func (p uint64Pusher) ToPush() []byte {
	if p == 0 {
		return []byte{0}
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(p))
	return b[bits.LeadingZeros64(uint64(p))/8:]
}

type wordPusher uint256.Int

func (p wordPusher) ToPush() []byte {
	i := (*uint256.Int)(&p)
	if i.IsZero() {
		return []byte{0}
	}
	return i.Bytes()
}

type addressPusher common.Address

func (p addressPusher) ToPush() []byte { return p[:] }
