// Package abi implements the subset of the Solidity contract ABI with which
// magicnum programs are called: 4-byte function selectors, call data for
// functions without parameters, and a single uint256 return value.
package abi

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// SelectorSize is the number of bytes in a function selector.
const SelectorSize = 4

// WordSize is the number of bytes in an ABI-encoded static value.
const WordSize = 32

// Errors returned by this package, possibly wrapped.
var (
	ErrSignature  = errors.New("malformed function signature")
	ErrParameters = errors.New("function parameters not supported")
	ErrLength     = errors.New("return data is not a single word")
)

// A Selector is the first 4 bytes of the Keccak256 hash of a canonical function
// signature.
type Selector [SelectorSize]byte

// String returns the 0x-prefixed hex encoding of s.
func (s Selector) String() string {
	return hexutil.Encode(s[:])
}

var identifier = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*$`)

// A Signature is a parsed canonical function signature, e.g. "foo(uint256)".
type Signature struct {
	Name   string
	Params []string
}

// String returns the canonical form of s.
func (s Signature) String() string {
	return s.Name + "(" + strings.Join(s.Params, ",") + ")"
}

// ParseSignature parses a canonical function signature, without whitespace and
// with every parameter type in its canonical form (e.g. uint256, not uint).
func ParseSignature(sig string) (Signature, error) {
	open := strings.IndexByte(sig, '(')
	if open == -1 || !strings.HasSuffix(sig, ")") {
		return Signature{}, fmt.Errorf("%w %q: missing parentheses", ErrSignature, sig)
	}

	s := Signature{Name: sig[:open]}
	if !identifier.MatchString(s.Name) {
		return Signature{}, fmt.Errorf("%w %q: invalid function name %q", ErrSignature, sig, s.Name)
	}

	params := sig[open+1 : len(sig)-1]
	if params == "" {
		return s, nil
	}
	for _, p := range strings.Split(params, ",") {
		if p == "" || strings.ContainsAny(p, " \t\n()") {
			return Signature{}, fmt.Errorf("%w %q: invalid parameter %q", ErrSignature, sig, p)
		}
		t, err := gethabi.NewType(p, "", nil)
		if err != nil {
			return Signature{}, fmt.Errorf("%w %q: parameter %q: %v", ErrSignature, sig, p, err)
		}
		if t.String() != p {
			return Signature{}, fmt.Errorf("%w %q: non-canonical parameter %q; use %q", ErrSignature, sig, p, t.String())
		}
		s.Params = append(s.Params, p)
	}
	return s, nil
}

// SelectorOf returns the function selector of sig, which MUST be a valid
// canonical signature as defined by ParseSignature().
func SelectorOf(sig string) (Selector, error) {
	s, err := ParseSignature(sig)
	if err != nil {
		return Selector{}, err
	}
	return s.Selector(), nil
}

// Selector returns the function selector of s.
func (s Signature) Selector() Selector {
	var sel Selector
	copy(sel[:], crypto.Keccak256([]byte(s.String()))[:SelectorSize])
	return sel
}

// EncodeCall returns the call data for invoking the function with signature
// sig. As argument values aren't supported, sig MUST NOT have parameters, and
// the call data is therefore only the selector.
func EncodeCall(sig string) ([]byte, error) {
	s, err := ParseSignature(sig)
	if err != nil {
		return nil, err
	}
	if len(s.Params) > 0 {
		return nil, fmt.Errorf("%w: %q has %d", ErrParameters, sig, len(s.Params))
	}
	sel := s.Selector()
	return sel[:], nil
}

// A DecodeError is returned when return data can't be decoded.
type DecodeError struct {
	Data []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding return data %s: %v", hexutil.Encode(e.Data), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var uint256Returns = func() gethabi.Arguments {
	t, err := gethabi.NewType("uint256", "", nil)
	if err != nil {
		panic(fmt.Sprintf("BUG: %v", err))
	}
	return gethabi.Arguments{{Type: t}}
}()

// DecodeUint256 decodes return data consisting of exactly one ABI-encoded
// uint256, i.e. a 32-byte big-endian word. Any other length results in a
// *DecodeError.
func DecodeUint256(data []byte) (*uint256.Int, error) {
	if len(data) != WordSize {
		return nil, &DecodeError{
			Data: data,
			Err:  fmt.Errorf("%w: %d bytes", ErrLength, len(data)),
		}
	}

	vals, err := uint256Returns.Unpack(data)
	if err != nil {
		return nil, &DecodeError{Data: data, Err: err}
	}
	b, ok := vals[0].(*big.Int)
	if !ok {
		return nil, &DecodeError{Data: data, Err: fmt.Errorf("unpacked %T; want %T", vals[0], b)}
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, &DecodeError{Data: data, Err: fmt.Errorf("%v overflows uint256", b)}
	}
	return v, nil
}
