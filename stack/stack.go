// Package stack provides stack-related compiler hints for use in magicnum
// code.
package stack

import "fmt"

// ExpectDepth is a sentinel value that signals to Code.Compile() that it must
// assert the expected stack depth, returning an error if incorrect. Note that
// the expectation is with respect to magicnum.Code.Compile(), which tracks the
// depth implied by each opcode from an empty stack, and has nothing to do with
// concrete (runtime) depths.
type ExpectDepth uint

// Bytecode always returns an error.
func (d ExpectDepth) Bytecode() ([]byte, error) {
	return nil, fmt.Errorf("call to %T.Bytecode()", d)
}
