package machine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// StackLimit is the maximum number of words on a Stack.
const StackLimit = int(params.StackLimit)

// A Stack is a LIFO of 256-bit words.
type Stack struct {
	data []uint256.Int
}

func newStack() *Stack {
	return &Stack{data: make([]uint256.Int, 0, 16)}
}

func (s *Stack) push(v *uint256.Int) error {
	if len(s.data) >= StackLimit {
		return fmt.Errorf("%w: limit %d", ErrStackOverflow, StackLimit)
	}
	s.data = append(s.data, *v)
	return nil
}

// require returns an error if the stack holds fewer than n words.
func (s *Stack) require(n int) error {
	if len(s.data) < n {
		return fmt.Errorf("%w: have %d, need %d", ErrStackUnderflow, len(s.data), n)
	}
	return nil
}

func (s *Stack) pop() (uint256.Int, error) {
	if err := s.require(1); err != nil {
		return uint256.Int{}, err
	}
	v := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return v, nil
}

// popN pops n words, returning them top first.
func (s *Stack) popN(n int) ([]uint256.Int, error) {
	if err := s.require(n); err != nil {
		return nil, err
	}
	out := make([]uint256.Int, n)
	for i := range out {
		out[i] = s.data[len(s.data)-1-i]
	}
	s.data = s.data[:len(s.data)-n]
	return out, nil
}

// dup pushes a copy of the nth word, 1-indexed from the top.
func (s *Stack) dup(n int) error {
	if err := s.require(n); err != nil {
		return err
	}
	v := s.data[len(s.data)-n]
	return s.push(&v)
}

// swap exchanges the top word with the (n+1)th, 1-indexed from the top.
func (s *Stack) swap(n int) error {
	if err := s.require(n + 1); err != nil {
		return err
	}
	top, other := len(s.data)-1, len(s.data)-1-n
	s.data[top], s.data[other] = s.data[other], s.data[top]
	return nil
}

// Len returns the number of words on the stack.
func (s *Stack) Len() int {
	return len(s.data)
}

// Data returns the words on the stack, bottom first. Ownership is retained by
// the Stack; modify with caution!
func (s *Stack) Data() []uint256.Int {
	return s.data
}

// Back returns the nth word from the top, 0-indexed.
func (s *Stack) Back(n int) *uint256.Int {
	return &s.data[len(s.data)-1-n]
}
