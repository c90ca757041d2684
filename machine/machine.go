// Package machine implements the execution context in which magicnum programs
// run: an operand stack of 256-bit words, a zero-initialised linear memory
// that grows on access, and an interpreter for the subset of EVM opcodes that
// the programs use.
//
// A Context is used for exactly one run and then discarded; nothing is shared
// between runs, so deployment and every call each get a fresh Context.
package machine

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/solidifylabs/magicnum/revert"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultMaxMemory = 1 << 20
	DefaultMaxSteps  = 1 << 16
)

// Errors returned by Context.Run(), possibly wrapped.
var (
	ErrStackUnderflow = errors.New("stack underflow")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrMemoryLimit    = errors.New("memory limit exceeded")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrReused         = errors.New("execution context already used")
)

// An InvalidOpCodeError is returned when the machine encounters an opcode
// that it doesn't support, including vm.INVALID.
type InvalidOpCodeError struct {
	PC uint64
	Op vm.OpCode
}

func (e *InvalidOpCodeError) Error() string {
	return fmt.Sprintf("invalid opcode %v at PC %d", e.Op, e.PC)
}

// Config configures a Context.
type Config struct {
	MaxMemory uint64 // Bytes; DefaultMaxMemory if zero
	MaxSteps  uint64 // Executed opcodes; DefaultMaxSteps if zero
	Tracer    Tracer // Optional
}

// A Tracer intercepts execution of every opcode. BeforeOp is called before the
// opcode at State.PC is executed, and AfterOp once it has been, with State.Err
// populated if it failed; State.Halted() is already accurate in AfterOp for the
// last opcode. OnHalt is called exactly once, when Run() returns, even if no
// opcode was executed. All methods are called synchronously by Context.Run().
type Tracer interface {
	BeforeOp(State)
	AfterOp(State)
	OnHalt(State)
}

// State is a view of a Context, passed to a Tracer. Ownership of the stack and
// memory is retained by the Context; modify with caution!
type State struct {
	PC    uint64
	Op    vm.OpCode
	Steps uint64 // Number of opcodes completed before this one
	Err   error

	ctx *Context
}

// StackData returns the stack, bottom first.
func (s State) StackData() []uint256.Int {
	return s.ctx.stack.Data()
}

// StackBack returns the nth word from the top of the stack, 0-indexed.
func (s State) StackBack(n int) *uint256.Int {
	return s.ctx.stack.Back(n)
}

// MemoryData returns the memory.
func (s State) MemoryData() []byte {
	return s.ctx.mem.Data()
}

// Code returns the code being executed.
func (s State) Code() []byte {
	return s.ctx.code
}

// Halted returns whether execution has ended, successfully or otherwise.
func (s State) Halted() bool {
	return s.ctx.halted
}

// A Context is a single-use execution context.
type Context struct {
	code, input []byte
	cfg         Config

	stack *Stack
	mem   *Memory

	pc, steps uint64
	halted    bool
	used      bool
}

// New returns a fresh Context that will execute code with the input as call
// data.
func New(code, input []byte, cfg Config) *Context {
	if cfg.MaxMemory == 0 {
		cfg.MaxMemory = DefaultMaxMemory
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	return &Context{
		code:  code,
		input: input,
		cfg:   cfg,
		stack: newStack(),
		mem:   newMemory(cfg.MaxMemory),
	}
}

// Run is a convenience wrapper for New(code, input, cfg).Run().
func Run(code, input []byte, cfg Config) ([]byte, error) {
	return New(code, input, cfg).Run()
}

// Run executes the code until it halts, returning the output of RETURN. STOP,
// or running off the end of the code, halts with empty output. REVERT results
// in a *revert.Error. Run MUST NOT be called more than once.
func (c *Context) Run() (_ []byte, retErr error) {
	if c.used {
		return nil, ErrReused
	}
	c.used = true
	defer func() {
		c.halted = true
		if t := c.cfg.Tracer; t != nil {
			t.OnHalt(State{
				PC:    c.pc,
				Steps: c.steps,
				Err:   retErr,
				ctx:   c,
			})
		}
	}()

	for {
		if c.pc >= uint64(len(c.code)) {
			return nil, nil
		}

		st := State{
			PC:    c.pc,
			Op:    vm.OpCode(c.code[c.pc]),
			Steps: c.steps,
			ctx:   c,
		}
		if t := c.cfg.Tracer; t != nil {
			t.BeforeOp(st)
		}

		out, halt, err := c.execute(st.Op)
		c.steps++
		if err == nil && !halt && c.pc < uint64(len(c.code)) && c.steps >= c.cfg.MaxSteps {
			err = fmt.Errorf("%w: %d", ErrStepLimit, c.cfg.MaxSteps)
		}
		if err != nil || halt || c.pc >= uint64(len(c.code)) {
			c.halted = true
		}
		if t := c.cfg.Tracer; t != nil {
			st.Err = err
			t.AfterOp(st)
		}

		switch {
		case err != nil:
			return nil, err
		case halt:
			return out, nil
		}
	}
}

// Stack returns the Context's stack.
func (c *Context) Stack() *Stack {
	return c.stack
}

// Memory returns the Context's memory.
func (c *Context) Memory() *Memory {
	return c.mem
}

// execute executes the opcode at c.pc, advancing c.pc unless halting.
func (c *Context) execute(op vm.OpCode) (out []byte, halt bool, _ error) {
	pc := c.pc
	c.pc++

	switch {
	case op >= vm.PUSH0 && op <= vm.PUSH32:
		n := uint64(op - vm.PUSH0)
		v := new(uint256.Int).SetBytes(paddedSlice(c.code, pc+1, n))
		c.pc += n
		return nil, false, c.stack.push(v)

	case op >= vm.DUP1 && op <= vm.DUP16:
		return nil, false, c.stack.dup(int(op-vm.DUP1) + 1)

	case op >= vm.SWAP1 && op <= vm.SWAP16:
		return nil, false, c.stack.swap(int(op-vm.SWAP1) + 1)
	}

	switch op {
	case vm.STOP:
		return nil, true, nil

	case vm.PC:
		return nil, false, c.stack.push(uint256.NewInt(pc))

	case vm.POP:
		_, err := c.stack.pop()
		return nil, false, err

	case vm.CALLDATASIZE:
		return nil, false, c.stack.push(uint256.NewInt(uint64(len(c.input))))

	case vm.CODESIZE:
		return nil, false, c.stack.push(uint256.NewInt(uint64(len(c.code))))

	case vm.MSIZE:
		return nil, false, c.stack.push(uint256.NewInt(uint64(c.mem.Len())))

	case vm.CALLDATALOAD:
		args, err := c.stack.popN(1)
		if err != nil {
			return nil, false, err
		}
		var v uint256.Int
		if off, overflow := args[0].Uint64WithOverflow(); !overflow {
			v.SetBytes(paddedSlice(c.input, off, 32))
		}
		return nil, false, c.stack.push(&v)

	case vm.MLOAD:
		args, err := c.offsets(1)
		if err != nil {
			return nil, false, err
		}
		buf, err := c.mem.getCopy(args[0], 32)
		if err != nil {
			return nil, false, err
		}
		return nil, false, c.stack.push(new(uint256.Int).SetBytes(buf))

	case vm.MSTORE, vm.MSTORE8:
		args, err := c.stack.popN(2)
		if err != nil {
			return nil, false, err
		}
		off, err := toOffset(&args[0])
		if err != nil {
			return nil, false, err
		}
		if op == vm.MSTORE8 {
			return nil, false, c.mem.set(off, 1, []byte{byte(args[1].Uint64())})
		}
		return nil, false, c.mem.set32(off, &args[1])

	case vm.CODECOPY:
		// The source offset isn't converted with toOffset() as copying from
		// beyond the end of the code results in zeroes.
		args, err := c.stack.popN(3)
		if err != nil {
			return nil, false, err
		}
		size, err := toOffset(&args[2])
		if err != nil || size == 0 {
			return nil, false, err
		}
		dest, err := toOffset(&args[0])
		if err != nil {
			return nil, false, err
		}
		if err := c.mem.expand(dest, size); err != nil {
			return nil, false, err
		}
		src, overflow := args[1].Uint64WithOverflow()
		if overflow {
			src = ^uint64(0)
		}
		return nil, false, c.mem.set(dest, size, paddedSlice(c.code, src, size))

	case vm.KECCAK256:
		off, size, err := c.span()
		if err != nil {
			return nil, false, err
		}
		buf, err := c.mem.getCopy(off, size)
		if err != nil {
			return nil, false, err
		}
		return nil, false, c.stack.push(new(uint256.Int).SetBytes(crypto.Keccak256(buf)))

	case vm.RETURN, vm.REVERT:
		off, size, err := c.span()
		if err != nil {
			return nil, false, err
		}
		buf, err := c.mem.getCopy(off, size)
		if err != nil {
			return nil, false, err
		}
		if op == vm.REVERT {
			return nil, true, revert.New(buf)
		}
		return buf, true, nil

	default:
		return nil, false, &InvalidOpCodeError{PC: pc, Op: op}
	}
}

// offsets pops n words, top first, each of which MUST be representable as a
// memory offset or size.
func (c *Context) offsets(n int) ([]uint64, error) {
	args, err := c.stack.popN(n)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range args {
		if out[i], err = toOffset(&args[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// span pops an offset and a size, top first. The offset of an empty span is
// never accessed so isn't required to be representable.
func (c *Context) span() (offset, size uint64, _ error) {
	args, err := c.stack.popN(2)
	if err != nil {
		return 0, 0, err
	}
	if size, err = toOffset(&args[1]); err != nil || size == 0 {
		return 0, 0, err
	}
	if offset, err = toOffset(&args[0]); err != nil {
		return 0, 0, err
	}
	return offset, size, nil
}

func toOffset(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: offset %v", ErrMemoryLimit, v)
	}
	return v.Uint64(), nil
}

// paddedSlice returns buf[start:start+size], right-padded with zeroes if it
// extends beyond the end of buf.
func paddedSlice(buf []byte, start, size uint64) []byte {
	out := make([]byte, size)
	if start >= uint64(len(buf)) {
		return out
	}
	copy(out, buf[start:])
	return out
}
