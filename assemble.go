package magicnum

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	"github.com/solidifylabs/magicnum/machine"
	"github.com/solidifylabs/magicnum/region"
	"github.com/solidifylabs/magicnum/stack"
	"github.com/solidifylabs/magicnum/types"
)

// Errors carried by an *AssemblyError.
var (
	ErrInvalidRegion = errors.New("invalid memory region")
	ErrInitCode      = errors.New("unsupported init code")
	ErrCopyLength    = errors.New("init code copies a length other than that of the runtime code")
	ErrCopySource    = errors.New("init code copies from an offset other than the end of itself")
	ErrReturnRange   = errors.New("init code returns a range other than the copied runtime code")
	ErrStagedValue   = errors.New("runtime code returns a value other than the one staged")
)

// An AssemblyError is returned when a Program can't be built, or when a built
// Program is found to be inconsistent with itself. It always indicates a
// defect in the assembled code, never in the environment running it.
type AssemblyError struct {
	Region region.Region
	Err    error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembling %v program: %v", e.Region, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// A Program is a pair of init and runtime code. Deploying Payload() returns
// exactly RuntimeCode(), which, when called, returns the staged value. A
// Program is immutable; all accessors return copies.
type Program struct {
	init, runtime []byte
	region        region.Region
}

// InitCode returns the code that copies the runtime code to memory and returns
// it.
func (p Program) InitCode() []byte {
	return bytes.Clone(p.init)
}

// RuntimeCode returns the code that stages the value in p.Region() and returns
// it.
func (p Program) RuntimeCode() []byte {
	return bytes.Clone(p.runtime)
}

// Payload returns the concatenation of the init and runtime code, as sent to a
// deployment backend.
func (p Program) Payload() []byte {
	out := make([]byte, 0, len(p.init)+len(p.runtime))
	out = append(out, p.init...)
	return append(out, p.runtime...)
}

// Region returns the memory region in which the runtime code stages its value.
func (p Program) Region() region.Region {
	return p.region
}

const (
	runtimeStart Label = "runtime"
	runtimeEnd   Label = "end"
)

func push1(v uint64) types.Bytecoder {
	return PUSHN(1, *uint256.NewInt(v))
}

// RuntimeCode returns Code that stores value at the offset of r and returns
// the 32-byte word there. r MUST be valid.
func RuntimeCode(value uint256.Int, r region.Region) Code {
	off := *uint256.NewInt(r.Offset())
	return Code{
		Fn(MSTORE, PUSHCompact(off), PUSHCompact(value)),
		Fn(RETURN, PUSHCompact(off), push1(region.WordSize)),
	}
}

// ProgramCode returns Code equivalent to Assemble(value, r).Payload(), with the
// runtime code delimited by Labels. r MUST be valid.
//
// The FreeMemoryPointer variant pushes the runtime length a second time instead
// of duplicating it, leaving the stack empty across the copy.
func ProgramCode(value uint256.Int, r region.Region) Code {
	var initCode Code
	switch r {
	case region.FreeMemoryPointer:
		initCode = Code{
			Fn(CODECOPY, push1(0), PUSH(runtimeStart), PUSHSize(runtimeStart, runtimeEnd)),
			Fn(RETURN, push1(0), PUSHSize(runtimeStart, runtimeEnd)),
		}
	default:
		initCode = Code{
			PUSHSize(runtimeStart, runtimeEnd), DUP1,
			Fn(CODECOPY, push1(0), PUSH(runtimeStart)),
			Fn(RETURN, push1(0)),
		}
	}

	return Code{
		initCode,
		stack.ExpectDepth(0),
		runtimeStart,
		RuntimeCode(value, r),
		stack.ExpectDepth(0),
		runtimeEnd,
	}
}

// Assemble returns the Program that, once deployed, returns value when called,
// having first staged it in memory region r. Assemble is deterministic and
// verifies the Program before returning it; all errors are of type
// *AssemblyError.
func Assemble(value uint256.Int, r region.Region) (Program, error) {
	if !r.Valid() {
		return Program{}, &AssemblyError{Region: r, Err: ErrInvalidRegion}
	}

	comp, err := ProgramCode(value, r).compile()
	if err != nil {
		return Program{}, &AssemblyError{Region: r, Err: err}
	}
	start, end := comp.labels[runtimeStart], comp.labels[runtimeEnd]

	p := Program{
		init:    comp.code[:start],
		runtime: comp.code[start:end],
		region:  r,
	}
	if err := p.verify(&value); err != nil {
		return Program{}, err
	}
	return p, nil
}

// NewProgram returns a Program built from existing code, after verifying it in
// the same manner as Assemble(). The value staged by the runtime code is
// recovered by executing it.
func NewProgram(initCode, runtimeCode []byte, r region.Region) (Program, error) {
	if !r.Valid() {
		return Program{}, &AssemblyError{Region: r, Err: ErrInvalidRegion}
	}
	p := Program{
		init:    bytes.Clone(initCode),
		runtime: bytes.Clone(runtimeCode),
		region:  r,
	}
	if err := p.verify(nil); err != nil {
		return Program{}, err
	}
	return p, nil
}

// MustAssemble is equivalent to Assemble, but panics on error.
func MustAssemble(value uint256.Int, r region.Region) Program {
	p, err := Assemble(value, r)
	if err != nil {
		panic(err)
	}
	return p
}

// verify checks both halves of p. If want is nil, any staged value is
// accepted.
func (p Program) verify(want *uint256.Int) error {
	wrap := func(err error) error {
		if err == nil {
			return nil
		}
		return &AssemblyError{Region: p.region, Err: err}
	}
	if err := p.verifyInit(); err != nil {
		return wrap(err)
	}
	return wrap(p.verifyRuntime(want))
}

// verifyInit executes the payload, checking that it copies exactly the runtime
// code with a single CODECOPY and returns exactly the copied range.
func (p Program) verifyInit() error {
	var (
		copies   int
		dest     uint64
		returned bool
		firstErr error
	)
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}
	initLen, runtimeLen := uint64(len(p.init)), uint64(len(p.runtime))

	t := beforeOp(func(s machine.State) {
		switch s.Op {
		case vm.CODECOPY:
			args, ok := stackArgs(s, 3)
			if !ok {
				return // the machine will report the underflow
			}
			copies++
			switch {
			case copies > 1:
				fail(fmt.Errorf("%w: multiple %v", ErrInitCode, s.Op))
			case args[2] != runtimeLen:
				fail(fmt.Errorf("%w: copies %d bytes; runtime code is %d", ErrCopyLength, args[2], runtimeLen))
			case args[1] != initLen:
				fail(fmt.Errorf("%w: copies from %d; init code is %d bytes", ErrCopySource, args[1], initLen))
			}
			dest = args[0]

		case vm.RETURN:
			args, ok := stackArgs(s, 2)
			if !ok {
				return
			}
			returned = true
			if copies == 0 {
				fail(fmt.Errorf("%w: %v before %v", ErrInitCode, s.Op, vm.CODECOPY))
				return
			}
			if args[0] != dest || args[1] != runtimeLen {
				fail(fmt.Errorf("%w: returns [%d,+%d); copied [%d,+%d)", ErrReturnRange, args[0], args[1], dest, runtimeLen))
			}
		}
	})

	out, err := machine.Run(p.Payload(), nil, machine.Config{Tracer: t})
	switch {
	case err != nil:
		return fmt.Errorf("%w: executing: %v", ErrInitCode, err)
	case firstErr != nil:
		return firstErr
	case !returned:
		return fmt.Errorf("%w: halted without %v", ErrInitCode, vm.RETURN)
	case !bytes.Equal(out, p.runtime):
		return fmt.Errorf("%w: returned %#x; want %#x", ErrReturnRange, out, p.runtime)
	}
	return nil
}

// verifyRuntime executes the runtime code, recording every memory access, and
// checks the resulting trace against the Region's contract.
func (p Program) verifyRuntime(want *uint256.Int) error {
	var trace []region.Access
	record := func(k region.AccessKind, start, size uint64) {
		trace = append(trace, region.Access{
			Kind:  k,
			Start: start,
			End:   start + size,
		})
	}

	t := beforeOp(func(s machine.State) {
		switch s.Op {
		case vm.MSTORE, vm.MLOAD, vm.MSTORE8:
			args, ok := stackArgs(s, 1)
			if !ok {
				return
			}
			switch s.Op {
			case vm.MSTORE:
				record(region.Write, args[0], region.WordSize)
			case vm.MSTORE8:
				record(region.Write, args[0], 1)
			case vm.MLOAD:
				record(region.Read, args[0], region.WordSize)
			}

		case vm.CODECOPY:
			if args, ok := stackArgs(s, 3); ok {
				record(region.Write, args[0], args[2])
			}
		case vm.KECCAK256:
			if args, ok := stackArgs(s, 2); ok {
				record(region.Hash, args[0], args[1])
			}
		case vm.RETURN:
			if args, ok := stackArgs(s, 2); ok {
				record(region.Return, args[0], args[1])
			}
		}
	})

	out, err := machine.Run(p.runtime, nil, machine.Config{Tracer: t})
	if err != nil {
		return fmt.Errorf("executing runtime code: %w", err)
	}
	if err := p.region.Check(trace); err != nil {
		return err
	}
	if want == nil {
		return nil
	}
	if got := new(uint256.Int).SetBytes(out); !got.Eq(want) {
		return fmt.Errorf("%w: got %v; want %v", ErrStagedValue, got, want)
	}
	return nil
}

// stackArgs returns the top n words of the stack, top first. Values that
// overflow a uint64 are saturated, which is sufficient for comparison against
// code lengths and memory offsets.
func stackArgs(s machine.State, n int) ([]uint64, bool) {
	if len(s.StackData()) < n {
		return nil, false
	}
	out := make([]uint64, n)
	for i := range out {
		v := s.StackBack(i)
		if v.IsUint64() {
			out[i] = v.Uint64()
		} else {
			out[i] = ^uint64(0)
		}
	}
	return out, true
}

// beforeOp is a machine.Tracer that only observes opcodes before execution.
type beforeOp func(machine.State)

func (f beforeOp) BeforeOp(s machine.State) { f(s) }
func (beforeOp) AfterOp(machine.State)      {}
func (beforeOp) OnHalt(machine.State)       {}
