package magicnum

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	"github.com/solidifylabs/magicnum/stack"
	"github.com/solidifylabs/magicnum/types"
)

type stackDelta struct {
	pop, push uint
}

// A segment is one unit of compiled output: fixed bytecode, a Label (which
// occupies no bytes), or a label-dependent PUSH. The location of a Label
// changes the size of pushes that refer to it, but isn't known until preceding
// push widths are determined, so the latter are sized lazily.
type segment struct {
	code  []byte
	label Label
	// If lazy is a pushLabel or pushSize
	lazy  types.Bytecoder
	width int // Current estimate of the immediate's width, in bytes
}

// refs returns the Labels referenced by a lazy segment.
func (s *segment) refs() []Label {
	switch op := s.lazy.(type) {
	case pushLabel:
		return []Label{Label(op)}
	case pushSize:
		return op[:]
	default:
		return nil
	}
}

// value returns the value pushed by a lazy segment, given Label locations.
func (s *segment) value(locs map[Label]int) uint64 {
	switch op := s.lazy.(type) {
	case pushLabel:
		return uint64(locs[Label(op)])
	case pushSize:
		a, b := locs[op[0]], locs[op[1]]
		if a > b {
			return uint64(a - b)
		}
		return uint64(b - a)
	default:
		panic(fmt.Sprintf("BUG: %T.value() with %T", s, s.lazy))
	}
}

// A compilation is the result of Code.compile(), retaining Label locations.
type compilation struct {
	code   []byte
	labels map[Label]int
}

// flatten returns a Code slice that only contains Bytecoders but no
// BytecodeHolders, the latter being recursively converted into their
// constituent Bytecoders.
func (c Code) flatten() Code {
	out := make(Code, 0, len(c))
	for _, bc := range c {
		switch bc := bc.(type) {
		case types.BytecodeHolder:
			out = append(out, Code(bc.Bytecoders()).flatten()...)
		default:
			out = append(out, bc)
		}
	}
	return out
}

// Compile returns compiled EVM bytecode with all special opcodes interpreted.
func (c Code) Compile() ([]byte, error) {
	comp, err := c.compile()
	if err != nil {
		return nil, err
	}
	return comp.code, nil
}

func (c Code) compile() (*compilation, error) {
	flat := c.flatten()

	var (
		segments   []*segment
		stackDepth uint
		seen       = make(map[Label]bool)
	)

	for i, raw := range flat {
		posErr := func(format string, a ...any) error {
			format = "%T[%d]: " + format
			a = append([]any{c, i}, a...)
			return fmt.Errorf(format, a...)
		}

		switch op := raw.(type) {
		case stack.ExpectDepth:
			if got, want := stackDepth, uint(op); got != want {
				return nil, posErr("stack depth %d when expecting %d", got, want)
			}
			continue

		case Label:
			if seen[op] {
				return nil, fmt.Errorf("duplicate %T %q", op, op)
			}
			seen[op] = true
			segments = append(segments, &segment{label: op})
			continue

		case pushLabel, pushSize:
			segments = append(segments, &segment{lazy: op, width: 1})
			stackDepth++
			continue

		case Raw:
			code, _ := op.Bytecode() // always returns nil error
			segments = append(segments, &segment{code: code})
			continue
		}

		code, err := raw.Bytecode()
		if err != nil {
			return nil, err
		}

		for i, n := 0, len(code); i < n; i++ {
			op := vm.OpCode(code[i])
			d, ok := stackDeltas[op]
			if !ok {
				return nil, posErr("invalid %T(%v) as byte [%d] returned by Bytecode()", op, op, i)
			}
			if stackDepth < d.pop {
				return nil, posErr("Bytecode()[%d] popping %d values with stack depth %d", i, d.pop, stackDepth)
			}
			stackDepth += d.push - d.pop

			if op.IsPush() {
				i += int(op - vm.PUSH0)
			}
		}
		segments = append(segments, &segment{code: code})
	}

	for _, s := range segments {
		for _, l := range s.refs() {
			if !seen[l] {
				return nil, fmt.Errorf("%T(%q) without corresponding %T", s.lazy, l, l)
			}
		}
	}

	locs := resolve(segments)
	out := new(bytes.Buffer)
	for _, s := range segments {
		switch {
		case s.lazy != nil:
			bc, err := PUSHN(s.width, *uint256.NewInt(s.value(locs))).Bytecode()
			if err != nil {
				return nil, fmt.Errorf("pushing %T(%q): %v", s.lazy, s.lazy, err)
			}
			out.Write(bc)
		default:
			out.Write(s.code)
		}
	}

	return &compilation{
		code:   out.Bytes(),
		labels: locs,
	}, nil
}

// resolve locates all Labels, widening lazy pushes until every one of them is
// wide enough for its value. Widths only ever grow, and are bounded, so this
// converges. Widened pushes are never narrowed again, which may leave a
// leading zero byte but guarantees termination.
func resolve(segments []*segment) map[Label]int {
	for {
		locs := make(map[Label]int)
		var pc int
		for _, s := range segments {
			switch {
			case s.label != "":
				locs[s.label] = pc
			case s.lazy != nil:
				pc += 1 + s.width
			default:
				pc += len(s.code)
			}
		}

		grew := false
		for _, s := range segments {
			if s.lazy == nil {
				continue
			}
			if w := max(1, uint256.NewInt(s.value(locs)).ByteLen()); w > s.width {
				s.width = w
				grew = true
			}
		}
		if !grew {
			return locs
		}
	}
}
