package magicnum

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/core/vm"
)

// An Instruction is a single decoded opcode, along with its immediate if it is
// a PUSH<N>.
type Instruction struct {
	PC   int
	Op   vm.OpCode
	Data []byte // Immediate of PUSH<N>, nil otherwise
}

// String returns the mnemonic of the Instruction and its immediate, if any.
func (in Instruction) String() string {
	if len(in.Data) == 0 {
		return in.Op.String()
	}
	return fmt.Sprintf("%v %#x", in.Op, in.Data)
}

// Disassemble decodes code into Instructions. It returns an error if a PUSH<N>
// immediate is truncated by the end of the code, which is valid for a machine
// (the missing bytes are treated as zero) but never produced by Compile().
func Disassemble(code []byte) ([]Instruction, error) {
	var out []Instruction
	for pc := 0; pc < len(code); pc++ {
		in := Instruction{
			PC: pc,
			Op: vm.OpCode(code[pc]),
		}
		if n := int(in.Op - vm.PUSH0); in.Op.IsPush() && n > 0 {
			if pc+n >= len(code) {
				return nil, fmt.Errorf("%v at PC %d truncated by end of code (%d bytes)", in.Op, pc, len(code))
			}
			in.Data = code[pc+1 : pc+1+n]
			pc += n
		}
		out = append(out, in)
	}
	return out, nil
}

// FormatInstructions returns one line per Instruction, prefixed by its PC.
func FormatInstructions(ins []Instruction) string {
	var s strings.Builder
	for _, in := range ins {
		fmt.Fprintf(&s, "%04x %v\n", in.PC, in)
	}
	return s.String()
}
