// The opcodegen binary generates a Go file for use in the `magicnum` package.
// It mirrors the EVM opcodes supported by the magicnum machine that don't have
// special representations, and provides a mapping from each of them to the
// number of values they pop/push from the stack.
package main

import (
	"fmt"
	"os"
	"text/template"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
)

// supported MUST be kept in sync with the interpreter switch in
// magicnum/machine.
var supported = []vm.OpCode{
	vm.STOP,
	vm.KECCAK256,
	vm.CALLDATALOAD, vm.CALLDATASIZE,
	vm.CODESIZE, vm.CODECOPY,
	vm.POP,
	vm.MLOAD, vm.MSTORE, vm.MSTORE8,
	vm.PC, vm.MSIZE,
	vm.RETURN, vm.REVERT, vm.INVALID,
}

func main() {
	if err := run(); err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	type opParams struct {
		Op        vm.OpCode
		Pop, Push uint
		Special   bool
	}
	var ops []*opParams

	all := append([]vm.OpCode{}, supported...)
	for o := vm.PUSH0; o <= vm.PUSH32; o++ {
		all = append(all, o)
	}
	for i := vm.OpCode(0); i < 16; i++ {
		all = append(all, vm.DUP1+i, vm.SWAP1+i)
	}
	for _, o := range all {
		ops = append(ops, &opParams{
			Op:      o,
			Special: o.IsPush() && o != vm.PUSH0,
		})
	}

	rules := params.Rules{IsCancun: true}
	jumpTable, err := vm.LookupInstructionSet(rules)
	if err != nil {
		return fmt.Errorf("go-ethereum/core/vm.LookupInstructionSet(%+v): %v", rules, err)
	}
	for _, o := range ops {
		minStack, maxStack := jumpTable[o.Op].Stack()

		switch o.Op & 0xf0 {
		case vm.DUP1:
			// See comment in generated code.
			n := uint(o.Op-vm.DUP1) + 1
			o.Pop = n
			o.Push = n + 1
		case vm.SWAP1:
			n := uint(o.Op-vm.SWAP1) + 2
			o.Pop = n
			o.Push = n
		default:
			// Invert the derivation of minStack/maxStack from pop/push:
			// https://github.com/ethereum/go-ethereum/blob/57d2b552c74dbd03b9909e6b8cd7b3de1f8b40e9/core/vm/stack_table.go
			o.Pop = uint(minStack)
			o.Push = uint(params.StackLimit) + o.Pop - uint(maxStack)
		}
	}

	tmpl := template.Must(template.New("go").Parse(`package magicnum

//
// GENERATED CODE - DO NOT EDIT
//

import (
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/solidifylabs/magicnum/types"
)

// Aliases of all opcodes supported by the machine that don't have "special"
// replacements.
const (
{{- range .}}{{if not .Special}}
	{{.Op.String}} = types.OpCode(vm.{{.Op.String}})
{{- end}}{{end}}
)

// stackDeltas maps all supported vm.OpCode values to the number of values
// they pop and then push from/to the stack.
//
// Although DUPs technically only push a single value and SWAPs none, they are
// recorded as popping and pushing every value they touch as this implies a
// minimum stack depth to begin with but with the same effective change.
var stackDeltas = map[vm.OpCode]stackDelta{
{{- range .}}
	vm.{{.Op.String}}: {pop: {{.Pop}}, push: {{.Push}}},
{{- end}}
}
`))

	if err := tmpl.Execute(os.Stdout, ops); err != nil {
		return fmt.Errorf("%T.Execute(os.Stdout, …): %v", tmpl, err)
	}
	return nil
}
