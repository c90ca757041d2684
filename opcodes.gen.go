package magicnum

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
	STOP = types.OpCode(vm.STOP)
	KECCAK256 = types.OpCode(vm.KECCAK256)
	CALLDATALOAD = types.OpCode(vm.CALLDATALOAD)
	CALLDATASIZE = types.OpCode(vm.CALLDATASIZE)
	CODESIZE = types.OpCode(vm.CODESIZE)
	CODECOPY = types.OpCode(vm.CODECOPY)
	POP = types.OpCode(vm.POP)
	MLOAD = types.OpCode(vm.MLOAD)
	MSTORE = types.OpCode(vm.MSTORE)
	MSTORE8 = types.OpCode(vm.MSTORE8)
	PC = types.OpCode(vm.PC)
	MSIZE = types.OpCode(vm.MSIZE)
	RETURN = types.OpCode(vm.RETURN)
	REVERT = types.OpCode(vm.REVERT)
	INVALID = types.OpCode(vm.INVALID)
	PUSH0 = types.OpCode(vm.PUSH0)
	DUP1 = types.OpCode(vm.DUP1)
	SWAP1 = types.OpCode(vm.SWAP1)
	DUP2 = types.OpCode(vm.DUP2)
	SWAP2 = types.OpCode(vm.SWAP2)
	DUP3 = types.OpCode(vm.DUP3)
	SWAP3 = types.OpCode(vm.SWAP3)
	DUP4 = types.OpCode(vm.DUP4)
	SWAP4 = types.OpCode(vm.SWAP4)
	DUP5 = types.OpCode(vm.DUP5)
	SWAP5 = types.OpCode(vm.SWAP5)
	DUP6 = types.OpCode(vm.DUP6)
	SWAP6 = types.OpCode(vm.SWAP6)
	DUP7 = types.OpCode(vm.DUP7)
	SWAP7 = types.OpCode(vm.SWAP7)
	DUP8 = types.OpCode(vm.DUP8)
	SWAP8 = types.OpCode(vm.SWAP8)
	DUP9 = types.OpCode(vm.DUP9)
	SWAP9 = types.OpCode(vm.SWAP9)
	DUP10 = types.OpCode(vm.DUP10)
	SWAP10 = types.OpCode(vm.SWAP10)
	DUP11 = types.OpCode(vm.DUP11)
	SWAP11 = types.OpCode(vm.SWAP11)
	DUP12 = types.OpCode(vm.DUP12)
	SWAP12 = types.OpCode(vm.SWAP12)
	DUP13 = types.OpCode(vm.DUP13)
	SWAP13 = types.OpCode(vm.SWAP13)
	DUP14 = types.OpCode(vm.DUP14)
	SWAP14 = types.OpCode(vm.SWAP14)
	DUP15 = types.OpCode(vm.DUP15)
	SWAP15 = types.OpCode(vm.SWAP15)
	DUP16 = types.OpCode(vm.DUP16)
	SWAP16 = types.OpCode(vm.SWAP16)
)

// stackDeltas maps all supported vm.OpCode values to the number of values
// they pop and then push from/to the stack.
//
// Although DUPs technically only push a single value and SWAPs none, they are
// recorded as popping and pushing every value they touch as this implies a
// minimum stack depth to begin with but with the same effective change.
var stackDeltas = map[vm.OpCode]stackDelta{
	vm.STOP: {pop: 0, push: 0},
	vm.KECCAK256: {pop: 2, push: 1},
	vm.CALLDATALOAD: {pop: 1, push: 1},
	vm.CALLDATASIZE: {pop: 0, push: 1},
	vm.CODESIZE: {pop: 0, push: 1},
	vm.CODECOPY: {pop: 3, push: 0},
	vm.POP: {pop: 1, push: 0},
	vm.MLOAD: {pop: 1, push: 1},
	vm.MSTORE: {pop: 2, push: 0},
	vm.MSTORE8: {pop: 2, push: 0},
	vm.PC: {pop: 0, push: 1},
	vm.MSIZE: {pop: 0, push: 1},
	vm.RETURN: {pop: 2, push: 0},
	vm.REVERT: {pop: 2, push: 0},
	vm.INVALID: {pop: 0, push: 0},
	vm.PUSH0: {pop: 0, push: 1},
	vm.PUSH1: {pop: 0, push: 1},
	vm.PUSH2: {pop: 0, push: 1},
	vm.PUSH3: {pop: 0, push: 1},
	vm.PUSH4: {pop: 0, push: 1},
	vm.PUSH5: {pop: 0, push: 1},
	vm.PUSH6: {pop: 0, push: 1},
	vm.PUSH7: {pop: 0, push: 1},
	vm.PUSH8: {pop: 0, push: 1},
	vm.PUSH9: {pop: 0, push: 1},
	vm.PUSH10: {pop: 0, push: 1},
	vm.PUSH11: {pop: 0, push: 1},
	vm.PUSH12: {pop: 0, push: 1},
	vm.PUSH13: {pop: 0, push: 1},
	vm.PUSH14: {pop: 0, push: 1},
	vm.PUSH15: {pop: 0, push: 1},
	vm.PUSH16: {pop: 0, push: 1},
	vm.PUSH17: {pop: 0, push: 1},
	vm.PUSH18: {pop: 0, push: 1},
	vm.PUSH19: {pop: 0, push: 1},
	vm.PUSH20: {pop: 0, push: 1},
	vm.PUSH21: {pop: 0, push: 1},
	vm.PUSH22: {pop: 0, push: 1},
	vm.PUSH23: {pop: 0, push: 1},
	vm.PUSH24: {pop: 0, push: 1},
	vm.PUSH25: {pop: 0, push: 1},
	vm.PUSH26: {pop: 0, push: 1},
	vm.PUSH27: {pop: 0, push: 1},
	vm.PUSH28: {pop: 0, push: 1},
	vm.PUSH29: {pop: 0, push: 1},
	vm.PUSH30: {pop: 0, push: 1},
	vm.PUSH31: {pop: 0, push: 1},
	vm.PUSH32: {pop: 0, push: 1},
	vm.DUP1: {pop: 1, push: 2},
	vm.SWAP1: {pop: 2, push: 2},
	vm.DUP2: {pop: 2, push: 3},
	vm.SWAP2: {pop: 3, push: 3},
	vm.DUP3: {pop: 3, push: 4},
	vm.SWAP3: {pop: 4, push: 4},
	vm.DUP4: {pop: 4, push: 5},
	vm.SWAP4: {pop: 5, push: 5},
	vm.DUP5: {pop: 5, push: 6},
	vm.SWAP5: {pop: 6, push: 6},
	vm.DUP6: {pop: 6, push: 7},
	vm.SWAP6: {pop: 7, push: 7},
	vm.DUP7: {pop: 7, push: 8},
	vm.SWAP7: {pop: 8, push: 8},
	vm.DUP8: {pop: 8, push: 9},
	vm.SWAP8: {pop: 9, push: 9},
	vm.DUP9: {pop: 9, push: 10},
	vm.SWAP9: {pop: 10, push: 10},
	vm.DUP10: {pop: 10, push: 11},
	vm.SWAP10: {pop: 11, push: 11},
	vm.DUP11: {pop: 11, push: 12},
	vm.SWAP11: {pop: 12, push: 12},
	vm.DUP12: {pop: 12, push: 13},
	vm.SWAP12: {pop: 13, push: 13},
	vm.DUP13: {pop: 13, push: 14},
	vm.SWAP13: {pop: 14, push: 14},
	vm.DUP14: {pop: 14, push: 15},
	vm.SWAP14: {pop: 15, push: 15},
	vm.DUP15: {pop: 15, push: 16},
	vm.SWAP15: {pop: 16, push: 16},
	vm.DUP16: {pop: 16, push: 17},
	vm.SWAP16: {pop: 17, push: 17},
}
