package runopts_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/google/go-cmp/cmp"
	"github.com/holiman/uint256"

	. "github.com/solidifylabs/magicnum"
	"github.com/solidifylabs/magicnum/machine"
)

func TestDebugger(t *testing.T) {
	const retVal = 42
	code := Code{
		PUSH0, PUSH(1), PUSH(2),
		Fn(MSTORE, PUSH(0), PUSH(retVal)),
		Fn(RETURN, PUSH0, PUSH(32)),
	}

	dbg, results, err := code.StartDebugging(nil)
	if err != nil {
		t.Fatalf("%T.StartDebugging() error %v", code, err)
	}
	state := dbg.State() // can be called any time

	wantPCs := []uint64{0}
	pcIncrs := []uint64{
		1, // PUSH0
		2, // PUSH1
		2, // PUSH1
		2, // PUSH1
		1, // PUSH0
		1, // MSTORE
		2, // PUSH1
		1, // PUSH0
		// RETURN
	}
	for i, incr := range pcIncrs {
		wantPCs = append(wantPCs, wantPCs[i]+incr)
	}

	for i := 0; !dbg.Done(); i++ {
		t.Run("step", func(t *testing.T) {
			dbg.Step()
			if got, want := state.PC, wantPCs[i]; got != want {
				t.Errorf("%T.State().PC got %d; want %d", dbg, got, want)
			}
			if err := state.Err; err != nil {
				t.Errorf("%T.State().Err got %v; want nil", dbg, err)
			}
		})
	}

	if got, want := state.Op, vm.RETURN; got != want {
		t.Errorf("%T.State().Op after last step = %v; want %v", dbg, got, want)
	}

	var want [32]byte
	want[31] = retVal

	got, err := results()
	if err != nil || !bytes.Equal(got, want[:]) {
		t.Errorf("%T.StartDebugging() results function returned %#x, err = %v; want %#x; nil error", code, got, err, want[:])
	}
}

func TestDebuggerStack(t *testing.T) {
	code := Code{
		PUSH(1), PUSH(2), PUSH(3),
		INVALID,
	}

	dbg, results, err := code.StartDebugging(nil)
	if err != nil {
		t.Fatalf("%T.StartDebugging() error %v", code, err)
	}
	defer dbg.FastForward()

	var got []uint256.Int
	for !dbg.Done() {
		dbg.Step()
		if dbg.State().Op == vm.INVALID {
			break
		}
		got = append([]uint256.Int{}, dbg.State().Machine.StackData()...)
	}

	want := []uint256.Int{*uint256.NewInt(1), *uint256.NewInt(2), *uint256.NewInt(3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stack diff (-want +got):\n%s", diff)
	}

	dbg.FastForward()
	var invalid *machine.InvalidOpCodeError
	if _, err := results(); !errors.As(err, &invalid) {
		t.Errorf("%T.StartDebugging() results function returned error %v; want %T", code, err, invalid)
	}
	if !errors.As(dbg.State().Err, &invalid) {
		t.Errorf("%T.State().Err = %v; want %T", dbg, dbg.State().Err, invalid)
	}
}

func TestDebuggerEmptyCode(t *testing.T) {
	dbg, results, err := Code{}.StartDebugging(nil)
	if err != nil {
		t.Fatalf("StartDebugging() error %v", err)
	}
	if !dbg.Done() {
		t.Errorf("%T.Done() = false before any steps on empty code; want true", dbg)
	}
	dbg.FastForward()
	if got, err := results(); err != nil || len(got) != 0 {
		t.Errorf("results() got %#x, err = %v; want empty, nil error", got, err)
	}
}

func TestDebuggerFastForward(t *testing.T) {
	code := Code{
		Fn(MSTORE, PUSH(0x80), PUSH(42)),
		Fn(RETURN, PUSH(0x80), PUSH(32)),
	}

	dbg, results, err := code.StartDebugging(nil)
	if err != nil {
		t.Fatalf("%T.StartDebugging() error %v", code, err)
	}
	dbg.Step()
	dbg.FastForward()
	dbg.FastForward() // idempotent

	if !dbg.Done() {
		t.Errorf("%T.Done() = false after FastForward()", dbg)
	}
	got, err := results()
	if err != nil {
		t.Fatalf("results() error %v", err)
	}
	if v := new(uint256.Int).SetBytes(got); !v.Eq(uint256.NewInt(42)) {
		t.Errorf("results() got %v; want 42", v)
	}
}
