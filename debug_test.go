package magicnum_test

import (
	"runtime"
	"testing"

	. "github.com/solidifylabs/magicnum"
)

func TestStepSynchronisation(t *testing.T) {
	var code Code
	const n = 1_000
	for i := 0; i < n; i++ {
		// Likely to take longer than the return of dbg.Step() if there were no
		// synchronisation.
		code = append(code, Fn(KECCAK256, PUSH0, PUSH(4096)))
	}

	// Synchronise the start of parallel tests to maximise load.
	start := make(chan struct{})

	for tt := 0; tt < runtime.GOMAXPROCS(0)*2; tt++ {
		t.Run("", func(t *testing.T) {
			t.Parallel()

			<-start

			dbg, results, err := code.StartDebugging(nil)
			if err != nil {
				t.Fatalf("%T.StartDebugging(nil) error %v", code, err)
			}
			defer dbg.FastForward()

			state := dbg.State()
			for i := 0; i < n; i++ {
				dbg.Step()
				dbg.Step()
				dbg.Step()
				if got, want := len(state.Machine.StackData()), i+1; got != want {
					t.Fatalf("After KECCAK256 #%d; got stack depth %d; want %d", i+1, got, want)
				}
			}
			if !dbg.Done() {
				t.Errorf("%T.Done() after last opcode got false; want true", dbg)
			}
			if _, err := results(); err != nil {
				t.Errorf("results() error %v", err)
			}
		})
	}

	close(start)
}
