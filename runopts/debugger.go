package runopts

import (
	"sync"

	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/solidifylabs/magicnum/machine"
)

// NewDebugger constructs a new Debugger.
//
// Execution SHOULD be advanced until Debugger.Done() returns true otherwise
// resources will be leaked. Best practice is to always call FastForward(),
// usually in a deferred function.
//
// Debugger.State().Err SHOULD be checked once Debugger.Done() returns true.
func NewDebugger() *Debugger {
	started := make(chan started)
	step := make(chan step)
	fastForward := make(chan fastForward)
	stepped := make(chan stepped)
	done := make(chan done)

	// The outer and inner values have complementary send-receive abilities,
	// hence the duplication. This provides compile-time guarantees of intended
	// usage. The sending side is responsible for closing the channel.
	return &Debugger{
		started:     started,
		step:        step,
		fastForward: fastForward,
		stepped:     stepped,
		done:        done,
		d: &debugger{
			started:     started,
			step:        step,
			fastForward: fastForward,
			stepped:     stepped,
			done:        done,
		},
	}
}

// For stricter channel types as there are otherwise many with void types that
// can be accidentally switched.
type (
	started     struct{}
	step        struct{}
	fastForward struct{}
	stepped     struct{}
	done        struct{}
)

// A Debugger is an Option that intercepts opcode execution to allow inspection
// of the stack, memory, etc. Only a single execution context can be debugged;
// a Debugger MUST NOT be reused.
type Debugger struct {
	d *debugger

	// Send external signals
	step        chan<- step
	fastForward chan<- fastForward
	// Receive internal state changes
	started <-chan started
	stepped <-chan stepped
	done    <-chan done
}

// Apply adds the Debugger as a machine.Tracer, intercepting execution of every
// opcode.
func (d *Debugger) Apply(c *Configuration) error {
	return Trace(d.d).Apply(c)
}

// Wait blocks until the code is ready for execution, but the first opcode is
// yet to be executed; see Step(). If there are no opcodes to execute, Done()
// returns true once Wait() returns.
func (d *Debugger) Wait() {
	<-d.started
}

// close releases all resources; it MUST NOT be called before `done` is closed.
func (d *Debugger) close(closeFastForward bool) {
	close(d.step)
	if closeFastForward {
		close(d.fastForward)
	}
}

// Step advances the execution by one opcode. Step MUST NOT be called
// concurrently with any other Debugger methods. The first opcode is only
// executed upon the first call to Step(), allowing initial state to be
// inspected beforehand.
//
// Step blocks until the opcode execution completes.
//
// Step MUST NOT be called after Done() returns true.
func (d *Debugger) Step() {
	d.step <- step{}
	// AfterOp() closes d.done *before* closing d.stepped, so the check below is
	// synchronised.
	<-d.stepped

	select {
	case <-d.done:
		d.close(true)
	default:
	}
}

// FastForward executes all remaining opcodes, effectively the same as calling
// Step() in a loop until Done() returns true.
//
// Unlike Step(), calling FastForward() when Done() returns true is acceptable.
// This allows it to be called in a deferred manner, which is best practice to
// avoid leaking resources:
//
//	dbg := runopts.NewDebugger()
//	defer dbg.FastForward()
func (d *Debugger) FastForward() {
	select {
	case <-d.d.fastForward: // already closed
		return
	default:
	}

	close(d.fastForward)
	for {
		select {
		case <-d.stepped: // gotta catch 'em all
		case <-d.done:
			d.close(false /*don't close d.fastForward again*/)
			return
		}
	}
}

// Done returns whether execution has ended.
func (d *Debugger) Done() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// State returns the last-captured state, which will be modified upon each call
// to Step(). It is expected that State() only be called once, at any time after
// construction of the Debugger, and its result retained for inspection at each
// Step(). The CapturedState is, however, only valid after the first call to
// Step().
//
// Ownership of the machine state is retained by the execution context that
// created it; modify with caution!
func (d *Debugger) State() *CapturedState {
	return &d.d.last
}

// CapturedState carries all values passed to the debugger.
//
// N.B. See ownership note in Debugger.State() documentation.
type CapturedState struct {
	PC, Steps uint64
	Op        vm.OpCode
	Machine   machine.State // contains memory and stack ;)
	Err       error
}

// Valid returns whether at least one opcode has been captured.
func (s *CapturedState) Valid() bool {
	return s.Steps > 0 || s.Op != 0 || s.Err != nil
}

// debugger implements machine.Tracer and is injected by its parent Debugger to
// intercept opcode execution.
type debugger struct {
	// Waited upon by BeforeOp(), signalling an external call to Step().
	step        <-chan step
	fastForward <-chan fastForward
	stepped     chan<- stepped
	// Closed by BeforeOp() or OnHalt(), externally signalling the start of
	// execution.
	started   chan<- started
	startOnce sync.Once
	// Closed after execution of the last opcode, or by OnHalt() if there were
	// none, externally signalling completion of the execution.
	done     chan<- done
	doneOnce sync.Once

	last CapturedState
}

var _ machine.Tracer = (*debugger)(nil)

func (d *debugger) setStarted() {
	d.startOnce.Do(func() {
		close(d.started)
	})
}

func (d *debugger) setDone() {
	d.doneOnce.Do(func() {
		close(d.done)
	})
}

func (d *debugger) BeforeOp(machine.State) {
	d.setStarted()

	select {
	case <-d.step:
	case <-d.fastForward:
	}
}

func (d *debugger) AfterOp(s machine.State) {
	d.record(s)

	// Signalling on d.stepped MUST be the last action as Debugger.Step() relies
	// on this to perform checks once its receive is unblocked.
	if s.Halted() {
		d.setDone()
		// Closed instead of sent on as FastForward() may have already returned.
		close(d.stepped)
		return
	}
	d.stepped <- stepped{}
}

func (d *debugger) OnHalt(s machine.State) {
	// Otherwise the error was already recorded by AfterOp() and the external
	// caller may be reading it.
	if !d.last.Valid() {
		d.last.Err = s.Err
	}
	// Done MUST be closed before started so that Done() is true as soon as
	// Wait() returns when there were no opcodes to execute.
	d.setDone()
	d.setStarted()
}

func (d *debugger) record(s machine.State) {
	d.last.PC = s.PC
	d.last.Steps = s.Steps + 1
	d.last.Op = s.Op
	d.last.Machine = s
	d.last.Err = s.Err
}
