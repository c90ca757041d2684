package magicnum

import (
	"fmt"

	"github.com/solidifylabs/magicnum/machine"
	"github.com/solidifylabs/magicnum/runopts"
)

// Run calls c.Compile() and runs the compiled bytecode in a fresh
// machine.Context, with callData as input.
func (c Code) Run(callData []byte, opts ...runopts.Option) ([]byte, error) {
	compiled, err := c.Compile()
	if err != nil {
		return nil, fmt.Errorf("%T.Compile(): %v", c, err)
	}
	return RunBytecode(compiled, callData, opts...)
}

// StartDebugging appends a runopts.Debugger (`dbg`) to the Options, calls
// c.Run() in a new goroutine, and returns `dbg` along with a function to
// retrieve the results of Run(). The function will block until Run() returns,
// i.e. when dbg.Done() returns true. There is no need to call dbg.Wait().
//
// If execution never completes, such that dbg.Done() always returns false, then
// the goroutine will be leaked.
func (c Code) StartDebugging(callData []byte, opts ...runopts.Option) (*runopts.Debugger, func() ([]byte, error), error) {
	compiled, err := c.Compile()
	if err != nil {
		return nil, nil, fmt.Errorf("%T.Compile(): %v", c, err)
	}
	return DebugBytecode(compiled, callData, opts...)
}

// DebugBytecode is equivalent to Code.StartDebugging() but for already-compiled
// bytecode, such as Program.RuntimeCode().
func DebugBytecode(compiled, callData []byte, opts ...runopts.Option) (*runopts.Debugger, func() ([]byte, error), error) {
	dbg := runopts.NewDebugger()
	cfg, err := runopts.New(append(opts, dbg)...)
	if err != nil {
		return nil, nil, err
	}

	var result []byte
	done := make(chan struct{})
	go func() {
		result, err = run(compiled, callData, cfg)
		close(done)
	}()

	dbg.Wait()

	return dbg, func() ([]byte, error) {
		<-done
		return result, err
	}, nil
}

// RunBytecode is equivalent to Code.Run() but for already-compiled bytecode,
// such as Program.Payload().
func RunBytecode(compiled, callData []byte, opts ...runopts.Option) ([]byte, error) {
	cfg, err := runopts.New(opts...)
	if err != nil {
		return nil, err
	}
	return run(compiled, callData, cfg)
}

func run(compiled, callData []byte, cfg *runopts.Configuration) ([]byte, error) {
	out, err := machine.Run(compiled, callData, cfg.Machine)
	if err != nil {
		return nil, fmt.Errorf("machine.Run([%T.Compile()], [callData]): %w", Code{}, err)
	}
	return out, nil
}
