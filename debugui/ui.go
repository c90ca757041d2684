// Package debugui provides a terminal UI for stepping through magicnum
// bytecode with a runopts.Debugger, displaying the code, stack and memory.
package debugui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/solidifylabs/magicnum"
	"github.com/solidifylabs/magicnum/runopts"
)

// Run starts a UI that controls dbg and displays the code being executed along
// with the stack and memory. The code and callData MUST be the same as those
// being executed, and `results` MUST return the output of the execution once
// dbg.Done() returns true; see magicnum.DebugBytecode().
//
// Keys: space steps, End fast-forwards, q or Esc quits once execution is done,
// and Ctrl-C quits at any time.
func Run(dbg *runopts.Debugger, code, callData []byte, results func() ([]byte, error)) error {
	ins, err := magicnum.Disassemble(code)
	if err != nil {
		return err
	}

	t := &terminal{
		Debugger: dbg,
		state:    dbg.State(),
		results:  results,
	}
	t.initComponents()
	t.initApp()
	t.callData.SetText(fmt.Sprintf("%x", callData))
	t.populateCode(ins)
	return t.app.Run()
}

type terminal struct {
	*runopts.Debugger
	state *runopts.CapturedState
	app   *tview.Application

	stack, memory    *tview.List
	callData, result *tview.TextView

	code         *tview.List
	pcToCodeItem map[uint64]int

	results func() ([]byte, error)
}

func (*terminal) styleBox(b *tview.Box, title string) *tview.Box {
	return b.SetBorder(true).
		SetTitle(title).
		SetTitleAlign(tview.AlignLeft)
}

func (t *terminal) initComponents() {
	const codeTitle = "Code"
	for title, l := range map[string]**tview.List{
		"Stack":   &t.stack,
		"Memory":  &t.memory,
		codeTitle: &t.code,
	} {
		*l = tview.NewList()
		(*l).ShowSecondaryText(false).
			SetSelectedFocusOnly(title != codeTitle)
		t.styleBox((*l).Box, title)
	}

	t.code.SetChangedFunc(func(int, string, string, rune) {
		t.onStep()
	})

	for title, v := range map[string]**tview.TextView{
		"Call data": &t.callData,
		"Result":    &t.result,
	} {
		*v = tview.NewTextView()
		t.styleBox((*v).Box, title)
	}
}

func (t *terminal) initApp() {
	t.app = tview.NewApplication().SetRoot(t.layout(), true)
	t.app.SetInputCapture(t.inputCapture)
}

func (t *terminal) layout() tview.Primitive {
	// Borders are 2 wide, which must be included in absolute dimensions.
	const (
		hStack = 2 + 16
		wStack = 2 + 5 + 64 // 4-digit depth & space
		wMem   = 2 + 5 + 64 // 4-digit hex offset & space
	)
	middle := tview.NewFlex().
		AddItem(t.code, 0, 1, false).
		AddItem(t.stack, wStack, 0, false).
		AddItem(t.memory, wMem, 0, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.callData, 3, 0, false).
		AddItem(middle, hStack, 0, false).
		AddItem(t.result, 0, 1, false)

	t.styleBox(root.Box, "MAGICNUM").SetTitleAlign(tview.AlignCenter)
	return root
}

func (t *terminal) populateCode(ins []magicnum.Instruction) {
	t.pcToCodeItem = make(map[uint64]int)
	for _, in := range ins {
		t.pcToCodeItem[uint64(in.PC)] = t.code.GetItemCount()
		t.code.AddItem(fmt.Sprintf("%04x %v", in.PC, in), "", 0, nil)
	}
	t.code.AddItem("--- END ---", "", 0, nil)
}

// highlightPC selects the instruction following the last one executed.
func (t *terminal) highlightPC() {
	t.code.SetCurrentItem(t.pcToCodeItem[t.state.PC] + 1)
}

// onStep is triggered by t.code's ChangedFunc.
func (t *terminal) onStep() {
	if !t.Done() {
		return
	}
	out, err := t.results()
	if err != nil {
		t.result.SetText(fmt.Sprintf("ERROR: %v", err))
		return
	}
	t.result.SetText(fmt.Sprintf("%x", out))
}

func (t *terminal) inputCapture(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyCtrlC:
		t.FastForward()
		t.app.Stop()
		return ev

	case tcell.KeyEnd:
		t.FastForward()
		t.highlightPC()

	case tcell.KeyEscape:
		if t.Done() {
			t.app.Stop()
		}
	}

	switch ev.Rune() {
	case ' ':
		if !t.Done() {
			t.Step()
			t.highlightPC()
		}
	case 'q':
		if t.Done() {
			t.app.Stop()
		}
	}

	if t.state.Valid() {
		t.populateStack()
		t.populateMemory()
	}
	return nil
}

func (t *terminal) populateStack() {
	stack := t.state.Machine.StackData()

	t.stack.Clear()
	for i := len(stack) - 1; i >= 0; i-- {
		buf := stack[i].Bytes()
		if stack[i].IsZero() {
			buf = []byte{0}
		}
		t.stack.AddItem(fmt.Sprintf("%4d %64x", i+1, buf), "", 0, nil)
	}

	// Pad so that the bottom of the stack is at the bottom of the box.
	for t.stack.GetItemCount() < 16 {
		t.stack.InsertItem(0, "", "", 0, nil)
	}
}

func (t *terminal) populateMemory() {
	mem := t.state.Machine.MemoryData()

	t.memory.Clear()
	for i := 0; i+32 <= len(mem); i += 32 {
		t.memory.AddItem(fmt.Sprintf("%04x %x", i, mem[i:i+32]), "", 0, nil)
	}
}
