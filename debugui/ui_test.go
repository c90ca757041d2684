package debugui

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/holiman/uint256"

	"github.com/solidifylabs/magicnum"
	"github.com/solidifylabs/magicnum/region"
)

func TestTerminal(t *testing.T) {
	code := magicnum.MustAssemble(*uint256.NewInt(42), region.FreeMemoryArea).RuntimeCode()
	ins, err := magicnum.Disassemble(code)
	if err != nil {
		t.Fatalf("magicnum.Disassemble() error %v", err)
	}

	dbg, results, err := magicnum.DebugBytecode(code, nil)
	if err != nil {
		t.Fatalf("magicnum.DebugBytecode() error %v", err)
	}
	defer dbg.FastForward()

	term := &terminal{
		Debugger: dbg,
		state:    dbg.State(),
		results:  results,
	}
	term.initComponents()
	term.populateCode(ins)

	if got, want := term.code.GetItemCount(), len(ins)+1; got != want {
		t.Fatalf("Code list has %d items; want %d instructions + END", got, want)
	}

	space := tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)
	for i := 0; i < 2; i++ { // PUSH1 0x2a; PUSH1 0x80
		term.inputCapture(space)
	}

	if got, want := term.code.GetCurrentItem(), 2; got != want {
		t.Errorf("After 2 steps, highlighted code item %d; want %d", got, want)
	}
	n := term.stack.GetItemCount()
	if n != 16 {
		t.Fatalf("Stack list has %d items; want 16", n)
	}
	for i, want := range map[int]string{
		n - 1: "   1 ",
		n - 2: "   2 ",
	} {
		if got, _ := term.stack.GetItemText(i); !strings.HasPrefix(got, want) {
			t.Errorf("Stack item %d = %q; want prefix %q", i, got, want)
		}
	}
	if got, _ := term.stack.GetItemText(n - 1); !strings.HasSuffix(got, "2a") {
		t.Errorf("Bottom of stack = %q; want value 0x2a", got)
	}

	term.inputCapture(space) // MSTORE
	if got, want := term.memory.GetItemCount(), (0x80+32)/32; got != want {
		t.Errorf("After MSTORE, memory list has %d items; want %d", got, want)
	}

	term.inputCapture(tcell.NewEventKey(tcell.KeyEnd, 0, tcell.ModNone))
	if !dbg.Done() {
		t.Fatal("Debugger not done after End key")
	}
	if got, want := term.result.GetText(true), strings.Repeat("0", 62)+"2a"; got != want {
		t.Errorf("Result text = %q; want %q", got, want)
	}
}
