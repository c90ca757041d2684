package region

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPolicy(t *testing.T) {
	tests := []struct {
		r      Region
		offset uint64
		class  Class
		name   string
	}{
		{ScratchSpace, 0x00, Volatile, "scratch-space"},
		{FreeMemoryPointer, 0x40, Structural, "free-memory-pointer"},
		{ZeroSlot, 0x60, ReservedReadOnly, "zero-slot"},
		{FreeMemoryArea, 0x80, GeneralPurpose, "free-memory-area"},
	}

	var got []Region
	for _, tt := range tests {
		got = append(got, tt.r)

		t.Run(tt.name, func(t *testing.T) {
			if !tt.r.Valid() {
				t.Fatalf("%v.Valid() = false", tt.r)
			}
			if got, want := tt.r.Offset(), tt.offset; got != want {
				t.Errorf("%v.Offset() got %#x; want %#x", tt.r, got, want)
			}
			if got, want := tt.r.Class(), tt.class; got != want {
				t.Errorf("%v.Class() got %v; want %v", tt.r, got, want)
			}
			if got, want := tt.r.String(), tt.name; got != want {
				t.Errorf("%T(%d).String() got %q; want %q", tt.r, uint8(tt.r), got, want)
			}
			if tt.r.Contract() == "" {
				t.Errorf("%v.Contract() is empty", tt.r)
			}
			start, end := tt.r.Span()
			if start != tt.offset || end != tt.offset+WordSize {
				t.Errorf("%v.Span() got [%#x,%#x); want [%#x,%#x)", tt.r, start, end, tt.offset, tt.offset+WordSize)
			}
		})
	}

	if diff := cmp.Diff(got, All()); diff != "" {
		t.Errorf("All() diff (-want +got):\n%s", diff)
	}
}

func TestInvalid(t *testing.T) {
	for _, r := range []Region{0, FreeMemoryArea + 1, 255} {
		t.Run(fmt.Sprint(uint8(r)), func(t *testing.T) {
			if r.Valid() {
				t.Errorf("%T(%d).Valid() = true", r, uint8(r))
			}
			if got, want := r.String(), fmt.Sprintf("Region(%d)", uint8(r)); got != want {
				t.Errorf("String() got %q; want %q", got, want)
			}
			if _, err := r.MarshalText(); err == nil {
				t.Error("MarshalText() got nil error")
			}
			if err := r.Check(nil); err == nil {
				t.Error("Check() got nil error")
			}

			defer func() {
				if recover() == nil {
					t.Errorf("%T(%d).Offset() did not panic", r, uint8(r))
				}
			}()
			r.Offset()
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Region
	}{
		{"scratch-space", ScratchSpace},
		{"Scratch", ScratchSpace},
		{"0x00", ScratchSpace},
		{"0", ScratchSpace},
		{"free-memory-pointer", FreeMemoryPointer},
		{"fmp", FreeMemoryPointer},
		{"64", FreeMemoryPointer},
		{" zero-slot ", ZeroSlot},
		{"zero", ZeroSlot},
		{"0x60", ZeroSlot},
		{"free-memory-area", FreeMemoryArea},
		{"free", FreeMemoryArea},
		{"0x80", FreeMemoryArea},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("Parse(%q) got %v, err = %v; want %v, nil error", tt.in, got, err, tt.want)
		}
	}

	for _, in := range []string{"", "heap", "0x20", "-1", "0xzz"} {
		if got, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) got %v, nil error; want error", in, got)
		}
	}
}

func TestTextRoundTrip(t *testing.T) {
	for _, r := range All() {
		buf, err := r.MarshalText()
		if err != nil {
			t.Fatalf("%v.MarshalText() error %v", r, err)
		}
		var got Region
		if err := got.UnmarshalText(buf); err != nil || got != r {
			t.Errorf("UnmarshalText(%q) got %v, err = %v; want %v", buf, got, err, r)
		}
	}
}

func TestCheck(t *testing.T) {
	word := func(k AccessKind, off uint64) Access {
		return Access{Kind: k, Start: off, End: off + WordSize}
	}

	tests := []struct {
		name       string
		r          Region
		trace      []Access
		wantErrIs  error
		wantHazard bool
	}{
		{
			name:  "write then return",
			r:     ScratchSpace,
			trace: []Access{word(Write, 0), word(Return, 0)},
		},
		{
			name:  "write then return at every offset",
			r:     FreeMemoryArea,
			trace: []Access{word(Write, 0x80), word(Return, 0x80)},
		},
		{
			name:  "unrelated access between",
			r:     ZeroSlot,
			trace: []Access{word(Write, 0x60), word(Write, 0x80), word(Return, 0x60)},
		},
		{
			name:  "overwrite before staging",
			r:     FreeMemoryPointer,
			trace: []Access{word(Write, 0x40), word(Write, 0x40), word(Return, 0x40)},
		},
		{
			name:      "empty trace",
			r:         ZeroSlot,
			wantErrIs: ErrNoReturn,
		},
		{
			name:      "no return",
			r:         ZeroSlot,
			trace:     []Access{word(Write, 0x60)},
			wantErrIs: ErrNoReturn,
		},
		{
			name:      "returns other region",
			r:         ZeroSlot,
			trace:     []Access{word(Write, 0x60), word(Return, 0x80)},
			wantErrIs: ErrReturnSpan,
		},
		{
			name:      "returns partial word",
			r:         ZeroSlot,
			trace:     []Access{word(Write, 0x60), {Kind: Return, Start: 0x60, End: 0x70}},
			wantErrIs: ErrReturnSpan,
		},
		{
			name:      "never written",
			r:         FreeMemoryArea,
			trace:     []Access{word(Return, 0x80)},
			wantErrIs: ErrNoWrite,
		},
		{
			name:      "partial write",
			r:         FreeMemoryArea,
			trace:     []Access{{Kind: Write, Start: 0x80, End: 0x81}, word(Return, 0x80)},
			wantErrIs: ErrNoWrite,
		},
		{
			name:       "clobbered by overlapping write",
			r:          ZeroSlot,
			trace:      []Access{word(Write, 0x60), word(Write, 0x50), word(Return, 0x60)},
			wantHazard: true,
		},
		{
			name:       "allocation cursor read",
			r:          FreeMemoryPointer,
			trace:      []Access{word(Write, 0x40), word(Read, 0x40), word(Return, 0x40)},
			wantHazard: true,
		},
		{
			name:       "hash of other memory in scratch space",
			r:          ScratchSpace,
			trace:      []Access{word(Write, 0), word(Hash, 0x80), word(Return, 0)},
			wantHazard: true,
		},
		{
			name:  "hash of other memory in general-purpose region",
			r:     FreeMemoryArea,
			trace: []Access{word(Write, 0x80), word(Hash, 0xa0), word(Return, 0x80)},
		},
		{
			name:  "zero-length access at region",
			r:     ZeroSlot,
			trace: []Access{word(Write, 0x60), {Kind: Read, Start: 0x60, End: 0x60}, word(Return, 0x60)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Check(tt.trace)

			var hazard *HazardError
			if got := errors.As(err, &hazard); got != tt.wantHazard {
				t.Fatalf("%v.Check(%v) got error %v; want %T = %t", tt.r, tt.trace, err, hazard, tt.wantHazard)
			}
			if tt.wantHazard {
				if hazard.Index != 1 || hazard.Region != tt.r {
					t.Errorf("%T = %+v; want Index 1 in %v", hazard, hazard, tt.r)
				}
				return
			}
			if !errors.Is(err, tt.wantErrIs) {
				t.Errorf("%v.Check(%v) got error %v; want %v", tt.r, tt.trace, err, tt.wantErrIs)
			}
		})
	}
}
