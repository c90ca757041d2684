// Package region defines the four conventional regions of EVM memory in which
// a 32-byte word can be staged before being returned, along with the safety
// contract of each.
//
// Conventional layout, as established by Solidity:
//
//	0x00 - 0x3f  scratch space for hashing methods
//	0x40 - 0x5f  currently allocated memory size (free memory pointer)
//	0x60 - 0x7f  zero slot
//	0x80 -       initially free memory
package region

import (
	"fmt"
	"strconv"
	"strings"
)

// A Region is one of a closed set of memory regions. The zero value is not a
// valid Region.
type Region uint8

// All valid Regions.
const (
	ScratchSpace Region = iota + 1
	FreeMemoryPointer
	ZeroSlot
	FreeMemoryArea
)

// WordSize is the size, in bytes, of the word staged in a Region.
const WordSize = 32

// All returns every valid Region, in order of increasing offset.
func All() []Region {
	return []Region{ScratchSpace, FreeMemoryPointer, ZeroSlot, FreeMemoryArea}
}

// A Class describes the conventional guarantees of a Region.
type Class uint8

// Safety classes.
const (
	Volatile Class = iota + 1
	Structural
	ReservedReadOnly
	GeneralPurpose
)

func (c Class) String() string {
	switch c {
	case Volatile:
		return "volatile"
	case Structural:
		return "structural"
	case ReservedReadOnly:
		return "reserved-readonly"
	case GeneralPurpose:
		return "general-purpose"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

type policy struct {
	name     string
	offset   uint64
	class    Class
	contract string
}

// policy is the only place in which Region properties are defined. Every
// exported method derives from it so an invalid Region can never yield an
// offset.
func (r Region) policy() (policy, bool) {
	switch r {
	case ScratchSpace:
		return policy{
			name:     "scratch-space",
			offset:   0x00,
			class:    Volatile,
			contract: "free only until the next hashing operation; safe for a single write-then-return with no intervening hash",
		}, true
	case FreeMemoryPointer:
		return policy{
			name:     "free-memory-pointer",
			offset:   0x40,
			class:    Structural,
			contract: "holds the next-free-byte cursor; safe only if nothing later dereferences it as an allocation cursor",
		}, true
	case ZeroSlot:
		return policy{
			name:     "zero-slot",
			offset:   0x60,
			class:    ReservedReadOnly,
			contract: "conventionally always zero; safe for a private write-then-return within the same execution",
		}, true
	case FreeMemoryArea:
		return policy{
			name:     "free-memory-area",
			offset:   0x80,
			class:    GeneralPurpose,
			contract: "ordinary allocatable space; no special hazards",
		}, true
	default:
		return policy{}, false
	}
}

// Valid returns whether r is one of the Regions returned by All().
func (r Region) Valid() bool {
	_, ok := r.policy()
	return ok
}

// Offset returns the byte offset of r in memory. It panics if r is invalid;
// use Valid() to check values of unknown provenance.
func (r Region) Offset() uint64 {
	return r.mustPolicy().offset
}

// Class returns the safety class of r. It panics if r is invalid.
func (r Region) Class() Class {
	return r.mustPolicy().class
}

// Contract returns a human-readable description of the conditions under which
// writing to r is safe. It panics if r is invalid.
func (r Region) Contract() string {
	return r.mustPolicy().contract
}

// Span returns the half-open range [start,end) of the word staged in r. It
// panics if r is invalid.
func (r Region) Span() (start, end uint64) {
	o := r.Offset()
	return o, o + WordSize
}

func (r Region) mustPolicy() policy {
	p, ok := r.policy()
	if !ok {
		panic(fmt.Sprintf("invalid %T(%d)", r, uint8(r)))
	}
	return p
}

// String returns the canonical name of the Region, as accepted by Parse().
func (r Region) String() string {
	p, ok := r.policy()
	if !ok {
		return fmt.Sprintf("Region(%d)", uint8(r))
	}
	return p.name
}

// aliases are accepted by Parse() in addition to canonical names.
var aliases = map[string]Region{
	"scratch":        ScratchSpace,
	"scratchspace":   ScratchSpace,
	"fmp":            FreeMemoryPointer,
	"freememptr":     FreeMemoryPointer,
	"zero":           ZeroSlot,
	"zeroslot":       ZeroSlot,
	"free":           FreeMemoryArea,
	"freememoryarea": FreeMemoryArea,
}

// Parse returns the Region identified by s, which may be a canonical name (see
// String()), a short alias, or the Region's offset in decimal or 0x-prefixed
// hex.
func Parse(s string) (Region, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, r := range All() {
		if norm == r.String() {
			return r, nil
		}
	}
	if r, ok := aliases[norm]; ok {
		return r, nil
	}
	if off, err := strconv.ParseUint(norm, 0, 64); err == nil {
		for _, r := range All() {
			if r.Offset() == off {
				return r, nil
			}
		}
		return 0, fmt.Errorf("offset %#x is not a memory region", off)
	}
	return 0, fmt.Errorf("unknown memory region %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Region) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("marshal invalid %T(%d)", r, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting anything that
// Parse() does.
func (r *Region) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = p
	return nil
}
