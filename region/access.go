package region

import (
	"errors"
	"fmt"
)

// An AccessKind classifies how an operation touches memory.
type AccessKind uint8

// Memory access kinds.
const (
	Write AccessKind = iota + 1
	Read
	// Hash is a read by a hashing operation. By convention, hashing uses the
	// scratch space as its buffer so it clobbers any word staged there,
	// regardless of the range being hashed.
	Hash
	// Return is a read of the range that is returned to the caller, halting
	// execution.
	Return
)

func (k AccessKind) String() string {
	switch k {
	case Write:
		return "write"
	case Read:
		return "read"
	case Hash:
		return "hash"
	case Return:
		return "return"
	default:
		return fmt.Sprintf("AccessKind(%d)", uint8(k))
	}
}

// An Access is a single operation's use of the half-open memory range
// [Start,End).
type Access struct {
	Kind       AccessKind
	Start, End uint64
}

func (a Access) String() string {
	return fmt.Sprintf("%v[%#x,%#x)", a.Kind, a.Start, a.End)
}

// touches reports whether a and [start,end) share at least one byte.
func (a Access) touches(start, end uint64) bool {
	return a.Start < a.End && a.Start < end && start < a.End
}

// Errors returned by Region.Check().
var (
	ErrNoReturn   = errors.New("trace does not end with a return")
	ErrReturnSpan = errors.New("returned range is not the region's word")
	ErrNoWrite    = errors.New("region's word is never written")
)

// A HazardError reports an operation that violates a Region's contract
// between the word being staged and it being returned.
type HazardError struct {
	Region Region
	Index  int // Index of Access in the trace
	Access Access
}

func (e *HazardError) Error() string {
	return fmt.Sprintf("access %d (%v) between staging and return of %v word violates %v contract: %s", e.Index, e.Access, e.Region, e.Region.Class(), e.Region.Contract())
}

// Check verifies that the trace of memory accesses stages a word in r and
// returns it safely. The trace MUST end with a Return of exactly r.Span(),
// which MUST be preceded by a Write covering the span. No Access between the
// last such Write and the Return may touch the span, and, for a Volatile
// Region, no Hash may occur at all.
//
// A write-then-return with nothing in between is therefore always safe,
// regardless of Class.
func (r Region) Check(trace []Access) error {
	if !r.Valid() {
		return fmt.Errorf("invalid %T(%d)", r, uint8(r))
	}
	start, end := r.Span()

	n := len(trace)
	if n == 0 || trace[n-1].Kind != Return {
		return ErrNoReturn
	}
	if ret := trace[n-1]; ret.Start != start || ret.End != end {
		return fmt.Errorf("%w: %v; want [%#x,%#x)", ErrReturnSpan, ret, start, end)
	}

	staged := -1
	for i := n - 2; i >= 0; i-- {
		if a := trace[i]; a.Kind == Write && a.Start <= start && a.End >= end {
			staged = i
			break
		}
	}
	if staged == -1 {
		return fmt.Errorf("%w: %v", ErrNoWrite, r)
	}

	for i := staged + 1; i < n-1; i++ {
		a := trace[i]
		if a.touches(start, end) || (a.Kind == Hash && r.Class() == Volatile) {
			return &HazardError{
				Region: r,
				Index:  i,
				Access: a,
			}
		}
	}
	return nil
}
