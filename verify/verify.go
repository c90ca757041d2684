// Package verify runs magicnum Programs end to end: each is assembled,
// deployed and called on every target backend, and the results are checked
// against the value that was assembled.
package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/solidifylabs/magicnum"
	"github.com/solidifylabs/magicnum/abi"
	"github.com/solidifylabs/magicnum/chain"
	"github.com/solidifylabs/magicnum/region"
)

// DefaultSignature is the function called on every deployed Instance unless
// a Plan specifies otherwise.
const DefaultSignature = "whatIsTheMeaningOfLife()"

// Errors carried by a failed Result.
var (
	ErrNondeterministic = errors.New("assembly is not deterministic")
	ErrCodeLength       = errors.New("deployed code length differs from runtime code")
	ErrInconsistent     = errors.New("repeated calls returned different values")
	ErrWrongValue       = errors.New("returned value differs from assembled value")
)

// ErrPlan is returned by Run() if the Plan is unusable.
var ErrPlan = errors.New("invalid plan")

// A Plan describes what to verify. The zero value is not usable; see
// DefaultPlan().
type Plan struct {
	Value     uint256.Int
	Signature string
	Regions   []region.Region
	// Number of calls made to each Instance; at least 1.
	Calls int
}

// DefaultPlan returns a Plan checking that every Region returns 42 when
// called with DefaultSignature.
func DefaultPlan() Plan {
	return Plan{
		Value:     *uint256.NewInt(42),
		Signature: DefaultSignature,
		Regions:   region.All(),
		Calls:     2,
	}
}

func (p Plan) validate() error {
	sig, err := abi.ParseSignature(p.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlan, err)
	}
	if len(sig.Params) > 0 {
		return fmt.Errorf("%w: %q has parameters", ErrPlan, p.Signature)
	}
	if len(p.Regions) == 0 {
		return fmt.Errorf("%w: no regions", ErrPlan)
	}
	for _, r := range p.Regions {
		if !r.Valid() {
			return fmt.Errorf("%w: %v", ErrPlan, r)
		}
	}
	if p.Calls < 1 {
		return fmt.Errorf("%w: %d calls", ErrPlan, p.Calls)
	}
	return nil
}

// A Target is a named Backend.
type Target struct {
	Name    string
	Backend chain.Backend
}

// A Result reports the verification of a single Region on a single Target.
type Result struct {
	Target  string
	Region  region.Region
	Address common.Address // Zero if deployment failed
	Got     *uint256.Int   // Nil if no call succeeded
	Err     error
}

// OK returns whether verification succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s %v: FAIL: %v", r.Target, r.Region, r.Err)
	}
	return fmt.Sprintf("%s %v: ok %v at %v", r.Target, r.Region, r.Got, r.Address)
}

// Failed returns the number of Results that aren't OK().
func Failed(rs []Result) int {
	var n int
	for _, r := range rs {
		if !r.OK() {
			n++
		}
	}
	return n
}

// Run verifies the Plan on all Targets concurrently, one goroutine per Target,
// with each Target's Regions verified in order. Results are ordered by Target
// then by Region, as provided.
//
// Verification failures are reported in the Results, not as an error; the
// returned error is non-nil only if the Plan is invalid or ctx is cancelled,
// in which case the Results are incomplete.
func Run(ctx context.Context, p Plan, targets ...Target) ([]Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	results := make([]Result, len(targets)*len(p.Regions))
	g, ctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		out := results[i*len(p.Regions) : (i+1)*len(p.Regions)]

		g.Go(func() error {
			for j, r := range p.Regions {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := verify(ctx, p, t, r)
				if err != nil {
					return err
				}
				out[j] = res
				log.WithFields(log.Fields{
					"target": t.Name,
					"region": r,
					"ok":     res.OK(),
				}).Debug("Verified")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// verify returns a Result for r on t. The returned error is only non-nil if
// ctx is cancelled.
func verify(ctx context.Context, p Plan, t Target, r region.Region) (Result, error) {
	res := Result{
		Target: t.Name,
		Region: r,
	}
	fail := func(err error) (Result, error) {
		res.Err = err
		return res, nil
	}

	prog, err := magicnum.Assemble(p.Value, r)
	if err != nil {
		return fail(err)
	}
	again, err := magicnum.Assemble(p.Value, r)
	if err != nil {
		return fail(err)
	}
	if !bytes.Equal(prog.Payload(), again.Payload()) {
		return fail(fmt.Errorf("%w: %#x then %#x", ErrNondeterministic, prog.Payload(), again.Payload()))
	}
	log.Debugf("Assembled %v: %#x", r, prog.Payload())

	inst, err := chain.Deploy(t.Backend, prog)
	if err != nil {
		return fail(err)
	}
	res.Address = inst.Address
	if got, want := len(inst.Code()), len(prog.RuntimeCode()); got != want {
		return fail(fmt.Errorf("%w: %d != %d", ErrCodeLength, got, want))
	}

	for i := 0; i < p.Calls; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		got, err := chain.Call(t.Backend, inst, p.Signature)
		if err != nil {
			return fail(err)
		}
		if res.Got != nil && !got.Eq(res.Got) {
			return fail(fmt.Errorf("%w: call %d returned %v; previously %v", ErrInconsistent, i, got, res.Got))
		}
		res.Got = got
	}

	if !res.Got.Eq(&p.Value) {
		return fail(fmt.Errorf("%w: got %v; want %v", ErrWrongValue, res.Got, &p.Value))
	}
	return res, nil
}
