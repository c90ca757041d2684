package gethchain

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/go-cmp/cmp"
	"github.com/holiman/uint256"

	"github.com/solidifylabs/magicnum"
	"github.com/solidifylabs/magicnum/chain"
	"github.com/solidifylabs/magicnum/region"
	"github.com/solidifylabs/magicnum/revert"
	"github.com/solidifylabs/magicnum/runopts"
	"github.com/solidifylabs/magicnum/store"
)

const meaningOfLife = "whatIsTheMeaningOfLife()"

func newBackend(t *testing.T, opts ...runopts.Option) *Backend {
	t.Helper()
	b, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error %v", err)
	}
	return b
}

func TestMeaningOfLife(t *testing.T) {
	b := newBackend(t)
	want := uint256.NewInt(42)

	for _, r := range region.All() {
		t.Run(r.String(), func(t *testing.T) {
			p := magicnum.MustAssemble(*want, r)
			inst, err := chain.Deploy(b, p)
			if err != nil {
				t.Fatalf("chain.Deploy() error %v", err)
			}
			if got, want := len(inst.Code()), len(p.RuntimeCode()); got != want {
				t.Errorf("len(%T.Code()) got %d; want %d", inst, got, want)
			}

			for i := 0; i < 3; i++ {
				got, err := chain.Call(b, inst, meaningOfLife)
				if err != nil {
					t.Fatalf("chain.Call(%q) error %v", meaningOfLife, err)
				}
				if !got.Eq(want) {
					t.Errorf("chain.Call(%q) #%d got %v; want %v", meaningOfLife, i, got, want)
				}
			}
		})
	}
}

func TestAddressParity(t *testing.T) {
	deployer := common.Address{'p', 'a', 'r', 'i', 't', 'y'}
	geth := newBackend(t, runopts.Deployer(deployer))
	sim, err := chain.NewSimulated(store.NewMemory(), runopts.Deployer(deployer))
	if err != nil {
		t.Fatalf("chain.NewSimulated() error %v", err)
	}

	backends := []chain.Backend{geth, sim}

	// Failed deployments still consume the deployer's nonce.
	for _, payload := range []string{
		"0x00",                   // STOP; no code
		"0x602a60005260206000fd", // REVERT
	} {
		for _, b := range backends {
			if _, err := b.Deploy(hexutil.MustDecode(payload)); err == nil {
				t.Fatalf("%T.Deploy(%s) got nil error", b, payload)
			}
		}
	}

	addrs := make([][]common.Address, len(backends))
	for _, r := range region.All() {
		p := magicnum.MustAssemble(*uint256.NewInt(42), r)
		for i, b := range backends {
			inst, err := chain.Deploy(b, p)
			if err != nil {
				t.Fatalf("chain.Deploy(%T) error %v", b, err)
			}
			addrs[i] = append(addrs[i], inst.Address)
		}
	}

	gethAddrs, simAddrs := addrs[0], addrs[1]
	if diff := cmp.Diff(simAddrs, gethAddrs); diff != "" {
		t.Errorf("Deployment addresses; diff (-%T, +%T):\n%s", sim, geth, diff)
	}
	if got, want := gethAddrs[0], crypto.CreateAddress(deployer, 2); got != want {
		t.Errorf("First successful deployment address got %v; want %v (nonce 2)", got, want)
	}
}

func TestDeploymentErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		opts    []runopts.Option
		wantErr error
	}{
		{
			name:    "stop",
			payload: "0x00",
			wantErr: chain.ErrEmptyCode,
		},
		{
			name:    "revert",
			payload: "0x602a60005260206000fd",
			wantErr: &revert.Error{},
		},
		{
			name:    "insufficient gas for code deposit",
			payload: hexutil.Encode(magicnum.MustAssemble(*uint256.NewInt(42), region.FreeMemoryArea).Payload()),
			opts:    []runopts.Option{runopts.GasLimit(100)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t, tt.opts...)
			_, err := b.Deploy(hexutil.MustDecode(tt.payload))

			var depErr *chain.DeploymentError
			if !errors.As(err, &depErr) {
				t.Fatalf("%T.Deploy() got err %v; want %T", b, err, depErr)
			}

			switch want := tt.wantErr.(type) {
			case nil:
			case *revert.Error:
				data, ok := revert.Data(err)
				if !ok {
					t.Fatalf("%T.Deploy() got err %v; want %T", b, err, want)
				}
				if got := new(uint256.Int).SetBytes(data); got.Uint64() != 42 {
					t.Errorf("revert.Data(%T.Deploy() error) got %v; want 42", b, got)
				}
			default:
				if !errors.Is(err, want) {
					t.Errorf("%T.Deploy() got err %v; want %v", b, err, want)
				}
			}
		})
	}
}

func TestEmptyReturnParity(t *testing.T) {
	// RETURN of zero bytes from offset 2^64; the offset is never accessed.
	payload := hexutil.MustDecode("0x5f68010000000000000000f3")

	geth := newBackend(t)
	sim, err := chain.NewSimulated(store.NewMemory())
	if err != nil {
		t.Fatalf("chain.NewSimulated() error %v", err)
	}
	for _, b := range []chain.Backend{geth, sim} {
		if _, err := b.Deploy(payload); !errors.Is(err, chain.ErrEmptyCode) {
			t.Errorf("%T.Deploy(%#x) got err %v; want %v", b, payload, err, chain.ErrEmptyCode)
		}
	}
}

func TestCallUnknownInstance(t *testing.T) {
	b := newBackend(t)
	inst := chain.NewInstance(common.Address{'n', 'o', 'n', 'e'}, nil)

	// Before any deployment, there is no state at all.
	if _, err := b.Call(inst, nil); !errors.Is(err, chain.ErrNoInstance) {
		t.Errorf("%T.Call() before deployment got err %v; want %v", b, err, chain.ErrNoInstance)
	}

	if _, err := chain.Deploy(b, magicnum.MustAssemble(*uint256.NewInt(42), region.ZeroSlot)); err != nil {
		t.Fatalf("chain.Deploy() error %v", err)
	}
	if _, err := b.Call(inst, nil); !errors.Is(err, chain.ErrNoInstance) {
		t.Errorf("%T.Call() after deployment got err %v; want %v", b, err, chain.ErrNoInstance)
	}
}
