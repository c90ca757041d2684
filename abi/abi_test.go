package abi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/holiman/uint256"
)

func TestSelectorOf(t *testing.T) {
	tests := []struct {
		sig  string
		want string
	}{
		{"transfer(address,uint256)", "0xa9059cbb"},
		{"balanceOf(address)", "0x70a08231"},
		{"totalSupply()", "0x18160ddd"},
	}

	for _, tt := range tests {
		got, err := SelectorOf(tt.sig)
		if err != nil {
			t.Errorf("SelectorOf(%q) error %v", tt.sig, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("SelectorOf(%q) got %v; want %s", tt.sig, got, tt.want)
		}
	}
}

func TestParseSignature(t *testing.T) {
	got, err := ParseSignature("transfer(address,uint256)")
	if err != nil {
		t.Fatalf("ParseSignature() error %v", err)
	}
	want := Signature{
		Name:   "transfer",
		Params: []string{"address", "uint256"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseSignature() diff (-want +got):\n%s", diff)
	}

	for _, sig := range []string{
		"",
		"noParens",
		"(uint256)",
		"1abc()",
		"foo bar()",
		"foo(",
		"foo)",
		"foo(uint256,)",
		"foo(,uint256)",
		"foo(uint256, address)",
		"foo(notAType)",
		"foo(uint)",
		"foo((uint256,address))",
	} {
		if got, err := ParseSignature(sig); !errors.Is(err, ErrSignature) {
			t.Errorf("ParseSignature(%q) got %+v, err %v; want %v", sig, got, err, ErrSignature)
		}
	}
}

func TestEncodeCall(t *testing.T) {
	const sig = "whatIsTheMeaningOfLife()"

	got, err := EncodeCall(sig)
	if err != nil {
		t.Fatalf("EncodeCall(%q) error %v", sig, err)
	}
	sel, err := SelectorOf(sig)
	if err != nil {
		t.Fatalf("SelectorOf(%q) error %v", sig, err)
	}
	if !bytes.Equal(got, sel[:]) {
		t.Errorf("EncodeCall(%q) got %#x; want selector %v", sig, got, sel)
	}

	if _, err := EncodeCall("balanceOf(address)"); !errors.Is(err, ErrParameters) {
		t.Errorf("EncodeCall([with parameters]) got err %v; want %v", err, ErrParameters)
	}
	if _, err := EncodeCall("what is the meaning of life"); !errors.Is(err, ErrSignature) {
		t.Errorf("EncodeCall([malformed]) got err %v; want %v", err, ErrSignature)
	}
}

func TestDecodeUint256(t *testing.T) {
	for _, want := range []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(42),
		new(uint256.Int).Lsh(uint256.NewInt(1), 200),
		new(uint256.Int).SetAllOne(),
	} {
		buf := want.Bytes32()
		got, err := DecodeUint256(buf[:])
		if err != nil {
			t.Errorf("DecodeUint256(%#x) error %v", buf, err)
			continue
		}
		if !got.Eq(want) {
			t.Errorf("DecodeUint256(%#x) got %v; want %v", buf, got, want)
		}
	}
}

func TestDecodeUint256Errors(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		{42},
		make([]byte, 31),
		make([]byte, 33),
		make([]byte, 64),
		common.LeftPadBytes([]byte{42}, 32)[1:],
	} {
		_, err := DecodeUint256(data)

		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			t.Errorf("DecodeUint256(%#x) got err %v; want %T", data, err, decErr)
			continue
		}
		if !errors.Is(err, ErrLength) {
			t.Errorf("DecodeUint256(%#x) got err %v; want %v", data, err, ErrLength)
		}
		if !bytes.Equal(decErr.Data, data) {
			t.Errorf("%T.Data got %#x; want %#x", decErr, decErr.Data, data)
		}
	}
}
