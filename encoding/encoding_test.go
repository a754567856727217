package encoding_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/republicprotocol/cicada/encoding"
	"github.com/republicprotocol/cicada/field"
)

func TestFixedPointRoundTrip(t *testing.T) {
	f := field.Default()
	fp := encoding.NewFixedPoint(16)

	values := []float64{0, 1, -1, 3.5, -3.5, 100.25, -100.25}
	a := fp.Encode(f, values)
	decoded := fp.Decode(a)

	for i, want := range values {
		got := decoded[i]
		if math.Abs(got-want) > 1.0/float64(uint64(1)<<16) {
			t.Fatalf("index %d: decode(encode(%v)) = %v, want ~%v", i, want, got, want)
		}
	}
}

func TestFixedPointSmallFieldExample(t *testing.T) {
	// Matches spec.md §8 scenario 5: field order 251, precision 4, secret 3.5.
	f := field.New(big.NewInt(251))
	fp := encoding.NewFixedPoint(4)

	a := fp.Encode(f, []float64{3.5})
	if a.At(0).Int64() != 56 { // 3.5 * 16 = 56
		t.Fatalf("expected encoded value 56, got %v", a.At(0))
	}
}

func TestBitsAndBoolean(t *testing.T) {
	f := field.Default()

	bits := encoding.Bits{}
	a := bits.Encode(f, []float64{0, 1, 1, 0})
	decoded := bits.Decode(a)
	want := []float64{0, 1, 1, 0}
	for i := range want {
		if decoded[i] != want[i] {
			t.Fatalf("bit mismatch at %d: got %v want %v", i, decoded[i], want[i])
		}
	}

	boolean := encoding.Boolean{}
	b := boolean.Encode(f, []float64{0, 1, 5})
	decodedB := boolean.Decode(b)
	wantB := []float64{0, 1, 1}
	for i := range wantB {
		if decodedB[i] != wantB[i] {
			t.Fatalf("boolean mismatch at %d: got %v want %v", i, decodedB[i], wantB[i])
		}
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	f := field.Default()
	id := encoding.Identity{}
	a := id.Encode(f, []float64{0, 1, 42})
	decoded := id.Decode(a)
	want := []float64{0, 1, 42}
	for i := range want {
		if decoded[i] != want[i] {
			t.Fatalf("identity mismatch at %d: got %v want %v", i, decoded[i], want[i])
		}
	}
}

