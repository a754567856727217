package field_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/republicprotocol/cicada/field"
)

func smallField() field.Field {
	return field.New(big.NewInt(251))
}

func arr(f field.Field, vs ...int64) field.Array {
	values := make([]*big.Int, len(vs))
	for i, v := range vs {
		values[i] = big.NewInt(v)
	}
	return field.NewArray(f, []int{len(vs)}, values)
}

func TestAddSubtractMultiplyNegative(t *testing.T) {
	f := smallField()

	a := arr(f, 10, 200, 250)
	b := arr(f, 5, 100, 5)

	sum := field.Add(a, b)
	if !field.Equal(sum, arr(f, 15, 49, 4)) {
		t.Fatalf("unexpected sum: %+v", sum)
	}

	diff := field.Subtract(a, b)
	if !field.Equal(diff, arr(f, 5, 100, 245)) {
		t.Fatalf("unexpected difference: %+v", diff)
	}

	prod := field.Multiply(a, b)
	if !field.Equal(prod, arr(f, 50, 20000%251, 1250%251)) {
		t.Fatalf("unexpected product: %+v", prod)
	}

	neg := field.Negative(a)
	if !field.Equal(field.Add(a, neg), field.Zeros(f, []int{3})) {
		t.Fatalf("a + (-a) should be zero, got %+v", field.Add(a, neg))
	}
}

func TestBroadcastScalar(t *testing.T) {
	f := smallField()
	a := arr(f, 1, 2, 3)
	one := field.Scalar(f, big.NewInt(1))

	sum := field.Add(a, one)
	if !field.Equal(sum, arr(f, 2, 3, 4)) {
		t.Fatalf("unexpected broadcast sum: %+v", sum)
	}
}

func TestIncompatibleShapesPanic(t *testing.T) {
	f := smallField()
	a := arr(f, 1, 2, 3)
	b := arr(f, 1, 2)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for incompatible shapes")
		}
	}()
	field.Add(a, b)
}

func TestSumAndDot(t *testing.T) {
	f := smallField()
	a := arr(f, 1, 2, 3)
	b := arr(f, 4, 5, 6)

	if field.Sum(a).Int64() != 6 {
		t.Fatalf("unexpected sum: %v", field.Sum(a))
	}
	if field.Dot(a, b).Int64() != 32 {
		t.Fatalf("unexpected dot product: %v", field.Dot(a, b))
	}
}

func TestUniformStaysInField(t *testing.T) {
	f := field.Default()
	out := f.Uniform([]int{64}, rand.Reader)
	for i := 0; i < out.Len(); i++ {
		if !f.InField(out.At(i)) {
			t.Fatalf("uniform sample outside field: %v", out.At(i))
		}
	}
}

func TestUniformPow2OnlyProducesBits(t *testing.T) {
	f := field.Default()
	out := f.UniformPow2([]int{128}, rand.Reader)
	for i := 0; i < out.Len(); i++ {
		v := out.At(i)
		if v.Int64() != 0 && v.Int64() != 1 {
			t.Fatalf("uniform_pow2 produced a non-bit value: %v", v)
		}
	}
}

func TestPreconditionViolationPanics(t *testing.T) {
	f := smallField()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-field value")
		}
	}()
	field.NewArray(f, []int{1}, []*big.Int{big.NewInt(300)})
}
