package field

import "math/big"

// Array is a dense array of field elements with an explicit shape. It is
// the concrete stand-in for the "host numerics facility" the spec assumes:
// Cicada's own operations only ever need element-wise arithmetic and
// same-shape-or-scalar broadcasting, so that is all this type provides.
type Array struct {
	field Field
	shape []int
	data  []*big.Int
}

// Shape returns a copy of the array's shape.
func (a Array) Shape() []int {
	s := make([]int, len(a.shape))
	copy(s, a.shape)
	return s
}

// Field returns the field the array's elements belong to.
func (a Array) Field() Field {
	return a.field
}

// Len returns the total number of elements (the product of the shape).
func (a Array) Len() int {
	return len(a.data)
}

// At returns the i-th element in row-major order.
func (a Array) At(i int) *big.Int {
	return new(big.Int).Set(a.data[i])
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// isScalar reports whether shape denotes a single-element array (shape
// length zero, i.e. a bare scalar).
func isScalar(shape []int) bool {
	return len(shape) == 0
}

// NewArray builds an Array of the given shape from already-reduced values.
// It panics if any value is outside [0, p) or if len(values) does not match
// the shape (a precondition violation per spec.md §4.1).
func NewArray(f Field, shape []int, values []*big.Int) Array {
	n := size(shape)
	if len(values) != n {
		panic("field: value count does not match shape")
	}
	data := make([]*big.Int, n)
	for i, v := range values {
		if !f.InField(v) {
			panic("field: precondition violation: value outside [0, p)")
		}
		data[i] = new(big.Int).Set(v)
	}
	return Array{field: f, shape: append([]int(nil), shape...), data: data}
}

// Scalar builds a zero-dimensional Array holding a single value.
func Scalar(f Field, value *big.Int) Array {
	return NewArray(f, nil, []*big.Int{value})
}

// Zeros returns an Array of the given shape filled with 0.
func Zeros(f Field, shape []int) Array {
	return Full(f, shape, big.NewInt(0))
}

// Ones returns an Array of the given shape filled with 1.
func Ones(f Field, shape []int) Array {
	return Full(f, shape, big.NewInt(1))
}

// Full returns an Array of the given shape filled with v.
func Full(f Field, shape []int, v *big.Int) Array {
	n := size(shape)
	data := make([]*big.Int, n)
	for i := range data {
		data[i] = new(big.Int).Set(v)
	}
	return Array{field: f, shape: append([]int(nil), shape...), data: data}
}

// broadcastShape returns the shape two arrays produce together, following
// the same-shape-or-scalar broadcasting rule, and panics otherwise.
func broadcastShape(a, b Array) []int {
	if sameShape(a.shape, b.shape) {
		return a.shape
	}
	if isScalar(a.shape) {
		return b.shape
	}
	if isScalar(b.shape) {
		return a.shape
	}
	panic("field: incompatible shapes for broadcasting")
}

// broadcastElementwise applies op element-wise over a and b, broadcasting a
// scalar operand against a non-scalar one.
func broadcastElementwise(a, b Array, op func(x, y *big.Int) *big.Int) Array {
	if !a.field.Equal(b.field) {
		panic("field: cannot combine arrays from different fields")
	}
	shape := broadcastShape(a, b)
	n := size(shape)
	data := make([]*big.Int, n)
	aScalar := isScalar(a.shape)
	bScalar := isScalar(b.shape)
	for i := 0; i < n; i++ {
		var x, y *big.Int
		if aScalar {
			x = a.data[0]
		} else {
			x = a.data[i]
		}
		if bScalar {
			y = b.data[0]
		} else {
			y = b.data[i]
		}
		data[i] = op(x, y)
	}
	return Array{field: a.field, shape: shape, data: data}
}

// Add returns a + b mod p, element-wise with broadcasting.
func Add(a, b Array) Array {
	return broadcastElementwise(a, b, a.field.addElem)
}

// Subtract returns a - b mod p, element-wise with broadcasting.
func Subtract(a, b Array) Array {
	return broadcastElementwise(a, b, a.field.subElem)
}

// Multiply returns a * b mod p, element-wise with broadcasting.
func Multiply(a, b Array) Array {
	return broadcastElementwise(a, b, a.field.mulElem)
}

// Negative returns -a mod p, element-wise.
func Negative(a Array) Array {
	data := make([]*big.Int, len(a.data))
	for i, v := range a.data {
		data[i] = a.field.negElem(v)
	}
	return Array{field: a.field, shape: a.Shape(), data: data}
}

// InPlaceAdd sets a := a + b mod p, modifying a's storage. Only the
// internal multiplication/truncation protocols use this; share objects
// handed to suite callers are never mutated in place (see DESIGN.md).
func InPlaceAdd(a *Array, b Array) {
	r := Add(*a, b)
	*a = r
}

// InPlaceSubtract sets a := a - b mod p, modifying a's storage.
func InPlaceSubtract(a *Array, b Array) {
	r := Subtract(*a, b)
	*a = r
}

// Sum reduces the array to a single field element, the modular sum of
// every entry.
func Sum(a Array) *big.Int {
	acc := big.NewInt(0)
	for _, v := range a.data {
		acc.Add(acc, v)
	}
	return acc.Mod(acc, a.field.p)
}

// Dot returns the modular dot product sum_i a_i * b_i, without any
// truncation — callers that need fixed-point semantics apply encoding
// truncation themselves afterwards.
func Dot(a, b Array) *big.Int {
	if !a.field.Equal(b.field) {
		panic("field: cannot combine arrays from different fields")
	}
	if len(a.data) != len(b.data) {
		panic("field: dot product requires equal-length arrays")
	}
	acc := big.NewInt(0)
	tmp := new(big.Int)
	for i := range a.data {
		tmp.Mul(a.data[i], b.data[i])
		acc.Add(acc, tmp)
	}
	return acc.Mod(acc, a.field.p)
}

// Equal reports whether two arrays have the same shape, field, and values.
func Equal(a, b Array) bool {
	if !a.field.Equal(b.field) || !sameShape(a.shape, b.shape) {
		return false
	}
	for i := range a.data {
		if a.data[i].Cmp(b.data[i]) != 0 {
			return false
		}
	}
	return true
}

// Slice returns a new Array holding every element of a from [start, end).
// Shape collapses to a single dimension of length end-start; used by
// bit_decompose/bit_compose to carry the trailing bit axis.
func (a Array) Slice(start, end int) Array {
	data := make([]*big.Int, end-start)
	for i := range data {
		data[i] = new(big.Int).Set(a.data[start+i])
	}
	return Array{field: a.field, shape: []int{end - start}, data: data}
}
