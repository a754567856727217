package additive

import "errors"

var (
	errMismatchedLength = errors.New("additive: operand slices have different lengths")
	errEmptyOperand     = errors.New("additive: operand slice is empty")
	errNoBitAxis        = errors.New("additive: share has no trailing bit axis to compose")
)
