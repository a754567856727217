package shamirsuite

import "errors"

var (
	errThreshold        = errors.New("shamirsuite: threshold k must satisfy 1 <= k <= world size")
	errDegreeReduction  = errors.New("shamirsuite: full suite requires 2k-1 <= world size")
	errMalformedShare   = errors.New("shamirsuite: gathered share is missing its index header")
	errMismatchedLength = errors.New("shamirsuite: operand slices have different lengths")
	errEmptyOperand     = errors.New("shamirsuite: operand slice is empty")
	errNoBitAxis        = errors.New("shamirsuite: share has no trailing bit axis to compose")
	errIndexMismatch    = errors.New("shamirsuite: operand shares have different indices")
)
