package active

import "errors"

var (
	errMismatchedLength = errors.New("active: operand slices have different lengths")
	errEmptyOperand     = errors.New("active: operand slice is empty")
	errCommitMismatch   = errors.New("active: a player's revealed coin-flip entropy does not match its earlier commitment")
	errInconsistent     = errors.New("active: additive and Shamir revelations of a share disagree")
)
