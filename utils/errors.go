package utils

import "errors"

var (
	// ErrNotImplemented marks a combination with no closed form and no
	// usable fallback. Callers may try another assembly path.
	ErrNotImplemented = errors.New("not implemented")
	// ErrShape is returned when operand shapes do not agree.
	ErrShape = errors.New("shape mismatch")
	// ErrSanity is returned when a closed form disagrees with quadrature.
	ErrSanity = errors.New("sanity check failed")
	// ErrOperatorKeys is returned when a solver receives an unexpected operator set.
	ErrOperatorKeys = errors.New("unexpected operator keys")
	ErrSingular     = errors.New("matrix is singular or nearly singular")
)
