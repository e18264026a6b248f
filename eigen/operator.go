package eigen

import "github.com/takvam/gridmat/matrix"

// Operator applies a Hermitian operator to a block of trial vectors:
// dst row n receives the operator applied to src row n. src and dst
// have the same shape and must not alias.
type Operator[T matrix.Scalar] interface {
	Apply(src, dst *matrix.Matrix[T]) error
}

// OperatorFunc adapts a function to the Operator interface.
type OperatorFunc[T matrix.Scalar] func(src, dst *matrix.Matrix[T]) error

// Apply calls f.
func (f OperatorFunc[T]) Apply(src, dst *matrix.Matrix[T]) error { return f(src, dst) }

// Preconditioner maps a block of residual vectors to expansion vectors,
// row by row. Anything that damps the high-lying components will do;
// identity is the fallback.
type Preconditioner[T matrix.Scalar] interface {
	Precondition(residual, dst *matrix.Matrix[T]) error
}

// PreconditionerFunc adapts a function to the Preconditioner interface.
type PreconditionerFunc[T matrix.Scalar] func(residual, dst *matrix.Matrix[T]) error

// Precondition calls f.
func (f PreconditionerFunc[T]) Precondition(residual, dst *matrix.Matrix[T]) error {
	return f(residual, dst)
}

// identity copies residuals through unchanged.
func identity[T matrix.Scalar](residual, dst *matrix.Matrix[T]) error {
	copy(dst.Data(), residual.Data())
	return nil
}
