package eigen

import "errors"

var (
	// ErrNilOperator is returned when the solver is constructed without
	// an operator.
	ErrNilOperator = errors.New("eigen: operator must not be nil")

	// ErrDegenerateSubspace indicates that the expanded trial subspace
	// is linearly dependent: the 2B×2B overlap matrix has no Cholesky
	// factorization. It usually means the residuals have collapsed to
	// zero while the tolerance still rejects them.
	ErrDegenerateSubspace = errors.New("eigen: expanded subspace is linearly dependent")

	// ErrSolveFailed indicates the dense eigensolve of the subspace
	// matrix did not converge.
	ErrSolveFailed = errors.New("eigen: subspace eigensolve failed")
)
