// Sentinel error set. Configuration errors surface at construction,
// numerical errors during computation; neither is ever
// recovered locally; they end the computation for the whole group.
// Shape mismatches on the hot multiply path panic instead, following
// the BLAS convention for programmer errors.

package matrix

import "errors"

var (
	// ErrBadShape is returned when a requested global shape is invalid
	// (zero or negative extent).
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrBadGrid indicates a process grid that cannot be formed over the
	// given communicator (non-positive extents, or more grid slots than
	// ranks).
	ErrBadGrid = errors.New("matrix: invalid process grid")

	// ErrNeedBlockSize indicates a true 2-D grid was requested without
	// an explicit block size; only 1-D grids have a canonical default.
	ErrNeedBlockSize = errors.New("matrix: block size required for a 2-D grid")

	// ErrBadBlockSize indicates a block size that yields an invalid
	// local tile (non-positive block extent).
	ErrBadBlockSize = errors.New("matrix: invalid block size")

	// ErrShapeMismatch indicates two matrices whose global shapes were
	// required to agree (e.g. the ends of a redistribution) but do not.
	ErrShapeMismatch = errors.New("matrix: global shape mismatch")

	// ErrNonSquare signals that a square matrix was required.
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrNotPositiveDefinite is returned by InvCholesky when the matrix
	// has no Cholesky factorization.
	ErrNotPositiveDefinite = errors.New("matrix: matrix is not positive definite")

	// ErrEigenFailed indicates the Hermitian eigensolver did not
	// converge or produced an inconsistent eigenbasis.
	ErrEigenFailed = errors.New("matrix: eigendecomposition failed")
)
