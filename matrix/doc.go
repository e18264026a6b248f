// Package matrix provides the distributed dense-matrix substrate for
// block iterative eigensolvers.
//
// A Matrix owns a rank-local buffer plus a Layout describing where each
// global element lives:
//
//   - NoDistribution: the whole matrix is held by rank 0 of a 1×1 grid
//     (the degenerate single-rank case).
//   - GridDistribution: elements are dealt block-cyclically over a 2-D
//     process grid, the layout dense eliminations and diagonalizations
//     balance best on.
//
// On top of the layout the package implements BLAS-style multiplication
// (Multiply, including symmetric rank-k and rank-2k shortcuts), in-place
// redistribution between layouts (Redist), a Cholesky-based inverse
// (InvCholesky) and a Hermitian eigendecomposition (Eigh). Serial dense
// kernels come from gonum; the complex Cholesky, triangular inverse and
// Hermitian eigensolver, which gonum's LAPACK does not cover, are
// implemented here on top of gonum's complex BLAS.
//
// A plain, unscaled product between matrices whose rows divide evenly
// over the grid communicator takes a ring fast path: the right operand
// circulates around the ranks one tile at a time, bounding peak memory
// to two tiles per rank and overlapping transfers with the local
// multiply of the previous round.
//
// Matrices carry a duplication communicator separate from the grid: a
// buffer may hold only this rank's partial contribution to a sum over
// that communicator. MarkPartial records the fact; InvCholesky and Eigh
// clear it (exactly once per call) by reducing onto rank 0 before
// touching the data.
//
// Process-grid contexts are cached in a Registry keyed by communicator
// group, grid rows and grid columns: created on first use, shared for
// the lifetime of the process, torn down explicitly with Close.
package matrix
