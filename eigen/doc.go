// Package eigen implements a block Davidson eigensolver on top of the
// distributed matrix substrate.
//
// The solver tracks the lowest B eigenpairs of a Hermitian operator
// applied to trial vectors stored as the rows of a B×G matrix, where G
// is the number of grid points this rank holds; the grid dimension is
// dealt over the matrix's duplication communicator, so every B×B matrix
// element block is a per-rank partial that the matrix layer reduces
// before solving.
//
// Each iteration Rayleigh-Ritzes the current trial vectors, builds
// preconditioned residuals, and solves the 2B×2B generalized eigenproblem
// over the expanded subspace; the lowest B rows of the solution rotate
// the trial vectors for the next cycle. Iteration stops early once the
// summed residual norm falls under the tolerance, before the expansion
// would make the overlap matrix singular.
package eigen
