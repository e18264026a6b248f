// Package gridmat is a distributed dense-matrix substrate for parallel
// block iterative eigensolvers: SPMD linear algebra over in-process
// rank groups, from message passing up to Davidson iteration.
//
// 🚀 What is gridmat?
//
//	A self-contained toolkit that brings together:
//		• Rank groups: goroutine communicators with tagged point-to-point,
//		  collectives, subgroups and non-blocking requests
//		• Band partitions: blocked or strided 1-D index distributions,
//		  band-array collection and block-matrix assembly
//		• Distributed matrices: block-cyclic 2-D layouts, BLAS-style
//		  multiplication with a ring fast path, redistribution, inverse
//		  Cholesky and Hermitian eigendecomposition
//		• Eigensolving: block Davidson iteration for the lowest eigenpairs
//		  of a Hermitian operator
//
// ✨ Why choose gridmat?
//
//   - SPMD without MPI – rank groups are goroutines, tests run anywhere
//   - Deterministic – fixed exchange orders make redistributions and
//     reductions bit-reproducible
//   - Lower-triangle discipline – Hermitian operations never read above
//     the diagonal, and PoisonUpper proves it
//   - Pure Go on gonum – no cgo, no hidden deps beyond the kernels
//
// Under the hood, everything is organized under four subpackages:
//
//	comm/   — communicator groups, Send/Recv, collectives, subgroups
//	band/   — band descriptors, Collect/Distribute, block assembly
//	matrix/ — layouts, Multiply, Redist, InvCholesky, Eigh
//	eigen/  — the Davidson solver on top of matrix/
//
// Quick ASCII example, a 4×4 matrix in 1×1 blocks on a 2×2 grid:
//
//	    ┌────┬────┬────┬────┐
//	    │ r0 │ r1 │ r0 │ r1 │
//	    ├────┼────┼────┼────┤
//	    │ r2 │ r3 │ r2 │ r3 │
//	    ├────┼────┼────┼────┤
//	    │ r0 │ r1 │ r0 │ r1 │
//	    ├────┼────┼────┼────┤
//	    │ r2 │ r3 │ r2 │ r3 │
//	    └────┴────┴────┴────┘
//
//	each rank owns the cells carrying its label, block-cyclically.
//
// Start with comm.Run to spin up a rank group, lay matrices out with
// matrix.CreateLayout, and hand trial vectors to eigen.Davidson.
//
//	go get github.com/takvam/gridmat
package gridmat
