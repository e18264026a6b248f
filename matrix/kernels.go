package matrix

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/lapack"
	"gonum.org/v1/gonum/lapack/lapack64"
)

// Serial dense kernels. The real paths go straight to gonum's BLAS and
// LAPACK; the complex Cholesky factorization, triangular inverse and
// Hermitian eigendecomposition, which gonum's lapack64 does not cover,
// are implemented here (the eigensolver through the standard real
// embedding of a Hermitian matrix).

func transOf(op Op, real bool) blas.Transpose {
	switch op {
	case OpNone:
		return blas.NoTrans
	case OpTrans:
		return blas.Trans
	case OpConjTrans:
		if real {
			return blas.Trans
		}
		return blas.ConjTrans
	}
	panic("matrix: unknown operand op " + string(op))
}

// kgemm computes C = alpha*op(A)*op(B) + beta*C on row-major buffers
// with explicit leading dimensions. (am, an) and (bm, bn) are the stored
// shapes before the op is applied.
func kgemm[T Scalar](opA Op, alpha float64, a []T, am, an, lda int,
	opB Op, b []T, bm, bn, ldb int,
	beta float64, c []T, cm, cn, ldc int) {
	switch ca := any(a).(type) {
	case []float64:
		blas64.Gemm(transOf(opA, true), transOf(opB, true), alpha,
			blas64.General{Rows: am, Cols: an, Stride: lda, Data: ca},
			blas64.General{Rows: bm, Cols: bn, Stride: ldb, Data: any(b).([]float64)},
			beta,
			blas64.General{Rows: cm, Cols: cn, Stride: ldc, Data: any(c).([]float64)})
	case []complex128:
		cblas128.Gemm(transOf(opA, false), transOf(opB, false), complex(alpha, 0),
			cblas128.General{Rows: am, Cols: an, Stride: lda, Data: ca},
			cblas128.General{Rows: bm, Cols: bn, Stride: ldb, Data: any(b).([]complex128)},
			complex(beta, 0),
			cblas128.General{Rows: cm, Cols: cn, Stride: ldc, Data: any(c).([]complex128)})
	}
}

// krankk computes the lower triangle of C = alpha*A*Aᴴ + beta*C for an
// n×k operand A. The strict upper triangle of C is left untouched.
func krankk[T Scalar](alpha float64, a []T, n, k, lda int, beta float64, c []T, ldc int) {
	switch ca := any(a).(type) {
	case []float64:
		blas64.Syrk(blas.NoTrans, alpha,
			blas64.General{Rows: n, Cols: k, Stride: lda, Data: ca},
			beta,
			blas64.Symmetric{Uplo: blas.Lower, N: n, Stride: ldc, Data: any(c).([]float64)})
	case []complex128:
		cblas128.Herk(blas.NoTrans, alpha,
			cblas128.General{Rows: n, Cols: k, Stride: lda, Data: ca},
			beta,
			cblas128.Hermitian{Uplo: blas.Lower, N: n, Stride: ldc, Data: any(c).([]complex128)})
	}
}

// krank2k computes the lower triangle of
// C = alpha*(A*Bᴴ + B*Aᴴ) + beta*C for n×k operands A and B.
func krank2k[T Scalar](alpha float64, a, b []T, n, k, lda, ldb int, beta float64, c []T, ldc int) {
	switch ca := any(a).(type) {
	case []float64:
		blas64.Syr2k(blas.NoTrans, alpha,
			blas64.General{Rows: n, Cols: k, Stride: lda, Data: ca},
			blas64.General{Rows: n, Cols: k, Stride: ldb, Data: any(b).([]float64)},
			beta,
			blas64.Symmetric{Uplo: blas.Lower, N: n, Stride: ldc, Data: any(c).([]float64)})
	case []complex128:
		cblas128.Her2k(blas.NoTrans, complex(alpha, 0),
			cblas128.General{Rows: n, Cols: k, Stride: lda, Data: ca},
			cblas128.General{Rows: n, Cols: k, Stride: ldb, Data: any(b).([]complex128)},
			beta,
			cblas128.Hermitian{Uplo: blas.Lower, N: n, Stride: ldc, Data: any(c).([]complex128)})
	}
}

// kcholinv overwrites the n×n buffer with the inverse of its lower
// Cholesky factor: a = L⁻¹ where a = L·Lᴴ on entry. Only the lower
// triangle is read; the strict upper triangle is zeroed on exit.
func kcholinv[T Scalar](a []T, n int) error {
	switch ca := any(a).(type) {
	case []float64:
		sym := blas64.Symmetric{Uplo: blas.Lower, N: n, Stride: n, Data: ca}
		if _, ok := lapack64.Potrf(sym); !ok {
			return ErrNotPositiveDefinite
		}
		tri := blas64.Triangular{Uplo: blas.Lower, Diag: blas.NonUnit, N: n, Stride: n, Data: ca}
		if ok := lapack64.Trtri(tri); !ok {
			return ErrNotPositiveDefinite
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				ca[i*n+j] = 0
			}
		}
	case []complex128:
		if err := zpotf2(ca, n); err != nil {
			return err
		}
		ztrtriLower(ca, n)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				ca[i*n+j] = 0
			}
		}
	}
	return nil
}

// zpotf2 is the unblocked lower Cholesky factorization of a Hermitian
// positive definite matrix: A = L·Lᴴ, reading and writing only the lower
// triangle.
func zpotf2(a []complex128, n int) error {
	for j := 0; j < n; j++ {
		ajj := real(a[j*n+j])
		for k := 0; k < j; k++ {
			v := a[j*n+k]
			ajj -= real(v)*real(v) + imag(v)*imag(v)
		}
		if ajj <= 0 || math.IsNaN(ajj) {
			return ErrNotPositiveDefinite
		}
		d := math.Sqrt(ajj)
		a[j*n+j] = complex(d, 0)
		for i := j + 1; i < n; i++ {
			s := a[i*n+j]
			for k := 0; k < j; k++ {
				s -= a[i*n+k] * cmplx.Conj(a[j*n+k])
			}
			a[i*n+j] = s / complex(d, 0)
		}
	}
	return nil
}

// ztrtriLower inverts a non-unit lower triangular matrix in place by
// forward substitution, one column at a time.
func ztrtriLower(a []complex128, n int) {
	col := make([]complex128, n)
	for j := 0; j < n; j++ {
		col[j] = 1 / a[j*n+j]
		for i := j + 1; i < n; i++ {
			var s complex128
			for k := j; k < i; k++ {
				s += a[i*n+k] * col[k]
			}
			col[i] = -s / a[i*n+i]
		}
		for i := j; i < n; i++ {
			a[i*n+j] = col[i]
		}
	}
}

// keigh overwrites the n×n buffer with the eigenvectors of the Hermitian
// matrix it holds, one eigenvector per ROW, eigenvalues ascending in w.
// Only the lower triangle of the input is read.
func keigh[T Scalar](a []T, n int, w []float64) error {
	switch ca := any(a).(type) {
	case []float64:
		sym := blas64.Symmetric{Uplo: blas.Lower, N: n, Stride: n, Data: ca}
		work := make([]float64, 1)
		// Workspace query; gonum <v0.15 reports ok=false here even on success.
		lapack64.Syev(lapack.EVCompute, sym, w, work, -1)
		work = make([]float64, int(work[0]))
		if ok := lapack64.Syev(lapack.EVCompute, sym, w, work, len(work)); !ok {
			return ErrEigenFailed
		}
		// Syev leaves eigenvector k in column k; flip to the row
		// convention used throughout.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				ca[i*n+j], ca[j*n+i] = ca[j*n+i], ca[i*n+j]
			}
		}
		return nil
	case []complex128:
		return zheevRows(ca, n, w)
	}
	return nil
}

// zheevRows diagonalizes a Hermitian matrix through its real embedding
//
//	E = | Re A  -Im A |
//	    | Im A   Re A |
//
// whose spectrum is that of A with every eigenvalue doubled: if
// A(p+iq) = λ(p+iq) then both (p, q) and (-q, p) are eigenvectors of E
// for λ. One complex eigenvector per eigenvalue is recovered by
// Gram-Schmidt against the vectors already accepted; the doubled partner
// of an accepted vector projects to (near) zero and is skipped.
func zheevRows(a []complex128, n int, w []float64) error {
	m := 2 * n
	e := make([]float64, m*m)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			v := a[i*n+j]
			e[i*m+j] = real(v)
			e[(i+n)*m+j] = imag(v)
			e[(i+n)*m+j+n] = real(v)
			// Hermitian symmetry fills the blocks above the embedded
			// diagonal from the lower triangle of A.
			e[j*m+i] = real(v)
			e[(j+n)*m+i+n] = real(v)
			e[j*m+i+n] = imag(v)
			e[(j+n)*m+i] = -imag(v)
			e[i*m+j+n] = -imag(v)
		}
	}

	w2 := make([]float64, m)
	sym := blas64.Symmetric{Uplo: blas.Lower, N: m, Stride: m, Data: e}
	work := make([]float64, 1)
	// Workspace query; gonum <v0.15 reports ok=false here even on success.
	lapack64.Syev(lapack.EVCompute, sym, w2, work, -1)
	work = make([]float64, int(work[0]))
	if ok := lapack64.Syev(lapack.EVCompute, sym, w2, work, len(work)); !ok {
		return ErrEigenFailed
	}

	accepted := 0
	x := make([]complex128, n)
	for c := 0; c < m && accepted < n; c++ {
		for i := 0; i < n; i++ {
			x[i] = complex(e[i*m+c], e[(i+n)*m+c])
		}
		// Remove the components along every vector taken so far. Vectors
		// of distinct eigenvalues are already orthogonal, so this only
		// bites inside a degenerate cluster.
		for r := 0; r < accepted; r++ {
			var dot complex128
			for i := 0; i < n; i++ {
				dot += cmplx.Conj(a[r*n+i]) * x[i]
			}
			for i := 0; i < n; i++ {
				x[i] -= dot * a[r*n+i]
			}
		}
		var norm float64
		for i := 0; i < n; i++ {
			norm += real(x[i])*real(x[i]) + imag(x[i])*imag(x[i])
		}
		norm = math.Sqrt(norm)
		if norm < 0.5 {
			continue // the doubled partner of an accepted vector
		}
		for i := 0; i < n; i++ {
			a[accepted*n+i] = x[i] / complex(norm, 0)
		}
		w[accepted] = w2[c]
		accepted++
	}
	if accepted != n {
		return ErrEigenFailed
	}
	return nil
}
