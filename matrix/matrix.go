package matrix

import (
	"fmt"

	"github.com/takvam/gridmat/comm"
)

// Scalar constrains matrix element types: real or complex double
// precision, matching the dense kernels underneath.
type Scalar interface {
	float64 | complex128
}

// Op selects the operand transformation of a multiply.
type Op byte

const (
	// OpNone uses the operand as stored.
	OpNone Op = 'N'
	// OpTrans uses the plain transpose.
	OpTrans Op = 'T'
	// OpConjTrans uses the conjugate transpose (equal to OpTrans for
	// real elements).
	OpConjTrans Op = 'C'
)

// Matrix is a dense M×N matrix whose elements are laid out by a Layout.
// Each rank exclusively owns its local buffer; no two ranks ever address
// the same storage.
//
// The duplication communicator dup is orthogonal to the layout: when a
// matrix is assembled from per-rank partial contributions over dup, the
// buffer holds an unsummed partial and the matrix must be marked with
// MarkPartial. InvCholesky and Eigh reduce such a matrix onto dup rank 0
// exactly once before reading it.
type Matrix[T Scalar] struct {
	rows, cols int
	layout     Layout
	dup        *comm.Comm
	data       []T
	needsSum   bool
}

// New allocates a zeroed M×N matrix with the given layout (a fresh
// NoDistribution when nil) and a serial duplication communicator.
func New[T Scalar](m, n int, layout Layout) (*Matrix[T], error) {
	return NewWithComm[T](m, n, layout, nil)
}

// NewWithComm allocates a zeroed matrix whose partial sums live on dup
// (Serial when nil).
func NewWithComm[T Scalar](m, n int, layout Layout, dup *comm.Comm) (*Matrix[T], error) {
	if layout == nil {
		var err error
		layout, err = NewNoDistribution(m, n)
		if err != nil {
			return nil, err
		}
	}
	if gm, gn := layout.GlobalShape(); gm != m || gn != n {
		return nil, fmt.Errorf("matrix.New: layout is %dx%d, want %dx%d: %w", gm, gn, m, n, ErrShapeMismatch)
	}
	if dup == nil {
		dup = comm.Serial()
	}
	lm, ln := layout.LocalShape()
	return &Matrix[T]{
		rows: m, cols: n,
		layout: layout,
		dup:    dup,
		data:   make([]T, lm*ln),
	}, nil
}

// FromData wraps an existing row-major buffer as a serial (undistributed)
// matrix without copying. len(data) must be m*n.
func FromData[T Scalar](m, n int, data []T) (*Matrix[T], error) {
	layout, err := NewNoDistribution(m, n)
	if err != nil {
		return nil, err
	}
	if len(data) != m*n {
		return nil, fmt.Errorf("matrix.FromData: buffer length %d, want %d: %w", len(data), m*n, ErrShapeMismatch)
	}
	return &Matrix[T]{rows: m, cols: n, layout: layout, dup: comm.Serial(), data: data}, nil
}

// NewLike allocates a zeroed matrix of the same global shape, layout and
// duplication communicator.
func (a *Matrix[T]) NewLike() *Matrix[T] {
	b, err := NewWithComm[T](a.rows, a.cols, a.layout, a.dup)
	if err != nil {
		panic(err) // the receiver's own layout cannot be invalid
	}
	return b
}

// NewLikeOn allocates a zeroed matrix of the same global shape and
// duplication communicator under another layout.
func (a *Matrix[T]) NewLikeOn(layout Layout) (*Matrix[T], error) {
	return NewWithComm[T](a.rows, a.cols, layout, a.dup)
}

// GlobalShape returns the global (rows, cols).
func (a *Matrix[T]) GlobalShape() (int, int) { return a.rows, a.cols }

// LocalShape returns this rank's tile shape.
func (a *Matrix[T]) LocalShape() (int, int) { return a.layout.LocalShape() }

// Layout returns the element layout descriptor.
func (a *Matrix[T]) Layout() Layout { return a.layout }

// Comm returns the duplication communicator.
func (a *Matrix[T]) Comm() *comm.Comm { return a.dup }

// Data exposes the rank-local row-major buffer. The matrix retains
// exclusive ownership; callers may read and write elements but must not
// grow, shrink or retain the slice across layout changes.
func (a *Matrix[T]) Data() []T { return a.data }

// At reads local element (i, j). Local indices only; out of range panics.
func (a *Matrix[T]) At(i, j int) T {
	lm, ln := a.LocalShape()
	if i < 0 || i >= lm || j < 0 || j >= ln {
		panic(fmt.Sprintf("matrix: local index (%d, %d) outside %dx%d tile", i, j, lm, ln))
	}
	return a.data[i*ln+j]
}

// Set writes local element (i, j).
func (a *Matrix[T]) Set(i, j int, v T) {
	lm, ln := a.LocalShape()
	if i < 0 || i >= lm || j < 0 || j >= ln {
		panic(fmt.Sprintf("matrix: local index (%d, %d) outside %dx%d tile", i, j, lm, ln))
	}
	a.data[i*ln+j] = v
}

// MarkPartial records that the buffer holds only this rank's unsummed
// contribution over the duplication communicator. The next InvCholesky
// or Eigh clears the mark by reducing onto rank 0.
func (a *Matrix[T]) MarkPartial() { a.needsSum = a.dup.Size() > 1 }

// Partial reports whether the buffer still awaits a cross-rank sum.
func (a *Matrix[T]) Partial() bool { return a.needsSum }

// reduceIfNeeded performs the pending sum onto dup rank 0 and clears the
// mark. Policy: exactly one reduction per read-sensitive call.
func (a *Matrix[T]) reduceIfNeeded() {
	if a.needsSum {
		comm.Sum(a.dup, a.data, 0)
	}
	a.needsSum = false
}

// Swap exchanges the local buffers of two matrices with identical global
// shape and layout. Used by iterative callers to rotate work arrays
// without copying.
func (a *Matrix[T]) Swap(b *Matrix[T]) {
	if a.rows != b.rows || a.cols != b.cols || len(a.data) != len(b.data) {
		panic("matrix: Swap of incompatible matrices")
	}
	a.data, b.data = b.data, a.data
}

// ComplexConjugate conjugates the local buffer in place; a no-op for
// real element types.
func (a *Matrix[T]) ComplexConjugate() {
	conjugateSlice(a.data)
}

// scalarOf lifts a real value into the element type.
func scalarOf[T Scalar](v float64) T {
	var t T
	if _, ok := any(t).(complex128); ok {
		return any(complex(v, 0)).(T)
	}
	return any(v).(T)
}

func conjugateSlice[T Scalar](data []T) {
	if z, ok := any(data).([]complex128); ok {
		for i, v := range z {
			z[i] = complex(real(v), -imag(v))
		}
	}
}

func (a *Matrix[T]) String() string {
	return fmt.Sprintf("Matrix(%dx%d, %v)", a.rows, a.cols, a.layout)
}
