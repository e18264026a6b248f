package matrix

import (
	"fmt"

	"github.com/takvam/gridmat/comm"
)

// GridSpec names an alternative process grid to diagonalize on: the
// matrix is redistributed there, solved, and redistributed back. A nil
// spec solves on the matrix's own layout. SuggestBlocking produces
// reasonable parameters.
type GridSpec struct {
	Comm      *comm.Comm
	Rows      int
	Cols      int
	BlockSize int
}

// Eigh overwrites the Hermitian matrix with its eigenvectors, one per
// ROW, and returns the eigenvalues in ascending order. Only the lower
// triangle of the input is read. With conjugate set the matrix is
// conjugated before solving, so the rows come out as the conjugated
// eigenvectors; real element types ignore the flag.
//
// A pending partial sum over the duplication communicator is reduced
// first and the solve runs where the summed data lives; eigenvectors and
// eigenvalues are then re-duplicated onto every rank. Every rank returns
// ErrEigenFailed if the decomposition fails.
func (a *Matrix[T]) Eigh(conjugate bool, spec *GridSpec) ([]float64, error) {
	if a.rows != a.cols {
		return nil, fmt.Errorf("matrix.Eigh: %dx%d: %w", a.rows, a.cols, ErrNonSquare)
	}
	a.reduceIfNeeded()

	eps := make([]float64, a.rows)
	failed := false
	if a.dup.Rank() == 0 {
		h := a
		if spec != nil {
			layout, err := CreateLayout(a.rows, a.cols, spec.Comm, spec.Rows, spec.Cols, spec.BlockSize)
			if err != nil {
				return nil, err
			}
			if h, err = a.NewLikeOn(layout); err != nil {
				return nil, err
			}
			if err := Redist(a, h); err != nil {
				return nil, err
			}
		}
		gc := h.layout.Comm()
		root, err := gatherToRoot(h)
		if err != nil {
			return nil, err
		}
		if gc.Rank() == 0 {
			if conjugate {
				conjugateSlice(root.data)
			}
			failed = keigh(root.data, a.rows, eps) != nil
		}
		failed = shareStatus(failed, gc)
		if !failed {
			if err := Redist(root, h); err != nil {
				return nil, err
			}
			comm.Broadcast(gc, eps, 0)
			if h != a {
				if err := Redist(h, a); err != nil {
					return nil, err
				}
				comm.Broadcast(a.layout.Comm(), eps, 0)
			}
		}
	}
	if shareStatus(failed, a.dup) {
		return nil, ErrEigenFailed
	}
	comm.Broadcast(a.dup, a.data, 0)
	comm.Broadcast(a.dup, eps, 0)
	return eps, nil
}
