package matrix

import (
	"fmt"

	"github.com/takvam/gridmat/comm"
)

// shareStatus makes a success/failure verdict reached on rank 0 visible
// on every rank of each communicator, in order, before any dependent
// data movement. Without it a numerical failure on the root would leave
// the other ranks blocked in the follow-up collectives.
func shareStatus(failed bool, comms ...*comm.Comm) bool {
	flag := []int{0}
	if failed {
		flag[0] = 1
	}
	for _, c := range comms {
		comm.Broadcast(c, flag, 0)
	}
	return flag[0] != 0
}

// InvCholesky replaces the matrix with the inverse of its lower Cholesky
// factor: with a = L·Lᴴ on entry, a = L⁻¹ on exit, strict upper triangle
// zeroed. Only the lower triangle of the input is read.
//
// A pending partial sum over the duplication communicator is reduced
// first; the decomposition then runs where the summed data lives (rank 0
// of the duplication communicator, gathered onto the root of the grid)
// and the result is dealt back out and re-duplicated. Every rank returns
// ErrNotPositiveDefinite if the factorization fails.
func (a *Matrix[T]) InvCholesky() error {
	if a.rows != a.cols {
		return fmt.Errorf("matrix.InvCholesky: %dx%d: %w", a.rows, a.cols, ErrNonSquare)
	}
	a.reduceIfNeeded()

	failed := false
	if a.dup.Rank() == 0 {
		gc := a.layout.Comm()
		root, err := gatherToRoot(a)
		if err != nil {
			return err
		}
		if gc.Rank() == 0 {
			failed = kcholinv(root.data, a.rows) != nil
		}
		failed = shareStatus(failed, gc)
		if !failed {
			if err := Redist(root, a); err != nil {
				return err
			}
		}
	}
	if shareStatus(failed, a.dup) {
		return ErrNotPositiveDefinite
	}
	comm.Broadcast(a.dup, a.data, 0)
	return nil
}
