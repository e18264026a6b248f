package matrix

import (
	"fmt"
)

// opShape returns the effective (rows, cols) of an operand after its op
// is applied.
func opShape(m, n int, op Op) (int, int) {
	if op == OpNone {
		return m, n
	}
	return n, m
}

// Multiply computes out = alpha*op(a)*op(b) + beta*out and returns out,
// allocating it when nil.
//
// With symmetric set, only the lower triangle of out is computed (opA
// must be OpNone and opB a transpose); when a and b are the same matrix
// the rank-k kernel is used, otherwise the rank-2k kernel. Callers that
// accumulate per-rank contributions this way must MarkPartial the result
// themselves.
//
// A plain product (alpha 1, beta 0, both ops OpNone) between matrices
// distributed as equal row blocks over the same communicator is computed
// by circulating the right operand around the ranks; anything else on a
// multi-rank grid is gathered to the grid root, multiplied there and
// scattered back.
func Multiply[T Scalar](alpha float64, a *Matrix[T], opA Op, b *Matrix[T], opB Op, beta float64, out *Matrix[T], symmetric bool) (*Matrix[T], error) {
	am, an := a.GlobalShape()
	bm, bn := b.GlobalShape()
	m, k := opShape(am, an, opA)
	k2, n := opShape(bm, bn, opB)
	if k != k2 {
		return nil, fmt.Errorf("matrix.Multiply: inner dimensions %d and %d: %w", k, k2, ErrShapeMismatch)
	}
	if symmetric {
		if opA != OpNone || opB == OpNone {
			panic("matrix: symmetric multiply requires opA = OpNone and a transposed b")
		}
		if m != n {
			return nil, fmt.Errorf("matrix.Multiply: symmetric product %dx%d: %w", m, n, ErrNonSquare)
		}
	}

	if out == nil {
		layout, err := CreateLayout(m, n, a.Layout().Comm(), a.Layout().Comm().Size(), 1, 0)
		if err != nil {
			return nil, err
		}
		out, err = NewWithComm[T](m, n, layout, a.dup)
		if err != nil {
			return nil, err
		}
	}
	if om, on := out.GlobalShape(); om != m || on != n {
		return nil, fmt.Errorf("matrix.Multiply: out is %dx%d, want %dx%d: %w", om, on, m, n, ErrShapeMismatch)
	}

	width := a.Layout().Comm().Size()
	if s := b.Layout().Comm().Size(); s > width {
		width = s
	}
	if s := out.Layout().Comm().Size(); s > width {
		width = s
	}
	if width == 1 {
		localMultiply(alpha, a, opA, b, opB, beta, out, symmetric)
		return out, nil
	}
	if !symmetric && ringEligible(alpha, a, opA, b, opB, beta, out) {
		ringMultiply(a, b, out)
		return out, nil
	}
	return out, gatherMultiply(alpha, a, opA, b, opB, beta, out, symmetric)
}

// localMultiply runs the serial kernel on the rank-local buffers.
func localMultiply[T Scalar](alpha float64, a *Matrix[T], opA Op, b *Matrix[T], opB Op, beta float64, out *Matrix[T], symmetric bool) {
	alm, aln := a.LocalShape()
	blm, bln := b.LocalShape()
	olm, oln := out.LocalShape()
	m, k := opShape(alm, aln, opA)
	k2, n := opShape(blm, bln, opB)
	if k != k2 || m != olm || n != oln {
		panic(fmt.Sprintf("matrix: local multiply %dx%d by %dx%d into %dx%d", m, k, k2, n, olm, oln))
	}
	if k == 0 {
		if beta == 1 {
			return
		}
		panic("matrix: empty inner dimension with beta != 1")
	}
	if symmetric {
		if a == b {
			krankk(alpha, a.data, alm, aln, aln, beta, out.data, oln)
		} else {
			krank2k(0.5*alpha, a.data, b.data, alm, aln, aln, bln, beta, out.data, oln)
		}
		return
	}
	kgemm(opA, alpha, a.data, alm, aln, aln, opB, b.data, blm, bln, bln, beta, out.data, olm, oln, oln)
}

// gatherMultiply realizes a product on a multi-rank grid by funnelling
// the operands to the grid root, multiplying there, and dealing the
// result back out. It trades scalability for generality; the ring path
// handles the product shape that dominates iterative solves.
func gatherMultiply[T Scalar](alpha float64, a *Matrix[T], opA Op, b *Matrix[T], opB Op, beta float64, out *Matrix[T], symmetric bool) error {
	gc := out.Layout().Comm()
	if a.Layout().Comm().GroupID() != gc.GroupID() || b.Layout().Comm().GroupID() != gc.GroupID() {
		return fmt.Errorf("matrix.Multiply: operands on different communicators: %w", ErrBadGrid)
	}

	aRoot, err := gatherToRoot(a)
	if err != nil {
		return err
	}
	var bRoot *Matrix[T]
	if b == a {
		bRoot = aRoot
	} else if bRoot, err = gatherToRoot(b); err != nil {
		return err
	}
	outRoot, err := gatherToRoot(out)
	if err != nil {
		return err
	}

	if gc.Rank() == 0 {
		sa, _ := FromData(a.rows, a.cols, aRoot.data)
		sb := sa
		if bRoot != aRoot {
			sb, _ = FromData(b.rows, b.cols, bRoot.data)
		}
		so, _ := FromData(out.rows, out.cols, outRoot.data)
		localMultiply(alpha, sa, opA, sb, opB, beta, so, symmetric)
	}
	return Redist(outRoot, out)
}

// gatherToRoot redistributes a matrix onto a 1x1 grid over its own
// communicator, leaving the full matrix on rank 0.
func gatherToRoot[T Scalar](a *Matrix[T]) (*Matrix[T], error) {
	gc := a.Layout().Comm()
	layout, err := CreateLayout(a.rows, a.cols, gc, 1, 1, 0)
	if err != nil {
		return nil, err
	}
	root, err := NewWithComm[T](a.rows, a.cols, layout, a.dup)
	if err != nil {
		return nil, err
	}
	if err := Redist(a, root); err != nil {
		return nil, err
	}
	return root, nil
}
