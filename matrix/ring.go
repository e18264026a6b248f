package matrix

import "github.com/takvam/gridmat/comm"

// tagRing matches the circulating operand tiles of the ring multiply.
const tagRing = 21

// ringEligible reports whether out = a*b can take the ring path: a
// plain, unscaled product where a, b and out are dealt as one contiguous
// row block per rank over the same communicator, with the inner
// dimension dividing evenly over the ranks.
func ringEligible[T Scalar](alpha float64, a *Matrix[T], opA Op, b *Matrix[T], opB Op, beta float64, out *Matrix[T]) bool {
	if alpha != 1 || beta != 0 || opA != OpNone || opB != OpNone {
		return false
	}
	c := a.Layout().Comm()
	if b.Layout().Comm().GroupID() != c.GroupID() || out.Layout().Comm().GroupID() != c.GroupID() {
		return false
	}
	return rowBlocked(a.Layout()) && rowBlocked(b.Layout()) && rowBlocked(out.Layout())
}

// rowBlocked reports whether the layout gives every rank one contiguous,
// equal-height block of full-width rows.
func rowBlocked(l Layout) bool {
	gr, gc := l.Grid()
	if gc != 1 || gr != l.Comm().Size() {
		return false
	}
	m, n := l.GlobalShape()
	if m%gr != 0 {
		return false
	}
	br, bc := l.BlockShape()
	return br == m/gr && bc == n
}

// ringMultiply computes out = a*b for row-blocked operands by rotating
// the tiles of b around the ranks. Each round multiplies the column
// slice of the local a block that lines up with the tile currently held,
// while the next tile is already in flight; peak extra memory is two
// tiles per rank.
//
// Every rank sends its own original tile each round, one step further
// down-ring, so the tile arriving at round r always originates from the
// rank r+1 steps up-ring.
func ringMultiply[T Scalar](a, b, out *Matrix[T]) {
	c := a.Layout().Comm()
	size, rank := c.Size(), c.Rank()
	alm, aln := a.LocalShape()
	_, bln := b.LocalShape()
	olm, oln := out.LocalShape()
	tile := aln / size // rows of b per rank

	cur := b.data
	buf1 := make([]T, len(b.data))
	buf2 := make([]T, len(b.data))
	next, spare := buf1, buf2

	for r := 0; r < size; r++ {
		var sreq, rreq *comm.Request
		if r < size-1 {
			sreq = comm.Isend(c, b.data, (rank-r-1+size)%size, tagRing)
			rreq = comm.Irecv(c, next, (rank+r+1)%size, tagRing)
		}

		src := (rank + r) % size
		beta := 1.0
		if r == 0 {
			beta = 0
		}
		kgemm(OpNone, 1, a.data[src*tile:], alm, tile, aln,
			OpNone, cur, tile, bln, bln,
			beta, out.data, olm, oln, oln)

		if r < size-1 {
			rreq.Wait()
			sreq.Wait()
			cur = next
			next, spare = spare, next
		}
	}
}
