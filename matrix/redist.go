package matrix

import (
	"fmt"

	"github.com/takvam/gridmat/comm"
)

// tagRedist matches redistribution transfers.
const tagRedist = 31

// Redist copies every element of src into dst, which must have the same
// global shape but may use any layout over any communicator, as long as
// the smaller of the two communicators is a leading subset of the larger
// (rank k of one is rank k of the other). The exchange runs over the
// larger communicator, trimmed to the ranks that can own data; trimmed-
// off ranks return immediately.
//
// Elements travel in a fixed global row-major order and are received in
// increasing source-rank order, so repeated redistributions of the same
// data are bit-exact.
func Redist[T Scalar](src, dst *Matrix[T]) error {
	if src.rows != dst.rows || src.cols != dst.cols {
		sm, sn := src.GlobalShape()
		dm, dn := dst.GlobalShape()
		return fmt.Errorf("matrix.Redist: %dx%d into %dx%d: %w", sm, sn, dm, dn, ErrShapeMismatch)
	}

	union := src.Layout().Comm()
	if dst.Layout().Comm().Size() > union.Size() {
		union = dst.Layout().Comm()
	}
	sgr, sgc := src.Layout().Grid()
	dgr, dgc := dst.Layout().Grid()
	active := sgr * sgc
	if dgr*dgc > active {
		active = dgr * dgc
	}
	if active < union.Size() {
		ranks := make([]int, active)
		for i := range ranks {
			ranks[i] = i
		}
		sub, err := union.NewSubgroup(ranks)
		if err != nil {
			return err
		}
		if sub == nil {
			return nil // this rank owns no element of either layout
		}
		union = sub
	}
	me := union.Rank()

	sln := 0
	if _, n := src.LocalShape(); n > 0 {
		sln = n
	}
	dln := 0
	if _, n := dst.LocalShape(); n > 0 {
		dln = n
	}

	sendBufs := make(map[int][]T)
	type slot struct{ index int }
	recvPlans := make(map[int][]slot)

	for i := 0; i < src.rows; i++ {
		for j := 0; j < src.cols; j++ {
			rs, li, lj := src.layout.ownerOf(i, j)
			rd, mi, mj := dst.layout.ownerOf(i, j)
			if rs == me && rd == me {
				dst.data[mi*dln+mj] = src.data[li*sln+lj]
				continue
			}
			if rs == me {
				sendBufs[rd] = append(sendBufs[rd], src.data[li*sln+lj])
			}
			if rd == me {
				recvPlans[rs] = append(recvPlans[rs], slot{index: mi*dln + mj})
			}
		}
	}

	var inflight []*comm.Request
	for dest := 0; dest < union.Size(); dest++ {
		if buf := sendBufs[dest]; len(buf) > 0 {
			inflight = append(inflight, comm.Isend(union, buf, dest, tagRedist))
		}
	}
	recv := make([]T, 0)
	for from := 0; from < union.Size(); from++ {
		plan := recvPlans[from]
		if len(plan) == 0 {
			continue
		}
		if cap(recv) < len(plan) {
			recv = make([]T, len(plan))
		}
		recv = recv[:len(plan)]
		comm.Recv(union, recv, from, tagRedist)
		for p, s := range plan {
			dst.data[s.index] = recv[p]
		}
	}
	for _, req := range inflight {
		req.Wait()
	}
	return nil
}
