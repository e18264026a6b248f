package band

import "github.com/takvam/gridmat/comm"

// Tags for the collection protocols. Distinct from the assembly tag so
// an in-flight collect can never match an assembly receive.
const (
	tagCollect    = 3011
	tagDistribute = 421
)

// Collect gathers a distributed band array onto rank 0, or onto every
// rank when broadcast is set. local holds this rank's Len() bands, each
// band being item contiguous elements. The returned slice has length
// N()*item on ranks that receive the result and is nil elsewhere.
func Collect[T comm.Payload](d *Descriptor, local []T, item int, broadcast bool) []T {
	if len(local) != d.local*item {
		panic("band: Collect local buffer has wrong length")
	}
	if d.c.Size() == 1 {
		out := make([]T, len(local))
		copy(out, local)
		return out
	}

	// Blocked groups are contiguous in rank order, so the plain gather
	// collective already produces the global ordering.
	if d.policy == Blocked {
		var full []T
		if d.c.Rank() == 0 || broadcast {
			full = make([]T, d.n*item)
		}
		if broadcast {
			comm.Gather(d.c, local, full, 0)
			comm.Broadcast(d.c, full, 0)
			return full
		}
		comm.Gather(d.c, local, full, 0)
		if d.c.Rank() != 0 {
			return nil
		}
		return full
	}

	// Strided groups need explicit placement. Several sends may be
	// posted before rank 0 reaches the matching receives, so the
	// senders use synchronous sends to keep the protocol honest.
	if d.c.Rank() != 0 {
		comm.Ssend(d.c, local, 0, tagCollect)
		if !broadcast {
			return nil
		}
		full := make([]T, d.n*item)
		comm.Broadcast(d.c, full, 0)
		return full
	}

	full := make([]T, d.n*item)
	buf := local
	for rank := 0; rank < d.c.Size(); rank++ {
		if rank != 0 {
			buf = make([]T, d.local*item)
			comm.Recv(d.c, buf, rank, tagCollect)
		}
		beg, end, step := d.Slice(rank)
		myn := 0
		for g := beg; g < end; g += step {
			copy(full[g*item:(g+1)*item], buf[myn*item:(myn+1)*item])
			myn++
		}
	}
	if broadcast {
		comm.Broadcast(d.c, full, 0)
	}
	return full
}

// Distribute is the inverse of Collect: it splits the full band array
// held on rank 0 into each rank's local slice. local must be allocated
// with Len()*item elements on every rank; full is read on rank 0 only.
func Distribute[T comm.Payload](d *Descriptor, full []T, local []T) {
	item := len(local) / d.local
	if len(local) != d.local*item {
		panic("band: Distribute local buffer has wrong length")
	}
	if d.c.Size() == 1 {
		copy(local, full)
		return
	}

	if d.policy == Blocked {
		comm.Scatter(d.c, full, local, 0)
		return
	}

	if d.c.Rank() != 0 {
		comm.Recv(d.c, local, 0, tagDistribute)
		return
	}
	if len(full) != d.n*item {
		panic("band: Distribute full buffer has wrong length")
	}
	// Keep a reference to every in-flight send buffer alongside its
	// request until the matching wait completes.
	type inflight struct {
		req *comm.Request
		buf []T
	}
	var pending []inflight
	for rank := 0; rank < d.c.Size(); rank++ {
		beg, end, step := d.Slice(rank)
		if rank == 0 {
			myn := 0
			for g := beg; g < end; g += step {
				copy(local[myn*item:(myn+1)*item], full[g*item:(g+1)*item])
				myn++
			}
			continue
		}
		buf := make([]T, d.local*item)
		myn := 0
		for g := beg; g < end; g += step {
			copy(buf[myn*item:(myn+1)*item], full[g*item:(g+1)*item])
			myn++
		}
		pending = append(pending, inflight{req: comm.Isend(d.c, buf, rank, tagDistribute), buf: buf})
	}
	for _, p := range pending {
		p.req.Wait()
	}
}
