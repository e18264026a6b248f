package comm

// Reserved tags for collective operations. User protocols must stay
// below tagReserved so collectives can never match a point-to-point
// message in flight.
const (
	tagReserved = 1 << 20
	tagSum      = tagReserved + iota
	tagBroadcast
	tagGather
	tagScatter
)

// Sum reduces buf element-wise onto root: after the call, root's buf
// holds the sum of every rank's buf. Non-root buffers are left
// untouched. All ranks must call with equal-length buffers.
func Sum[T Payload](c *Comm, buf []T, root int) {
	if c.Size() == 1 {
		return
	}
	if c.Rank() != root {
		Send(c, buf, root, tagSum)
		return
	}
	tmp := make([]T, len(buf))
	for r := 0; r < c.Size(); r++ {
		if r == root {
			continue
		}
		Recv(c, tmp, r, tagSum)
		for i, v := range tmp {
			buf[i] += v
		}
	}
}

// AllSum reduces buf element-wise across all ranks; every rank ends up
// with the full sum.
func AllSum[T Payload](c *Comm, buf []T) {
	Sum(c, buf, 0)
	Broadcast(c, buf, 0)
}

// Broadcast copies root's buf to every rank.
func Broadcast[T Payload](c *Comm, buf []T, root int) {
	if c.Size() == 1 {
		return
	}
	if c.Rank() == root {
		for r := 0; r < c.Size(); r++ {
			if r != root {
				Send(c, buf, r, tagBroadcast)
			}
		}
		return
	}
	Recv(c, buf, root, tagBroadcast)
}

// Gather concatenates every rank's send buffer into recv on root, in
// rank order. recv must be len(send)*Size() long on root and is ignored
// elsewhere.
func Gather[T Payload](c *Comm, send []T, recv []T, root int) {
	n := len(send)
	if c.Rank() != root {
		Send(c, send, root, tagGather)
		return
	}
	if len(recv) != n*c.Size() {
		panic("comm: Gather receive buffer has wrong length")
	}
	copy(recv[root*n:(root+1)*n], send)
	for r := 0; r < c.Size(); r++ {
		if r != root {
			Recv(c, recv[r*n:(r+1)*n], r, tagGather)
		}
	}
}

// Scatter splits root's send buffer into Size() equal chunks and
// delivers chunk r to rank r's recv buffer. send is ignored on non-root
// ranks.
func Scatter[T Payload](c *Comm, send []T, recv []T, root int) {
	n := len(recv)
	if c.Rank() != root {
		Recv(c, recv, root, tagScatter)
		return
	}
	if len(send) != n*c.Size() {
		panic("comm: Scatter send buffer has wrong length")
	}
	copy(recv, send[root*n:(root+1)*n])
	for r := 0; r < c.Size(); r++ {
		if r != root {
			Send(c, send[r*n:(r+1)*n], r, tagScatter)
		}
	}
}
