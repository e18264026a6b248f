package band

import (
	"errors"
	"fmt"

	"github.com/takvam/gridmat/comm"
)

// Sentinel errors returned by Descriptor construction.
var (
	// ErrBadCount indicates a non-positive total index count.
	ErrBadCount = errors.New("band: total count must be > 0")

	// ErrIndivisible indicates the total count cannot be split evenly
	// over the communicator. The split is checked once at construction
	// and is fatal; there is no silent truncation.
	ErrIndivisible = errors.New("band: count not divisible by group size")
)

// Policy selects how global indices are dealt to ranks.
type Policy uint8

const (
	// Blocked gives every rank one contiguous chunk of indices.
	Blocked Policy = iota
	// Strided deals indices round-robin: rank r owns r, r+B, r+2B, ...
	Strided
)

func (p Policy) String() string {
	if p == Strided {
		return "strided"
	}
	return "blocked"
}

// Descriptor maps a flat global index range onto the ranks of a
// communicator. It is immutable after construction.
type Descriptor struct {
	n      int // global count
	local  int // indices per rank
	policy Policy
	c      *comm.Comm
}

// New constructs a Descriptor for n global indices over c (Serial when
// nil). n must divide evenly by c.Size().
func New(n int, c *comm.Comm, policy Policy) (*Descriptor, error) {
	if c == nil {
		c = comm.Serial()
	}
	if n <= 0 {
		return nil, fmt.Errorf("band.New(%d): %w", n, ErrBadCount)
	}
	if n%c.Size() != 0 {
		return nil, fmt.Errorf("band.New: cannot distribute %d indices to %d ranks: %w",
			n, c.Size(), ErrIndivisible)
	}
	return &Descriptor{n: n, local: n / c.Size(), policy: policy, c: c}, nil
}

// N returns the global index count.
func (d *Descriptor) N() int { return d.n }

// Len returns the number of indices owned by each rank.
func (d *Descriptor) Len() int { return d.local }

// Policy returns the partitioning policy.
func (d *Descriptor) Policy() Policy { return d.policy }

// Comm returns the communicator the indices are distributed over.
func (d *Descriptor) Comm() *comm.Comm { return d.c }

// checkRank panics on a rank outside the group; rank arguments are
// produced by the caller's own arithmetic, so this is a programmer error.
func (d *Descriptor) checkRank(rank int) {
	if rank < 0 || rank >= d.c.Size() {
		panic(fmt.Sprintf("band: rank %d outside group of size %d", rank, d.c.Size()))
	}
}

// Slice returns the half-open strided range (beg, end, step) of global
// indices owned by rank: blocked ranks own [rank*Len(), (rank+1)*Len())
// with step 1, strided ranks own rank, rank+B, ... with step B.
func (d *Descriptor) Slice(rank int) (beg, end, step int) {
	d.checkRank(rank)
	if d.policy == Strided {
		return rank, d.n, d.c.Size()
	}
	return rank * d.local, (rank + 1) * d.local, 1
}

// Indices materializes the global indices owned by rank, in local order.
func (d *Descriptor) Indices(rank int) []int {
	beg, end, step := d.Slice(rank)
	out := make([]int, 0, d.local)
	for i := beg; i < end; i += step {
		out = append(out, i)
	}
	return out
}

// WhoHas returns the owning rank and local index of a global index. It
// is the exact left-inverse of GlobalIndex. Note the swapped division
// and modulo operands between the two policies.
func (d *Descriptor) WhoHas(global int) (rank, local int) {
	if global < 0 || global >= d.n {
		panic(fmt.Sprintf("band: global index %d outside [0, %d)", global, d.n))
	}
	if d.policy == Strided {
		return global % d.c.Size(), global / d.c.Size()
	}
	return global / d.local, global % d.local
}

// GlobalIndex converts (local index, rank) back to the global index.
func (d *Descriptor) GlobalIndex(local, rank int) int {
	d.checkRank(rank)
	if local < 0 || local >= d.local {
		panic(fmt.Sprintf("band: local index %d outside [0, %d)", local, d.local))
	}
	if d.policy == Strided {
		return rank + local*d.c.Size()
	}
	return rank*d.local + local
}

// Ranks returns the owning rank of every global index.
func (d *Descriptor) Ranks() []int {
	out := make([]int, d.n)
	for rank := 0; rank < d.c.Size(); rank++ {
		beg, end, step := d.Slice(rank)
		for i := beg; i < end; i += step {
			out[i] = rank
		}
	}
	return out
}
