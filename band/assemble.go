package band

import (
	"errors"
	"fmt"

	"github.com/takvam/gridmat/comm"
)

// ErrBlockShape indicates a sub-block buffer whose length does not match
// the expected (Q, M, M) layout for the assembly being performed.
var ErrBlockShape = errors.New("band: sub-block buffer has wrong shape")

// tagAssemble matches the assembly transfers; it must differ from the
// collect/distribute tags so concurrent protocols cannot collide.
const tagAssemble = 13

// Scalar constrains the element types of assembled matrices.
type Scalar interface {
	float64 | complex128
}

func conj[T Scalar](v T) T {
	if c, ok := any(v).(complex128); ok {
		return any(complex(real(c), -imag(c))).(T)
	}
	return v
}

// floorDiv returns the floored quotient a/b for b > 0, matching the
// mathematical convention for negative a.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// Assembler reconstructs full N×N band-by-band matrices from the square
// M×M sub-blocks computed on each rank of a Descriptor, where M = N/B
// and B is the group size.
//
// On rank q1, sub-block q2 holds the overlaps between the bands of rank
// (q1+q2) mod B (rows) and this rank's bands (columns): band buffers are
// exchanged q2 times around the ring while each rank multiplies against
// what it currently holds, so offset q2 always refers to the rank q2
// steps ahead.
type Assembler[T Scalar] struct {
	d *Descriptor
}

// NewAssembler wraps a Descriptor for block assembly of element type T.
func NewAssembler[T Scalar](d *Descriptor) *Assembler[T] {
	return &Assembler[T]{d: d}
}

// BlockCount returns Q, the number of diagonal-offset sub-blocks each
// rank must provide: B/2+1 when the target matrix is Hermitian (the rest
// follows by symmetry), B otherwise.
func (a *Assembler[T]) BlockCount(hermitian bool) int {
	if hermitian {
		return a.d.c.Size()/2 + 1
	}
	return a.d.c.Size()
}

// AssembleBlocks gathers every rank's sub-block buffer onto rank 0 and
// writes the blocks into full, a row-major N×N matrix that is only
// touched on rank 0. blocks holds Q consecutive M×M row-major blocks.
// For a Hermitian target only the lower triangle of full is assigned.
//
// The buffer is reused for the incoming transfers on rank 0, so blocks
// is clobbered there. Rank 0 receives and places the buffers in
// increasing rank order; receiving before placing is what keeps an
// incoming buffer from overwriting blocks that have not been placed yet.
func (a *Assembler[T]) AssembleBlocks(blocks []T, full []T, hermitian bool) error {
	d := a.d
	m, b := d.local, d.c.Size()
	q := a.BlockCount(hermitian)
	if len(blocks) != q*m*m {
		return fmt.Errorf("band: blocks length %d, want %d×%d×%d: %w",
			len(blocks), q, m, m, ErrBlockShape)
	}
	if d.c.Rank() == 0 && len(full) != d.n*d.n {
		return fmt.Errorf("band: full length %d, want %d×%d: %w",
			len(full), d.n, d.n, ErrBlockShape)
	}

	if b == 1 {
		if hermitian {
			a.assignHermitian(blocks, full, 0)
		} else {
			a.assignFull(blocks, full, 0)
		}
		return nil
	}

	if d.c.Rank() == 0 {
		for rank := 0; rank < b; rank++ {
			if rank > 0 {
				comm.Recv(d.c, blocks, rank, tagAssemble)
			}
			if hermitian {
				a.assignHermitian(blocks, full, rank)
			} else {
				a.assignFull(blocks, full, rank)
			}
		}
		return nil
	}
	comm.Send(d.c, blocks, 0, tagAssemble)
	return nil
}

// assignHermitian writes rank q1's sub-blocks into the lower triangle of
// full. Blocks that would land above the diagonal are folded back as
// conjugate transposes.
func (a *Assembler[T]) assignHermitian(blocks, full []T, q1 int) {
	d := a.d
	m, b, n := d.local, d.c.Size(), d.n
	a.d.checkRank(q1)

	if b == 1 {
		for i := 0; i < m; i++ {
			for j := 0; j <= i; j++ {
				full[i*n+j] = blocks[i*m+j]
			}
		}
		return
	}

	q := b/2 + 1
	if d.policy == Strided {
		// Global indices interleave: band (q2', i) lives at global row
		// i*B + q2'. Whether an element of block q2 falls in the lower
		// triangle depends on the individual (i, j) pair, via
		// dq = (q1+q2)%B - q1 and its floored quotient k = dq/B, which
		// is -1 or 0 since dq lies in (-B, Q).
		for q2 := 0; q2 < q; q2++ {
			blk := blocks[q2*m*m:]
			b1 := (q1 + q2) % b
			k := floorDiv(b1-q1, b)
			for i := 0; i < m; i++ {
				for j := 0; j < m; j++ {
					// Lower part: global row i*B+b1 >= global col j*B+q1.
					if i >= j-k {
						full[(i*b+b1)*n+j*b+q1] = blk[i*m+j]
					}
					// Complementary mask: the Hermitian conjugate fills
					// the lower elements of the mirrored block.
					if i > j+k {
						full[(i*b+q1)*n+j*b+b1] = conj(blk[j*m+i])
					}
				}
			}
		}
		return
	}

	// Blocked layout places whole M×M tiles. Offsets that stay inside
	// the band range land at block-row q1+q2; offsets that wrap past the
	// last rank fold back above the diagonal, so their conjugate
	// transpose is written at the mirrored block position instead.
	for q2 := 0; q2 < q; q2++ {
		blk := blocks[q2*m*m:]
		if q1+q2 < b {
			r0, c0 := (q1+q2)*m, q1*m
			for i := 0; i < m; i++ {
				for j := 0; j < m; j++ {
					full[(r0+i)*n+c0+j] = blk[i*m+j]
				}
			}
		} else {
			r0, c0 := q1*m, (q1+q2-b)*m
			for i := 0; i < m; i++ {
				for j := 0; j < m; j++ {
					full[(r0+i)*n+c0+j] = conj(blk[j*m+i])
				}
			}
		}
	}
}

// assignFull writes rank q1's B sub-blocks into the full non-Hermitian
// matrix; every offset is copied directly, there is no fold-over.
func (a *Assembler[T]) assignFull(blocks, full []T, q1 int) {
	d := a.d
	m, b, n := d.local, d.c.Size(), d.n
	a.d.checkRank(q1)

	if b == 1 {
		copy(full, blocks[:m*m])
		return
	}

	for q2 := 0; q2 < b; q2++ {
		blk := blocks[q2*m*m:]
		b1 := (q1 + q2) % b
		if d.policy == Strided {
			for i := 0; i < m; i++ {
				for j := 0; j < m; j++ {
					full[(i*b+b1)*n+j*b+q1] = blk[i*m+j]
				}
			}
		} else {
			r0, c0 := b1*m, q1*m
			for i := 0; i < m; i++ {
				for j := 0; j < m; j++ {
					full[(r0+i)*n+c0+j] = blk[i*m+j]
				}
			}
		}
	}
}

// ExtractBlock returns the M×M sub-block of full at block position
// (q1, q2) under the descriptor's layout. The result is a fresh
// contiguous copy except in the single-rank case, where full itself is
// the block and is returned as-is. Do not use ExtractBlock to mutate
// full.
//
// For a lower-triangular (Hermitian) full matrix, only request (q1, q2)
// pairs connected by BlockCount(true) offsets or fewer.
func (a *Assembler[T]) ExtractBlock(full []T, q1, q2 int) []T {
	d := a.d
	m, b, n := d.local, d.c.Size(), d.n
	a.d.checkRank(q1)
	a.d.checkRank(q2)

	if b == 1 {
		return full
	}
	out := make([]T, m*m)
	if d.policy == Strided {
		for i := 0; i < m; i++ {
			for j := 0; j < m; j++ {
				out[i*m+j] = full[(i*b+q1)*n+j*b+q2]
			}
		}
		return out
	}
	for i := 0; i < m; i++ {
		copy(out[i*m:(i+1)*m], full[(q1*m+i)*n+q2*m:(q1*m+i)*n+q2*m+m])
	}
	return out
}
