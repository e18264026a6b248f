// Package band partitions a globally-ordered index set ("bands") across
// the ranks of a communicator and assembles full band-by-band matrices
// from rank-local sub-blocks.
//
// Two partitioning policies are supported. With total count 12 over
// 3 ranks the layouts are:
//
//	a) Blocked groups        b) Strided groups
//
//	      3    7   11             9   10   11
//	local 2 \  6 \ 10       local 6    7    8
//	  |   1  \ 5  \ 9         |   3    4    5
//	  |   0    4    8         |   0    1    2
//	  |                       |
//	  +------ rank            +------ rank
//
// Blocked groups give each rank a contiguous chunk; strided groups
// interleave global indices at single-index granularity, which balances
// load when the high indices are systematically cheaper or more
// expensive than the low ones.
//
// Descriptor holds the index arithmetic: Slice, Indices, WhoHas and
// GlobalIndex convert between (rank, local index) and global index, and
// Collect/Distribute move band-major arrays between the distributed and
// the replicated representation.
//
// Assembler reconstructs a full N×N matrix from the Q square sub-blocks
// each rank contributes. For a Hermitian target only Q = B/2 + 1 of the
// B diagonal-offset blocks are needed; the remaining blocks are the
// conjugate transposes of blocks already placed, and the assembly fills
// only the lower triangle.
package band
