package matrix

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takvam/gridmat/comm"
)

func TestNoDistribution(t *testing.T) {
	l, err := NewNoDistribution(3, 5)
	require.NoError(t, err)

	m, n := l.GlobalShape()
	require.Equal(t, 3, m)
	require.Equal(t, 5, n)
	lm, ln := l.LocalShape()
	require.Equal(t, 3, lm)
	require.Equal(t, 5, ln)
	gr, gc := l.Grid()
	require.Equal(t, 1, gr)
	require.Equal(t, 1, gc)
	require.Equal(t, 2, l.GlobalRow(2))
	require.Equal(t, 4, l.GlobalCol(4))

	_, err = NewNoDistribution(0, 5)
	require.ErrorIs(t, err, ErrBadShape)
}

func TestGridDistributionRowBlocks(t *testing.T) {
	require.NoError(t, comm.Run(4, func(c *comm.Comm) error {
		l, err := NewGridDistribution(12, 5, c, 4, 1, 0, nil)
		require.NoError(t, err)

		br, bc := l.BlockShape()
		require.Equal(t, 3, br, "default block is ceil(12/4) rows")
		require.Equal(t, 5, bc, "default block spans all columns")

		lm, ln := l.LocalShape()
		require.Equal(t, 3, lm)
		require.Equal(t, 5, ln)
		require.Equal(t, c.Rank()*3, l.GlobalRow(0))
		require.Equal(t, c.Rank()*3+2, l.GlobalRow(2))
		require.Equal(t, 4, l.GlobalCol(4))
		return nil
	}))
}

func TestGridDistributionBlockCyclic(t *testing.T) {
	require.NoError(t, comm.Run(4, func(c *comm.Comm) error {
		l, err := NewGridDistribution(8, 8, c, 2, 2, 2, nil)
		require.NoError(t, err)

		lm, ln := l.LocalShape()
		require.Equal(t, 4, lm)
		require.Equal(t, 4, ln)

		// Every local element must map back to a global element owned by
		// this rank, and ownership must be a partition: the owner of the
		// mapped global index is this rank with the original local index.
		for i := 0; i < lm; i++ {
			for j := 0; j < ln; j++ {
				gi, gj := l.GlobalRow(i), l.GlobalCol(j)
				rank, li, lj := l.ownerOf(gi, gj)
				require.Equal(t, c.Rank(), rank)
				require.Equal(t, i, li)
				require.Equal(t, j, lj)
			}
		}
		return nil
	}))
}

func TestGridDistributionRagged(t *testing.T) {
	require.NoError(t, comm.Run(3, func(c *comm.Comm) error {
		// 7 rows in blocks of 2 over 3 grid rows: 3, 2, 2.
		l, err := NewGridDistribution(7, 4, c, 3, 1, 2, nil)
		require.NoError(t, err)
		lm, _ := l.LocalShape()
		want := []int{3, 2, 2}
		require.Equal(t, want[c.Rank()], lm)
		return nil
	}))
}

func TestGridDistributionErrors(t *testing.T) {
	require.NoError(t, comm.Run(2, func(c *comm.Comm) error {
		_, err := NewGridDistribution(4, 4, c, 2, 2, 1, nil)
		require.ErrorIs(t, err, ErrBadGrid, "grid larger than communicator")

		_, err = NewGridDistribution(4, 4, c, 2, 1, -1, nil)
		require.ErrorIs(t, err, ErrBadBlockSize)

		_, err = NewGridDistribution(0, 4, c, 2, 1, 0, nil)
		require.ErrorIs(t, err, ErrBadShape)
		return nil
	}))

	require.NoError(t, comm.Run(4, func(c *comm.Comm) error {
		_, err := NewGridDistribution(4, 4, c, 2, 2, 0, nil)
		require.ErrorIs(t, err, ErrNeedBlockSize, "2-D grids have no default block size")
		return nil
	}))
}

func TestCreateLayoutSerialFallback(t *testing.T) {
	l, err := CreateLayout(4, 4, nil, 2, 2, 2)
	require.NoError(t, err)
	_, ok := l.(*NoDistribution)
	require.True(t, ok, "nil communicator collapses to NoDistribution")
}

func TestRegistrySharesContexts(t *testing.T) {
	require.NoError(t, comm.Run(2, func(c *comm.Comm) error {
		reg := NewRegistry()
		a, err := NewGridDistribution(4, 4, c, 2, 1, 0, reg)
		require.NoError(t, err)
		b, err := NewGridDistribution(8, 2, c, 2, 1, 0, reg)
		require.NoError(t, err)
		d, err := NewGridDistribution(4, 4, c, 1, 2, 0, reg)
		require.NoError(t, err)

		require.Same(t, a.Context(), b.Context(), "same (group, grid) shares one context")
		require.NotSame(t, a.Context(), d.Context(), "different grid gets its own context")
		require.Equal(t, 2, reg.Len())

		reg.Close()
		require.Equal(t, 0, reg.Len())
		return nil
	}))
}

func TestNumroc(t *testing.T) {
	tests := []struct {
		name                 string
		n, nb, iproc, nprocs int
		want                 int
	}{
		{"even split", 8, 2, 0, 2, 4},
		{"even split high rank", 8, 2, 1, 2, 4},
		{"extra block", 10, 2, 0, 2, 6},
		{"short tail", 7, 2, 0, 3, 3},
		{"tail owner", 7, 2, 1, 3, 2},
		{"empty rank", 2, 2, 1, 3, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, numroc(tc.n, tc.nb, tc.iproc, tc.nprocs))
		})
	}
}

func TestSuggestBlocking(t *testing.T) {
	gr, gc, bs := SuggestBlocking(100, 8)
	require.Equal(t, 8, gr*gc, "grid uses every rank")
	require.Equal(t, 25, bs)

	_, _, bs = SuggestBlocking(1000, 4)
	require.Equal(t, 64, bs, "block size is capped")
}
