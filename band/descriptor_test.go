package band

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takvam/gridmat/comm"
)

func threeRanks(t *testing.T) *comm.Comm {
	t.Helper()
	cs, err := comm.NewGroup(3)
	require.NoError(t, err)
	return cs[0]
}

func TestNewValidation(t *testing.T) {
	c := threeRanks(t)

	_, err := New(0, c, Blocked)
	require.ErrorIs(t, err, ErrBadCount)

	_, err = New(10, c, Blocked)
	require.ErrorIs(t, err, ErrIndivisible)

	d, err := New(12, nil, Blocked)
	require.NoError(t, err)
	require.Equal(t, 12, d.Len(), "nil communicator means serial")
}

func TestSliceBlocked(t *testing.T) {
	d, err := New(12, threeRanks(t), Blocked)
	require.NoError(t, err)

	beg, end, step := d.Slice(1)
	require.Equal(t, 4, beg)
	require.Equal(t, 8, end)
	require.Equal(t, 1, step)
	require.Equal(t, []int{4, 5, 6, 7}, d.Indices(1))
}

func TestSliceStrided(t *testing.T) {
	d, err := New(12, threeRanks(t), Strided)
	require.NoError(t, err)

	beg, end, step := d.Slice(1)
	require.Equal(t, 1, beg)
	require.Equal(t, 12, end)
	require.Equal(t, 3, step)
	require.Equal(t, []int{1, 4, 7, 10}, d.Indices(1))
}

func TestWhoHasInvertsGlobalIndex(t *testing.T) {
	for _, policy := range []Policy{Blocked, Strided} {
		t.Run(policy.String(), func(t *testing.T) {
			d, err := New(12, threeRanks(t), policy)
			require.NoError(t, err)

			for global := 0; global < d.N(); global++ {
				rank, local := d.WhoHas(global)
				require.Equal(t, global, d.GlobalIndex(local, rank))
			}
			for rank := 0; rank < 3; rank++ {
				for local := 0; local < d.Len(); local++ {
					r, l := d.WhoHas(d.GlobalIndex(local, rank))
					require.Equal(t, rank, r)
					require.Equal(t, local, l)
				}
			}
		})
	}
}

func TestIndicesPartition(t *testing.T) {
	// Every global index is owned by exactly one rank, and Ranks agrees
	// with the per-rank slices.
	for _, policy := range []Policy{Blocked, Strided} {
		t.Run(policy.String(), func(t *testing.T) {
			d, err := New(12, threeRanks(t), policy)
			require.NoError(t, err)

			seen := make(map[int]int)
			for rank := 0; rank < 3; rank++ {
				for _, g := range d.Indices(rank) {
					_, dup := seen[g]
					require.False(t, dup, "index %d owned twice", g)
					seen[g] = rank
				}
			}
			require.Len(t, seen, d.N())

			owners := d.Ranks()
			for g, rank := range seen {
				require.Equal(t, rank, owners[g])
			}
		})
	}
}

func TestWhoHasPanicsOutOfRange(t *testing.T) {
	d, err := New(12, threeRanks(t), Blocked)
	require.NoError(t, err)
	require.Panics(t, func() { d.WhoHas(12) })
	require.Panics(t, func() { d.GlobalIndex(0, 3) })
}
