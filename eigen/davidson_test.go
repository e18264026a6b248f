package eigen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takvam/gridmat/comm"
	"github.com/takvam/gridmat/matrix"
)

// diagonalOp multiplies each grid point by its potential value. offset
// maps this rank's local grid index to the global one.
func diagonalOp(v []float64, offset int) OperatorFunc[float64] {
	return func(src, dst *matrix.Matrix[float64]) error {
		lm, ln := src.LocalShape()
		sd, dd := src.Data(), dst.Data()
		for n := 0; n < lm; n++ {
			for g := 0; g < ln; g++ {
				dd[n*ln+g] = v[offset+g] * sd[n*ln+g]
			}
		}
		return nil
	}
}

func identityOp[T matrix.Scalar](src, dst *matrix.Matrix[T]) error {
	copy(dst.Data(), src.Data())
	return nil
}

func TestNewRequiresOperator(t *testing.T) {
	_, err := New[float64](nil, nil)
	require.ErrorIs(t, err, ErrNilOperator)
}

func TestDavidsonFixedPoint(t *testing.T) {
	// Orthonormal trial vectors that already solve the identity operator
	// must converge immediately, with zero residual and no change to the
	// block: the zero residual has to stop the iteration before the
	// subspace expansion, which would otherwise be singular.
	require.NoError(t, comm.Run(3, func(c *comm.Comm) error {
		const bands, local = 2, 2
		psi, err := matrix.NewWithComm[float64](bands, local, nil, c)
		require.NoError(t, err)
		for n := 0; n < bands; n++ {
			for g := 0; g < local; g++ {
				if c.Rank()*local+g == n {
					psi.Set(n, g, 1)
				}
			}
		}

		d, err := New[float64](OperatorFunc[float64](identityOp[float64]), nil)
		require.NoError(t, err)

		res, err := d.Solve(psi)
		require.NoError(t, err)
		require.True(t, res.Converged)
		require.Equal(t, 1, res.Cycles)
		require.InDelta(t, 0, res.Error, 1e-20)
		require.InDelta(t, 1.0, res.Eigenvalues[0], 1e-12)
		require.InDelta(t, 1.0, res.Eigenvalues[1], 1e-12)

		// The Ritz rotation of an already-diagonal block is the identity.
		for n := 0; n < bands; n++ {
			for g := 0; g < local; g++ {
				want := 0.0
				if c.Rank()*local+g == n {
					want = 1
				}
				require.InDelta(t, want, psi.At(n, g), 1e-12)
			}
		}
		return nil
	}))
}

func TestDavidsonDiagonalSerial(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	psi, err := matrix.New[float64](2, 4, nil)
	require.NoError(t, err)
	s := 1 / math.Sqrt(2)
	psi.Set(0, 0, s)
	psi.Set(0, 2, s)
	psi.Set(1, 1, s)
	psi.Set(1, 3, s)

	d, err := New[float64](diagonalOp(v, 0), nil, WithTolerance(1e-10))
	require.NoError(t, err)

	res, err := d.Solve(psi)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.InDelta(t, 1.0, res.Eigenvalues[0], 1e-10)
	require.InDelta(t, 2.0, res.Eigenvalues[1], 1e-10)

	// The converged vectors are the lowest grid-point unit vectors, up
	// to sign.
	require.InDelta(t, 1.0, math.Abs(psi.At(0, 0)), 1e-8)
	require.InDelta(t, 1.0, math.Abs(psi.At(1, 1)), 1e-8)
	require.InDelta(t, 0, psi.At(0, 2), 1e-8)
	require.InDelta(t, 0, psi.At(1, 3), 1e-8)
}

func TestDavidsonDiagonalDistributed(t *testing.T) {
	v := []float64{1, 2, 3, 4, 5, 6}
	require.NoError(t, comm.Run(3, func(c *comm.Comm) error {
		const bands, local = 2, 2
		psi, err := matrix.NewWithComm[float64](bands, local, nil, c)
		require.NoError(t, err)
		s := 1 / math.Sqrt(2)
		// psi0 = (e0+e2)/√2, psi1 = (e1+e3)/√2 in global grid indices.
		set := func(n, global int, val float64) {
			if global/local == c.Rank() {
				psi.Set(n, global%local, val)
			}
		}
		set(0, 0, s)
		set(0, 2, s)
		set(1, 1, s)
		set(1, 3, s)

		d, err := New[float64](diagonalOp(v, c.Rank()*local), nil,
			WithTolerance(1e-10), WithMaxCycles(10))
		require.NoError(t, err)

		res, err := d.Solve(psi)
		require.NoError(t, err)
		require.True(t, res.Converged, "residual %g after %d cycles", res.Error, res.Cycles)
		require.InDelta(t, 1.0, res.Eigenvalues[0], 1e-10)
		require.InDelta(t, 2.0, res.Eigenvalues[1], 1e-10)

		if c.Rank() == 0 {
			require.InDelta(t, 1.0, math.Abs(psi.At(0, 0)), 1e-8)
			require.InDelta(t, 1.0, math.Abs(psi.At(1, 1)), 1e-8)
		} else {
			require.InDelta(t, 0, psi.At(0, 0), 1e-8)
			require.InDelta(t, 0, psi.At(0, 1), 1e-8)
		}
		return nil
	}))
}

func TestDavidsonComplex(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	op := OperatorFunc[complex128](func(src, dst *matrix.Matrix[complex128]) error {
		lm, ln := src.LocalShape()
		sd, dd := src.Data(), dst.Data()
		for n := 0; n < lm; n++ {
			for g := 0; g < ln; g++ {
				dd[n*ln+g] = complex(v[g], 0) * sd[n*ln+g]
			}
		}
		return nil
	})

	psi, err := matrix.New[complex128](2, 4, nil)
	require.NoError(t, err)
	s := complex(1/math.Sqrt(2), 0)
	// Trial vectors carry phases; the solver must still find the real
	// eigenvalues of the Hermitian operator.
	psi.Set(0, 0, s)
	psi.Set(0, 2, s*1i)
	psi.Set(1, 1, s)
	psi.Set(1, 3, -s)

	d, err := New[complex128](op, nil, WithTolerance(1e-10))
	require.NoError(t, err)

	res, err := d.Solve(psi)
	require.NoError(t, err)
	require.True(t, res.Converged, "residual %g after %d cycles", res.Error, res.Cycles)
	require.InDelta(t, 1.0, res.Eigenvalues[0], 1e-10)
	require.InDelta(t, 2.0, res.Eigenvalues[1], 1e-10)

	require.InDelta(t, 1.0, abs2(psi.At(0, 0)), 1e-8)
	require.InDelta(t, 1.0, abs2(psi.At(1, 1)), 1e-8)
}

func TestDavidsonDegenerateExpansion(t *testing.T) {
	// A preconditioner that collapses every residual to zero makes the
	// expanded overlap singular; the solver must report that instead of
	// hanging or returning garbage.
	v := []float64{1, 2, 3, 4}
	prec := PreconditionerFunc[float64](func(residual, dst *matrix.Matrix[float64]) error {
		d := dst.Data()
		for i := range d {
			d[i] = 0
		}
		return nil
	})

	psi, err := matrix.New[float64](2, 4, nil)
	require.NoError(t, err)
	s := 1 / math.Sqrt(2)
	psi.Set(0, 0, s)
	psi.Set(0, 2, s)
	psi.Set(1, 1, s)
	psi.Set(1, 3, s)

	d, err := New[float64](diagonalOp(v, 0), prec)
	require.NoError(t, err)

	_, err = d.Iterate(psi)
	require.ErrorIs(t, err, ErrDegenerateSubspace)
}

func TestDavidsonWeightedInnerProduct(t *testing.T) {
	// With volume element dv the orthonormal vectors carry 1/√dv; the
	// eigenvalues must come out independent of dv.
	const dv = 0.25
	v := []float64{1, 2, 3, 4}
	psi, err := matrix.New[float64](2, 4, nil)
	require.NoError(t, err)
	s := 1 / math.Sqrt(2*dv)
	psi.Set(0, 0, s)
	psi.Set(0, 2, s)
	psi.Set(1, 1, s)
	psi.Set(1, 3, s)

	d, err := New[float64](diagonalOp(v, 0), nil, WithWeight(dv), WithTolerance(1e-10))
	require.NoError(t, err)

	res, err := d.Solve(psi)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.InDelta(t, 1.0, res.Eigenvalues[0], 1e-10)
	require.InDelta(t, 2.0, res.Eigenvalues[1], 1e-10)
}
