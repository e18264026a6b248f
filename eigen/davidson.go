package eigen

import (
	"fmt"
	"math/cmplx"

	"github.com/takvam/gridmat/comm"
	"github.com/takvam/gridmat/matrix"
)

// Option adjusts solver parameters at construction.
type Option func(*config)

type config struct {
	niter     int
	maxCycles int
	tol       float64
	weight    float64
	grid      *matrix.GridSpec
}

func defaultConfig() config {
	return config{
		niter:     2,
		maxCycles: 50,
		tol:       1e-8,
		weight:    1,
	}
}

// WithIterations sets the number of expand-and-rotate cycles per Iterate
// call (default 2).
func WithIterations(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.niter = n
		}
	}
}

// WithMaxCycles caps the number of Iterate calls Solve makes (default 50).
func WithMaxCycles(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxCycles = n
		}
	}
}

// WithTolerance sets the summed residual norm below which the solver
// reports convergence (default 1e-8).
func WithTolerance(tol float64) Option {
	return func(c *config) {
		if tol > 0 {
			c.tol = tol
		}
	}
}

// WithWeight sets the integration volume element used in inner products
// over the grid dimension (default 1).
func WithWeight(dv float64) Option {
	return func(c *config) {
		if dv > 0 {
			c.weight = dv
		}
	}
}

// WithGrid routes the dense subspace diagonalizations through the given
// process grid instead of solving in place.
func WithGrid(spec *matrix.GridSpec) Option {
	return func(c *config) { c.grid = spec }
}

// Result reports the state of the solver after an Iterate or Solve call.
type Result struct {
	// Eigenvalues holds the current Ritz values, ascending.
	Eigenvalues []float64
	// Error is the residual norm summed over all bands and grid points.
	Error float64
	// Converged is set once Error has fallen under the tolerance.
	Converged bool
	// Cycles counts the Iterate calls Solve spent.
	Cycles int
}

// Davidson iteratively refines a block of trial vectors toward the
// lowest eigenpairs of op. The trial block is a B×G matrix whose rows
// must be orthonormal under the weighted inner product
// dv·Σ_g conj(x(g))·y(g), summed over the duplication communicator.
type Davidson[T matrix.Scalar] struct {
	op   Operator[T]
	prec Preconditioner[T]
	cfg  config
}

// New constructs a solver for op. A nil preconditioner falls back to
// identity.
func New[T matrix.Scalar](op Operator[T], prec Preconditioner[T], opts ...Option) (*Davidson[T], error) {
	if op == nil {
		return nil, ErrNilOperator
	}
	if prec == nil {
		prec = PreconditionerFunc[T](identity[T])
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Davidson[T]{op: op, prec: prec, cfg: cfg}, nil
}

// Solve runs Iterate on psi until the residual norm drops under the
// tolerance or the cycle budget runs out. psi is refined in place.
func (d *Davidson[T]) Solve(psi *matrix.Matrix[T]) (Result, error) {
	var res Result
	for cycle := 0; cycle < d.cfg.maxCycles; cycle++ {
		r, err := d.Iterate(psi)
		if err != nil {
			return res, err
		}
		res = r
		res.Cycles = cycle + 1
		if res.Converged {
			break
		}
	}
	return res, nil
}

// Iterate performs one Davidson step on psi: a Rayleigh-Ritz rotation of
// the current block followed by cfg.niter expand-and-rotate cycles. psi
// is updated in place; the returned result carries the Ritz values and
// the residual error of the last cycle.
func (d *Davidson[T]) Iterate(psi *matrix.Matrix[T]) (Result, error) {
	bands, _ := psi.GlobalShape()
	dup := psi.Comm()
	dv := d.cfg.weight

	hpsi := psi.NewLike()
	phi := psi.NewLike()
	hphi := psi.NewLike()
	tmp := psi.NewLike()

	work, err := matrix.NewWithComm[T](bands, bands, nil, dup)
	if err != nil {
		return Result{}, err
	}

	// Rayleigh-Ritz on the incoming block: diagonalize <psi|H|psi> and
	// rotate psi into the Ritz basis, so the old-old blocks of the
	// expanded problem are diagonal.
	if err := d.op.Apply(psi, hpsi); err != nil {
		return Result{}, err
	}
	if _, err := matrix.Multiply(dv, psi, matrix.OpNone, hpsi, matrix.OpConjTrans, 0, work, true); err != nil {
		return Result{}, err
	}
	work.MarkPartial()
	eps, err := work.Eigh(true, d.cfg.grid)
	if err != nil {
		return Result{}, fmt.Errorf("eigen: Rayleigh-Ritz: %w", err)
	}
	if err := d.rotate(work, psi, tmp); err != nil {
		return Result{}, err
	}
	if err := d.rotate(work, hpsi, tmp); err != nil {
		return Result{}, err
	}

	res := Result{Eigenvalues: eps}
	nb := 2 * bands
	h2 := make([]T, nb*nb)
	s2 := make([]T, nb*nb)
	rot := make([]T, bands*nb)
	m1, err := matrix.New[T](bands, bands, nil)
	if err != nil {
		return Result{}, err
	}
	m2, err := matrix.New[T](bands, bands, nil)
	if err != nil {
		return Result{}, err
	}

	for cycle := 0; cycle < d.cfg.niter; cycle++ {
		res.Error = d.residuals(psi, hpsi, eps, tmp)
		if res.Error < d.cfg.tol {
			res.Converged = true
			return res, nil
		}

		if err := d.prec.Precondition(tmp, phi); err != nil {
			return res, err
		}
		if err := d.op.Apply(phi, hphi); err != nil {
			return res, err
		}

		// Expanded subspace matrices, lower triangles only. Old-old
		// blocks are known analytically after the Ritz rotation; the
		// blocks touching the new vectors are summed onto rank 0.
		zero(h2)
		zero(s2)
		if dup.Rank() == 0 {
			for i := 0; i < bands; i++ {
				h2[i*nb+i] = scalar[T](eps[i])
				s2[i*nb+i] = scalar[T](1)
			}
		}
		if err := d.block(dv, phi, hpsi, false, work, h2, nb, bands, 0); err != nil {
			return res, err
		}
		if err := d.block(dv, phi, hphi, true, work, h2, nb, bands, bands); err != nil {
			return res, err
		}
		if err := d.block(dv, phi, psi, false, work, s2, nb, bands, 0); err != nil {
			return res, err
		}
		if err := d.block(dv, phi, phi, true, work, s2, nb, bands, bands); err != nil {
			return res, err
		}

		failure := []int{0}
		if dup.Rank() == 0 {
			failure[0] = solveExpanded(h2, s2, rot, eps, bands)
		}
		comm.Broadcast(dup, failure, 0)
		switch failure[0] {
		case 1:
			return res, ErrDegenerateSubspace
		case 2:
			return res, ErrSolveFailed
		}
		comm.Broadcast(dup, rot, 0)
		comm.Broadcast(dup, eps, 0)
		res.Eigenvalues = eps

		// psi ← U₁·psi + U₂·phi, and the same for the operator images,
		// keeping hpsi consistent without a second operator application.
		splitRotation(rot, m1.Data(), m2.Data(), bands)
		if err := combine(m1, psi, m2, phi, tmp); err != nil {
			return res, err
		}
		if err := combine(m1, hpsi, m2, hphi, tmp); err != nil {
			return res, err
		}
	}

	res.Error = d.residuals(psi, hpsi, eps, tmp)
	res.Converged = res.Error < d.cfg.tol
	return res, nil
}

// rotate replaces block with u·block, using tmp as scratch.
func (d *Davidson[T]) rotate(u, block, tmp *matrix.Matrix[T]) error {
	if _, err := matrix.Multiply(1, u, matrix.OpNone, block, matrix.OpNone, 0, tmp, false); err != nil {
		return err
	}
	block.Swap(tmp)
	return nil
}

// residuals writes hpsi - eps_n·psi into r and returns the weighted
// residual norm summed over every band and rank.
func (d *Davidson[T]) residuals(psi, hpsi *matrix.Matrix[T], eps []float64, r *matrix.Matrix[T]) float64 {
	lm, ln := psi.LocalShape()
	pd, hd, rd := psi.Data(), hpsi.Data(), r.Data()
	norm := []float64{0}
	for n := 0; n < lm; n++ {
		e := scalar[T](eps[n])
		for g := 0; g < ln; g++ {
			v := hd[n*ln+g] - e*pd[n*ln+g]
			rd[n*ln+g] = v
			norm[0] += abs2(v)
		}
	}
	norm[0] *= d.cfg.weight
	comm.AllSum(psi.Comm(), norm)
	return norm[0]
}

// block accumulates dv·a·op(b)ᴴ into the expanded matrix at block row 1,
// block column col/bands: the result of the local multiply is summed
// onto rank 0 of the duplication communicator and copied into dst there.
func (d *Davidson[T]) block(dv float64, a, b *matrix.Matrix[T], symmetric bool, work *matrix.Matrix[T], dst []T, nb, bands, col int) error {
	if _, err := matrix.Multiply(dv, a, matrix.OpNone, b, matrix.OpConjTrans, 0, work, symmetric); err != nil {
		return err
	}
	comm.Sum(a.Comm(), work.Data(), 0)
	if a.Comm().Rank() != 0 {
		return nil
	}
	wd := work.Data()
	for i := 0; i < bands; i++ {
		for j := 0; j < bands; j++ {
			if symmetric && j > i {
				continue
			}
			dst[(bands+i)*nb+col+j] = wd[i*bands+j]
		}
	}
	return nil
}

// solveExpanded solves the 2B×2B generalized problem on the calling rank
// and fills rot with the lowest B rows of the rotation. The matrices
// hold the elementwise conjugate of the physical operators, so the
// rotation is recovered as conj(Z)·L⁻¹. Returns 0 on success, 1 for a
// singular overlap, 2 for a failed eigensolve.
func solveExpanded[T matrix.Scalar](h2, s2, rot []T, eps []float64, bands int) int {
	nb := 2 * bands
	sm, err := matrix.FromData(nb, nb, s2)
	if err != nil {
		return 1
	}
	if err := sm.InvCholesky(); err != nil {
		return 1
	}

	// Hermitize the valid lower triangle before the two-sided transform.
	for i := 0; i < nb; i++ {
		for j := 0; j < i; j++ {
			h2[j*nb+i] = conjScalar(h2[i*nb+j])
		}
	}
	hm, _ := matrix.FromData(nb, nb, h2)
	t1, _ := matrix.New[T](nb, nb, nil)
	am, _ := matrix.New[T](nb, nb, nil)
	if _, err := matrix.Multiply(1, sm, matrix.OpNone, hm, matrix.OpNone, 0, t1, false); err != nil {
		return 2
	}
	if _, err := matrix.Multiply(1, t1, matrix.OpNone, sm, matrix.OpConjTrans, 0, am, false); err != nil {
		return 2
	}

	eps2, err := am.Eigh(false, nil)
	if err != nil {
		return 2
	}
	am.ComplexConjugate()
	u, _ := matrix.New[T](nb, nb, nil)
	if _, err := matrix.Multiply(1, am, matrix.OpNone, sm, matrix.OpNone, 0, u, false); err != nil {
		return 2
	}

	copy(rot, u.Data()[:bands*nb])
	copy(eps, eps2[:bands])
	return 0
}

// splitRotation deals the B×2B rotation into its old-vector and
// new-vector halves.
func splitRotation[T matrix.Scalar](rot, m1, m2 []T, bands int) {
	nb := 2 * bands
	for i := 0; i < bands; i++ {
		copy(m1[i*bands:(i+1)*bands], rot[i*nb:i*nb+bands])
		copy(m2[i*bands:(i+1)*bands], rot[i*nb+bands:(i+1)*nb])
	}
}

// combine replaces dst with m1·dst + m2·other.
func combine[T matrix.Scalar](m1 *matrix.Matrix[T], dst *matrix.Matrix[T], m2 *matrix.Matrix[T], other, tmp *matrix.Matrix[T]) error {
	if _, err := matrix.Multiply(1, m1, matrix.OpNone, dst, matrix.OpNone, 0, tmp, false); err != nil {
		return err
	}
	if _, err := matrix.Multiply(1, m2, matrix.OpNone, other, matrix.OpNone, 1, tmp, false); err != nil {
		return err
	}
	dst.Swap(tmp)
	return nil
}

func zero[T matrix.Scalar](s []T) {
	for i := range s {
		s[i] = 0
	}
}

// scalar lifts a real value into the element type.
func scalar[T matrix.Scalar](v float64) T {
	var t T
	if _, ok := any(t).(complex128); ok {
		return any(complex(v, 0)).(T)
	}
	return any(v).(T)
}

func conjScalar[T matrix.Scalar](v T) T {
	if z, ok := any(v).(complex128); ok {
		return any(cmplx.Conj(z)).(T)
	}
	return v
}

func abs2[T matrix.Scalar](v T) float64 {
	if z, ok := any(v).(complex128); ok {
		return real(z)*real(z) + imag(z)*imag(z)
	}
	f := any(v).(float64)
	return f * f
}
