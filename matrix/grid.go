package matrix

import (
	"fmt"
	"sync"

	"github.com/takvam/gridmat/comm"
)

// GridContext identifies one 2-D process grid over a communicator. All
// layouts sharing (communicator group, rows, cols) share a context.
type GridContext struct {
	Comm *comm.Comm
	Rows int
	Cols int
}

type contextKey struct {
	group uint64
	rows  int
	cols  int
}

// Registry caches process-grid contexts for the lifetime of the
// process. Contexts are created on first use; every rank of the keyed
// communicator reaches the creation point collectively, so a context is
// never observed half-built. Close releases the cache at shutdown.
type Registry struct {
	mu       sync.Mutex
	contexts map[contextKey]*GridContext
}

// NewRegistry returns an empty context registry.
func NewRegistry() *Registry {
	return &Registry{contexts: make(map[contextKey]*GridContext)}
}

// DefaultRegistry backs layouts that are not given an explicit registry.
var DefaultRegistry = NewRegistry()

func (r *Registry) context(c *comm.Comm, rows, cols int) *GridContext {
	key := contextKey{group: c.GroupID(), rows: rows, cols: cols}
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.contexts[key]
	if !ok {
		ctx = &GridContext{Comm: c, Rows: rows, Cols: cols}
		r.contexts[key] = ctx
	}
	return ctx
}

// Len returns the number of cached contexts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}

// Close discards all cached contexts. Call once at shutdown, after the
// last layout over any cached grid has been dropped.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts = make(map[contextKey]*GridContext)
}

// GridDistribution deals an M×N matrix block-cyclically over a 2-D
// process grid: the matrix is cut into blockRows×blockCols blocks and
// block (I, J) lives on grid position (I mod gridRows, J mod gridCols).
// Ranks beyond gridRows*gridCols hold no data.
type GridDistribution struct {
	m, n               int
	c                  *comm.Comm
	gridRows, gridCols int
	blockRows          int
	blockCols          int
	myRow, myCol       int // -1 outside the active grid
	localM, localN     int
	ctx                *GridContext
}

// NewGridDistribution constructs a block-cyclic layout. blockSize 0
// selects the canonical 1-D default: ceil(extent/grid) along the split
// dimension and the full extent along the other. True 2-D grids need an
// explicit block size. reg nil uses DefaultRegistry.
func NewGridDistribution(m, n int, c *comm.Comm, gridRows, gridCols, blockSize int, reg *Registry) (*GridDistribution, error) {
	if m <= 0 || n <= 0 {
		return nil, fmt.Errorf("matrix.NewGridDistribution(%d, %d): %w", m, n, ErrBadShape)
	}
	if gridRows < 1 || gridCols < 1 || gridRows*gridCols > c.Size() {
		return nil, fmt.Errorf("matrix: grid %dx%d over %d ranks: %w",
			gridRows, gridCols, c.Size(), ErrBadGrid)
	}
	if blockSize < 0 {
		return nil, fmt.Errorf("matrix: block size %d: %w", blockSize, ErrBadBlockSize)
	}

	var br, bc int
	switch {
	case blockSize > 0:
		br, bc = blockSize, blockSize
	case gridCols == 1:
		br = (m + gridRows - 1) / gridRows
		bc = n
	case gridRows == 1:
		br = m
		bc = (n + gridCols - 1) / gridCols
	default:
		return nil, fmt.Errorf("matrix: grid %dx%d: %w", gridRows, gridCols, ErrNeedBlockSize)
	}
	if br <= 0 || bc <= 0 {
		return nil, fmt.Errorf("matrix: block %dx%d: %w", br, bc, ErrBadBlockSize)
	}
	if reg == nil {
		reg = DefaultRegistry
	}

	d := &GridDistribution{
		m: m, n: n, c: c,
		gridRows: gridRows, gridCols: gridCols,
		blockRows: br, blockCols: bc,
		myRow: -1, myCol: -1,
		ctx: reg.context(c, gridRows, gridCols),
	}
	if c.Rank() < gridRows*gridCols {
		d.myRow = c.Rank() / gridCols
		d.myCol = c.Rank() % gridCols
		d.localM = numroc(m, br, d.myRow, gridRows)
		d.localN = numroc(n, bc, d.myCol, gridCols)
	}
	return d, nil
}

// numroc counts the rows (or columns) of a block-cyclically distributed
// extent n, block size nb, owned by grid coordinate iproc of nprocs.
func numroc(n, nb, iproc, nprocs int) int {
	nblocks := n / nb
	count := (nblocks / nprocs) * nb
	extra := nblocks % nprocs
	switch {
	case iproc < extra:
		count += nb
	case iproc == extra:
		count += n % nb
	}
	return count
}

func (d *GridDistribution) GlobalShape() (int, int) { return d.m, d.n }
func (d *GridDistribution) LocalShape() (int, int)  { return d.localM, d.localN }
func (d *GridDistribution) Grid() (int, int)        { return d.gridRows, d.gridCols }
func (d *GridDistribution) BlockShape() (int, int)  { return d.blockRows, d.blockCols }
func (d *GridDistribution) Comm() *comm.Comm        { return d.c }

// Context returns the cached process-grid context this layout binds to.
func (d *GridDistribution) Context() *GridContext { return d.ctx }

// GlobalRow converts a local row index on this rank to the global row.
func (d *GridDistribution) GlobalRow(i int) int {
	return (i/d.blockRows)*d.gridRows*d.blockRows + d.myRow*d.blockRows + i%d.blockRows
}

// GlobalCol converts a local column index on this rank to the global
// column.
func (d *GridDistribution) GlobalCol(j int) int {
	return (j/d.blockCols)*d.gridCols*d.blockCols + d.myCol*d.blockCols + j%d.blockCols
}

func (d *GridDistribution) ownerOf(i, j int) (int, int, int) {
	prow := (i / d.blockRows) % d.gridRows
	pcol := (j / d.blockCols) % d.gridCols
	li := (i/(d.blockRows*d.gridRows))*d.blockRows + i%d.blockRows
	lj := (j/(d.blockCols*d.gridCols))*d.blockCols + j%d.blockCols
	return prow*d.gridCols + pcol, li, lj
}

func (d *GridDistribution) String() string {
	return fmt.Sprintf("GridDistribution(global=%dx%d, grid=%dx%d, block=%dx%d, local=%dx%d)",
		d.m, d.n, d.gridRows, d.gridCols, d.blockRows, d.blockCols, d.localM, d.localN)
}

// SuggestBlocking proposes (gridRows, gridCols, blockSize) for
// diagonalizing an N×N matrix over ncpus ranks: the squarest power-of-2
// grid that uses every rank, with a block size small enough that each
// grid row and column holds several whole blocks.
func SuggestBlocking(n, ncpus int) (gridRows, gridCols, blockSize int) {
	gridRows, gridCols = ncpus, 1
	for gridCols < gridRows && gridRows%2 == 0 {
		gridCols *= 2
		gridRows /= 2
	}
	blockSize = (n + 3) / 4
	if blockSize > 64 {
		blockSize = 64
	}
	return gridRows, gridCols, blockSize
}
