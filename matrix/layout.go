package matrix

import (
	"fmt"

	"github.com/takvam/gridmat/comm"
)

// Layout describes how a global M×N matrix is spread over the ranks of
// a communicator. It is a closed set of two variants: NoDistribution
// and GridDistribution. Layout values are immutable descriptors; they
// carry no matrix data.
type Layout interface {
	// GlobalShape returns the global (rows, cols).
	GlobalShape() (rows, cols int)
	// LocalShape returns this rank's tile shape; (0, 0) for ranks
	// outside the active grid.
	LocalShape() (rows, cols int)
	// Grid returns the process-grid extents (1, 1 for NoDistribution).
	Grid() (rows, cols int)
	// BlockShape returns the block-cyclic block extents.
	BlockShape() (rows, cols int)
	// Comm returns the communicator the layout lives on.
	Comm() *comm.Comm
	// GlobalRow and GlobalCol convert a local index to its global
	// counterpart on this rank.
	GlobalRow(i int) int
	GlobalCol(j int) int

	// ownerOf maps a global element to (owning rank, local row, local
	// col). Unexported: the variant set is closed by design.
	ownerOf(i, j int) (rank, li, lj int)
}

// NoDistribution is the trivial layout: a 1×1 grid where rank 0 of the
// communicator holds the entire matrix.
type NoDistribution struct {
	rows, cols int
	c          *comm.Comm
}

// NewNoDistribution returns the replicated-on-rank-0 layout for an M×N
// matrix over the serial communicator.
func NewNoDistribution(m, n int) (*NoDistribution, error) {
	if m <= 0 || n <= 0 {
		return nil, fmt.Errorf("matrix.NewNoDistribution(%d, %d): %w", m, n, ErrBadShape)
	}
	return &NoDistribution{rows: m, cols: n, c: comm.Serial()}, nil
}

func (d *NoDistribution) GlobalShape() (int, int) { return d.rows, d.cols }
func (d *NoDistribution) LocalShape() (int, int)  { return d.rows, d.cols }
func (d *NoDistribution) Grid() (int, int)        { return 1, 1 }
func (d *NoDistribution) BlockShape() (int, int)  { return d.rows, d.cols }
func (d *NoDistribution) Comm() *comm.Comm        { return d.c }
func (d *NoDistribution) GlobalRow(i int) int     { return i }
func (d *NoDistribution) GlobalCol(j int) int     { return j }

func (d *NoDistribution) ownerOf(i, j int) (int, int, int) { return 0, i, j }

func (d *NoDistribution) String() string {
	return fmt.Sprintf("NoDistribution(%dx%d)", d.rows, d.cols)
}

// CreateLayout builds the layout for an M×N matrix over c with the given
// grid. A nil or size-1 communicator yields NoDistribution; otherwise a
// GridDistribution on the default registry. Grid extents of -1 expand to
// c.Size(). blockSize 0 selects the canonical 1-D block size.
func CreateLayout(m, n int, c *comm.Comm, gridRows, gridCols, blockSize int) (Layout, error) {
	if c == nil || c.Size() == 1 {
		return NewNoDistribution(m, n)
	}
	if gridRows == -1 {
		gridRows = c.Size()
	}
	if gridCols == -1 {
		gridCols = c.Size()
	}
	return NewGridDistribution(m, n, c, gridRows, gridCols, blockSize, nil)
}
