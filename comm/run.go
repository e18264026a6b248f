package comm

import "golang.org/x/sync/errgroup"

// Run executes body once per rank, each on its own goroutine, over a
// fresh communicator group of the given size. It returns after every
// rank has finished, with the first non-nil error.
//
// Run is the SPMD entry point: the same body runs everywhere and
// branches on c.Rank() where ranks must differ.
func Run(size int, body func(c *Comm) error) error {
	comms, err := NewGroup(size)
	if err != nil {
		return err
	}
	var eg errgroup.Group
	for _, c := range comms {
		c := c
		eg.Go(func() error { return body(c) })
	}
	return eg.Wait()
}
