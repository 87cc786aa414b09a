package pencil

import (
	"fmt"
	"sync"
)

// Comm is the communicator used by distributed spaces and solvers. Every
// collective must be called by all ranks in the same order.
type Comm interface {
	Rank() int
	Size() int
	Barrier()
	// Bcast copies buf on root into buf on every other rank.
	Bcast(buf []complex128, root int)
	// Alltoallv sends send[r] to rank r and returns the slices received,
	// indexed by source rank.
	Alltoallv(send [][]complex128) (recv [][]complex128)
	AllreduceSum(v float64) float64
}

type selfComm struct{}

// Self is the single rank communicator.
func Self() Comm { return selfComm{} }

func (selfComm) Rank() int                      { return 0 }
func (selfComm) Size() int                      { return 1 }
func (selfComm) Barrier()                       {}
func (selfComm) Bcast([]complex128, int)        {}
func (selfComm) AllreduceSum(v float64) float64 { return v }

func (selfComm) Alltoallv(send [][]complex128) [][]complex128 {
	return [][]complex128{append([]complex128{}, send[0]...)}
}

// mailBox holds one ordered channel per (source, target) pair.
type mailBox struct {
	np    int
	chans [][]chan []complex128
}

func newMailBox(np int) (mb *mailBox) {
	mb = &mailBox{np: np, chans: make([][]chan []complex128, np)}
	for src := range mb.chans {
		mb.chans[src] = make([]chan []complex128, np)
		for tgt := range mb.chans[src] {
			mb.chans[src][tgt] = make(chan []complex128, 2)
		}
	}
	return
}

func (mb *mailBox) post(src, tgt int, msg []complex128) {
	mb.chans[src][tgt] <- append([]complex128{}, msg...)
}

func (mb *mailBox) receive(src, tgt int) []complex128 {
	return <-mb.chans[src][tgt]
}

// worldComm is one rank of an in-process world of goroutines.
type worldComm struct {
	rank int
	mb   *mailBox
}

func (c *worldComm) Rank() int { return c.rank }
func (c *worldComm) Size() int { return c.mb.np }

func (c *worldComm) Barrier() { c.AllreduceSum(0) }

func (c *worldComm) Bcast(buf []complex128, root int) {
	if c.rank == root {
		for tgt := 0; tgt < c.mb.np; tgt++ {
			if tgt != root {
				c.mb.post(root, tgt, buf)
			}
		}
		return
	}
	copy(buf, c.mb.receive(root, c.rank))
}

func (c *worldComm) Alltoallv(send [][]complex128) (recv [][]complex128) {
	if len(send) != c.mb.np {
		panic(fmt.Errorf("alltoallv: %d buffers for %d ranks", len(send), c.mb.np))
	}
	for tgt, msg := range send {
		if tgt != c.rank {
			c.mb.post(c.rank, tgt, msg)
		}
	}
	recv = make([][]complex128, c.mb.np)
	for src := range recv {
		if src == c.rank {
			recv[src] = append([]complex128{}, send[src]...)
		} else {
			recv[src] = c.mb.receive(src, c.rank)
		}
	}
	return
}

// AllreduceSum adds in rank order so that every rank gets the same bits.
func (c *worldComm) AllreduceSum(v float64) (sum float64) {
	send := make([][]complex128, c.mb.np)
	for i := range send {
		send[i] = []complex128{complex(v, 0)}
	}
	for _, r := range c.Alltoallv(send) {
		sum += real(r[0])
	}
	return
}

// Run executes fn on size ranks, one goroutine each, and returns the first
// error by rank order.
func Run(size int, fn func(c Comm) error) error {
	if size < 1 {
		return fmt.Errorf("world size must be positive, got %d", size)
	}
	if size == 1 {
		return fn(Self())
	}
	var (
		mb   = newMailBox(size)
		errs = make([]error, size)
		wg   sync.WaitGroup
	)
	wg.Add(size)
	for r := 0; r < size; r++ {
		go func(rank int) {
			defer wg.Done()
			errs[rank] = fn(&worldComm{rank: rank, mb: mb})
		}(r)
	}
	wg.Wait()
	for rank, err := range errs {
		if err != nil {
			return fmt.Errorf("rank %d: %w", rank, err)
		}
	}
	return nil
}
