package pencil

import (
	"fmt"

	"github.com/notargets/gospectral/utils"
)

// Slab distributes an array of a global shape along one axis over the ranks
// of a communicator. Axis -1 means the array is not distributed.
type Slab struct {
	Global []int
	Axis   int
	pm     *PartitionMap
}

func NewSlab(global []int, axis, size int) (s *Slab) {
	s = &Slab{Global: append([]int{}, global...), Axis: axis}
	if axis >= 0 {
		s.pm = NewPartitionMap(size, global[axis])
	}
	return
}

// Range is the global index range of rank along the distributed axis.
func (s *Slab) Range(rank int) (lo, hi int) {
	if s.pm == nil {
		return 0, 0
	}
	r := s.pm.Partitions[rank]
	return r[0], r[1]
}

func (s *Slab) LocalShape(rank int) (shape []int) {
	shape = append([]int{}, s.Global...)
	if s.pm != nil {
		shape[s.Axis] = s.pm.GetBucketDimension(rank)
	}
	return
}

// Start is the global index of the first local element along every axis.
func (s *Slab) Start(rank int) (start []int) {
	start = make([]int, len(s.Global))
	if s.pm != nil {
		start[s.Axis], _ = s.Range(rank)
	}
	return
}

// Owner returns the rank holding global index g along the distributed axis.
func (s *Slab) Owner(g int) int {
	if s.pm == nil {
		return 0
	}
	bn, _, _ := s.pm.GetBucket(g)
	return bn
}

// Local extracts the block of rank from a global array.
func (s *Slab) Local(global *utils.NDArray, rank int) (local *utils.NDArray, err error) {
	if !utils.SameShape(global.Shape, s.Global) {
		err = fmt.Errorf("%w: global array %v, slab %v", utils.ErrShape, global.Shape, s.Global)
		return
	}
	var (
		start = s.Start(rank)
		idx   = make([]int, len(start))
	)
	local = utils.NewNDArray(s.LocalShape(rank)...)
	for flat := range local.Data {
		for d, i := range local.Unravel(flat) {
			idx[d] = i + start[d]
		}
		local.Data[flat] = global.At(idx...)
	}
	return
}

// Transpose redistributes a block laid out by from into the layout of to.
// Both slabs describe the same global shape and differ in their axis.
func Transpose(comm Comm, in *utils.NDArray, from, to *Slab) (out *utils.NDArray, err error) {
	var (
		me   = comm.Rank()
		np   = comm.Size()
		send = make([][]complex128, np)
	)
	if !utils.SameShape(from.Global, to.Global) {
		err = fmt.Errorf("%w: transpose between %v and %v", utils.ErrShape, from.Global, to.Global)
		return
	}
	if !utils.SameShape(in.Shape, from.LocalShape(me)) {
		err = fmt.Errorf("%w: local block %v, expected %v", utils.ErrShape, in.Shape, from.LocalShape(me))
		return
	}
	if from.Axis == to.Axis || from.pm == nil || to.pm == nil {
		return in.Copy(), nil
	}
	// Pack in row-major order, so that each target receives its sub-block in
	// row-major order too.
	for flat, v := range in.Data {
		tgt := to.Owner(in.Unravel(flat)[to.Axis])
		send[tgt] = append(send[tgt], v)
	}
	recv := comm.Alltoallv(send)

	out = utils.NewNDArray(to.LocalShape(me)...)
	cursor := make([]int, np)
	for flat := range out.Data {
		src := from.Owner(out.Unravel(flat)[from.Axis])
		out.Data[flat] = recv[src][cursor[src]]
		cursor[src]++
	}
	return
}

// AllGather assembles the global array on every rank.
func AllGather(comm Comm, local *utils.NDArray, s *Slab) (global *utils.NDArray, err error) {
	var (
		me = comm.Rank()
		np = comm.Size()
	)
	if !utils.SameShape(local.Shape, s.LocalShape(me)) {
		err = fmt.Errorf("%w: local block %v, expected %v", utils.ErrShape, local.Shape, s.LocalShape(me))
		return
	}
	send := make([][]complex128, np)
	for r := range send {
		send[r] = local.Data
	}
	recv := comm.Alltoallv(send)
	global = utils.NewNDArray(s.Global...)
	for src, data := range recv {
		var (
			shape = s.LocalShape(src)
			start = s.Start(src)
			block *utils.NDArray
			idx   = make([]int, len(shape))
		)
		if block, err = utils.NewNDArrayFrom(data, shape...); err != nil {
			return
		}
		for flat, v := range block.Data {
			for d, i := range block.Unravel(flat) {
				idx[d] = i + start[d]
			}
			global.Set(v, idx...)
		}
	}
	return
}
