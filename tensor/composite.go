package tensor

import (
	"fmt"
	"sync"

	"github.com/notargets/gospectral/utils"
)

// CompositeSpace is an ordered product of tensor product spaces sharing one
// communicator, e.g. the components of a vector field.
type CompositeSpace struct {
	spaces []*TensorProductSpace
}

func NewCompositeSpace(spaces ...*TensorProductSpace) (cs *CompositeSpace, err error) {
	if len(spaces) == 0 {
		return nil, fmt.Errorf("composite space needs at least one component")
	}
	for i, s := range spaces {
		if s == nil {
			return nil, fmt.Errorf("component %d of composite space is nil", i)
		}
		if s.comm != spaces[0].comm {
			return nil, fmt.Errorf("components of a composite space must share a communicator")
		}
	}
	cs = &CompositeSpace{spaces: append([]*TensorProductSpace{}, spaces...)}
	return
}

// VectorSpace repeats T once per dimension.
func VectorSpace(T *TensorProductSpace) *CompositeSpace {
	spaces := make([]*TensorProductSpace, T.Ndim())
	for i := range spaces {
		spaces[i] = T
	}
	return &CompositeSpace{spaces: spaces}
}

func (cs *CompositeSpace) NumComponents() int                  { return len(cs.spaces) }
func (cs *CompositeSpace) Component(i int) *TensorProductSpace { return cs.spaces[i] }

// Offsets returns the start of every component in the flattened local
// spectral vector, plus its total length as the last element.
func (cs *CompositeSpace) Offsets() (off []int) {
	off = make([]int, len(cs.spaces)+1)
	for i, s := range cs.spaces {
		off[i+1] = off[i] + utils.ShapeSize(s.LocalShape(true))
	}
	return
}

// CompositeFunction holds the local spectral coefficients of every component.
type CompositeFunction struct {
	Components []*Function
	space      *CompositeSpace
}

func (cs *CompositeSpace) NewFunction() *CompositeFunction {
	f := &CompositeFunction{Components: make([]*Function, len(cs.spaces)), space: cs}
	for i, s := range cs.spaces {
		f.Components[i] = s.NewFunction()
	}
	return f
}

func (f *CompositeFunction) Space() *CompositeSpace { return f.space }

func (f *CompositeFunction) Flatten() (v []complex128) {
	for _, c := range f.Components {
		v = append(v, c.Data...)
	}
	return
}

// SetFlat copies a flattened vector back into the components.
func (f *CompositeFunction) SetFlat(v []complex128) error {
	off := f.space.Offsets()
	if len(v) != off[len(off)-1] {
		return fmt.Errorf("%w: flat vector of length %d, composite space has %d", utils.ErrShape,
			len(v), off[len(off)-1])
	}
	for i, c := range f.Components {
		copy(c.Data, v[off[i]:off[i+1]])
	}
	return nil
}

func (cs *CompositeSpace) check(f *CompositeFunction) error {
	if len(f.Components) != len(cs.spaces) {
		return fmt.Errorf("%w: %d components, composite space has %d", utils.ErrShape,
			len(f.Components), len(cs.spaces))
	}
	for i, c := range f.Components {
		if !utils.SameShape(c.Shape, cs.spaces[i].LocalShape(true)) {
			return fmt.Errorf("%w: component %d has shape %v, expected %v", utils.ErrShape, i,
				c.Shape, cs.spaces[i].LocalShape(true))
		}
	}
	return nil
}

// BlockEntry places a sum of operators at block (Row, Col).
type BlockEntry struct {
	Row, Col int
	Mats     []*TPMatrix
}

// BlockMatrix couples the components of a composite space. Block (i, j)
// maps component j of the trial space to component i of the test space.
type BlockMatrix struct {
	space   *CompositeSpace
	entries []BlockEntry

	once   sync.Once
	global utils.ComplexCSR
	err    error
}

func NewBlockMatrix(cs *CompositeSpace, entries ...BlockEntry) (bm *BlockMatrix, err error) {
	n := cs.NumComponents()
	seen := make(map[[2]int]bool)
	for _, e := range entries {
		if e.Row < 0 || e.Row >= n || e.Col < 0 || e.Col >= n {
			return nil, fmt.Errorf("%w: block (%d, %d) outside %d components", utils.ErrShape, e.Row, e.Col, n)
		}
		if seen[[2]int{e.Row, e.Col}] {
			return nil, fmt.Errorf("%w: block (%d, %d) given twice", utils.ErrOperatorKeys, e.Row, e.Col)
		}
		seen[[2]int{e.Row, e.Col}] = true
		if len(e.Mats) == 0 {
			return nil, fmt.Errorf("%w: block (%d, %d) is empty", utils.ErrOperatorKeys, e.Row, e.Col)
		}
		for _, m := range e.Mats {
			if !sameSpectral(m.test, cs.spaces[e.Row]) || !sameSpectral(m.trial, cs.spaces[e.Col]) {
				return nil, fmt.Errorf("%w: block (%d, %d) operator %s does not map component %d to %d",
					utils.ErrShape, e.Row, e.Col, m.Key(), e.Col, e.Row)
			}
		}
	}
	bm = &BlockMatrix{space: cs, entries: append([]BlockEntry{}, entries...)}
	return
}

func sameSpectral(a, b *TensorProductSpace) bool {
	return a == b || utils.SameShape(a.LocalShape(true), b.LocalShape(true)) &&
		utils.SameShape(a.GlobalShape(true), b.GlobalShape(true))
}

func (bm *BlockMatrix) Space() *CompositeSpace { return bm.space }
func (bm *BlockMatrix) Entries() []BlockEntry  { return bm.entries }

// Matvec computes out = M u. With useSparse the whole operator is assembled
// once into a global sparse matrix, which needs the local arrays to hold the
// full spectral data; otherwise every block is applied separately.
func (bm *BlockMatrix) Matvec(u, out *CompositeFunction, useSparse bool) (*CompositeFunction, error) {
	if err := bm.space.check(u); err != nil {
		return nil, err
	}
	if out == nil {
		out = bm.space.NewFunction()
	} else if err := bm.space.check(out); err != nil {
		return nil, err
	}
	if useSparse {
		return bm.sparseMatvec(u, out)
	}
	for _, c := range out.Components {
		c.Zero()
	}
	for _, e := range bm.entries {
		r, err := Apply(e.Mats, u.Components[e.Col].NDArray, nil)
		if err != nil {
			return nil, err
		}
		if err = out.Components[e.Row].Add(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Assemble returns the global sparse matrix of the operator.
func (bm *BlockMatrix) Assemble() (utils.ComplexCSR, error) {
	bm.once.Do(func() {
		for _, s := range bm.space.spaces {
			if s.IsDistributed() {
				bm.err = fmt.Errorf("%w: global assembly of a distributed space", utils.ErrNotImplemented)
				return
			}
		}
		var (
			off  = bm.space.Offsets()
			n    = off[len(off)-1]
			dok  = utils.NewComplexDOK(n, n)
			axes = make([]int, bm.space.spaces[0].Ndim())
		)
		for i := range axes {
			axes[i] = i
		}
		for _, e := range bm.entries {
			for _, m := range e.Mats {
				if bm.err = m.AddKronecker(dok, axes, nil, off[e.Row], off[e.Col]); bm.err != nil {
					return
				}
			}
		}
		bm.global = dok.ToCSR()
	})
	return bm.global, bm.err
}

func (bm *BlockMatrix) sparseMatvec(u, out *CompositeFunction) (*CompositeFunction, error) {
	A, err := bm.Assemble()
	if err != nil {
		return nil, err
	}
	if err = out.SetFlat(A.MulVec(u.Flatten())); err != nil {
		return nil, err
	}
	return out, nil
}
