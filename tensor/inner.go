package tensor

import (
	"fmt"
	"math/cmplx"
	"sort"
	"strings"

	"github.com/notargets/gospectral/assembly"
	"github.com/notargets/gospectral/matrix"
	"github.com/notargets/gospectral/utils"
)

// MergeTol is the tolerance under which two non-periodic matrices are
// considered equal when terms are merged.
const MergeTol = 1.e-12

// TPMatrix is one separable term of an assembled operator: a matrix per
// axis, with the periodic axes and every scalar coefficient folded into
// Scale. Scale has the local spectral shape of the test space with the
// non-periodic axes reduced to length one.
type TPMatrix struct {
	Mats        []*matrix.SparseMatrix
	Scale       *utils.NDArray
	test, trial *TensorProductSpace
	nonPeriodic []int
	derivs      [][2]int
}

func (t *TPMatrix) TestSpace() *TensorProductSpace  { return t.test }
func (t *TPMatrix) TrialSpace() *TensorProductSpace { return t.trial }
func (t *TPMatrix) NonPeriodicAxes() []int          { return append([]int{}, t.nonPeriodic...) }

// Key joins the keys of the non-periodic matrices with "*". A purely
// periodic operator has the key of its first axis.
func (t *TPMatrix) Key() string {
	if len(t.nonPeriodic) == 0 {
		return t.Mats[0].Key()
	}
	keys := make([]string, len(t.nonPeriodic))
	for i, a := range t.nonPeriodic {
		keys[i] = t.Mats[a].Key()
	}
	return strings.Join(keys, "*")
}

// Order is the total derivative order over the non-periodic axes.
func (t *TPMatrix) Order() (n int) {
	for _, a := range t.nonPeriodic {
		n += t.derivs[a][0] + t.derivs[a][1]
	}
	return
}

// Derivs returns the test and trial derivative orders along axis.
func (t *TPMatrix) Derivs(axis int) (test, trial int) {
	return t.derivs[axis][0], t.derivs[axis][1]
}

// ScaleAt returns the scale of the local spectral multi-index idx; the
// entries of idx on non-periodic axes are ignored.
func (t *TPMatrix) ScaleAt(idx []int) complex128 {
	var (
		off = 0
		sh  = t.Scale.Shape
	)
	for d := range sh {
		i := 0
		if sh[d] > 1 {
			i = idx[d]
		}
		off = off*sh[d] + i
	}
	return t.Scale.Data[off]
}

func (t *TPMatrix) String() string {
	return fmt.Sprintf("TPMatrix(%s, order %d, scale %v)", t.Key(), t.Order(), t.Scale.Shape)
}

// checkLocal verifies that every non-periodic axis is local in spectral
// space, which all per-mode operations need.
func (t *TPMatrix) checkLocal() error {
	d := t.test.DistributedAxis(true)
	for _, a := range t.nonPeriodic {
		if a == d {
			return fmt.Errorf("%w: non-periodic axis %d is distributed", utils.ErrNotImplemented, a)
		}
	}
	return nil
}

// Matvec computes out = T u for local spectral arrays; u lives in the trial
// space and out in the test space. A nil out is allocated.
func (t *TPMatrix) Matvec(u, out *utils.NDArray) (*utils.NDArray, error) {
	if err := t.checkLocal(); err != nil {
		return nil, err
	}
	if !utils.SameShape(u.Shape, t.trial.LocalShape(true)) {
		return nil, fmt.Errorf("%w: operand %v, trial space expects %v", utils.ErrShape, u.Shape,
			t.trial.LocalShape(true))
	}
	shape := t.test.LocalShape(true)
	if out == nil {
		out = utils.NewNDArray(shape...)
	} else if !utils.SameShape(out.Shape, shape) {
		return nil, fmt.Errorf("%w: output %v, test space expects %v", utils.ErrShape, out.Shape, shape)
	}
	var (
		r   = u
		err error
	)
	for _, a := range t.nonPeriodic {
		if r, err = t.Mats[a].Matvec(r, nil, matrix.FormatAuto, a); err != nil {
			return nil, err
		}
	}
	for flat, v := range r.Data {
		out.Data[flat] = v * t.ScaleAt(r.Unravel(flat))
	}
	return out, nil
}

// Apply sums the products of every matrix in mats with u.
func Apply(mats []*TPMatrix, u, out *utils.NDArray) (*utils.NDArray, error) {
	if len(mats) == 0 {
		return nil, fmt.Errorf("%w: no operators", utils.ErrOperatorKeys)
	}
	var (
		tmp *utils.NDArray
		err error
	)
	for i, m := range mats {
		if tmp, err = m.Matvec(u, nil); err != nil {
			return nil, err
		}
		if i == 0 {
			if out == nil {
				out = tmp
				continue
			}
			if !utils.SameShape(out.Shape, tmp.Shape) {
				return nil, fmt.Errorf("%w: output %v, expected %v", utils.ErrShape, out.Shape, tmp.Shape)
			}
			copy(out.Data, tmp.Data)
			continue
		}
		if err = out.Add(tmp); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type entry struct {
	i, j int
	v    complex128
}

func entries(m *matrix.SparseMatrix) (es []entry) {
	rows, cols := m.Shape()
	for _, d := range m.Offsets() {
		for k, v := range m.ScaledDiagonal(d) {
			if i, j := matrix.Position(k, d); i < rows && j < cols && v != 0 {
				es = append(es, entry{i, j, v})
			}
		}
	}
	return
}

// AddKronecker accumulates the operator restricted to axes into dok. Rows
// and columns enumerate the local spectral indices of axes in row-major
// order, shifted by rowOff and colOff. Periodic axes outside axes are held
// at the indices given by fixed.
func (t *TPMatrix) AddKronecker(dok utils.ComplexDOK, axes, fixed []int, rowOff, colOff int) error {
	var (
		testShape  = t.test.LocalShape(true)
		trialShape = t.trial.LocalShape(true)
		lists      = make([][]entry, len(axes))
		inAxes     = make(map[int]bool, len(axes))
	)
	for k, a := range axes {
		inAxes[a] = true
		if t.test.bases[a].IsPeriodic() {
			for i := 0; i < testShape[a]; i++ {
				lists[k] = append(lists[k], entry{i, i, 1})
			}
			continue
		}
		lists[k] = entries(t.Mats[a])
	}
	for _, a := range t.nonPeriodic {
		if !inAxes[a] {
			return fmt.Errorf("%w: non-periodic axis %d missing from Kronecker axes %v",
				utils.ErrOperatorKeys, a, axes)
		}
	}
	idx := make([]int, len(testShape))
	copy(idx, fixed)
	var walk func(k, row, col int, v complex128)
	walk = func(k, row, col int, v complex128) {
		if k == len(axes) {
			if s := v * t.ScaleAt(idx); s != 0 {
				dok.Accumulate(rowOff+row, colOff+col, s)
			}
			return
		}
		a := axes[k]
		for _, e := range lists[k] {
			idx[a] = e.i
			walk(k+1, row*testShape[a]+e.i, col*trialShape[a]+e.j, v*e.v)
		}
	}
	walk(0, 0, 0, 1)
	return nil
}

func (t *TPMatrix) copyScale() *TPMatrix {
	c := *t
	c.Scale = t.Scale.Copy()
	return &c
}

// Inner assembles the bilinear form (test, trial) as a sum of separable
// terms. Terms whose non-periodic matrices agree are merged by adding their
// scales. Inner is collective over the communicator of the test space.
func Inner(test, trial Expr) (mats []*TPMatrix, err error) {
	if err = checkForms(test, trial); err != nil {
		return
	}
	ts, us := test.space, trial.space
	for c := range test.comps {
		for _, tv := range test.comps[c] {
			for _, tu := range trial.comps[c] {
				var m *TPMatrix
				if m, err = innerTerm(ts, us, tv, tu); err != nil {
					return nil, err
				}
				if m == nil {
					continue
				}
				if mats, err = merge(mats, m); err != nil {
					return nil, err
				}
			}
		}
	}
	kept := mats[:0]
	for _, m := range mats {
		if ts.comm.AllreduceSum(m.Scale.MaxAbs()) != 0 {
			kept = append(kept, m)
		}
	}
	mats = kept
	sort.SliceStable(mats, func(i, j int) bool { return mats[i].Order() > mats[j].Order() })
	if len(mats) == 0 {
		err = fmt.Errorf("%w: form vanishes identically", utils.ErrOperatorKeys)
	}
	return
}

func checkForms(test, trial Expr) error {
	switch {
	case test.err != nil:
		return test.err
	case trial.err != nil:
		return trial.err
	case test.kind != TestKind || trial.kind != TrialKind:
		return fmt.Errorf("inner product of a %v and a %v expression", test.kind, trial.kind)
	case len(test.comps) != len(trial.comps):
		return fmt.Errorf("%w: inner product of %d and %d components", utils.ErrShape,
			len(test.comps), len(trial.comps))
	}
	ts, us := test.space, trial.space
	if ts.Ndim() != us.Ndim() || ts.coords.Name != us.coords.Name || ts.comm != us.comm {
		return fmt.Errorf("%w: test and trial spaces are not compatible", utils.ErrShape)
	}
	for a, b := range ts.bases {
		if b.IsPeriodic() != us.bases[a].IsPeriodic() || (b.IsPeriodic() && !b.SameSpace(us.bases[a])) {
			return fmt.Errorf("%w: periodic axis %d differs between test and trial", utils.ErrShape, a)
		}
		if ts.axes[a] != us.axes[a] {
			return fmt.Errorf("%w: transform axes %v and %v differ", utils.ErrShape, ts.axes, us.axes)
		}
	}
	return nil
}

// innerTerm assembles a single pair of terms. It returns nil when the
// periodic factors vanish on every rank.
func innerTerm(ts, us *TensorProductSpace, tv, tu Term) (m *TPMatrix, err error) {
	var (
		nd    = ts.Ndim()
		coef  = cmplx.Conj(tv.Coef) * tu.Coef
		shape = ts.LocalShape(true)
		start = ts.LocalStart(true)
	)
	m = &TPMatrix{
		Mats:   make([]*matrix.SparseMatrix, nd),
		test:   ts,
		trial:  us,
		derivs: make([][2]int, nd),
	}
	for a := 0; a < nd; a++ {
		m.derivs[a] = [2]int{tv.Deriv[a], tu.Deriv[a]}
		if !ts.bases[a].IsPeriodic() {
			m.nonPeriodic = append(m.nonPeriodic, a)
			shape[a] = 1
		}
	}
	m.Scale = utils.NewNDArray(shape...).Fill(coef)
	for _, a := range ts.PeriodicAxes() {
		if m.Mats[a], err = assemble(ts, us, tv, tu, a); err != nil {
			return nil, err
		}
		diag := m.Mats[a].ScaledDiagonal(0)
		for flat := range m.Scale.Data {
			i := m.Scale.Unravel(flat)[a]
			if diag == nil {
				m.Scale.Data[flat] = 0
				continue
			}
			m.Scale.Data[flat] *= diag[start[a]+i]
		}
	}
	if ts.comm.AllreduceSum(m.Scale.MaxAbs()) == 0 {
		return nil, nil
	}
	for _, a := range m.nonPeriodic {
		if m.Mats[a], err = assemble(ts, us, tv, tu, a); err != nil {
			return nil, err
		}
		if s := m.Mats[a].Scale(); s != 1 {
			m.Scale.Scale(s)
			m.Mats[a] = m.Mats[a].Copy()
			m.Mats[a].SetScale(1)
		}
	}
	return
}

func assemble(ts, us *TensorProductSpace, tv, tu Term, axis int) (*matrix.SparseMatrix, error) {
	measure := assembly.Unit
	if axis == ts.coords.Radial {
		measure = assembly.R(tv.RPow + tu.RPow + ts.coords.JPow)
	}
	return ts.engine.Assemble(
		assembly.Operand{Basis: ts.bases[axis], Deriv: tv.Deriv[axis]},
		assembly.Operand{Basis: us.bases[axis], Deriv: tu.Deriv[axis]},
		measure,
	)
}

// merge adds m to the term in mats sharing its non-periodic matrices, or
// appends it.
func merge(mats []*TPMatrix, m *TPMatrix) ([]*TPMatrix, error) {
	for i, o := range mats {
		if sameNonPeriodic(o, m) {
			o = o.copyScale()
			if err := o.Scale.Add(m.Scale); err != nil {
				return nil, fmt.Errorf("merging %s terms: %w", m.Key(), err)
			}
			mats[i] = o
			return mats, nil
		}
	}
	return append(mats, m), nil
}

func sameNonPeriodic(a, b *TPMatrix) bool {
	if len(a.nonPeriodic) != len(b.nonPeriodic) {
		return false
	}
	for _, ax := range a.nonPeriodic {
		ma, mb := a.Mats[ax], b.Mats[ax]
		if ma.Key() != mb.Key() || !ma.Equal(mb, MergeTol) {
			return false
		}
	}
	return true
}
