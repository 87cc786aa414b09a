// Package la solves the per-mode linear systems of spectral Galerkin
// operators. Solvers are built once from the output of tensor.Inner, which
// factorizes every mode, and are then applied to many right hand sides.
package la

import (
	"fmt"
	"slices"

	"github.com/notargets/gospectral/assembly"
	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/logger"
	"github.com/notargets/gospectral/matrix"
	"github.com/notargets/gospectral/pencil"
	"github.com/notargets/gospectral/tensor"
	"github.com/notargets/gospectral/utils"
)

// Solver is satisfied by every operator solver in the package.
type Solver interface {
	// Solve returns u with A u = b. A nil u is allocated.
	Solve(b, u *tensor.Function) (*tensor.Function, error)
	// Matvec returns f = A u. A nil f is allocated.
	Matvec(u, f *tensor.Function) (*tensor.Function, error)
}

var log = logger.ForComponent("la")

// modeSolver holds one factorization per line of the local spectral array
// along the single non-periodic axis. Lines of excluded modes have no
// factor and solve to zero.
type modeSolver struct {
	mats         []*tensor.TPMatrix
	test, trial  *tensor.TensorProductSpace
	axis         int
	factors      []matrix.Factor
	outer, inner int
}

// commonAxis checks that mats share their spaces and exactly one
// non-periodic axis, local in spectral space.
func commonAxis(mats []*tensor.TPMatrix) (axis int, err error) {
	if len(mats) == 0 {
		return -1, fmt.Errorf("%w: no operators", utils.ErrOperatorKeys)
	}
	var (
		test  = mats[0].TestSpace()
		trial = mats[0].TrialSpace()
	)
	for _, m := range mats {
		np := m.NonPeriodicAxes()
		if len(np) != 1 {
			return -1, fmt.Errorf("%w: %s has %d non-periodic axes, expected one", utils.ErrOperatorKeys,
				m.Key(), len(np))
		}
		if m.TestSpace() != test || m.TrialSpace() != trial {
			return -1, fmt.Errorf("%w: %s belongs to other spaces", utils.ErrOperatorKeys, m.Key())
		}
		if axis = np[0]; axis != mats[0].NonPeriodicAxes()[0] {
			return -1, fmt.Errorf("%w: operators act on different axes", utils.ErrOperatorKeys)
		}
	}
	if test.DistributedAxis(true) == axis {
		return -1, fmt.Errorf("%w: non-periodic axis %d is distributed in spectral space",
			utils.ErrNotImplemented, axis)
	}
	if test.Basis(axis).Dim() != trial.Basis(axis).Dim() {
		return -1, fmt.Errorf("%w: %d test and %d trial functions along axis %d", utils.ErrShape,
			test.Basis(axis).Dim(), trial.Basis(axis).Dim(), axis)
	}
	return
}

// newModeSolver factors every mode that is not excluded; factor receives
// the flat scale index of the mode.
func newModeSolver(mats []*tensor.TPMatrix, axis int,
	factor func(mode int) (matrix.Factor, error)) (s *modeSolver, err error) {
	s = &modeSolver{
		mats:  mats,
		test:  mats[0].TestSpace(),
		trial: mats[0].TrialSpace(),
		axis:  axis,
	}
	scale := mats[0].Scale
	s.factors = make([]matrix.Factor, scale.Size())
	shape := s.test.LocalShape(true)
	s.outer, _, s.inner = utils.NewNDArray(shape...).LineLayout(axis)
	for mode := range s.factors {
		if s.test.ExcludedMode(scale.Unravel(mode)) {
			continue
		}
		if s.factors[mode], err = factor(mode); err != nil {
			return nil, fmt.Errorf("mode %v: %w", scale.Unravel(mode), err)
		}
	}
	log.Debug("factorized modes", "operators", keys(mats), "modes", len(s.factors), "axis", axis)
	return
}

func keys(mats []*tensor.TPMatrix) (k []string) {
	for _, m := range mats {
		k = append(k, m.Key())
	}
	return
}

// scales returns the non-periodic matrices and the scales of mode.
func scales(mats []*tensor.TPMatrix, axis, mode int) (ms []*matrix.SparseMatrix, cs []complex128) {
	for _, m := range mats {
		ms = append(ms, m.Mats[axis])
		cs = append(cs, m.Scale.Data[mode])
	}
	return
}

func (s *modeSolver) Solve(b, u *tensor.Function) (*tensor.Function, error) {
	if !utils.SameShape(b.Shape, s.test.LocalShape(true)) {
		return nil, fmt.Errorf("%w: right hand side %v, test space expects %v", utils.ErrShape,
			b.Shape, s.test.LocalShape(true))
	}
	if u == nil {
		u = s.trial.NewFunction()
	} else if !utils.SameShape(u.Shape, s.trial.LocalShape(true)) {
		return nil, fmt.Errorf("%w: solution %v, trial space expects %v", utils.ErrShape,
			u.Shape, s.trial.LocalShape(true))
	}
	var (
		n    = s.test.LocalShape(true)[s.axis]
		line = make([]complex128, n)
		x    = make([]complex128, n)
		err  error
	)
	for o := 0; o < s.outer; o++ {
		for i := 0; i < s.inner; i++ {
			f := s.factors[o*s.inner+i]
			if f == nil {
				for k := range x {
					x[k] = 0
				}
			} else {
				b.GetLine(s.axis, o, i, line)
				if err = f.Solve(line, x); err != nil {
					return nil, err
				}
			}
			u.SetLine(s.axis, o, i, x)
		}
	}
	return u, nil
}

func (s *modeSolver) Matvec(u, f *tensor.Function) (*tensor.Function, error) {
	return matvec(s.mats, s.test, u, f)
}

func matvec(mats []*tensor.TPMatrix, test *tensor.TensorProductSpace, u, f *tensor.Function) (*tensor.Function, error) {
	var out *utils.NDArray
	if f != nil {
		out = f.NDArray
	}
	r, err := tensor.Apply(mats, u.NDArray, out)
	if err != nil {
		return nil, err
	}
	return test.WrapFunction(r)
}

// agree is collective: it returns err, or an error on every rank when any
// other rank failed.
func agree(comm pencil.Comm, err error) error {
	failed := 0.
	if err != nil {
		failed = 1
	}
	if n := comm.AllreduceSum(failed); err == nil && n > 0 {
		return fmt.Errorf("%.0f of %d ranks failed", n, comm.Size())
	}
	return err
}

// role is one operator of a structured solver, given by the accepted
// (test, trial) derivative splits along the non-periodic axis.
type role [][2]int

var (
	stiffnessRole  = role{{0, 2}, {1, 1}}
	biharmonicRole = role{{0, 4}, {2, 2}}
	massRole       = role{{0, 0}}
)

// basisTag is a non-periodic basis a structured solver is built for.
type basisTag struct {
	Family bases.Family
	BC     bases.BC
}

var (
	helmholtzBases = []basisTag{
		{bases.Legendre, bases.Dirichlet}, {bases.Chebyshev, bases.Dirichlet},
		{bases.Laguerre, bases.Dirichlet}, {bases.Legendre, bases.Neumann},
		{bases.Chebyshev, bases.Neumann},
	}
	biharmonicBases = []basisTag{
		{bases.Legendre, bases.Biharmonic}, {bases.Chebyshev, bases.Biharmonic},
	}
)

// byKey matches mats against the canonical keys of roles on the shared
// non-periodic basis, which must be one of accepted. It returns one
// operator per role, in role order.
func byKey(mats []*tensor.TPMatrix, accepted []basisTag, roles ...role) (picked []*tensor.TPMatrix, axis int, err error) {
	if axis, err = commonAxis(mats); err != nil {
		return
	}
	var (
		b   = mats[0].TestSpace().Basis(axis)
		tag = basisTag{b.Family(), b.BC()}
	)
	if !slices.Contains(accepted, tag) {
		return nil, -1, fmt.Errorf("%w: no structured solver for the %s basis, operators %v",
			utils.ErrOperatorKeys, b.Short(), keys(mats))
	}
	expected := make(map[string]int)
	for i, r := range roles {
		for _, d := range r {
			k := assembly.Key{
				Test:    assembly.Side{Family: tag.Family, BC: tag.BC, Deriv: d[0]},
				Trial:   assembly.Side{Family: tag.Family, BC: tag.BC, Deriv: d[1]},
				Measure: assembly.Unit,
			}
			expected[k.String()] = i
		}
	}
	picked = make([]*tensor.TPMatrix, len(roles))
	for _, m := range mats {
		i, ok := expected[m.Key()]
		if !ok || picked[i] != nil {
			return nil, -1, fmt.Errorf("%w: unexpected operator %s in %v", utils.ErrOperatorKeys,
				m.Key(), keys(mats))
		}
		if err = sameFamily(m, axis); err != nil {
			return nil, -1, err
		}
		picked[i] = m
	}
	for i, m := range picked {
		if m == nil {
			return nil, -1, fmt.Errorf("%w: operators %v lack a %v term", utils.ErrOperatorKeys,
				keys(mats), roles[i])
		}
	}
	return
}

// sameFamily requires the non-periodic test and trial bases to be one basis.
func sameFamily(m *tensor.TPMatrix, axis int) error {
	t, u := m.TestSpace().Basis(axis), m.TrialSpace().Basis(axis)
	if t.Identity() != u.Identity() {
		return fmt.Errorf("%w: %s pairs %s with %s", utils.ErrOperatorKeys, m.Key(), t.Short(), u.Short())
	}
	return nil
}
