package la

import (
	"fmt"

	"github.com/notargets/gospectral/matrix"
	"github.com/notargets/gospectral/tensor"
	"github.com/notargets/gospectral/utils"
)

// SolverGeneric1NP solves any sum of operators with one common non-periodic
// axis by a sparse LU of every mode.
type SolverGeneric1NP struct {
	*modeSolver
}

func NewSolverGeneric1NP(mats []*tensor.TPMatrix) (s *SolverGeneric1NP, err error) {
	var axis int
	if axis, err = commonAxis(mats); err != nil {
		return
	}
	s = &SolverGeneric1NP{}
	s.modeSolver, err = newModeSolver(mats, axis, func(mode int) (matrix.Factor, error) {
		b, err := matrix.Combine(scales(mats, axis, mode))
		if err != nil {
			return nil, err
		}
		return matrix.NewSparseLU(b.N, b.Rows())
	})
	if err != nil {
		return nil, err
	}
	return
}

// Solver2D solves operators with two non-periodic axes. Every periodic mode
// gets the Kronecker sum of its terms, assembled into a sparse matrix and
// factored by sparse LU.
type Solver2D struct {
	mats        []*tensor.TPMatrix
	test, trial *tensor.TensorProductSpace
	axes        [2]int
	factors     []*matrix.SparseLU
	modes       *utils.NDArray
}

func NewSolver2D(mats []*tensor.TPMatrix) (s *Solver2D, err error) {
	if len(mats) == 0 {
		return nil, fmt.Errorf("%w: no operators", utils.ErrOperatorKeys)
	}
	s = &Solver2D{
		mats:  mats,
		test:  mats[0].TestSpace(),
		trial: mats[0].TrialSpace(),
		modes: mats[0].Scale,
	}
	np := mats[0].NonPeriodicAxes()
	if len(np) != 2 {
		return nil, fmt.Errorf("%w: %s has %d non-periodic axes, expected two", utils.ErrOperatorKeys,
			mats[0].Key(), len(np))
	}
	s.axes = [2]int{np[0], np[1]}
	for _, m := range mats {
		a := m.NonPeriodicAxes()
		if len(a) != 2 || a[0] != s.axes[0] || a[1] != s.axes[1] {
			return nil, fmt.Errorf("%w: %s acts on axes %v, expected %v", utils.ErrOperatorKeys,
				m.Key(), a, s.axes)
		}
		if m.TestSpace() != s.test || m.TrialSpace() != s.trial {
			return nil, fmt.Errorf("%w: %s belongs to other spaces", utils.ErrOperatorKeys, m.Key())
		}
	}
	var (
		ts = s.test.LocalShape(true)
		us = s.trial.LocalShape(true)
		d  = s.test.DistributedAxis(true)
	)
	for _, a := range s.axes {
		if a == d {
			return nil, fmt.Errorf("%w: non-periodic axis %d is distributed in spectral space",
				utils.ErrNotImplemented, a)
		}
		if ts[a] != us[a] {
			return nil, fmt.Errorf("%w: %d test and %d trial functions along axis %d", utils.ErrShape,
				ts[a], us[a], a)
		}
	}
	n := ts[s.axes[0]] * ts[s.axes[1]]
	s.factors = make([]*matrix.SparseLU, s.modes.Size())
	for mode := range s.factors {
		idx := s.modes.Unravel(mode)
		if s.test.ExcludedMode(idx) {
			continue
		}
		dok := utils.NewComplexDOK(n, n)
		for _, m := range mats {
			if err = m.AddKronecker(dok, s.axes[:], idx, 0, 0); err != nil {
				return nil, err
			}
		}
		if s.factors[mode], err = matrix.NewSparseLUFromCSR(dok.ToCSR()); err != nil {
			return nil, fmt.Errorf("mode %v: %w", idx, err)
		}
	}
	log.Debug("factorized modes", "operators", keys(mats), "modes", len(s.factors), "size", n)
	return
}

// position returns the mode of idx and the index of idx inside its system.
func (s *Solver2D) position(idx []int, shape []int) (mode, p int) {
	for d := range s.modes.Shape {
		i := 0
		if s.modes.Shape[d] > 1 {
			i = idx[d]
		}
		mode = mode*s.modes.Shape[d] + i
	}
	p = idx[s.axes[0]]*shape[s.axes[1]] + idx[s.axes[1]]
	return
}

func (s *Solver2D) Solve(b, u *tensor.Function) (*tensor.Function, error) {
	shape := s.test.LocalShape(true)
	if !utils.SameShape(b.Shape, shape) {
		return nil, fmt.Errorf("%w: right hand side %v, test space expects %v", utils.ErrShape, b.Shape, shape)
	}
	if u == nil {
		u = s.trial.NewFunction()
	} else if !utils.SameShape(u.Shape, s.trial.LocalShape(true)) {
		return nil, fmt.Errorf("%w: solution %v, trial space expects %v", utils.ErrShape,
			u.Shape, s.trial.LocalShape(true))
	}
	var (
		n   = shape[s.axes[0]] * shape[s.axes[1]]
		rhs = make([][]complex128, len(s.factors))
		sol = make([][]complex128, len(s.factors))
	)
	for mode := range rhs {
		rhs[mode], sol[mode] = make([]complex128, n), make([]complex128, n)
	}
	for flat, v := range b.Data {
		mode, p := s.position(b.Unravel(flat), shape)
		rhs[mode][p] = v
	}
	for mode, f := range s.factors {
		if f == nil {
			continue
		}
		if err := f.Solve(rhs[mode], sol[mode]); err != nil {
			return nil, err
		}
	}
	for flat := range u.Data {
		mode, p := s.position(u.Unravel(flat), shape)
		u.Data[flat] = sol[mode][p]
	}
	return u, nil
}

func (s *Solver2D) Matvec(u, f *tensor.Function) (*tensor.Function, error) {
	return matvec(s.mats, s.test, u, f)
}
