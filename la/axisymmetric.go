package la

import (
	"fmt"

	"github.com/notargets/gospectral/tensor"
	"github.com/notargets/gospectral/utils"
)

// Axisymmetric solves a polar or cylindrical problem whose zero mode needs
// other boundary conditions at r = 0 than the remaining modes. The main
// space excludes the zero mode; a serial space with a single Fourier mode
// carries it. Rank 0 solves the zero mode and broadcasts the result.
type Axisymmetric struct {
	main  *SolverGeneric1NP
	zero  *SolverGeneric1NP
	T, T0 *tensor.TensorProductSpace
}

func NewAxisymmetric(mats, mats0 []*tensor.TPMatrix) (s *Axisymmetric, err error) {
	if len(mats) == 0 || len(mats0) == 0 {
		return nil, fmt.Errorf("%w: axisymmetric solver needs operators for both spaces", utils.ErrOperatorKeys)
	}
	s = &Axisymmetric{T: mats[0].TestSpace(), T0: mats0[0].TestSpace()}
	if err = s.checkSpaces(); err != nil {
		return nil, err
	}
	s.main, err = NewSolverGeneric1NP(mats)
	if err == nil && s.T.Comm().Rank() == 0 {
		s.zero, err = NewSolverGeneric1NP(mats0)
	}
	if err = agree(s.T.Comm(), err); err != nil {
		return nil, err
	}
	return
}

func (s *Axisymmetric) checkSpaces() error {
	var (
		T, T0    = s.T, s.T0
		excluded = false
	)
	if T.Coordinates().IsCartesian() || T.Ndim() != T0.Ndim() {
		return fmt.Errorf("%w: axisymmetric solve needs two curvilinear spaces of equal dimension",
			utils.ErrShape)
	}
	if T0.IsDistributed() {
		return fmt.Errorf("%w: zero mode space must be serial", utils.ErrShape)
	}
	for a := 0; a < T.Ndim(); a++ {
		b, b0 := T.Basis(a), T0.Basis(a)
		if b.IsPeriodic() {
			if !b0.IsPeriodic() || b0.N() != 1 {
				return fmt.Errorf("%w: zero mode space needs a single Fourier mode on axis %d", utils.ErrShape, a)
			}
			excluded = excluded || T.IsExcluded(a)
			continue
		}
		if b0.IsPeriodic() || b.N() != b0.N() {
			return fmt.Errorf("%w: axis %d has %d points in the main space and %d in the zero mode space",
				utils.ErrShape, a, b.N(), b0.N())
		}
	}
	if !excluded {
		return fmt.Errorf("main space must exclude the zero mode of its periodic axis")
	}
	return nil
}

// Solve solves the main system for b and the zero mode system for b0, which
// is read on rank 0 only. Every rank receives the zero mode solution, or
// every rank returns an error.
func (s *Axisymmetric) Solve(b, b0 *tensor.Function) (u, u0 *tensor.Function, err error) {
	u, err = s.main.Solve(b, nil)
	u0 = s.T0.NewFunction()
	if err == nil && s.zero != nil {
		if b0 == nil {
			err = fmt.Errorf("%w: missing zero mode right hand side", utils.ErrShape)
		} else {
			_, err = s.zero.Solve(b0, u0)
		}
	}
	if err = agree(s.T.Comm(), err); err != nil {
		return nil, nil, err
	}
	s.T.Comm().Bcast(u0.Data, 0)
	return
}

// Backward returns the physical solution, the sum of both parts on the
// local physical slab of the main space.
func (s *Axisymmetric) Backward(u, u0 *tensor.Function) (a *tensor.Array, err error) {
	var a0 *tensor.Array
	if a, err = s.T.Backward(u); err != nil {
		return
	}
	if a0, err = s.T0.Backward(u0); err != nil {
		return nil, err
	}
	var (
		start = s.T.LocalStart(false)
		idx   = make([]int, a.Ndim())
	)
	for flat := range a.Data {
		for d, i := range a.Unravel(flat) {
			if a0.Shape[d] == 1 {
				idx[d] = 0
			} else {
				idx[d] = start[d] + i
			}
		}
		a.Data[flat] += a0.At(idx...)
	}
	return
}
