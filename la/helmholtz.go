package la

import (
	"github.com/notargets/gospectral/matrix"
	"github.com/notargets/gospectral/tensor"
)

// Helmholtz solves (a A + b B) u = f for every periodic mode, where A is the
// stiffness matrix (ASDSDmat or A1SDSDmat) and B the mass matrix of one
// Dirichlet or Neumann basis.
type Helmholtz struct {
	*modeSolver
	A, B *tensor.TPMatrix
}

func NewHelmholtz(mats []*tensor.TPMatrix) (h *Helmholtz, err error) {
	var (
		axis   int
		picked []*tensor.TPMatrix
	)
	if picked, axis, err = byKey(mats, helmholtzBases, stiffnessRole, massRole); err != nil {
		return
	}
	h = &Helmholtz{A: picked[0], B: picked[1]}
	h.modeSolver, err = newModeSolver(picked, axis, func(mode int) (matrix.Factor, error) {
		b, err := matrix.Combine(scales(picked, axis, mode))
		if err != nil {
			return nil, err
		}
		return matrix.Factorize(b)
	})
	if err != nil {
		return nil, err
	}
	return
}
