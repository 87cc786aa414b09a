package la

import (
	"github.com/notargets/gospectral/matrix"
	"github.com/notargets/gospectral/tensor"
)

// Biharmonic solves (a S + b A + c B) u = f for every periodic mode, with
// S, A and B the SSBSBmat, ASBSBmat and BSBSBmat operators of a Legendre
// or Chebyshev biharmonic basis.
type Biharmonic struct {
	*modeSolver
	S, A, B *tensor.TPMatrix
}

func NewBiharmonic(mats []*tensor.TPMatrix) (bh *Biharmonic, err error) {
	var (
		axis   int
		picked []*tensor.TPMatrix
	)
	if picked, axis, err = byKey(mats, biharmonicBases, biharmonicRole, stiffnessRole, massRole); err != nil {
		return
	}
	bh = &Biharmonic{S: picked[0], A: picked[1], B: picked[2]}
	bh.modeSolver, err = newModeSolver(picked, axis, func(mode int) (matrix.Factor, error) {
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
