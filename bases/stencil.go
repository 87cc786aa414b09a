package bases

import (
	"math"

	"github.com/notargets/gospectral/utils"
	"gonum.org/v1/gonum/mat"
)

// Stencil returns the expansion of composite function k in the parent
// orthogonal family: phi_k = sum_m coefs[m] * P_{k+offsets[m]}.
func (b *Basis) Stencil(k int) (offsets []int, coefs []float64) {
	var (
		fk = float64(k)
	)
	switch b.bc {
	case Orthogonal:
		return []int{0}, []float64{1}
	case UpperDirichlet:
		return []int{0, 1}, []float64{1, -1}
	case LowerDirichlet:
		return []int{0, 1}, []float64{1, 1}
	}
	if b.family == Jacobi || (b.bc.PhiOrder() > 1 && b.family != Laguerre) {
		return b.constrained(k)
	}
	switch b.family {
	case Chebyshev:
		switch b.bc {
		case Dirichlet:
			return []int{0, 2}, []float64{1, -1}
		case Neumann:
			r := fk / (fk + 2)
			return []int{0, 2}, []float64{1, -r * r}
		case Biharmonic:
			return []int{0, 2, 4}, []float64{1, -2 * (fk + 2) / (fk + 3), (fk + 1) / (fk + 3)}
		case DirichletNeumann, NeumannDirichlet:
			d := (fk+1)*(fk+1) + (fk+2)*(fk+2)
			a := 4 * (fk + 1) / d
			c := -(fk*fk + (fk+1)*(fk+1)) / d
			if b.bc == NeumannDirichlet {
				a = -a
			}
			return []int{0, 1, 2}, []float64{1, a, c}
		case UpperDirichletNeumann, LowerDirichletNeumann:
			a := 4 * (fk + 1) / (2*fk + 3)
			if b.bc == UpperDirichletNeumann {
				a = -a
			}
			return []int{0, 1, 2}, []float64{1, a, (2*fk + 1) / (2*fk + 3)}
		case Phi1:
			s := 1 / (math.Pi * (fk + 1))
			return []int{0, 2}, []float64{s, -s}
		}
	case Legendre:
		switch b.bc {
		case Dirichlet:
			if b.scaled {
				s := 1 / math.Sqrt(4*fk+6)
				return []int{0, 2}, []float64{s, -s}
			}
			return []int{0, 2}, []float64{1, -1}
		case Neumann:
			return []int{0, 2}, []float64{1, -fk * (fk + 1) / ((fk + 2) * (fk + 3))}
		case Biharmonic:
			return []int{0, 2, 4}, []float64{1, -2 * (2*fk + 5) / (2*fk + 7), (2*fk + 3) / (2*fk + 7)}
		case DirichletNeumann, NeumannDirichlet:
			a := (2*fk + 3) / ((fk + 2) * (fk + 2))
			c := -((fk + 1) * (fk + 1)) / ((fk + 2) * (fk + 2))
			if b.bc == NeumannDirichlet {
				a = -a
			}
			return []int{0, 1, 2}, []float64{1, a, c}
		case Phi1:
			s := 1 / (2*fk + 3)
			return []int{0, 2}, []float64{s, -s}
		}
	case Laguerre:
		switch b.bc {
		case Dirichlet:
			return []int{0, 1}, []float64{1, -1}
		case CompactNeumann:
			return []int{0, 1}, []float64{1, -(2*fk + 1) / (2*fk + 3)}
		}
	}
	panic("no stencil for " + b.String())
}

// endCondition asks the deriv-th reference derivative to vanish at x.
type endCondition struct {
	x     float64
	deriv int
}

func (b *Basis) endConditions() (conds []endCondition) {
	switch b.bc {
	case Dirichlet, CompactDirichlet:
		return []endCondition{{-1, 0}, {1, 0}}
	case Neumann, CompactNeumann:
		return []endCondition{{-1, 1}, {1, 1}}
	}
	for d := 0; d < b.bc.PhiOrder(); d++ {
		conds = append(conds, endCondition{-1, d}, endCondition{1, d})
	}
	return
}

// constrained solves for the stencil of phi_k = P_k + sum_{j=1..m} c_j P_{k+j}
// that satisfies the m end conditions of the basis. Coefficients that
// vanish to round-off are dropped.
func (b *Basis) constrained(k int) (offsets []int, coefs []float64) {
	var (
		conds = b.endConditions()
		m     = len(conds)
		A     = mat.NewDense(m, m, nil)
		rhs   = mat.NewVecDense(m, nil)
		c     = mat.NewVecDense(m, nil)
	)
	for i, cond := range conds {
		var (
			V   = b.OrthogonalVandermonde([]float64{cond.x}, k+m+1, cond.deriv)
			row = mat.Row(nil, 0, V)[k:]
			s   = utils.MaxAbs(row)
		)
		if s == 0 {
			s = 1
		}
		rhs.SetVec(i, -row[0]/s)
		for j := 1; j <= m; j++ {
			A.Set(i, j-1, row[j]/s)
		}
	}
	if err := c.SolveVec(A, rhs); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			panic(err)
		}
	}
	scale := 1.
	for j := 0; j < m; j++ {
		scale = math.Max(scale, math.Abs(c.AtVec(j)))
	}
	offsets, coefs = []int{0}, []float64{1}
	for j := 0; j < m; j++ {
		if v := c.AtVec(j); math.Abs(v) > 1.e-12*scale {
			offsets = append(offsets, j+1)
			coefs = append(coefs, v)
		}
	}
	return
}

// StencilWidth is the largest offset used by any composite function.
func (b *Basis) StencilWidth() (w int) {
	offs, _ := b.Stencil(0)
	for _, o := range offs {
		w = max(w, o)
	}
	if b.family == Jacobi || b.bc.PhiOrder() > 1 {
		w = max(w, len(b.endConditions()))
	}
	return
}

// StencilMatrix is the Dim x N matrix K with phi = K P.
func (b *Basis) StencilMatrix() (K *mat.Dense) {
	K = mat.NewDense(b.Dim(), b.n, nil)
	for k := 0; k < b.Dim(); k++ {
		offs, coefs := b.Stencil(k)
		for m, off := range offs {
			K.Set(k, k+off, coefs[m])
		}
	}
	return
}

// OrthogonalNorm returns the exact weighted norm squared of the parent
// orthogonal polynomial of degree n on the reference domain.
func (b *Basis) OrthogonalNorm(n int) float64 {
	switch b.family {
	case Chebyshev:
		if n == 0 {
			return math.Pi
		}
		return math.Pi / 2
	case Legendre:
		return 2 / (2*float64(n) + 1)
	}
	return 1
}
