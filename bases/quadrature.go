package bases

import (
	"fmt"
	"math"

	"github.com/notargets/gospectral/utils"
)

// Points returns an M point quadrature rule of the given kind on the
// reference domain. The weights include the family's weight function, so
// that sum_i W_i f(X_i) approximates the weighted inner product. For the
// Laguerre and Hermite families the basis functions carry the exponential
// factor themselves and the weights are scaled to match.
func (b *Basis) Points(q Quad, M int) (X, W []float64, err error) {
	if M < 1 {
		err = fmt.Errorf("quadrature needs at least one point, got %d", M)
		return
	}
	switch q {
	case GC:
		X, W = chebyshevGauss(M)
	case GL:
		switch b.family {
		case Chebyshev:
			if M < 2 {
				err = fmt.Errorf("Gauss-Lobatto needs two points, got %d", M)
				return
			}
			X, W = chebyshevGaussLobatto(M)
		case Legendre:
			if M < 2 {
				err = fmt.Errorf("Gauss-Lobatto needs two points, got %d", M)
				return
			}
			X, W = legendreGaussLobatto(M)
		default:
			err = fmt.Errorf("%w: GL quadrature for %v", utils.ErrNotImplemented, b.family)
		}
	case LG:
		X, W = JacobiGQ(0, 0, M-1)
	case JG:
		X, W = JacobiGQ(b.alpha, b.beta, M-1)
	case LAG:
		X, W = laguerreGauss(M)
	case HG:
		X, W = hermiteGauss(M)
	case Uniform:
		X, W = make([]float64, M), make([]float64, M)
		for j := range X {
			X[j] = b.domain[0] + float64(j)*b.Length()/float64(M)
			W[j] = b.Length() / float64(M)
		}
	default:
		err = fmt.Errorf("%w: quadrature %v", utils.ErrNotImplemented, q)
	}
	return
}

// GaussRule returns the family's Gauss rule with M points, the rule used by
// the quadrature fallback of the assembly engine.
func (b *Basis) GaussRule(M int) (X, W []float64, err error) {
	return b.Points(b.gaussQuad(), M)
}

func (b *Basis) gaussQuad() Quad {
	switch b.family {
	case Chebyshev:
		return GC
	case Legendre:
		return LG
	case Jacobi:
		return JG
	case Laguerre:
		return LAG
	case Hermite:
		return HG
	}
	return Uniform
}

// NativePoints is the basis's own N point rule on the reference domain.
func (b *Basis) NativePoints() (X, W []float64) {
	var err error
	if X, W, err = b.Points(b.quad, b.n); err != nil {
		panic(err)
	}
	return
}

// Mesh returns the native quadrature points in physical coordinates.
func (b *Basis) Mesh() (x []float64) {
	X, _ := b.NativePoints()
	x = make([]float64, len(X))
	for i, v := range X {
		x[i] = b.Map(v)
	}
	return
}

func chebyshevGauss(M int) (X, W []float64) {
	X, W = make([]float64, M), make([]float64, M)
	for i := range X {
		X[i] = math.Cos(math.Pi * float64(2*i+1) / float64(2*M))
		W[i] = math.Pi / float64(M)
	}
	return
}

func chebyshevGaussLobatto(M int) (X, W []float64) {
	X, W = make([]float64, M), make([]float64, M)
	for i := range X {
		X[i] = math.Cos(math.Pi * float64(i) / float64(M-1))
		W[i] = math.Pi / float64(M-1)
	}
	W[0] /= 2
	W[M-1] /= 2
	return
}

func legendreGaussLobatto(M int) (X, W []float64) {
	X = JacobiGL(0, 0, M-1)
	W = make([]float64, M)
	fm := float64(M)
	for i, x := range X {
		p := evalThreeTerm(x, M, 0, legendreRec)[0][M-1]
		W[i] = 2 / (fm * (fm - 1) * p * p)
	}
	return
}

func laguerreGauss(M int) (X, W []float64) {
	d0, d1 := make([]float64, M), make([]float64, M-1)
	for i := range d0 {
		d0[i] = float64(2*i + 1)
	}
	for i := range d1 {
		d1[i] = float64(i + 1)
	}
	X, _ = golubWelsch(d0, d1, 1)
	W = make([]float64, M)
	fm1 := float64(M + 1)
	for i, x := range X {
		psi := laguerreFunctions(x, M+2, 0)[0][M+1]
		W[i] = x / (fm1 * fm1 * psi * psi)
	}
	return
}

func hermiteGauss(M int) (X, W []float64) {
	d0, d1 := make([]float64, M), make([]float64, M-1)
	for i := range d1 {
		d1[i] = math.Sqrt(float64(i+1) / 2)
	}
	X, _ = golubWelsch(d0, d1, math.Sqrt(math.Pi))
	W = make([]float64, M)
	for i, x := range X {
		psi := hermiteFunctions(x, M)[M-1]
		W[i] = 1 / (float64(M) * psi * psi)
	}
	return
}
