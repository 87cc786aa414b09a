package bases

import (
	"fmt"
	"math"

	"github.com/notargets/gospectral/utils"
	"gonum.org/v1/gonum/mat"
)

// threeTerm gives the coefficients of p_{n+1} = (a x + b) p_n - c p_{n-1}.
type threeTerm func(n int) (a, b, c float64)

func chebyshevRec(n int) (a, b, c float64) {
	if n == 0 {
		return 1, 0, 0
	}
	return 2, 0, 1
}

func legendreRec(n int) (a, b, c float64) {
	fn := float64(n)
	return (2*fn + 1) / (fn + 1), 0, fn / (fn + 1)
}

func laguerreRec(n int) (a, b, c float64) {
	fn := float64(n)
	return -1 / (fn + 1), (2*fn + 1) / (fn + 1), fn / (fn + 1)
}

// evalThreeTerm returns p[m][k], the m-th derivative of the degree k
// polynomial at x, for m <= deriv and k < n. Derivatives follow from
// differentiating the recurrence:
// p_{k+1}^(m) = (a x + b) p_k^(m) + m a p_k^(m-1) - c p_{k-1}^(m).
func evalThreeTerm(x float64, n, deriv int, rec threeTerm) (p [][]float64) {
	p = make([][]float64, deriv+1)
	for m := range p {
		p[m] = make([]float64, n)
	}
	if n == 0 {
		return
	}
	p[0][0] = 1
	for k := 0; k < n-1; k++ {
		a, b, c := rec(k)
		for m := 0; m <= deriv; m++ {
			v := (a*x + b) * p[m][k]
			if m > 0 {
				v += float64(m) * a * p[m-1][k]
			}
			if k > 0 {
				v -= c * p[m][k-1]
			}
			p[m][k+1] = v
		}
	}
	return
}

// laguerreFunctions returns derivatives of psi_k = L_k(x) exp(-x/2).
func laguerreFunctions(x float64, n, deriv int) (psi [][]float64) {
	var (
		L   = evalThreeTerm(x, n, deriv, laguerreRec)
		fac = math.Exp(-x / 2)
	)
	psi = make([][]float64, deriv+1)
	for m := range psi {
		psi[m] = make([]float64, n)
		for k := 0; k < n; k++ {
			var s float64
			for i := 0; i <= m; i++ {
				s += utils.Binomial(m, i) * L[i][k] * utils.POW(-0.5, m-i)
			}
			psi[m][k] = s * fac
		}
	}
	return
}

// hermiteFunctions returns the orthonormal Hermite functions psi_0..psi_{n-1}.
func hermiteFunctions(x float64, n int) (psi []float64) {
	psi = make([]float64, n)
	if n == 0 {
		return
	}
	psi[0] = math.Pow(math.Pi, -0.25) * math.Exp(-x*x/2)
	if n > 1 {
		psi[1] = math.Sqrt2 * x * psi[0]
	}
	for k := 1; k < n-1; k++ {
		fk := float64(k)
		psi[k+1] = math.Sqrt(2/(fk+1))*x*psi[k] - math.Sqrt(fk/(fk+1))*psi[k-1]
	}
	return
}

// hermiteDerivative expresses the m-th derivative of psi_k as a combination
// of psi_{k-m} .. psi_{k+m}, using psi_k' = sqrt(k/2) psi_{k-1} - sqrt((k+1)/2) psi_{k+1}.
func hermiteDerivative(k, m int) (c []float64) {
	c = make([]float64, k+m+1)
	c[k] = 1
	for ; m > 0; m-- {
		d := make([]float64, len(c))
		for j, v := range c {
			if v == 0 {
				continue
			}
			fj := float64(j)
			if j > 0 {
				d[j-1] += v * math.Sqrt(fj/2)
			}
			if j+1 < len(d) {
				d[j+1] -= v * math.Sqrt((fj+1)/2)
			}
		}
		c = d
	}
	return
}

// OrthogonalVandermonde evaluates the deriv-th reference derivative of the
// first n parent orthogonal functions at reference points X.
func (b *Basis) OrthogonalVandermonde(X []float64, n, deriv int) (V *mat.Dense) {
	V = mat.NewDense(len(X), n, nil)
	switch b.family {
	case Chebyshev, Legendre:
		rec := chebyshevRec
		if b.family == Legendre {
			rec = legendreRec
		}
		for i, x := range X {
			V.SetRow(i, evalThreeTerm(x, n, deriv, rec)[deriv])
		}
	case Laguerre:
		for i, x := range X {
			V.SetRow(i, laguerreFunctions(x, n, deriv)[deriv])
		}
	case Hermite:
		for i, x := range X {
			psi := hermiteFunctions(x, n+deriv+1)
			for k := 0; k < n; k++ {
				var s float64
				for j, c := range hermiteDerivative(k, deriv) {
					s += c * psi[j]
				}
				V.Set(i, k, s)
			}
		}
	case Jacobi:
		for k := 0; k < n; k++ {
			V.SetCol(k, GradJacobiP(X, b.alpha, b.beta, k, deriv))
		}
	default:
		panic(fmt.Errorf("%w: real Vandermonde for %v", utils.ErrNotImplemented, b.family))
	}
	return
}

// Vandermonde evaluates the deriv-th physical derivative of every basis
// function at reference points X. Rows are points, columns basis functions.
func (b *Basis) Vandermonde(X []float64, deriv int) (V *mat.Dense, err error) {
	if b.family == Fourier {
		err = fmt.Errorf("%w: real Vandermonde for Fourier bases", utils.ErrNotImplemented)
		return
	}
	P := b.OrthogonalVandermonde(X, b.n, deriv)
	if b.bc == Orthogonal {
		V = P
	} else {
		V = mat.NewDense(len(X), b.Dim(), nil)
		V.Mul(P, b.StencilMatrix().T())
	}
	if b.HasFiniteDomain() && deriv > 0 {
		V.Scale(utils.POW(2/b.Length(), deriv), V)
	}
	return
}

// Wavenumbers returns the integer Fourier wavenumbers in transform order.
func (b *Basis) Wavenumbers() (k []int) {
	k = make([]int, b.Dim())
	for j := range k {
		if b.realFFT || j < (b.n+1)/2 {
			k[j] = j
		} else {
			k[j] = j - b.n
		}
	}
	return
}

// PhysicalWavenumber scales an integer wavenumber to the domain length.
func (b *Basis) PhysicalWavenumber(k int) float64 {
	return float64(k) * 2 * math.Pi / b.Length()
}

// Evaluate returns sum_k c_k phi_k(x) at physical points x.
func (b *Basis) Evaluate(x []float64, c []complex128) (u []complex128, err error) {
	if len(c) != b.Dim() {
		err = fmt.Errorf("%w: %d coefficients for basis of dimension %d", utils.ErrShape, len(c), b.Dim())
		return
	}
	u = make([]complex128, len(x))
	if b.family == Fourier {
		for i, xi := range x {
			for j, k := range b.Wavenumbers() {
				kk := b.PhysicalWavenumber(k)
				e := complex(math.Cos(kk*(xi-b.domain[0])), math.Sin(kk*(xi-b.domain[0])))
				if b.realFFT && k > 0 && !(b.n%2 == 0 && k == b.n/2) {
					u[i] += 2 * complex(real(c[j]*e), 0)
				} else if b.realFFT {
					u[i] += complex(real(c[j]*e), 0)
				} else {
					u[i] += c[j] * e
				}
			}
		}
		return
	}
	X := make([]float64, len(x))
	for i, xi := range x {
		X[i] = b.InverseMap(xi)
	}
	V, err := b.Vandermonde(X, 0)
	if err != nil {
		return
	}
	for i := range x {
		for j := range c {
			u[i] += complex(V.At(i, j), 0) * c[j]
		}
	}
	return
}
