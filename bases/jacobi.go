package bases

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

func gamma0(alpha, beta float64) float64 {
	ab := alpha + beta
	return math.Pow(2, ab+1) * math.Gamma(alpha+1) * math.Gamma(beta+1) / math.Gamma(ab+2)
}

func gamma1(alpha, beta float64) float64 {
	ab := alpha + beta
	a1 := alpha + 1.
	b1 := beta + 1.
	return a1 * b1 * gamma0(alpha, beta) / (ab + 3.0)
}

// golubWelsch computes Gauss nodes and weights from the symmetric Jacobi
// matrix with diagonal d0 and off diagonal d1. mu0 is the integral of the
// weight function.
func golubWelsch(d0, d1 []float64, mu0 float64) (x, w []float64) {
	var (
		n   = len(d0)
		JJ  = mat.NewSymDense(n, nil)
		eig mat.EigenSym
	)
	for i := 0; i < n; i++ {
		JJ.SetSym(i, i, d0[i])
		if i < n-1 {
			JJ.SetSym(i, i+1, d1[i])
		}
	}
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	x = eig.Values(nil)
	VVr := mat.NewDense(n, n, nil)
	eig.VectorsTo(VVr)
	w = make([]float64, n)
	for i := range w {
		v := VVr.At(0, i)
		w[i] = mu0 * v * v
	}
	return
}

// JacobiGQ returns the N+1 point Gauss quadrature for the weight
// (1-x)^alpha (1+x)^beta on [-1, 1].
func JacobiGQ(alpha, beta float64, N int) (x, w []float64) {
	var (
		fac    float64
		h1     []float64
		d0, d1 []float64
	)
	if N == 0 {
		x = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		w = []float64{gamma0(alpha, beta)}
		return
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: -1/2*(alpha^2-beta^2)/(h1+2)/h1
	d0 = make([]float64, N+1)
	fac = -.5 * (alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = 2 * fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if math.Abs(alpha+beta) < 10*eps {
		d0[0] = 0.
	}

	var ip1 float64
	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 = float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}
	return golubWelsch(d0, d1, gamma0(alpha, beta))
}

// JacobiGL returns the N+1 Gauss-Lobatto nodes, endpoints included.
func JacobiGL(alpha, beta float64, N int) (x []float64) {
	x = make([]float64, N+1)
	x[0], x[N] = -1, 1
	if N == 1 {
		return
	}
	xint, _ := JacobiGQ(alpha+1, beta+1, N-2)
	copy(x[1:N], xint)
	return
}

// JacobiP evaluates the orthonormal Jacobi polynomial of degree N.
func JacobiP(r []float64, alpha, beta float64, N int) (p []float64) {
	var (
		Nc = len(r)
		rg = 1. / math.Sqrt(gamma0(alpha, beta))
	)
	p = make([]float64, Nc)
	if N == 0 {
		for i := range p {
			p[i] = rg
		}
		return
	}
	ab := alpha + beta
	rg1 := 1. / math.Sqrt(gamma1(alpha, beta))
	pold := make([]float64, Nc)
	for i := 0; i < Nc; i++ {
		pold[i] = rg
		p[i] = rg1 * ((ab+2.0)*r[i]/2.0 + (alpha-beta)/2.0)
	}
	if N == 1 {
		return
	}

	a1 := alpha + 1.
	b1 := beta + 1.
	ab1 := ab + 1.
	aold := 2.0 * math.Sqrt(a1*b1/(ab+3.0)) / (ab + 2.0)
	for i := 0; i < N-1; i++ {
		ip1 := float64(i + 1)
		ip2 := ip1 + 1
		h1 := 2.0*ip1 + ab
		anew := 2.0 / (h1 + 2.0) * math.Sqrt(ip2*(ip1+ab1)*(ip1+a1)*(ip1+b1)/(h1+1.0)/(h1+3.0))
		bnew := -(alpha*alpha - beta*beta) / h1 / (h1 + 2.0)
		for j := range p {
			pnew := (-aold*pold[j] + (r[j]-bnew)*p[j]) / anew
			pold[j], p[j] = p[j], pnew
		}
		aold = anew
	}
	return
}

// GradJacobiP evaluates the m-th derivative of the orthonormal Jacobi
// polynomial of degree N.
func GradJacobiP(r []float64, alpha, beta float64, N, m int) (p []float64) {
	if m == 0 {
		return JacobiP(r, alpha, beta, N)
	}
	if N < m {
		p = make([]float64, len(r))
		return
	}
	fac := 1.
	fN := float64(N)
	for i := 0; i < m; i++ {
		fi := float64(i)
		fac *= math.Sqrt((fN - fi) * (fN + alpha + beta + 1 + fi))
	}
	p = JacobiP(r, alpha+float64(m), beta+float64(m), N-m)
	for i, val := range p {
		p[i] = val * fac
	}
	return
}
