package assembly

import (
	"math"

	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/matrix"
	"github.com/notargets/gospectral/utils"
)

// ClosedForm builds the exact operator for a test/trial pair with derivative
// orders a and b on the physical domain of the bases.
type ClosedForm func(test, trial *bases.Basis, a, b int) *matrix.SparseMatrix

// builder accumulates entries of a rows x cols operator into diagonals.
type builder struct {
	rows, cols int
	diags      map[int][]float64
}

func newBuilder(test, trial *bases.Basis) *builder {
	return &builder{rows: test.Dim(), cols: trial.Dim(), diags: make(map[int][]float64)}
}

func (b *builder) add(r, c int, v float64) {
	if r < 0 || c < 0 || r >= b.rows || c >= b.cols {
		return
	}
	d := c - r
	dg, ok := b.diags[d]
	if !ok {
		dg = make([]float64, matrix.DiagLen(b.rows, b.cols, d))
		b.diags[d] = dg
	}
	i := r
	if d < 0 {
		i = c
	}
	dg[i] += v
}

// diag fills diagonal d with f(i) for every element i.
func (b *builder) diag(d int, f func(i int) float64) {
	n := matrix.DiagLen(b.rows, b.cols, d)
	if n == 0 {
		return
	}
	v := make([]float64, n)
	for i := range v {
		v[i] = f(i)
	}
	b.diags[d] = v
}

// reference wraps a form computed on the reference interval [-1, 1] and maps
// it to the physical domain: dx = (L/2) dX and d/dx = (2/L) d/dX.
func reference(f func(t, u *bases.Basis, b *builder)) ClosedForm {
	return func(t, u *bases.Basis, a, c int) *matrix.SparseMatrix {
		b := newBuilder(t, u)
		f(t, u, b)
		m := matrix.MustNew(b.rows, b.cols, b.diags)
		fac := t.DomainFactor()
		return m.MulInPlace(complex(fac*utils.POW(1/fac, a+c), 0)).Simplify()
	}
}

// stencilMass is K H K^T for the stencils K of the two bases and the
// diagonal norms H of the parent family.
func stencilMass(t, u *bases.Basis, b *builder) {
	w := u.StencilWidth()
	for k := 0; k < t.Dim(); k++ {
		to, tc := t.Stencil(k)
		for m, om := range to {
			p := k + om
			h := t.OrthogonalNorm(p)
			for j := max(p-w, 0); j <= p && j < u.Dim(); j++ {
				uo, uc := u.Stencil(j)
				for n, on := range uo {
					if j+on == p {
						b.add(k, j, tc[m]*uc[n]*h)
					}
				}
			}
		}
	}
}

func chebyshevD1(_, _ *bases.Basis, b *builder) {
	for d := 1; d < b.cols; d += 2 {
		b.diag(d, func(i int) float64 { return math.Pi * float64(i+d) })
	}
}

func chebyshevD2(_, _ *bases.Basis, b *builder) {
	for d := 2; d < b.cols; d += 2 {
		b.diag(d, func(i int) float64 {
			k, j := float64(i), float64(i+d)
			return math.Pi / 2 * j * (j*j - k*k)
		})
	}
}

func chebyshevDirichletD1(_, _ *bases.Basis, b *builder) {
	b.diag(1, func(i int) float64 { return math.Pi * float64(i+1) })
	b.diag(-1, func(i int) float64 { return -math.Pi * float64(i+2) })
}

func chebyshevDirichletD2(_, _ *bases.Basis, b *builder) {
	b.diag(0, func(i int) float64 { return -2 * math.Pi * float64((i+1)*(i+2)) })
	for d := 2; d < b.cols; d += 2 {
		b.diag(d, func(i int) float64 { return -4 * math.Pi * float64(i+1) })
	}
}

func legendreD1(_, _ *bases.Basis, b *builder) {
	for d := 1; d < b.cols; d += 2 {
		b.diag(d, func(int) float64 { return 2 })
	}
}

func legendreD2(_, _ *bases.Basis, b *builder) {
	for d := 2; d < b.cols; d += 2 {
		b.diag(d, func(i int) float64 {
			k, j := float64(i), float64(i+d)
			return j*(j+1) - k*(k+1)
		})
	}
}

// legendreDirichletStiffness is int phi_k' phi_j' dx.
func legendreDirichletStiffness(t, _ *bases.Basis, b *builder) {
	b.diag(0, func(i int) float64 {
		if t.IsScaled() {
			return 1
		}
		return float64(4*i + 6)
	})
}

// legendreBiharmonicD2 is int phi_k phi_j'' dx.
func legendreBiharmonicD2(_, _ *bases.Basis, b *builder) {
	b.diag(0, func(i int) float64 {
		k := float64(i)
		return -4 * (2*k + 3) * (2*k + 5) / (2*k + 7)
	})
	b.diag(2, func(i int) float64 { return float64(2 * (2*i + 3)) })
	b.diag(-2, func(i int) float64 { return float64(2 * (2*i + 3)) })
}

// legendreBiharmonicD4 is int phi_k'' phi_j'' dx, using
// phi_k'' = (2k+3)(2k+5) P_{k+2}.
func legendreBiharmonicD4(_, _ *bases.Basis, b *builder) {
	b.diag(0, func(i int) float64 {
		k := float64(i)
		return 2 * (2*k + 3) * (2*k + 3) * (2*k + 5)
	})
}

// legendrePhi1Stiffness is int phi_k' phi_j' dx with phi_k' = -P_{k+1}.
func legendrePhi1Stiffness(_, _ *bases.Basis, b *builder) {
	b.diag(0, func(i int) float64 { return 2 / float64(2*i+3) })
}

func laguerreD1(_, _ *bases.Basis, b *builder) {
	b.diag(0, func(int) float64 { return -0.5 })
	for d := 1; d < b.cols; d++ {
		b.diag(d, func(int) float64 { return -1 })
	}
}

// laguerreDirichletStiffness uses phi_k' = (psi_k + psi_{k+1}) / 2.
func laguerreDirichletStiffness(_, _ *bases.Basis, b *builder) {
	b.diag(0, func(int) float64 { return 0.5 })
	b.diag(1, func(int) float64 { return 0.25 })
	b.diag(-1, func(int) float64 { return 0.25 })
}

func hermiteD1(_, _ *bases.Basis, b *builder) {
	b.diag(1, func(i int) float64 { return math.Sqrt(float64(i+1) / 2) })
	b.diag(-1, func(i int) float64 { return -math.Sqrt(float64(i+1) / 2) })
}

func hermiteStiffness(_, _ *bases.Basis, b *builder) {
	b.diag(0, func(i int) float64 { return float64(i) + 0.5 })
	b.diag(2, func(i int) float64 { return -math.Sqrt(float64((i+1)*(i+2))) / 2 })
	b.diag(-2, func(i int) float64 { return -math.Sqrt(float64((i+1)*(i+2))) / 2 })
}

// negate turns an integrated-by-parts (1,1) form into the matching (0,2)
// form for bases vanishing on the boundary.
func negate(f func(t, u *bases.Basis, b *builder)) func(t, u *bases.Basis, b *builder) {
	return func(t, u *bases.Basis, b *builder) {
		f(t, u, b)
		for _, v := range b.diags {
			for i := range v {
				v[i] = -v[i]
			}
		}
	}
}

// fourier is the diagonal operator of exp(i k x) modes:
// int conj(phi_k^(a)) phi_k^(b) dx = (i k)^b (-i k)^a L.
func fourier(t, _ *bases.Basis, a, c int) *matrix.SparseMatrix {
	var (
		L = t.Length()
		k = t.Wavenumbers()
		v = make([]float64, len(k))
	)
	for j, kk := range k {
		v[j] = utils.POW(t.PhysicalWavenumber(kk), a+c) * L
	}
	m := matrix.MustNew(len(k), len(k), map[int][]float64{0: v})
	m.SetScale(utils.IPow(c) * utils.IPow(3*a))
	return m.Simplify()
}
