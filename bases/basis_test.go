package bases

import (
	"errors"
	"math"
	"testing"

	"github.com/notargets/gospectral/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestNewBasis(t *testing.T) {
	b, err := New(Legendre, 10, WithBC(Dirichlet), WithDomain(0, 2))
	require.NoError(t, err)
	assert.Equal(t, 8, b.Dim())
	assert.Equal(t, "SD", b.Short())
	assert.Equal(t, LG, b.Quad())
	assert.Equal(t, 1., b.DomainFactor())
	assert.InDelta(t, 2., b.Map(1), 1.e-15)
	assert.InDelta(t, -1., b.InverseMap(0), 1.e-15)

	b, err = New(Fourier, 8, Real())
	require.NoError(t, err)
	assert.Equal(t, 5, b.Dim())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, b.Wavenumbers())
	b, err = New(Fourier, 8)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, -4, -3, -2, -1}, b.Wavenumbers())
	assert.Equal(t, "F", b.Short())

	b, err = New(Chebyshev, 12, WithBC(Biharmonic))
	require.NoError(t, err)
	assert.Equal(t, 8, b.Dim())
	assert.Equal(t, GC, b.Quad())

	_, err = New(Laguerre, 8, WithBC(Phi2))
	assert.True(t, errors.Is(err, utils.ErrNotImplemented))
	_, err = New(Legendre, 8, WithBC(Phi4))
	assert.Error(t, err)
	_, err = New(Hermite, 8, WithBC(Dirichlet))
	assert.True(t, errors.Is(err, utils.ErrNotImplemented))
	_, err = New(Chebyshev, 8, WithQuad(LG))
	assert.True(t, errors.Is(err, utils.ErrNotImplemented))
	_, err = New(Chebyshev, 8, WithDomain(1, -1))
	assert.Error(t, err)
	_, err = New(Legendre, 3, WithBC(Biharmonic))
	assert.Error(t, err)
	_, err = New(Chebyshev, 8, WithBC(Dirichlet), Scaled())
	assert.True(t, errors.Is(err, utils.ErrNotImplemented))
}

func TestParse(t *testing.T) {
	f, err := ParseFamily("legendre")
	assert.NoError(t, err)
	assert.Equal(t, Legendre, f)
	bc, err := ParseBC("SB")
	assert.NoError(t, err)
	assert.Equal(t, Biharmonic, bc)
	q, err := ParseQuad("gl")
	assert.NoError(t, err)
	assert.Equal(t, GL, q)
	_, err = ParseFamily("bessel")
	assert.Error(t, err)
}

// Every composite basis must satisfy its homogeneous boundary conditions.
func TestStencilBoundaryConditions(t *testing.T) {
	type check struct {
		x     float64
		deriv int
	}
	both := func(derivs ...int) (c []check) {
		for _, d := range derivs {
			c = append(c, check{-1, d}, check{1, d})
		}
		return
	}
	conditions := map[BC][]check{
		Dirichlet:             both(0),
		Neumann:               both(1),
		Biharmonic:            both(0, 1),
		UpperDirichlet:        {{1, 0}},
		LowerDirichlet:        {{-1, 0}},
		DirichletNeumann:      {{-1, 0}, {1, 1}},
		NeumannDirichlet:      {{-1, 1}, {1, 0}},
		UpperDirichletNeumann: {{1, 0}, {1, 1}},
		LowerDirichletNeumann: {{-1, 0}, {-1, 1}},
		CompactDirichlet:      both(0),
		CompactNeumann:        both(1),
		Phi1:                  both(0),
		Phi2:                  both(0, 1),
		Phi3:                  both(0, 1, 2),
		Phi4:                  both(0, 1, 2, 3),
	}
	satisfies := func(b *Basis, checks []check) {
		var (
			K    = b.StencilMatrix()
			kmax = math.Max(1, mat.Norm(K, math.Inf(1)))
		)
		for _, c := range checks {
			V, err := b.Vandermonde([]float64{c.x}, c.deriv)
			require.NoError(t, err)
			P := b.OrthogonalVandermonde([]float64{c.x}, b.N(), c.deriv)
			tol := 1.e-10 * kmax * math.Max(1, utils.MaxAbs(mat.Row(nil, 0, P)))
			for k := 0; k < b.Dim(); k++ {
				assert.InDeltaf(t, 0, V.At(0, k), tol, "%v k=%d x=%v deriv=%d", b, k, c.x, c.deriv)
			}
		}
	}
	for _, family := range []Family{Chebyshev, Legendre, Jacobi} {
		for _, bc := range SupportedBCs(family) {
			if bc == Orthogonal {
				continue
			}
			checks, ok := conditions[bc]
			require.Truef(t, ok, "%v", bc)
			b, err := New(family, 12, WithBC(bc))
			require.NoErrorf(t, err, "%v %v", family, bc)
			assert.Equal(t, 12-bc.NumConstraints(), b.Dim())
			satisfies(b, checks)
		}
	}
	for _, bc := range []BC{CompactDirichlet, CompactNeumann, Phi2} {
		b, err := New(Jacobi, 12, WithBC(bc), WithJacobiParams(0.5, -0.3))
		require.NoError(t, err)
		satisfies(b, conditions[bc])
	}

	b, err := New(Laguerre, 10, WithBC(Dirichlet))
	require.NoError(t, err)
	assert.Equal(t, 9, b.Dim())
	satisfies(b, []check{{0, 0}})
	b, err = New(Laguerre, 10, WithBC(CompactNeumann))
	require.NoError(t, err)
	assert.Equal(t, 9, b.Dim())
	assert.Equal(t, "CN", b.Short())
	satisfies(b, []check{{0, 1}})
}

func TestStencilShapes(t *testing.T) {
	b, err := New(Legendre, 12, WithBC(Phi2))
	require.NoError(t, err)
	assert.Equal(t, 4, b.StencilWidth())
	offs, coefs := b.Stencil(3)
	// Legendre phi_2 functions are even in the parent index offsets
	assert.Equal(t, []int{0, 2, 4}, offs)
	assert.Len(t, coefs, 3)

	b, err = New(Chebyshev, 12, WithBC(Phi1))
	require.NoError(t, err)
	_, coefs = b.Stencil(1)
	assert.InDelta(t, 1/(2*math.Pi), coefs[0], 1.e-15)
	assert.InDelta(t, -1/(2*math.Pi), coefs[1], 1.e-15)
	assert.Equal(t, 2, b.StencilWidth())

	b, err = New(Jacobi, 12, WithBC(Phi4))
	require.NoError(t, err)
	assert.Equal(t, 8, b.StencilWidth())
	assert.Equal(t, 4, b.Dim())
	assert.Equal(t, "P4", b.Short())

	for _, s := range []string{"CD", "compactneumann", "UDN", "ldn", "phi3"} {
		_, err = ParseBC(s)
		assert.NoErrorf(t, err, s)
	}
	bc, _ := ParseBC("P4")
	assert.Equal(t, Phi4, bc)
	assert.Equal(t, 8, bc.NumConstraints())
	assert.Equal(t, "UpperDirichletNeumann", UpperDirichletNeumann.String())
}

func TestGaussRules(t *testing.T) {
	{ // Legendre-Gauss integrates x^(2M-2) exactly
		X, W := JacobiGQ(0, 0, 5)
		assert.InDelta(t, 2., floats.Sum(W), 1.e-13)
		var s float64
		for i, x := range X {
			s += W[i] * utils.POW(x, 10)
		}
		assert.InDelta(t, 2./11., s, 1.e-13)
	}
	{ // Legendre Gauss-Lobatto
		b, _ := New(Legendre, 7, WithQuad(GL))
		X, W := b.NativePoints()
		assert.InDelta(t, -1., X[0], 1.e-15)
		assert.InDelta(t, 1., X[6], 1.e-15)
		assert.InDelta(t, 2., floats.Sum(W), 1.e-13)
		var s float64
		for i, x := range X {
			s += W[i] * utils.POW(x, 8)
		}
		assert.InDelta(t, 2./9., s, 1.e-13)
	}
	{ // Chebyshev rules integrate with weight 1/sqrt(1-x^2)
		for _, q := range []Quad{GC, GL} {
			b, _ := New(Chebyshev, 9, WithQuad(q))
			X, W := b.NativePoints()
			var s float64
			for i, x := range X {
				s += W[i] * x * x
			}
			assert.InDelta(t, math.Pi/2, s, 1.e-13)
		}
	}
	{ // Jacobi orthonormality
		b, _ := New(Jacobi, 6, WithJacobiParams(1, 0.5))
		X, W, err := b.GaussRule(8)
		require.NoError(t, err)
		V := b.OrthogonalVandermonde(X, 6, 0)
		M := mat.NewDense(6, 6, nil)
		Wd := mat.NewDiagDense(len(W), W)
		var tmp mat.Dense
		tmp.Mul(V.T(), Wd)
		M.Mul(&tmp, V)
		for i := 0; i < 6; i++ {
			for j := 0; j < 6; j++ {
				expect := 0.
				if i == j {
					expect = 1
				}
				assert.InDelta(t, expect, M.At(i, j), 1.e-11)
			}
		}
	}
	{ // Laguerre and Hermite functions are orthonormal under their rules
		for _, family := range []Family{Laguerre, Hermite} {
			b, _ := New(family, 8)
			X, W, err := b.GaussRule(12)
			require.NoError(t, err)
			V := b.OrthogonalVandermonde(X, 8, 0)
			for i := 0; i < 8; i++ {
				for j := 0; j < 8; j++ {
					var s float64
					for q := range X {
						s += W[q] * V.At(q, i) * V.At(q, j)
					}
					expect := 0.
					if i == j {
						expect = 1
					}
					assert.InDeltaf(t, expect, s, 1.e-9, "%v (%d,%d)", family, i, j)
				}
			}
		}
	}
}

func TestDerivatives(t *testing.T) {
	// T_3 = 4x^3 - 3x, P_3 = (5x^3 - 3x)/2
	p := evalThreeTerm(0.3, 4, 2, chebyshevRec)
	assert.InDelta(t, 4*0.027-0.9, p[0][3], 1.e-14)
	assert.InDelta(t, 12*0.09-3, p[1][3], 1.e-14)
	assert.InDelta(t, 24*0.3, p[2][3], 1.e-14)
	p = evalThreeTerm(0.3, 4, 1, legendreRec)
	assert.InDelta(t, (5*0.027-0.9)/2, p[0][3], 1.e-14)
	assert.InDelta(t, (15*0.09-3)/2, p[1][3], 1.e-14)

	// Hermite function derivative against a central difference
	b, _ := New(Hermite, 6)
	h := 1.e-5
	V1 := b.OrthogonalVandermonde([]float64{0.7}, 6, 1)
	Vp := b.OrthogonalVandermonde([]float64{0.7 + h}, 6, 0)
	Vm := b.OrthogonalVandermonde([]float64{0.7 - h}, 6, 0)
	for k := 0; k < 6; k++ {
		assert.InDelta(t, (Vp.At(0, k)-Vm.At(0, k))/(2*h), V1.At(0, k), 1.e-8)
	}
	// Laguerre function derivative
	b, _ = New(Laguerre, 6)
	V1 = b.OrthogonalVandermonde([]float64{1.3}, 6, 1)
	Vp = b.OrthogonalVandermonde([]float64{1.3 + h}, 6, 0)
	Vm = b.OrthogonalVandermonde([]float64{1.3 - h}, 6, 0)
	for k := 0; k < 6; k++ {
		assert.InDelta(t, (Vp.At(0, k)-Vm.At(0, k))/(2*h), V1.At(0, k), 1.e-8)
	}
	// Mapped domain scales derivatives
	b, _ = New(Chebyshev, 4, WithDomain(0, 4))
	V, err := b.Vandermonde([]float64{0.5}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, V.At(0, 1), 1.e-14)
}

func TestEvaluateFourier(t *testing.T) {
	b, _ := New(Fourier, 8, Real())
	c := make([]complex128, b.Dim())
	c[1] = 0.5
	u, err := b.Evaluate([]float64{0, math.Pi / 2}, c)
	require.NoError(t, err)
	assert.InDelta(t, 1., real(u[0]), 1.e-14)
	assert.InDelta(t, 0., real(u[1]), 1.e-14)
}
