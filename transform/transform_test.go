package transform

import (
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxDiff(a, b []complex128) (m float64) {
	for i := range a {
		m = math.Max(m, cmplx.Abs(a[i]-b[i]))
	}
	return
}

func randomCoefficients(b *bases.Basis, r *rand.Rand) (c []complex128) {
	c = make([]complex128, b.Dim())
	for k := range c {
		c[k] = complex(r.NormFloat64(), r.NormFloat64())
	}
	if b.IsReal() {
		c[0] = complex(real(c[0]), 0)
		if b.N()%2 == 0 {
			c[len(c)-1] = complex(real(c[len(c)-1]), 0)
		}
	}
	return
}

func TestRoundTrip(t *testing.T) {
	type tcase struct {
		family bases.Family
		n      int
		opts   []bases.Option
	}
	cases := []tcase{
		{bases.Chebyshev, 12, nil},
		{bases.Chebyshev, 12, []bases.Option{bases.WithQuad(bases.GL)}},
		{bases.Chebyshev, 13, []bases.Option{bases.WithQuad(bases.GL), bases.WithBC(bases.Dirichlet)}},
		{bases.Chebyshev, 12, []bases.Option{bases.WithBC(bases.Biharmonic), bases.WithDomain(0, 3)}},
		{bases.Legendre, 11, []bases.Option{bases.WithBC(bases.Dirichlet), bases.Scaled()}},
		{bases.Legendre, 10, []bases.Option{bases.WithQuad(bases.GL), bases.WithBC(bases.Neumann)}},
		{bases.Jacobi, 9, []bases.Option{bases.WithJacobiParams(0.5, 1)}},
		{bases.Laguerre, 10, []bases.Option{bases.WithBC(bases.Dirichlet)}},
		{bases.Hermite, 10, nil},
		{bases.Fourier, 8, nil},
		{bases.Fourier, 9, []bases.Option{bases.WithDomain(-1, 2)}},
		{bases.Fourier, 8, []bases.Option{bases.Real()}},
		{bases.Fourier, 7, []bases.Option{bases.Real()}},
		{bases.Fourier, 1, nil},
	}
	r := rand.New(rand.NewSource(7))
	for _, effort := range []Effort{Estimate, Measure} {
		p := NewPlanner(Config{Effort: effort})
		for _, tc := range cases {
			b, err := bases.New(tc.family, tc.n, tc.opts...)
			require.NoError(t, err)
			ax, err := p.Plan(b)
			require.NoError(t, err, "%v", b)
			var (
				c    = randomCoefficients(b, r)
				u    = make([]complex128, ax.PhysicalLen())
				back = make([]complex128, ax.SpectralLen())
			)
			require.NoError(t, ax.Backward(c, u))
			require.NoError(t, ax.Forward(u, back))
			assert.Lessf(t, maxDiff(c, back), 1.e-9, "%v via %s", b, ax.Method())

			// Backward agrees with direct evaluation at the mesh points
			want, err := b.Evaluate(b.Mesh(), c)
			require.NoError(t, err)
			assert.Lessf(t, maxDiff(want, u), 1.e-9, "%v via %s", b, ax.Method())
		}
	}
}

func TestDCTMatchesVandermonde(t *testing.T) {
	b, err := bases.New(bases.Chebyshev, 9, bases.WithQuad(bases.GL), bases.WithDomain(1, 4))
	require.NoError(t, err)
	var (
		dct  = newChebyshevDCT(b)
		r    = rand.New(rand.NewSource(3))
		u    = make([]complex128, 9)
		a, c = make([]complex128, 9), make([]complex128, 9)
	)
	v, err := newVandermonde(b)
	require.NoError(t, err)
	for i := range u {
		u[i] = complex(r.Float64(), r.Float64())
	}
	require.NoError(t, dct.Forward(u, a))
	require.NoError(t, v.Forward(u, c))
	assert.Less(t, maxDiff(a, c), 1.e-12)
	require.NoError(t, dct.ScalarProduct(u, a))
	require.NoError(t, v.ScalarProduct(u, c))
	assert.Less(t, maxDiff(a, c), 1.e-12)
	require.NoError(t, dct.Backward(c, a))
	require.NoError(t, v.Backward(c, u))
	assert.Less(t, maxDiff(a, u), 1.e-12)
}

func TestFourierCoefficients(t *testing.T) {
	p := NewPlanner(DefaultConfig())
	b, err := bases.New(bases.Fourier, 8)
	require.NoError(t, err)
	ax, err := p.Plan(b)
	require.NoError(t, err)
	assert.Equal(t, "fft-c2c", ax.Method())
	var (
		x = b.Mesh()
		u = make([]complex128, 8)
		c = make([]complex128, 8)
		s = make([]complex128, 8)
	)
	for i, xi := range x {
		u[i] = cmplx.Exp(complex(0, -3*xi))
	}
	require.NoError(t, ax.Forward(u, c))
	require.NoError(t, ax.ScalarProduct(u, s))
	for j, k := range b.Wavenumbers() {
		want := 0.
		if k == -3 {
			want = 1
		}
		assert.InDelta(t, want, cmplx.Abs(c[j]), 1.e-13)
		assert.InDelta(t, 2*math.Pi*want, cmplx.Abs(s[j]), 1.e-12)
	}

	b, err = bases.New(bases.Fourier, 8, bases.Real())
	require.NoError(t, err)
	ax, err = p.Plan(b)
	require.NoError(t, err)
	assert.Equal(t, "fft-r2c", ax.Method())
	c = make([]complex128, 5)
	for i, xi := range x {
		u[i] = complex(math.Cos(2*xi), 0)
	}
	require.NoError(t, ax.Forward(u, c))
	assert.InDelta(t, 0.5, real(c[2]), 1.e-13)
	assert.InDelta(t, 0, cmplx.Abs(c[1]), 1.e-13)
}

func TestLegendreScalarProduct(t *testing.T) {
	b, err := bases.New(bases.Legendre, 6, bases.WithDomain(0, 4))
	require.NoError(t, err)
	ax, err := NewPlanner(DefaultConfig()).Plan(b)
	require.NoError(t, err)
	var (
		u = []complex128{1, 1, 1, 1, 1, 1}
		s = make([]complex128, 6)
	)
	require.NoError(t, ax.ScalarProduct(u, s))
	assert.InDelta(t, 4., real(s[0]), 1.e-12)
	for k := 1; k < 6; k++ {
		assert.InDelta(t, 0., cmplx.Abs(s[k]), 1.e-12)
	}
	err = ax.Forward(u[:5], s)
	assert.True(t, errors.Is(err, utils.ErrShape))
}

func TestParseEffort(t *testing.T) {
	e, err := ParseEffort("MEASURE")
	assert.NoError(t, err)
	assert.Equal(t, Measure, e)
	assert.Equal(t, "estimate", Estimate.String())
	_, err = ParseEffort("exhaustive")
	assert.Error(t, err)
}
