package assembly

import (
	"errors"
	"math"
	"testing"

	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/matrix"
	"github.com/notargets/gospectral/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newBasis(t *testing.T, family bases.Family, n int, opts ...bases.Option) *bases.Basis {
	b, err := bases.New(family, n, opts...)
	require.NoError(t, err)
	return b
}

func TestKeyNames(t *testing.T) {
	var (
		SD = Side{Family: bases.Chebyshev, BC: bases.Dirichlet}
		SB = Side{Family: bases.Legendre, BC: bases.Biharmonic}
		T  = Side{Family: bases.Chebyshev}
	)
	with := func(s Side, d int) Side { s.Deriv = d; return s }
	assert.Equal(t, "BSDSDmat", Key{Test: SD, Trial: SD}.String())
	assert.Equal(t, "ASDSDmat", Key{Test: SD, Trial: with(SD, 2)}.String())
	assert.Equal(t, "A1SDSDmat", Key{Test: with(SD, 1), Trial: with(SD, 1)}.String())
	assert.Equal(t, "SSBSBmat", Key{Test: SB, Trial: with(SB, 4)}.String())
	assert.Equal(t, "S2SBSBmat", Key{Test: with(SB, 2), Trial: with(SB, 2)}.String())
	assert.Equal(t, "CTTmat", Key{Test: T, Trial: with(T, 1)}.String())
	assert.Equal(t, "BTTmat(r)", Key{Test: T, Trial: T, Measure: R(1)}.String())
	assert.Equal(t, "BTTmat(1/r)", Key{Test: T, Trial: T, Measure: R(-1)}.String())
	assert.Equal(t, "M63TTmat", Key{Test: with(T, 3), Trial: with(T, 3)}.String())
	assert.Equal(t, "r^2", R(2).Name())

	scaled := SD
	scaled.Family, scaled.Scaled = bases.Legendre, true
	plain := scaled
	plain.Scaled = false
	assert.Equal(t, Key{Test: scaled, Trial: scaled}.String(), Key{Test: plain, Trial: plain}.String())
	assert.NotEqual(t, Key{Test: scaled, Trial: scaled}, Key{Test: plain, Trial: plain})
}

// Every registered closed form must agree with quadrature.
func TestRegistrySanity(t *testing.T) {
	e := NewEngine()
	keys := e.Registry().Keys()
	require.NotEmpty(t, keys)
	for _, key := range keys {
		for _, n := range []int{10, 13} {
			assert.NoErrorf(t, e.CheckSanity(key, n, 1.e-8), "%s (scaled=%v) N=%d", key,
				key.Test.Scaled, n)
		}
	}
}

func TestClosedFormsOnMappedDomain(t *testing.T) {
	e := NewEngine()
	for _, family := range []bases.Family{bases.Chebyshev, bases.Legendre} {
		sd := newBasis(t, family, 12, bases.WithBC(bases.Dirichlet), bases.WithDomain(-2, 3))
		for _, d := range [][2]int{{0, 0}, {0, 1}, {0, 2}} {
			err := e.CheckPair(Operand{sd, d[0]}, Operand{sd, d[1]}, 1.e-8)
			if errors.Is(err, utils.ErrNotImplemented) {
				continue
			}
			assert.NoErrorf(t, err, "%v %v", family, d)
		}
	}
	f := newBasis(t, bases.Fourier, 10, bases.WithDomain(0, 3))
	assert.NoError(t, e.CheckPair(Operand{f, 1}, Operand{f, 2}, 1.e-8))
}

func TestWrongClosedFormFails(t *testing.T) {
	var (
		b   = newBasis(t, bases.Legendre, 10)
		key = KeyFor(Operand{b, 0}, Operand{b, 0}, Unit)
		bad = func(test, trial *bases.Basis, _, _ int) *matrix.SparseMatrix {
			return matrix.MustNew(test.Dim(), trial.Dim(), map[int][]float64{0: {1}})
		}
		e = NewEngine(WithRegistry(DefaultRegistry().Extend(key, bad)))
	)
	err := e.CheckSanity(key, 10, 1.e-8)
	assert.True(t, errors.Is(err, utils.ErrSanity), "%v", err)
	// The shared registry is unchanged.
	assert.NoError(t, NewEngine().CheckSanity(key, 10, 1.e-8))
}

func TestMassIsPositiveDefinite(t *testing.T) {
	e := NewEngine()
	for _, family := range []bases.Family{bases.Chebyshev, bases.Legendre} {
		sd := newBasis(t, family, 14, bases.WithBC(bases.Dirichlet))
		B, err := e.Assemble(Operand{sd, 0}, Operand{sd, 0}, Unit)
		require.NoError(t, err)
		assert.Equal(t, "BSDSDmat", B.Key())
		dense := B.ToDenseRaw()
		n, _ := dense.Dims()
		require.Equal(t, 12, n)
		sym := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				assert.InDelta(t, dense.At(i, j), dense.At(j, i), 1.e-12)
				sym.SetSym(i, j, dense.At(i, j))
			}
		}
		var eig mat.EigenSym
		require.True(t, eig.Factorize(sym, false))
		assert.Greater(t, eig.Values(nil)[0], 0.)
	}
}

func TestScaledLegendreStiffness(t *testing.T) {
	var (
		e  = NewEngine()
		sd = newBasis(t, bases.Legendre, 8, bases.WithBC(bases.Dirichlet), bases.Scaled())
	)
	A, err := e.Assemble(Operand{sd, 1}, Operand{sd, 1}, Unit)
	require.NoError(t, err)
	assert.Equal(t, "A1SDSDmat", A.Key())
	ones := utils.NewNDArray(sd.Dim()).Fill(1)
	y, err := A.Matvec(ones, nil, matrix.FormatAuto, 0)
	require.NoError(t, err)
	for _, v := range y.Data {
		assert.InDelta(t, 1., real(v), 1.e-12)
	}
	A2, err := e.Assemble(Operand{sd, 0}, Operand{sd, 2}, Unit)
	require.NoError(t, err)
	assert.True(t, A2.Equal(A.Mul(-1), 1.e-12))
}

func TestFourierEntries(t *testing.T) {
	var (
		e = NewEngine()
		f = newBasis(t, bases.Fourier, 8)
		L = 2 * math.Pi
	)
	k := f.Wavenumbers()
	B, err := e.Assemble(Operand{f, 0}, Operand{f, 0}, Unit)
	require.NoError(t, err)
	C, err := e.Assemble(Operand{f, 0}, Operand{f, 1}, Unit)
	require.NoError(t, err)
	A, err := e.Assemble(Operand{f, 0}, Operand{f, 2}, Unit)
	require.NoError(t, err)
	A1, err := e.Assemble(Operand{f, 1}, Operand{f, 1}, Unit)
	require.NoError(t, err)
	for j, kk := range k {
		fk := float64(kk)
		assert.InDelta(t, L, real(B.Entry(j, j)), 1.e-12)
		assert.InDelta(t, 0, real(C.Entry(j, j)), 1.e-12)
		assert.InDelta(t, fk*L, imag(C.Entry(j, j)), 1.e-12)
		assert.InDelta(t, -fk*fk*L, real(A.Entry(j, j)), 1.e-12)
		assert.InDelta(t, fk*fk*L, real(A1.Entry(j, j)), 1.e-12)
	}
	assert.True(t, C.IsDiagonal())

	_, err = e.Assemble(Operand{f, 0}, Operand{f, 0}, R(1))
	assert.True(t, errors.Is(err, utils.ErrNotImplemented))
}

func TestAssembleErrors(t *testing.T) {
	var (
		e  = NewEngine()
		a  = newBasis(t, bases.Chebyshev, 8)
		b  = newBasis(t, bases.Chebyshev, 10)
		l  = newBasis(t, bases.Legendre, 8)
		d2 = newBasis(t, bases.Chebyshev, 8, bases.WithDomain(0, 2))
	)
	for _, pair := range [][2]*bases.Basis{{a, b}, {a, l}, {a, d2}} {
		_, err := e.Assemble(Operand{pair[0], 0}, Operand{pair[1], 0}, Unit)
		assert.True(t, errors.Is(err, utils.ErrNotImplemented), "%v", err)
	}
	_, err := e.Assemble(Operand{a, -1}, Operand{a, 0}, Unit)
	assert.Error(t, err)
}

func TestQuadratureFallback(t *testing.T) {
	var (
		e  = NewEngine()
		sd = newBasis(t, bases.Legendre, 10, bases.WithBC(bases.Dirichlet), bases.WithDomain(0, 1))
	)
	assert.False(t, e.Registry().HasClosedForm(KeyFor(Operand{sd, 0}, Operand{sd, 0}, R(1))))
	Br, err := e.Assemble(Operand{sd, 0}, Operand{sd, 0}, R(1))
	require.NoError(t, err)
	assert.Equal(t, "BSDSDmat(r)", Br.Key())
	// x phi_j couples phi_k for |k-j| <= 3 only.
	assert.Greater(t, Br.At(0, 0), 0.)
	lo, hi := Br.Bandwidth()
	assert.Equal(t, lo, hi)
	assert.LessOrEqual(t, hi, 3)
	assert.True(t, Br.Equal(Br.Transpose(), 1.e-12))

	// Mixed derivative orders without a closed form go through quadrature too.
	C1, err := e.Assemble(Operand{sd, 1}, Operand{sd, 0}, Unit)
	require.NoError(t, err)
	C, err := e.Assemble(Operand{sd, 0}, Operand{sd, 1}, Unit)
	require.NoError(t, err)
	assert.True(t, C1.Equal(C.Transpose(), 1.e-12))
	sum, err := C1.Add(C)
	require.NoError(t, err)
	assert.True(t, sum.IsZero(1.e-12))
}
