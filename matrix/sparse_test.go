package matrix

import (
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/notargets/gospectral/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// stiffnessLike has the structure of the Chebyshev Dirichlet stiffness
// matrix: a diagonal plus a row-constant tail on every even offset.
func stiffnessLike(n int) *SparseMatrix {
	d := map[int][]float64{0: make([]float64, n)}
	for k := 0; k < n; k++ {
		d[0][k] = -2 * math.Pi * float64((k+1)*(k+2))
	}
	for off := 2; off < n; off += 2 {
		v := make([]float64, n-off)
		for k := range v {
			v[k] = -4 * math.Pi * float64(k+1)
		}
		d[off] = v
	}
	return MustNew(n, n, d)
}

func massLike(n int) *SparseMatrix {
	d0 := make([]float64, n)
	for k := range d0 {
		d0[k] = math.Pi
	}
	d0[0] = 3 * math.Pi / 2
	return MustNew(n, n, map[int][]float64{
		-2: {-math.Pi / 2},
		0:  d0,
		2:  {-math.Pi / 2},
	})
}

func pentaLike(n int) *SparseMatrix {
	d := make(map[int][]float64)
	for _, off := range []int{-4, -2, 0, 2, 4} {
		v := make([]float64, DiagLen(n, n, off))
		for i := range v {
			v[i] = 1 / float64(i+1+abs(off))
		}
		d[off] = v
	}
	for i := range d[0] {
		d[0][i] = float64(4 + i)
	}
	return MustNew(n, n, d)
}

func mustAdd(a, b *SparseMatrix) *SparseMatrix {
	c, err := a.Add(b)
	if err != nil {
		panic(err)
	}
	return c
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

func randomRect(rows, cols int, offs []int, seed int64) *SparseMatrix {
	rnd := rand.New(rand.NewSource(seed))
	d := make(map[int][]float64)
	for _, off := range offs {
		v := make([]float64, DiagLen(rows, cols, off))
		for i := range v {
			v[i] = rnd.Float64() - 0.5
		}
		d[off] = v
	}
	return MustNew(rows, cols, d)
}

func randomArray(seed int64, shape ...int) *utils.NDArray {
	rnd := rand.New(rand.NewSource(seed))
	a := utils.NewNDArray(shape...)
	for i := range a.Data {
		a.Data[i] = complex(rnd.Float64(), rnd.Float64())
	}
	return a
}

func TestNewAndAccess(t *testing.T) {
	m := massLike(6)
	assert.Equal(t, []int{-2, 0, 2}, m.Offsets())
	assert.Equal(t, 4, len(m.Diagonal(2)))
	assert.Equal(t, -math.Pi/2, m.At(2, 0))
	assert.Equal(t, -math.Pi/2, m.At(0, 2))
	assert.Equal(t, 0., m.At(0, 1))
	_, err := New(4, 4, map[int][]float64{1: {1, 2}})
	assert.True(t, errors.Is(err, utils.ErrShape))
	_, err = New(4, 4, map[int][]float64{5: {1}})
	assert.True(t, errors.Is(err, utils.ErrShape))

	A := m.ToDenseRaw()
	c := FromDense(A, 1.e-12)
	assert.True(t, c.Equal(m, 1.e-14))
	assert.Equal(t, m.Offsets(), c.Offsets())

	csr := m.ToCSR()
	r, cc := csr.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 6, cc)
	assert.Equal(t, m.At(0, 2), csr.Re.At(0, 2))

	sc := m.Copy()
	sc.SetScale(2i)
	D := sc.ToDense()
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			assert.Equal(t, sc.Entry(i, j), D.At(i, j))
		}
	}

	tr := randomRect(5, 7, []int{-1, 0, 3}, 1).Transpose()
	rows, cols := tr.Shape()
	assert.Equal(t, 7, rows)
	assert.Equal(t, 5, cols)
}

func TestAlgebra(t *testing.T) {
	m1 := stiffnessLike(8)
	m2 := massLike(8)

	m3 := m1.Mul(3)
	assert.Equal(t, complex(3, 0), m3.Scale())
	assert.Equal(t, complex(1, 0), m1.Scale())

	sum, err := m1.Add(m2)
	require.NoError(t, err)
	A1, A2, S := m1.ToDenseRaw(), m2.ToDenseRaw(), sum.ToDenseRaw()
	var expect mat.Dense
	expect.Add(A1, A2)
	assert.True(t, mat.EqualApprox(&expect, S, 1.e-12))

	diff, err := m1.Sub(m1)
	require.NoError(t, err)
	assert.True(t, diff.IsZero(1.e-12))
	assert.True(t, diff.Equal(Zeros(8, 8), 1.e-8))

	back := m1.Mul(2).Div(2)
	assert.True(t, back.Equal(m1, 1.e-8))

	// Different stored scales, same operator
	m4 := m1.Copy()
	for _, d := range m4.Offsets() {
		for i := range m4.Diagonal(d) {
			m4.Diagonal(d)[i] /= 4
		}
	}
	m4.SetScale(4)
	assert.True(t, m4.Equal(m1, 1.e-12))
	assert.False(t, m2.Equal(m1, 1.e-8))

	// In place merging with a rescale
	m5 := m2.Mul(2)
	require.NoError(t, m5.AddInPlace(m2))
	assert.True(t, m5.Equal(m2.Mul(3), 1.e-12))
	require.NoError(t, m5.SubInPlace(m2.Mul(3)))
	assert.True(t, m5.IsZero(1.e-12))
	m5 = m2.Copy().MulInPlace(5).DivInPlace(5)
	assert.True(t, m5.Equal(m2, 1.e-14))

	// A non-real scale ratio moves into the stored values
	deriv := MustNew(4, 4, map[int][]float64{0: {0, 1, 2, 3}, 1: {1, 1, 1}}).Mul(1i)
	mixed, err := deriv.Add(MustNew(4, 4, map[int][]float64{0: {1}}))
	require.NoError(t, err)
	assert.True(t, mixed.IsComplex())
	for k := 0; k < 4; k++ {
		assert.Equal(t, complex(1, float64(k)), mixed.Entry(k, k))
	}
	assert.Equal(t, complex128(1i), mixed.Entry(0, 1))
	back, err = mixed.Sub(deriv)
	require.NoError(t, err)
	assert.True(t, back.Equal(MustNew(4, 4, map[int][]float64{0: {1}}), 1.e-14))
	assert.True(t, mixed.Transpose().Transpose().Equal(mixed, 1.e-14))
	x := []complex128{1, -2i, 3, 1 + 1i}
	for _, f := range mixed.MatvecMethods() {
		y, err := mixed.MatvecLine(x, f)
		require.NoError(t, err)
		for i := range y {
			var want complex128
			for j := range x {
				want += mixed.Entry(i, j) * x[j]
			}
			assert.InDelta(t, 0, cmplx.Abs(y[i]-want), 1.e-13, "%v row %d", f, i)
		}
	}
	m6 := m2.Copy()
	require.NoError(t, m6.AddInPlace(m1.Mul(2+1i)))
	dense := m6.ToDense()
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			want := m2.Entry(i, j) + (2+1i)*m1.Entry(i, j)
			assert.InDelta(t, 0, cmplx.Abs(dense.At(i, j)-want), 1.e-12)
		}
	}
	_, err = m1.Add(massLike(6))
	assert.True(t, errors.Is(err, utils.ErrShape))
}

func TestMatvecFormats(t *testing.T) {
	mats := []*SparseMatrix{
		stiffnessLike(9),
		massLike(9),
		pentaLike(9),
		MustNew(9, 9, map[int][]float64{0: utils.Arange(9)}),
		randomRect(9, 9, []int{-3, -1, 0, 1, 5}, 2).Mul(2 - 1i),
		randomRect(7, 9, []int{-2, 0, 2}, 3),
	}
	for im, m := range mats {
		rows, cols := m.Shape()
		for ndim := 1; ndim <= 3; ndim++ {
			for axis := 0; axis < ndim; axis++ {
				s := append([]int{}, []int{3, 4, 2}[:ndim]...)
				s[axis] = cols
				x := randomArray(int64(im), s...)
				ref, err := m.Matvec(x, nil, FormatReference, axis)
				require.NoError(t, err)
				assert.Equal(t, rows, ref.Shape[axis])
				for _, f := range m.MatvecMethods() {
					out, err := m.Matvec(x, nil, f, axis)
					require.NoError(t, err)
					assert.InDeltaf(t, 0, out.MaxAbsDiff(ref), 1.e-8*math.Max(1, ref.MaxAbs()),
						"matrix %d format %v axis %d shape %v", im, f, axis, s)
				}
			}
		}
	}
	assert.Contains(t, stiffnessLike(9).MatvecMethods(), FormatUpperTail)
	assert.Contains(t, pentaLike(9).MatvecMethods(), FormatStride2)
	assert.Equal(t, FormatDiagonal, mats[3].MatvecMethods()[0])

	_, err := massLike(9).Matvec(utils.NewNDArray(8), nil, FormatAuto, 0)
	assert.True(t, errors.Is(err, utils.ErrShape))
	_, err = stiffnessLike(9).Matvec(utils.NewNDArray(9), nil, FormatDiagonal, 0)
	assert.True(t, errors.Is(err, utils.ErrNotImplemented))
	_, err = massLike(9).Matvec(utils.NewNDArray(9), utils.NewNDArray(8), FormatAuto, 0)
	assert.True(t, errors.Is(err, utils.ErrShape))
}

func TestSolve(t *testing.T) {
	helmholtz, err := stiffnessLike(12).Mul(-1).Add(massLike(12).Mul(3))
	require.NoError(t, err)
	mats := []*SparseMatrix{
		MustNew(6, 6, map[int][]float64{0: {1, 2, 3, 4, 5, 6}}),
		massLike(11),
		helmholtz,
		stiffnessLike(10),
		pentaLike(10),
		mustAdd(randomRect(8, 8, []int{-1, 0, 1, 3}, 4), MustNew(8, 8, map[int][]float64{0: {4}})),
		// zero diagonal forces pivoting
		MustNew(4, 4, map[int][]float64{-1: {1, 1, 1}, 1: {1, 1, 1}, 3: {0.5}}),
	}
	for im, m := range mats {
		n, _ := m.Shape()
		for _, shape := range [][]int{{n}, {3, n}} {
			axis := len(shape) - 1
			u := randomArray(int64(im), shape...)
			b, err := m.Matvec(u, nil, FormatDIA, axis)
			require.NoError(t, err)
			x, err := m.Solve(b, nil, axis)
			require.NoErrorf(t, err, "matrix %d", im)
			assert.InDeltaf(t, 0, x.MaxAbsDiff(u), 1.e-9, "matrix %d", im)
		}
	}
	// parity split and tail elimination are taken where they apply
	b, err := helmholtz.Band()
	require.NoError(t, err)
	f, err := Factorize(b)
	require.NoError(t, err)
	pf, ok := f.(*parityFactor)
	require.True(t, ok)
	_, ok = pf.even.(*tailFactor)
	assert.True(t, ok)

	_, err = randomRect(4, 5, []int{0}, 1).Solve(utils.NewNDArray(4), nil, 0)
	assert.True(t, errors.Is(err, utils.ErrShape))
	_, err = MustNew(3, 3, map[int][]float64{1: {1, 1}}).Solve(utils.NewNDArray(3), nil, 0)
	assert.True(t, errors.Is(err, utils.ErrSingular))
}

func TestSparseLU(t *testing.T) {
	A := utils.NewComplexDOK(3, 3)
	A.Accumulate(0, 1, 2)
	A.Accumulate(1, 0, 1i)
	A.Accumulate(1, 2, 1)
	A.Accumulate(2, 2, 3)
	A.Accumulate(2, 0, 1)
	csr := A.ToCSR()
	lu, err := NewSparseLUFromCSR(csr)
	require.NoError(t, err)
	u := []complex128{1, 2 - 1i, 3}
	b := csr.MulVec(u)
	x := make([]complex128, 3)
	require.NoError(t, lu.Solve(b, x))
	for i := range u {
		assert.InDelta(t, real(u[i]), real(x[i]), 1.e-13)
		assert.InDelta(t, imag(u[i]), imag(x[i]), 1.e-13)
	}
}
