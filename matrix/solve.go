package matrix

import (
	"errors"
	"fmt"
	"math/cmplx"

	"github.com/notargets/gospectral/utils"
)

// Factor is a factorized square system that can be solved repeatedly.
type Factor interface {
	Size() int
	Solve(b, x []complex128) error
}

// Factorize picks the cheapest direct method the structure of b admits:
// diagonal division, a parity split when every offset is even, O(N)
// elimination for a tridiagonal band with a row-constant upper tail, banded
// LU, and finally sparse LU with partial pivoting.
func Factorize(b *Band) (f Factor, err error) {
	if b.N == 0 {
		return diagFactor{}, nil
	}
	if b.IsDiagonal() {
		return newDiagFactor(b)
	}
	if b.AllEven() && b.N > 1 {
		return newParityFactor(b)
	}
	if f, err = newTailFactor(b); err == nil {
		return
	} else if !errors.Is(err, utils.ErrNotImplemented) && !errors.Is(err, utils.ErrSingular) {
		return
	}
	if f, err = newBandLU(b); err == nil {
		return
	} else if !errors.Is(err, utils.ErrSingular) {
		return
	}
	return NewSparseLU(b.N, b.Rows())
}

func pivotTolerance(b *Band) float64 {
	return 1.e-14 * b.MaxAbs()
}

type diagFactor struct {
	d []complex128
}

func newDiagFactor(b *Band) (f diagFactor, err error) {
	f.d = make([]complex128, b.N)
	tol := pivotTolerance(b)
	d0 := b.Diags[0]
	for i := range f.d {
		if d0 == nil || cmplx.Abs(d0[i]) <= tol {
			err = fmt.Errorf("%w: zero diagonal entry %d", utils.ErrSingular, i)
			return
		}
		f.d[i] = d0[i]
	}
	return
}

func (f diagFactor) Size() int { return len(f.d) }

func (f diagFactor) Solve(b, x []complex128) error {
	for i, d := range f.d {
		x[i] = b[i] / d
	}
	return nil
}

// parityFactor solves even and odd unknowns independently.
type parityFactor struct {
	n         int
	even, odd Factor
}

func newParityFactor(b *Band) (f *parityFactor, err error) {
	f = &parityFactor{n: b.N}
	if f.even, err = Factorize(b.Parity(0)); err != nil {
		return nil, err
	}
	if f.odd, err = Factorize(b.Parity(1)); err != nil {
		return nil, err
	}
	return
}

func (f *parityFactor) Size() int { return f.n }

func (f *parityFactor) Solve(b, x []complex128) (err error) {
	for p, sub := range []Factor{f.even, f.odd} {
		n := sub.Size()
		bs, xs := make([]complex128, n), make([]complex128, n)
		for i := range bs {
			bs[i] = b[p+2*i]
		}
		if err = sub.Solve(bs, xs); err != nil {
			return
		}
		for i := range xs {
			x[p+2*i] = xs[i]
		}
	}
	return
}

// tailFactor eliminates a system with one sub diagonal, one super diagonal
// and a row-constant tail on every offset >= 2. Eliminating the sub diagonal
// keeps the tail row-constant, so both sweeps are O(N) with suffix sums.
type tailFactor struct {
	n          int
	m, d, u, g []complex128
}

func newTailFactor(b *Band) (f *tailFactor, err error) {
	lower, upper := b.Bandwidth()
	if lower > 1 || (upper >= 2 && !b.tailFrom(2)) {
		return nil, fmt.Errorf("%w: no tail structure", utils.ErrNotImplemented)
	}
	n := b.N
	f = &tailFactor{
		n: n,
		m: make([]complex128, n), d: make([]complex128, n),
		u: make([]complex128, n), g: make([]complex128, n),
	}
	for i := 0; i < n; i++ {
		f.d[i] = b.At(i, i)
		if i+1 < n {
			f.u[i] = b.At(i, i+1)
		}
		if i+2 < n {
			f.g[i] = b.At(i, i+2)
		}
	}
	tol := pivotTolerance(b)
	for i := 1; i < n; i++ {
		if cmplx.Abs(f.d[i-1]) <= tol {
			return nil, fmt.Errorf("%w: zero pivot %d", utils.ErrSingular, i-1)
		}
		f.m[i] = b.At(i, i-1) / f.d[i-1]
		f.d[i] -= f.m[i] * f.u[i-1]
		f.u[i] -= f.m[i] * f.g[i-1]
		f.g[i] -= f.m[i] * f.g[i-1]
	}
	if cmplx.Abs(f.d[n-1]) <= tol {
		return nil, fmt.Errorf("%w: zero pivot %d", utils.ErrSingular, n-1)
	}
	return
}

func (f *tailFactor) Size() int { return f.n }

func (f *tailFactor) Solve(b, x []complex128) error {
	var (
		n      = f.n
		y      = make([]complex128, n)
		suffix = make([]complex128, n+2)
	)
	y[0] = b[0]
	for i := 1; i < n; i++ {
		y[i] = b[i] - f.m[i]*y[i-1]
	}
	for i := n - 1; i >= 0; i-- {
		s := y[i]
		if i+1 < n {
			s -= f.u[i] * x[i+1]
		}
		s -= f.g[i] * suffix[i+2]
		x[i] = s / f.d[i]
		suffix[i] = x[i] + suffix[i+1]
	}
	return nil
}

// bandLU is an LU factorization without pivoting stored row by row over the
// band, rows i hold columns i-kl .. i+ku.
type bandLU struct {
	n, kl, ku int
	ab        [][]complex128
}

func newBandLU(b *Band) (f *bandLU, err error) {
	kl, ku := b.Bandwidth()
	n := b.N
	f = &bandLU{n: n, kl: kl, ku: ku, ab: make([][]complex128, n)}
	for i := range f.ab {
		f.ab[i] = make([]complex128, kl+ku+1)
	}
	for d, v := range b.Diags {
		for i, a := range v {
			r, c := Position(i, d)
			f.ab[r][c-r+kl] = a
		}
	}
	tol := pivotTolerance(b)
	for k := 0; k < n; k++ {
		pivot := f.ab[k][kl]
		if cmplx.Abs(pivot) <= tol {
			return nil, fmt.Errorf("%w: zero pivot %d", utils.ErrSingular, k)
		}
		for i := k + 1; i <= min(n-1, k+kl); i++ {
			fac := f.ab[i][k-i+kl] / pivot
			f.ab[i][k-i+kl] = fac
			for j := k + 1; j <= min(n-1, k+ku); j++ {
				f.ab[i][j-i+kl] -= fac * f.ab[k][j-k+kl]
			}
		}
	}
	return
}

func (f *bandLU) Size() int { return f.n }

func (f *bandLU) Solve(b, x []complex128) error {
	y := make([]complex128, f.n)
	for i := 0; i < f.n; i++ {
		s := b[i]
		for k := max(0, i-f.kl); k < i; k++ {
			s -= f.ab[i][k-i+f.kl] * y[k]
		}
		y[i] = s
	}
	for i := f.n - 1; i >= 0; i-- {
		s := y[i]
		for j := i + 1; j <= min(f.n-1, i+f.ku); j++ {
			s -= f.ab[i][j-i+f.kl] * x[j]
		}
		x[i] = s / f.ab[i][f.kl]
	}
	return nil
}

// Factorize factors the scaled square matrix.
func (m *SparseMatrix) Factorize() (f Factor, err error) {
	b, err := m.Band()
	if err != nil {
		return
	}
	return Factorize(b)
}

// Solve solves M u = b along axis of b. A nil out is allocated.
func (m *SparseMatrix) Solve(b, out *utils.NDArray, axis int) (*utils.NDArray, error) {
	if axis < 0 || axis >= b.Ndim() {
		return nil, fmt.Errorf("%w: axis %d for array of rank %d", utils.ErrShape, axis, b.Ndim())
	}
	if !m.IsSquare() || b.Shape[axis] != m.rows {
		return nil, fmt.Errorf("%w: (%d, %d) matrix against axis length %d",
			utils.ErrShape, m.rows, m.cols, b.Shape[axis])
	}
	if out == nil {
		out = utils.NewNDArray(b.Shape...)
	} else if !utils.SameShape(out.Shape, b.Shape) {
		return nil, fmt.Errorf("%w: output shape %v, expected %v", utils.ErrShape, out.Shape, b.Shape)
	}
	f, err := m.Factorize()
	if err != nil {
		return nil, err
	}
	return SolveAxis(f, b, out, axis)
}

// SolveAxis applies a factorization to every line of b along axis.
func SolveAxis(f Factor, b, out *utils.NDArray, axis int) (*utils.NDArray, error) {
	r, err := b.MapAxis(axis, f.Size(), func(in, o []complex128) error {
		return f.Solve(in, o)
	})
	if err != nil {
		return nil, err
	}
	copy(out.Data, r.Data)
	return out, nil
}
