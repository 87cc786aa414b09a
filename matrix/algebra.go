package matrix

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/notargets/gospectral/utils"
)

// Mul returns a copy of m scaled by c.
func (m *SparseMatrix) Mul(c complex128) *SparseMatrix {
	r := m.Copy()
	r.scale *= c
	return r
}

// Div returns a copy of m divided by c.
func (m *SparseMatrix) Div(c complex128) *SparseMatrix {
	r := m.Copy()
	r.scale /= c
	return r
}

func (m *SparseMatrix) MulInPlace(c complex128) *SparseMatrix {
	m.scale *= c
	return m
}

func (m *SparseMatrix) DivInPlace(c complex128) *SparseMatrix {
	m.scale /= c
	return m
}

// Add returns m + o.
func (m *SparseMatrix) Add(o *SparseMatrix) (r *SparseMatrix, err error) {
	r = m.Copy()
	if err = r.AddInPlace(o); err != nil {
		return nil, err
	}
	return
}

// Sub returns m - o.
func (m *SparseMatrix) Sub(o *SparseMatrix) (r *SparseMatrix, err error) {
	r = m.Copy()
	if err = r.SubInPlace(o); err != nil {
		return nil, err
	}
	return
}

func (m *SparseMatrix) SubInPlace(o *SparseMatrix) error {
	return m.addScaled(o, -1)
}

// AddInPlace merges the diagonals of o into m. The stored scale of m is kept
// and the diagonals of o are rescaled by the ratio of the two scales. A
// non-real ratio gives m an imaginary part.
func (m *SparseMatrix) AddInPlace(o *SparseMatrix) error {
	return m.addScaled(o, 1)
}

func (m *SparseMatrix) addScaled(o *SparseMatrix, sign float64) (err error) {
	if m.rows != o.rows || m.cols != o.cols {
		return fmt.Errorf("%w: (%d, %d) and (%d, %d)", utils.ErrShape, m.rows, m.cols, o.rows, o.cols)
	}
	if o.scale == 0 {
		return
	}
	if m.scale == 0 {
		for _, v := range m.diags {
			for i := range v {
				v[i] = 0
			}
		}
		m.idiags = nil
		m.scale = o.scale
	}
	var (
		ratio    = complex(sign, 0) * o.scale / m.scale
		realOnly = utils.IsReal(ratio) && !o.IsComplex()
	)
	for d, v := range o.diags {
		cur, ok := m.diags[d]
		if !ok {
			cur = make([]float64, len(v))
			m.diags[d] = cur
		}
		if realOnly {
			r := real(ratio)
			for i, x := range v {
				cur[i] += r * x
			}
			continue
		}
		im := m.imagDiagonal(d)
		for i := range v {
			z := ratio * o.stored(d, i)
			cur[i] += real(z)
			im[i] += imag(z)
		}
	}
	if m.key != o.key {
		m.key = ""
	}
	return
}

// Equal compares the fully scaled entries of two matrices. Diagonals that
// are negligible in both are ignored, so m-m equals the zero matrix.
func (m *SparseMatrix) Equal(o *SparseMatrix, tol float64) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	var (
		ref   = math.Max(1, math.Max(m.MaxAbs(), o.MaxAbs()))
		limit = tol * ref
	)
	offsets := make(map[int]bool)
	for d := range m.diags {
		offsets[d] = true
	}
	for d := range o.diags {
		offsets[d] = true
	}
	for d := range offsets {
		a, b := m.ScaledDiagonal(d), o.ScaledDiagonal(d)
		n := max(len(a), len(b))
		for i := 0; i < n; i++ {
			var x, y complex128
			if a != nil {
				x = a[i]
			}
			if b != nil {
				y = b[i]
			}
			if cmplx.Abs(x-y) > limit {
				return false
			}
		}
	}
	return true
}

// IsZero reports whether every scaled entry is within tol of zero.
func (m *SparseMatrix) IsZero(tol float64) bool {
	return m.MaxAbs() <= tol
}

// Transpose returns the transposed matrix.
func (m *SparseMatrix) Transpose() *SparseMatrix {
	r := Zeros(m.cols, m.rows)
	r.scale = m.scale
	for d, v := range m.diags {
		r.diags[-d] = append([]float64{}, v...)
	}
	for d, v := range m.idiags {
		r.imagDiagonal(-d)
		r.idiags[-d] = append([]float64{}, v...)
	}
	return r
}

// imagDiagonal returns the imaginary part of stored diagonal d, allocating
// it when absent. Diagonal d must exist.
func (m *SparseMatrix) imagDiagonal(d int) []float64 {
	if m.idiags == nil {
		m.idiags = make(map[int][]float64)
	}
	im, ok := m.idiags[d]
	if !ok {
		im = make([]float64, len(m.diags[d]))
		m.idiags[d] = im
	}
	return im
}
