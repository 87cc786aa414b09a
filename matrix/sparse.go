package matrix

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
	"strings"

	"github.com/notargets/gospectral/utils"
	"gonum.org/v1/gonum/mat"
)

// SparseMatrix is a banded operator stored as diagonals keyed by offset, with
// a lazily applied scale. For offset d >= 0 element i of the diagonal sits at
// (i, i+d); for d < 0 it sits at (i-d, i). Stored values are real unless a
// sum with a non-real scale ratio adds an imaginary part, kept in idiags
// under offsets that are always present in diags.
type SparseMatrix struct {
	diags      map[int][]float64
	idiags     map[int][]float64
	rows, cols int
	scale      complex128
	key        string
}

// DiagLen is the number of elements on diagonal d of a rows x cols matrix.
func DiagLen(rows, cols, d int) int {
	var n int
	if d >= 0 {
		n = min(rows, cols-d)
	} else {
		n = min(rows+d, cols)
	}
	return max(n, 0)
}

// Position returns the (row, col) of element i on diagonal d.
func Position(i, d int) (row, col int) {
	if d >= 0 {
		return i, i + d
	}
	return i - d, i
}

// New builds a matrix from its diagonals. A diagonal of length one is
// broadcast along the full diagonal. The map is owned by the matrix.
func New(rows, cols int, diags map[int][]float64) (m *SparseMatrix, err error) {
	if rows < 0 || cols < 0 {
		err = fmt.Errorf("%w: negative shape (%d, %d)", utils.ErrShape, rows, cols)
		return
	}
	if diags == nil {
		diags = make(map[int][]float64)
	}
	for d, v := range diags {
		n := DiagLen(rows, cols, d)
		switch {
		case n == 0:
			err = fmt.Errorf("%w: offset %d outside a %dx%d matrix", utils.ErrShape, d, rows, cols)
			return
		case len(v) == 1 && n > 1:
			diags[d] = utils.ConstArray(n, v[0])
		case len(v) != n:
			err = fmt.Errorf("%w: offset %d has %d values, expected %d", utils.ErrShape, d, len(v), n)
			return
		}
	}
	m = &SparseMatrix{diags: diags, rows: rows, cols: cols, scale: 1}
	return
}

// MustNew panics on error. Used for static tables.
func MustNew(rows, cols int, diags map[int][]float64) *SparseMatrix {
	m, err := New(rows, cols, diags)
	if err != nil {
		panic(err)
	}
	return m
}

func Zeros(rows, cols int) *SparseMatrix {
	return &SparseMatrix{diags: make(map[int][]float64), rows: rows, cols: cols, scale: 1}
}

// FromDense compresses A, dropping diagonals whose largest entry is below
// tol times the largest entry of A.
func FromDense(A mat.Matrix, tol float64) (m *SparseMatrix) {
	var (
		rows, cols = A.Dims()
		maxA       float64
	)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			maxA = math.Max(maxA, math.Abs(A.At(i, j)))
		}
	}
	m = Zeros(rows, cols)
	if maxA == 0 {
		return
	}
	for d := -(rows - 1); d < cols; d++ {
		n := DiagLen(rows, cols, d)
		if n == 0 {
			continue
		}
		v := make([]float64, n)
		for i := range v {
			r, c := Position(i, d)
			v[i] = A.At(r, c)
		}
		if utils.MaxAbs(v) > tol*maxA {
			m.diags[d] = v
		}
	}
	return
}

func (m *SparseMatrix) Shape() (rows, cols int) { return m.rows, m.cols }
func (m *SparseMatrix) Scale() complex128       { return m.scale }
func (m *SparseMatrix) Key() string             { return m.key }
func (m *SparseMatrix) SetKey(key string)       { m.key = key }
func (m *SparseMatrix) IsSquare() bool          { return m.rows == m.cols }

// SetScale replaces the lazy scale.
func (m *SparseMatrix) SetScale(c complex128) { m.scale = c }

func (m *SparseMatrix) Offsets() (offs []int) {
	offs = make([]int, 0, len(m.diags))
	for d := range m.diags {
		offs = append(offs, d)
	}
	sort.Ints(offs)
	return
}

// Diagonal returns the real part of the stored (unscaled) diagonal at
// offset d, or nil.
func (m *SparseMatrix) Diagonal(d int) []float64 { return m.diags[d] }

// IsComplex reports whether the stored values have an imaginary part.
func (m *SparseMatrix) IsComplex() bool { return len(m.idiags) != 0 }

// stored returns element i of stored diagonal d.
func (m *SparseMatrix) stored(d, i int) complex128 {
	if im, ok := m.idiags[d]; ok {
		return complex(m.diags[d][i], im[i])
	}
	return complex(m.diags[d][i], 0)
}

// ScaledDiagonal returns diagonal d with the scale applied.
func (m *SparseMatrix) ScaledDiagonal(d int) (v []complex128) {
	raw, ok := m.diags[d]
	if !ok {
		return nil
	}
	v = make([]complex128, len(raw))
	for i := range raw {
		v[i] = m.scale * m.stored(d, i)
	}
	return
}

// index returns the diagonal position of (i, j).
func (m *SparseMatrix) index(i, j int) (d, k int, ok bool) {
	d = j - i
	v, found := m.diags[d]
	if !found {
		return
	}
	k = i
	if d < 0 {
		k = j
	}
	ok = k >= 0 && k < len(v)
	return
}

// At returns the real part of the stored (unscaled) entry (i, j).
func (m *SparseMatrix) At(i, j int) float64 {
	if d, k, ok := m.index(i, j); ok {
		return m.diags[d][k]
	}
	return 0
}

// Entry returns the scaled entry (i, j).
func (m *SparseMatrix) Entry(i, j int) complex128 {
	if d, k, ok := m.index(i, j); ok {
		return m.scale * m.stored(d, k)
	}
	return 0
}

func (m *SparseMatrix) Copy() *SparseMatrix {
	c := &SparseMatrix{
		diags: make(map[int][]float64, len(m.diags)),
		rows:  m.rows, cols: m.cols, scale: m.scale, key: m.key,
	}
	for d, v := range m.diags {
		c.diags[d] = append([]float64{}, v...)
	}
	if m.IsComplex() {
		c.idiags = make(map[int][]float64, len(m.idiags))
		for d, v := range m.idiags {
			c.idiags[d] = append([]float64{}, v...)
		}
	}
	return c
}

// imagPart returns the imaginary part of the stored values as a real
// matrix with the same offsets and a unit scale.
func (m *SparseMatrix) imagPart() *SparseMatrix {
	r := Zeros(m.rows, m.cols)
	for d, v := range m.diags {
		if im, ok := m.idiags[d]; ok {
			r.diags[d] = append([]float64{}, im...)
		} else {
			r.diags[d] = make([]float64, len(v))
		}
	}
	return r
}

// Simplify folds a real scale into the stored values.
func (m *SparseMatrix) Simplify() *SparseMatrix {
	if !utils.IsReal(m.scale) || m.scale == 1 {
		return m
	}
	s := real(m.scale)
	for _, dm := range []map[int][]float64{m.diags, m.idiags} {
		for _, v := range dm {
			for i := range v {
				v[i] *= s
			}
		}
	}
	m.scale = 1
	return m
}

// IsDiagonal reports whether only the main diagonal is stored.
func (m *SparseMatrix) IsDiagonal() bool {
	for d := range m.diags {
		if d != 0 {
			return false
		}
	}
	return true
}

// AllEven reports whether every stored offset is even.
func (m *SparseMatrix) AllEven() bool {
	for d := range m.diags {
		if d%2 != 0 {
			return false
		}
	}
	return true
}

func (m *SparseMatrix) Bandwidth() (lower, upper int) {
	for d := range m.diags {
		if d < 0 {
			lower = max(lower, -d)
		} else {
			upper = max(upper, d)
		}
	}
	return
}

// MaxAbs is the largest scaled entry in absolute value.
func (m *SparseMatrix) MaxAbs() (r float64) {
	for d, v := range m.diags {
		if !m.IsComplex() {
			r = math.Max(r, utils.MaxAbs(v))
			continue
		}
		for i := range v {
			r = math.Max(r, cmplx.Abs(m.stored(d, i)))
		}
	}
	return r * cmplx.Abs(m.scale)
}

// ToDenseRaw returns the real part of the unscaled entries as a gonum
// matrix.
func (m *SparseMatrix) ToDenseRaw() (A *mat.Dense) {
	A = mat.NewDense(max(m.rows, 1), max(m.cols, 1), nil)
	for d, v := range m.diags {
		for i, x := range v {
			r, c := Position(i, d)
			A.Set(r, c, x)
		}
	}
	return
}

// ToDense returns the scaled entries as a complex gonum matrix.
func (m *SparseMatrix) ToDense() (A *mat.CDense) {
	A = mat.NewCDense(max(m.rows, 1), max(m.cols, 1), nil)
	for d, v := range m.diags {
		for i := range v {
			r, c := Position(i, d)
			A.Set(r, c, m.scale*m.stored(d, i))
		}
	}
	return
}

// ToDOK converts the scaled matrix to a dictionary of keys sparse matrix.
func (m *SparseMatrix) ToDOK() (A utils.ComplexDOK) {
	A = utils.NewComplexDOK(m.rows, m.cols)
	for d, v := range m.diags {
		for i := range v {
			x := m.stored(d, i)
			if x == 0 {
				continue
			}
			r, c := Position(i, d)
			A.Accumulate(r, c, m.scale*x)
		}
	}
	return
}

// ToCSR converts the scaled matrix to compressed sparse row form.
func (m *SparseMatrix) ToCSR() utils.ComplexCSR { return m.ToDOK().ToCSR() }

func (m *SparseMatrix) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SparseMatrix %s (%dx%d) scale=%v\n", m.key, m.rows, m.cols, m.scale)
	for _, d := range m.Offsets() {
		fmt.Fprintf(&sb, "  %3d: %v\n", d, m.diags[d])
		if im, ok := m.idiags[d]; ok {
			fmt.Fprintf(&sb, "   im: %v\n", im)
		}
	}
	return sb.String()
}
