package matrix

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/notargets/gospectral/utils"
)

// Band is a square complex matrix stored by diagonals, the working form of
// the per-mode systems assembled by the solvers.
type Band struct {
	N     int
	Diags map[int][]complex128
}

func NewBand(n int) *Band {
	return &Band{N: n, Diags: make(map[int][]complex128)}
}

// Band returns the scaled matrix in complex diagonal form.
func (m *SparseMatrix) Band() (b *Band, err error) {
	if !m.IsSquare() {
		err = fmt.Errorf("%w: band form needs a square matrix, got (%d, %d)", utils.ErrShape, m.rows, m.cols)
		return
	}
	b = NewBand(m.rows)
	err = b.AddScaled(m, 1)
	return
}

// Combine returns sum_i coefs[i] * mats[i].
func Combine(mats []*SparseMatrix, coefs []complex128) (b *Band, err error) {
	if len(mats) == 0 || len(mats) != len(coefs) {
		err = fmt.Errorf("%w: %d matrices and %d coefficients", utils.ErrShape, len(mats), len(coefs))
		return
	}
	b = NewBand(mats[0].rows)
	for i, m := range mats {
		if err = b.AddScaled(m, coefs[i]); err != nil {
			return nil, err
		}
	}
	return
}

// AddScaled accumulates c*m into b.
func (b *Band) AddScaled(m *SparseMatrix, c complex128) error {
	if m.rows != b.N || m.cols != b.N {
		return fmt.Errorf("%w: (%d, %d) matrix added to band of size %d", utils.ErrShape, m.rows, m.cols, b.N)
	}
	s := c * m.scale
	if s == 0 {
		return nil
	}
	for d, v := range m.diags {
		cur, ok := b.Diags[d]
		if !ok {
			cur = make([]complex128, len(v))
			b.Diags[d] = cur
		}
		for i := range v {
			cur[i] += s * m.stored(d, i)
		}
	}
	return nil
}

func (b *Band) Offsets() (offs []int) {
	for d := range b.Diags {
		offs = append(offs, d)
	}
	sort.Ints(offs)
	return
}

func (b *Band) At(i, j int) complex128 {
	d := j - i
	v, ok := b.Diags[d]
	if !ok {
		return 0
	}
	k := i
	if d < 0 {
		k = j
	}
	return v[k]
}

func (b *Band) MaxAbs() (r float64) {
	for _, v := range b.Diags {
		r = math.Max(r, utils.MaxAbsComplex(v))
	}
	return
}

// MulVec computes y = B x.
func (b *Band) MulVec(x, y []complex128) {
	for i := range y[:b.N] {
		y[i] = 0
	}
	for d, v := range b.Diags {
		for i, a := range v {
			r, c := Position(i, d)
			y[r] += a * x[c]
		}
	}
}

func (b *Band) AllEven() bool {
	for d := range b.Diags {
		if d%2 != 0 {
			return false
		}
	}
	return true
}

func (b *Band) IsDiagonal() bool {
	for d := range b.Diags {
		if d != 0 {
			return false
		}
	}
	return true
}

func (b *Band) Bandwidth() (lower, upper int) {
	for d := range b.Diags {
		if d < 0 {
			lower = max(lower, -d)
		} else {
			upper = max(upper, d)
		}
	}
	return
}

// Parity extracts the rows and columns p, p+2, p+4, ... of a band whose
// offsets are all even. Element i of every sub diagonal is element p+2i of
// the parent diagonal.
func (b *Band) Parity(p int) (s *Band) {
	n := (b.N - p + 1) / 2
	s = NewBand(n)
	for d, v := range b.Diags {
		sd := d / 2
		ln := DiagLen(n, n, sd)
		if ln == 0 {
			continue
		}
		sv := make([]complex128, ln)
		for i := range sv {
			sv[i] = v[p+2*i]
		}
		s.Diags[sd] = sv
	}
	return
}

// Rows returns the matrix as row maps for the sparse LU.
func (b *Band) Rows() (rows []map[int]complex128) {
	rows = make([]map[int]complex128, b.N)
	for i := range rows {
		rows[i] = make(map[int]complex128)
	}
	for d, v := range b.Diags {
		for i, a := range v {
			if a != 0 {
				r, c := Position(i, d)
				rows[r][c] = a
			}
		}
	}
	return
}

// tailFrom reports whether every offset >= start is present up to N-1 and
// row-constant.
func (b *Band) tailFrom(start int) bool {
	g, ok := b.Diags[start]
	if !ok {
		return false
	}
	tol := 1.e-12 * math.Max(utils.MaxAbsComplex(g), 1.e-300)
	for d := start + 1; d <= b.N-1; d++ {
		v, ok := b.Diags[d]
		if !ok {
			return false
		}
		for i := range v {
			if cmplx.Abs(v[i]-g[i]) > tol {
				return false
			}
		}
	}
	return true
}
