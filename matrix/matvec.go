package matrix

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/notargets/gospectral/utils"
	"gonum.org/v1/gonum/mat"
)

// Format selects a matrix-vector product strategy. All formats give the
// same result; they differ in cost and in the structure they require.
type Format uint8

const (
	FormatAuto      Format = iota
	FormatDiagonal         // main diagonal only
	FormatStride2          // offsets within {-4, -2, 0, 2, 4}
	FormatUpperTail        // band plus a row-constant upper tail, O(N) via suffix sums
	FormatDIA              // loop over stored diagonals
	FormatCSR              // compressed sparse rows
	FormatDense            // dense gonum product
	FormatReference        // explicit shifted-array accumulation
)

var formatNames = [...]string{"auto", "diagonal", "stride2", "uppertail", "dia", "csr", "dense", "reference"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

func ParseFormat(s string) (f Format, err error) {
	for i, name := range formatNames {
		if strings.EqualFold(name, s) {
			return Format(i), nil
		}
	}
	err = fmt.Errorf("unknown matvec format %q", s)
	return
}

// tail describes an upper tail: for every row i the entries at offsets
// start, start+stride, ... up to the last column all equal g[i].
type tail struct {
	start, stride int
	chain         []int
	band          []int
}

func (m *SparseMatrix) upperTail() (tl tail, ok bool) {
	var (
		offs = m.Offsets()
		has  = make(map[int]bool, len(offs))
	)
	for _, d := range offs {
		has[d] = true
	}
	for _, stride := range []int{1, 2} {
		for _, t := range offs {
			if t <= 0 {
				continue
			}
			var chain []int
			complete := true
			for d := t; d <= m.cols-1; d += stride {
				if !has[d] {
					complete = false
					break
				}
				chain = append(chain, d)
			}
			if !complete || len(chain) < 2 || !m.rowConstant(chain) {
				continue
			}
			inChain := make(map[int]bool, len(chain))
			for _, d := range chain {
				inChain[d] = true
			}
			var band []int
			for _, d := range offs {
				if !inChain[d] {
					band = append(band, d)
				}
			}
			return tail{start: t, stride: stride, chain: chain, band: band}, true
		}
	}
	return
}

func (m *SparseMatrix) rowConstant(chain []int) bool {
	g := m.diags[chain[0]]
	tol := 1.e-12 * math.Max(utils.MaxAbs(g), 1.e-300)
	for _, d := range chain[1:] {
		v := m.diags[d]
		for i := range v {
			if math.Abs(v[i]-g[i]) > tol {
				return false
			}
		}
	}
	return true
}

func (m *SparseMatrix) fitsStride2() bool {
	for d := range m.diags {
		if d%2 != 0 || d < -4 || d > 4 {
			return false
		}
	}
	return true
}

// MatvecMethods lists the formats that apply to this matrix, fastest first.
func (m *SparseMatrix) MatvecMethods() (fs []Format) {
	if !m.IsComplex() {
		return m.realMethods()
	}
	im := m.imagPart().realMethods()
	for _, f := range m.realMethods() {
		if slices.Contains(im, f) {
			fs = append(fs, f)
		}
	}
	return
}

func (m *SparseMatrix) realMethods() (fs []Format) {
	if m.IsDiagonal() {
		fs = append(fs, FormatDiagonal)
	}
	if m.fitsStride2() {
		fs = append(fs, FormatStride2)
	}
	if _, ok := m.upperTail(); ok {
		fs = append(fs, FormatUpperTail)
	}
	return append(fs, FormatDIA, FormatCSR, FormatDense, FormatReference)
}

// kernel multiplies one line by the unscaled matrix, out must be zeroed.
type kernel func(x, out []complex128)

func (m *SparseMatrix) kernel(format Format) (k kernel, err error) {
	if format == FormatAuto {
		format = m.MatvecMethods()[0]
	}
	if k, err = m.realKernel(format); err != nil || !m.IsComplex() {
		return
	}
	ki, err := m.imagPart().realKernel(format)
	if err != nil {
		return nil, err
	}
	tmp := make([]complex128, m.rows)
	return func(x, out []complex128) {
		k(x, out)
		clear(tmp)
		ki(x, tmp)
		for i, v := range tmp {
			out[i] += 1i * v
		}
	}, nil
}

// realKernel applies the real part of the stored values.
func (m *SparseMatrix) realKernel(format Format) (k kernel, err error) {
	switch format {
	case FormatDiagonal:
		if !m.IsDiagonal() {
			break
		}
		return m.diagonalKernel(), nil
	case FormatStride2:
		if !m.fitsStride2() {
			break
		}
		return m.stride2Kernel(), nil
	case FormatUpperTail:
		tl, ok := m.upperTail()
		if !ok {
			break
		}
		return m.upperTailKernel(tl), nil
	case FormatDIA:
		return m.diaKernel(m.Offsets()), nil
	case FormatCSR:
		return m.csrKernel(), nil
	case FormatDense:
		return m.denseKernel(), nil
	case FormatReference:
		return m.referenceKernel(), nil
	}
	err = fmt.Errorf("%w: format %v for matrix with offsets %v", utils.ErrNotImplemented, format, m.Offsets())
	return
}

func (m *SparseMatrix) diagonalKernel() kernel {
	d0 := m.diags[0]
	return func(x, out []complex128) {
		for i, v := range d0 {
			out[i] = complex(v, 0) * x[i]
		}
	}
}

func (m *SparseMatrix) stride2Kernel() kernel {
	var (
		offs  = m.Offsets()
		diags = make([][]float64, len(offs))
	)
	for n, d := range offs {
		diags[n] = m.diags[d]
	}
	return func(x, out []complex128) {
		for i := 0; i < m.rows; i++ {
			var s complex128
			for n, d := range offs {
				k := i
				if d < 0 {
					k = i + d
				}
				if k >= 0 && k < len(diags[n]) {
					s += complex(diags[n][k], 0) * x[i+d]
				}
			}
			out[i] = s
		}
	}
}

func (m *SparseMatrix) diaKernel(offs []int) kernel {
	return func(x, out []complex128) {
		for _, d := range offs {
			for i, v := range m.diags[d] {
				r, c := Position(i, d)
				out[r] += complex(v, 0) * x[c]
			}
		}
	}
}

func (m *SparseMatrix) upperTailKernel(tl tail) kernel {
	var (
		band = m.diaKernel(tl.band)
		g    = m.diags[tl.start]
	)
	return func(x, out []complex128) {
		band(x, out)
		suffix := make([]complex128, m.cols+tl.stride)
		for j := m.cols - 1; j >= 0; j-- {
			suffix[j] = x[j] + suffix[j+tl.stride]
		}
		for i := range g {
			out[i] += complex(g[i], 0) * suffix[i+tl.start]
		}
	}
}

func (m *SparseMatrix) csrKernel() kernel {
	A := utils.NewDOK(m.rows, m.cols)
	for d, v := range m.diags {
		for i, x := range v {
			if x != 0 {
				r, c := Position(i, d)
				A.Set(r, c, x)
			}
		}
	}
	csr := A.ToCSR()
	return func(x, out []complex128) {
		xr, xi := utils.SplitComplex(x)
		yr, yi := csr.MulVec(xr), csr.MulVec(xi)
		for i := range out {
			out[i] = complex(yr[i], yi[i])
		}
	}
}

func (m *SparseMatrix) denseKernel() kernel {
	A := m.ToDenseRaw()
	return func(x, out []complex128) {
		if m.rows == 0 || m.cols == 0 {
			return
		}
		xr, xi := utils.SplitComplex(x)
		var yr, yi mat.VecDense
		yr.MulVec(A, mat.NewVecDense(len(xr), xr))
		yi.MulVec(A, mat.NewVecDense(len(xi), xi))
		for i := range out {
			out[i] = complex(yr.AtVec(i), yi.AtVec(i))
		}
	}
}

// referenceKernel shifts the operand against each diagonal explicitly.
func (m *SparseMatrix) referenceKernel() kernel {
	offs := m.Offsets()
	sort.Ints(offs)
	return func(x, out []complex128) {
		for _, d := range offs {
			v := m.diags[d]
			shifted := make([]complex128, m.rows)
			for r := 0; r < m.rows; r++ {
				if c := r + d; c >= 0 && c < m.cols {
					shifted[r] = x[c]
				}
			}
			start := 0
			if d < 0 {
				start = -d
			}
			for i := range v {
				out[start+i] += complex(v[i], 0) * shifted[start+i]
			}
		}
	}
}

// Matvec computes out = scale * M * x along axis of x. A nil out is
// allocated. The returned array is out.
func (m *SparseMatrix) Matvec(x, out *utils.NDArray, format Format, axis int) (*utils.NDArray, error) {
	if axis < 0 || axis >= x.Ndim() {
		return nil, fmt.Errorf("%w: axis %d for array of rank %d", utils.ErrShape, axis, x.Ndim())
	}
	if x.Shape[axis] != m.cols {
		return nil, fmt.Errorf("%w: matrix has %d columns, operand axis %d has length %d",
			utils.ErrShape, m.cols, axis, x.Shape[axis])
	}
	outShape := utils.ShapeWith(x.Shape, axis, m.rows)
	if out == nil {
		out = utils.NewNDArray(outShape...)
	} else if !utils.SameShape(out.Shape, outShape) {
		return nil, fmt.Errorf("%w: output shape %v, expected %v", utils.ErrShape, out.Shape, outShape)
	}
	k, err := m.kernel(format)
	if err != nil {
		return nil, err
	}
	r, err := x.MapAxis(axis, m.rows, func(in, o []complex128) error {
		k(in, o)
		for i := range o {
			o[i] *= m.scale
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	copy(out.Data, r.Data)
	return out, nil
}

// MatvecLine multiplies a single vector.
func (m *SparseMatrix) MatvecLine(x []complex128, format Format) (y []complex128, err error) {
	if len(x) != m.cols {
		return nil, fmt.Errorf("%w: matrix has %d columns, vector has length %d", utils.ErrShape, m.cols, len(x))
	}
	k, err := m.kernel(format)
	if err != nil {
		return
	}
	y = make([]complex128, m.rows)
	k(x, y)
	for i := range y {
		y[i] *= m.scale
	}
	return
}
