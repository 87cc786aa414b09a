package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
)

type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims and At minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }

func (m *DOK) SetReadOnly(name ...string) {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
}

func (m DOK) Set(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, val)
}

// Accumulate adds val to entry (i, j).
func (m DOK) Accumulate(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:    m.M.ToCSR(),
		name: m.name,
	}
}

type CSR struct {
	M    *sparse.CSR
	name string
}

func (m CSR) Dims() (r, c int)    { return m.M.Dims() }
func (m CSR) At(i, j int) float64 { return m.M.At(i, j) }
func (m CSR) NNZ() int            { return m.M.NNZ() }

func (m CSR) DoNonZero(fn func(i, j int, v float64)) { m.M.DoNonZero(fn) }

// MulVec returns A*x as a new slice.
func (m CSR) MulVec(x []float64) (y []float64) {
	var (
		nr, nc = m.Dims()
	)
	if len(x) != nc {
		panic(fmt.Errorf("%w: CSR %s has %d columns, vector has length %d", ErrShape, m.name, nc, len(x)))
	}
	y = make([]float64, nr)
	m.M.MulVecTo(y, false, x)
	return
}

// ComplexDOK holds a complex sparse matrix as two real DOK matrices.
type ComplexDOK struct {
	Re, Im DOK
}

func NewComplexDOK(nr, nc int) ComplexDOK {
	return ComplexDOK{Re: NewDOK(nr, nc), Im: NewDOK(nr, nc)}
}

func (m ComplexDOK) Dims() (r, c int) { return m.Re.Dims() }

func (m ComplexDOK) Accumulate(i, j int, v complex128) {
	if real(v) != 0 {
		m.Re.Accumulate(i, j, real(v))
	}
	if imag(v) != 0 {
		m.Im.Accumulate(i, j, imag(v))
	}
}

func (m ComplexDOK) ToCSR() ComplexCSR {
	return ComplexCSR{Re: m.Re.ToCSR(), Im: m.Im.ToCSR()}
}

type ComplexCSR struct {
	Re, Im CSR
}

func (m ComplexCSR) Dims() (r, c int) { return m.Re.Dims() }

func (m ComplexCSR) MulVec(x []complex128) (y []complex128) {
	var (
		nr, _  = m.Dims()
		xr, xi = SplitComplex(x)
	)
	rr, ri := m.Re.MulVec(xr), m.Re.MulVec(xi)
	ir, ii := m.Im.MulVec(xr), m.Im.MulVec(xi)
	y = make([]complex128, nr)
	for i := range y {
		y[i] = complex(rr[i]-ii[i], ri[i]+ir[i])
	}
	return
}

// Rows returns the nonzero pattern row by row.
func (m ComplexCSR) Rows() (rows []map[int]complex128) {
	nr, _ := m.Dims()
	rows = make([]map[int]complex128, nr)
	for i := range rows {
		rows[i] = make(map[int]complex128)
	}
	m.Re.DoNonZero(func(i, j int, v float64) { rows[i][j] += complex(v, 0) })
	m.Im.DoNonZero(func(i, j int, v float64) { rows[i][j] += complex(0, v) })
	return
}

func SplitComplex(x []complex128) (re, im []float64) {
	re, im = make([]float64, len(x)), make([]float64, len(x))
	for i, v := range x {
		re[i], im[i] = real(v), imag(v)
	}
	return
}
