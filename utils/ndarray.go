package utils

import (
	"fmt"
	"math"
	"math/cmplx"
)

// NDArray is a dense row-major array of complex128 values. It carries both
// spectral coefficients and physical samples; real valued fields simply keep
// a zero imaginary part.
type NDArray struct {
	Shape []int
	Data  []complex128
}

func NewNDArray(shape ...int) (a *NDArray) {
	a = &NDArray{
		Shape: append([]int{}, shape...),
		Data:  make([]complex128, ShapeSize(shape)),
	}
	return
}

func NewNDArrayFrom(data []complex128, shape ...int) (a *NDArray, err error) {
	if len(data) != ShapeSize(shape) {
		err = fmt.Errorf("%w: data length %d does not match shape %v", ErrShape, len(data), shape)
		return
	}
	a = &NDArray{Shape: append([]int{}, shape...), Data: data}
	return
}

// NewNDArrayReal copies real values into a new array.
func NewNDArrayReal(data []float64, shape ...int) (a *NDArray, err error) {
	if len(data) != ShapeSize(shape) {
		err = fmt.Errorf("%w: data length %d does not match shape %v", ErrShape, len(data), shape)
		return
	}
	a = NewNDArray(shape...)
	for i, v := range data {
		a.Data[i] = complex(v, 0)
	}
	return
}

func ShapeSize(shape []int) (n int) {
	n = 1
	for _, s := range shape {
		n *= s
	}
	return
}

// ShapeWith returns a copy of shape with shape[axis] replaced by n.
func ShapeWith(shape []int, axis, n int) (s []int) {
	s = append([]int{}, shape...)
	s[axis] = n
	return
}

func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (a *NDArray) Size() int { return len(a.Data) }
func (a *NDArray) Ndim() int { return len(a.Shape) }

func (a *NDArray) Copy() *NDArray {
	return &NDArray{
		Shape: append([]int{}, a.Shape...),
		Data:  append([]complex128{}, a.Data...),
	}
}

func (a *NDArray) Zero() *NDArray {
	for i := range a.Data {
		a.Data[i] = 0
	}
	return a
}

func (a *NDArray) Fill(v complex128) *NDArray {
	for i := range a.Data {
		a.Data[i] = v
	}
	return a
}

func (a *NDArray) Strides() (st []int) {
	st = make([]int, len(a.Shape))
	s := 1
	for i := len(a.Shape) - 1; i >= 0; i-- {
		st[i] = s
		s *= a.Shape[i]
	}
	return
}

func (a *NDArray) Offset(idx ...int) (off int) {
	if len(idx) != len(a.Shape) {
		panic(fmt.Errorf("index %v has wrong rank for shape %v", idx, a.Shape))
	}
	for i, ind := range idx {
		if ind < 0 || ind >= a.Shape[i] {
			panic(fmt.Errorf("index %v out of range for shape %v", idx, a.Shape))
		}
		off = off*a.Shape[i] + ind
	}
	return
}

// Unravel converts a flat offset into a multi-index.
func (a *NDArray) Unravel(flat int) (idx []int) {
	idx = make([]int, len(a.Shape))
	for i := len(a.Shape) - 1; i >= 0; i-- {
		idx[i] = flat % a.Shape[i]
		flat /= a.Shape[i]
	}
	return
}

func (a *NDArray) At(idx ...int) complex128       { return a.Data[a.Offset(idx...)] }
func (a *NDArray) Set(v complex128, idx ...int)   { a.Data[a.Offset(idx...)] = v }
func (a *NDArray) AddAt(v complex128, idx ...int) { a.Data[a.Offset(idx...)] += v }

// LineLayout describes the one dimensional lines running along axis: there
// are outer*inner lines of length n, and element k of line (o, i) lives at
// o*n*inner + k*inner + i.
func (a *NDArray) LineLayout(axis int) (outer, n, inner int) {
	if axis < 0 || axis >= len(a.Shape) {
		panic(fmt.Errorf("axis %d out of range for shape %v", axis, a.Shape))
	}
	outer, inner = 1, 1
	for i := 0; i < axis; i++ {
		outer *= a.Shape[i]
	}
	for i := axis + 1; i < len(a.Shape); i++ {
		inner *= a.Shape[i]
	}
	n = a.Shape[axis]
	return
}

func (a *NDArray) GetLine(axis, o, i int, dst []complex128) []complex128 {
	_, n, inner := a.LineLayout(axis)
	if len(dst) < n {
		dst = make([]complex128, n)
	}
	base := o*n*inner + i
	for k := 0; k < n; k++ {
		dst[k] = a.Data[base+k*inner]
	}
	return dst[:n]
}

func (a *NDArray) SetLine(axis, o, i int, src []complex128) {
	_, n, inner := a.LineLayout(axis)
	base := o*n*inner + i
	for k := 0; k < n; k++ {
		a.Data[base+k*inner] = src[k]
	}
}

// ForEachLine calls fn for every line along axis.
func (a *NDArray) ForEachLine(axis int, fn func(o, i int)) {
	outer, _, inner := a.LineLayout(axis)
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			fn(o, i)
		}
	}
}

// MapAxis applies fn to every line of a along axis and writes the results
// into a new array whose axis length is nOut.
func (a *NDArray) MapAxis(axis, nOut int, fn func(in, out []complex128) error) (r *NDArray, err error) {
	var (
		outer, n, inner = a.LineLayout(axis)
		in              = make([]complex128, n)
		out             = make([]complex128, nOut)
	)
	r = NewNDArray(ShapeWith(a.Shape, axis, nOut)...)
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			a.GetLine(axis, o, i, in)
			for k := range out {
				out[k] = 0
			}
			if err = fn(in, out); err != nil {
				return nil, err
			}
			r.SetLine(axis, o, i, out)
		}
	}
	return
}

func (a *NDArray) Scale(c complex128) *NDArray {
	for i := range a.Data {
		a.Data[i] *= c
	}
	return a
}

func (a *NDArray) Add(b *NDArray) (err error) {
	if !SameShape(a.Shape, b.Shape) {
		return fmt.Errorf("%w: %v and %v", ErrShape, a.Shape, b.Shape)
	}
	for i := range a.Data {
		a.Data[i] += b.Data[i]
	}
	return
}

func (a *NDArray) Real() (r []float64) {
	r = make([]float64, len(a.Data))
	for i, v := range a.Data {
		r[i] = real(v)
	}
	return
}

func (a *NDArray) MaxAbs() (m float64) {
	for _, v := range a.Data {
		m = math.Max(m, cmplx.Abs(v))
	}
	return
}

// MaxAbsDiff returns the largest pointwise difference, or +Inf on a shape mismatch.
func (a *NDArray) MaxAbsDiff(b *NDArray) (m float64) {
	if !SameShape(a.Shape, b.Shape) {
		return math.Inf(1)
	}
	for i := range a.Data {
		m = math.Max(m, cmplx.Abs(a.Data[i]-b.Data[i]))
	}
	return
}

func (a *NDArray) String() string {
	return fmt.Sprintf("NDArray%v%v", a.Shape, a.Data)
}
