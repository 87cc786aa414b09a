package transform

import (
	"fmt"

	"github.com/notargets/gospectral/bases"
	"github.com/notargets/gospectral/utils"
	"gonum.org/v1/gonum/mat"
)

// vandermondeAxis transforms any polynomial or function basis through its
// Vandermonde matrix V at the native points. The forward transform solves
// with the discrete mass V^T W V, so that it inverts Backward exactly.
type vandermondeAxis struct {
	b      *bases.Basis
	V      *mat.Dense
	WV     *mat.Dense // diag(W) V, scaled to the physical domain
	lu     mat.LU
	re, im *mat.VecDense
	sRe    *mat.VecDense
	sIm    *mat.VecDense
}

func newVandermonde(b *bases.Basis) (ax *vandermondeAxis, err error) {
	var (
		X, W = b.NativePoints()
		n    = b.Dim()
		B    = mat.NewDense(n, n, nil)
	)
	ax = &vandermondeAxis{b: b}
	if ax.V, err = b.Vandermonde(X, 0); err != nil {
		return
	}
	ax.WV = mat.NewDense(len(X), n, nil)
	ax.WV.Apply(func(i, _ int, v float64) float64 { return W[i] * b.DomainFactor() * v }, ax.V)
	B.Mul(ax.V.T(), ax.WV)
	ax.lu.Factorize(B)
	if ax.lu.Cond() > 1.e14 {
		err = fmt.Errorf("%w: discrete mass of %v", utils.ErrSingular, b)
		return
	}
	ax.re, ax.im = mat.NewVecDense(len(X), nil), mat.NewVecDense(len(X), nil)
	ax.sRe, ax.sIm = mat.NewVecDense(n, nil), mat.NewVecDense(n, nil)
	return
}

func (ax *vandermondeAxis) Basis() *bases.Basis { return ax.b }
func (ax *vandermondeAxis) PhysicalLen() int    { return ax.b.N() }
func (ax *vandermondeAxis) SpectralLen() int    { return ax.b.Dim() }
func (ax *vandermondeAxis) Method() string      { return "vandermonde" }

func (ax *vandermondeAxis) ScalarProduct(u, s []complex128) (err error) {
	if err = checkLens(ax, u, s, ax.PhysicalLen(), ax.SpectralLen()); err != nil {
		return
	}
	for i, v := range u {
		ax.re.SetVec(i, real(v))
		ax.im.SetVec(i, imag(v))
	}
	ax.sRe.MulVec(ax.WV.T(), ax.re)
	ax.sIm.MulVec(ax.WV.T(), ax.im)
	for k := range s {
		s[k] = complex(ax.sRe.AtVec(k), ax.sIm.AtVec(k))
	}
	return
}

func (ax *vandermondeAxis) Forward(u, c []complex128) (err error) {
	if err = ax.ScalarProduct(u, c); err != nil {
		return
	}
	if err = ax.lu.SolveVecTo(ax.sRe, false, ax.sRe); err != nil {
		return
	}
	if err = ax.lu.SolveVecTo(ax.sIm, false, ax.sIm); err != nil {
		return
	}
	for k := range c {
		c[k] = complex(ax.sRe.AtVec(k), ax.sIm.AtVec(k))
	}
	return
}

func (ax *vandermondeAxis) Backward(c, u []complex128) (err error) {
	if err = checkLens(ax, c, u, ax.SpectralLen(), ax.PhysicalLen()); err != nil {
		return
	}
	for k, v := range c {
		ax.sRe.SetVec(k, real(v))
		ax.sIm.SetVec(k, imag(v))
	}
	ax.re.MulVec(ax.V, ax.sRe)
	ax.im.MulVec(ax.V, ax.sIm)
	for i := range u {
		u[i] = complex(ax.re.AtVec(i), ax.im.AtVec(i))
	}
	return
}
